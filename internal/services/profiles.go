package services

import (
	"github.com/shopspring/decimal"

	"github.com/diewo77/go-documents/internal/models"
	"github.com/diewo77/go-documents/internal/numbering"
)

// InventoryDirection is how a document moves stock for its lines.
type InventoryDirection int

const (
	InventoryNone InventoryDirection = iota
	InventoryOut
	InventoryIn
)

// Delta returns the signed stock change for quantity.
func (d InventoryDirection) Delta(quantity decimal.Decimal) decimal.Decimal {
	switch d {
	case InventoryOut:
		return quantity.Neg()
	case InventoryIn:
		return quantity
	default:
		return decimal.Zero
	}
}

func (d InventoryDirection) String() string {
	switch d {
	case InventoryOut:
		return "out"
	case InventoryIn:
		return "in"
	default:
		return "none"
	}
}

// Profile parameterises the one document service for a document type.
type Profile struct {
	DocType   models.DocType
	Prefix    string
	DateRule  numbering.DateRule
	Inventory InventoryDirection
	Ledger    models.LedgerDirection
	ScopeLock bool
	// Billable documents carry a payment status; the others stay open.
	Billable bool
}

// AcceptsPayment reports whether a payment may be applied to this document type.
func (p Profile) AcceptsPayment() bool {
	return p.Ledger != models.LedgerNone
}

// Status derives the document status from the paid amount.
func (p Profile) Status(total, paid decimal.Decimal) models.DocumentStatus {
	switch {
	case !p.Billable:
		return models.DocumentStatusOpen
	case paid.IsZero():
		return models.DocumentStatusUnpaid
	case paid.LessThan(total):
		return models.DocumentStatusPartiallyPaid
	default:
		return models.DocumentStatusPaid
	}
}

// Profiles is the registry of known document types.
type Profiles map[models.DocType]Profile

// DefaultProfiles returns the built-in document types.
func DefaultProfiles() Profiles {
	return Profiles{
		models.DocTypeInvoice: {
			DocType: models.DocTypeInvoice, Prefix: "INV", DateRule: numbering.Daily,
			Inventory: InventoryOut, Ledger: models.LedgerCredit, ScopeLock: true, Billable: true,
		},
		models.DocTypeQuotation: {
			DocType: models.DocTypeQuotation, Prefix: "QUO", DateRule: numbering.Daily,
			Inventory: InventoryNone, Ledger: models.LedgerNone, ScopeLock: false, Billable: false,
		},
		models.DocTypePurchaseInvoice: {
			DocType: models.DocTypePurchaseInvoice, Prefix: "PINV", DateRule: numbering.Daily,
			Inventory: InventoryIn, Ledger: models.LedgerDebit, ScopeLock: true, Billable: true,
		},
		models.DocTypeGoodsReturn: {
			DocType: models.DocTypeGoodsReturn, Prefix: "GRN", DateRule: numbering.Daily,
			Inventory: InventoryIn, Ledger: models.LedgerNone, ScopeLock: true, Billable: true,
		},
		models.DocTypeConsultation: {
			DocType: models.DocTypeConsultation, Prefix: "CONS", DateRule: numbering.Daily,
			Inventory: InventoryOut, Ledger: models.LedgerCredit, ScopeLock: true, Billable: true,
		},
	}
}

// Lookup returns the profile for docType.
func (p Profiles) Lookup(docType models.DocType) (Profile, bool) {
	prof, ok := p[docType]
	return prof, ok
}
