package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocType identifies a document-type profile.
type DocType string

const (
	DocTypeInvoice         DocType = "invoice"
	DocTypeQuotation       DocType = "quotation"
	DocTypePurchaseInvoice DocType = "purchase_invoice"
	DocTypeGoodsReturn     DocType = "goods_return"
	DocTypeConsultation    DocType = "consultation"
)

// DocumentStatus is derived from the document type and the paid amount.
type DocumentStatus string

const (
	DocumentStatusOpen          DocumentStatus = "open"
	DocumentStatusUnpaid        DocumentStatus = "unpaid"
	DocumentStatusPartiallyPaid DocumentStatus = "partially_paid"
	DocumentStatusPaid          DocumentStatus = "paid"
)

// Index names referenced by the error classifier.
const (
	IndexDocumentNumber      = "idx_documents_scope_number"
	IndexDocumentIdempotency = "idx_documents_idempotency"
)

// Document is the numbered parent row (invoice, quotation, ...).
// Number is unique per (tenant, doc type); soft-deleted rows keep their number.
type Document struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TenantID uint    `gorm:"not null;uniqueIndex:idx_documents_scope_number,priority:1;uniqueIndex:idx_documents_idempotency,priority:1;index:idx_documents_sequence,priority:1" json:"tenant_id"`
	DocType  DocType `gorm:"size:32;not null;uniqueIndex:idx_documents_scope_number,priority:2;index:idx_documents_sequence,priority:2" json:"doc_type"`
	Number   string  `gorm:"size:64;not null;uniqueIndex:idx_documents_scope_number,priority:3" json:"number"`

	// SequenceDate is the date key embedded in Number (YYYYMMDD, YYYYMM or YYYY).
	SequenceDate string `gorm:"size:8;not null;index:idx_documents_sequence,priority:3" json:"sequence_date"`
	SequenceNo   int64  `gorm:"not null" json:"sequence_no"`

	Status       DocumentStatus  `gorm:"size:20;not null" json:"status"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax_rate"`
	Tax          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discount_rate"`
	Discount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discount"`
	Rounding     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rounding"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"paid_amount"`

	IdempotencyKey *string `gorm:"size:128;uniqueIndex:idx_documents_idempotency,priority:2" json:"idempotency_key,omitempty"`

	Lines    []DocumentLine  `gorm:"foreignKey:DocumentID" json:"lines,omitempty"`
	Payments []PaymentRecord `gorm:"foreignKey:DocumentID" json:"payments,omitempty"`
}

// Balance returns the amount still due.
func (d *Document) Balance() decimal.Decimal {
	return d.Total.Sub(d.PaidAmount)
}

// IsPaid returns true once the paid amount covers the total.
func (d *Document) IsPaid() bool {
	return d.Status == DocumentStatusPaid
}

// DocumentLine is one line item. LineTotal = Quantity * UnitPrice.
type DocumentLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DocumentID uint  `gorm:"index;not null" json:"document_id"`
	ItemID     *uint `gorm:"index" json:"item_id,omitempty"`
	Position   int   `gorm:"not null" json:"position"`

	Description string `gorm:"size:500;not null" json:"description"`
	// Classification copied from the catalog at write time.
	ItemName string `gorm:"size:255" json:"item_name,omitempty"`
	Category string `gorm:"size:100" json:"category,omitempty"`

	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
}
