package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerDirection says which way a payment moves an account balance.
type LedgerDirection string

const (
	LedgerNone   LedgerDirection = ""
	LedgerCredit LedgerDirection = "credit" // money in
	LedgerDebit  LedgerDirection = "debit"  // money out
)

// Sign returns +1 for credit, -1 for debit and 0 otherwise.
func (d LedgerDirection) Sign() decimal.Decimal {
	switch d {
	case LedgerCredit:
		return decimal.NewFromInt(1)
	case LedgerDebit:
		return decimal.NewFromInt(-1)
	default:
		return decimal.Zero
	}
}

// LedgerAccount is a financial account (cash, bank, ...) with a running balance.
type LedgerAccount struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TenantID uint            `gorm:"index;not null" json:"tenant_id"`
	Name     string          `gorm:"size:255;not null" json:"name"`
	Balance  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance"`
}

// PaymentRecord is the audit row for one payment application.
type PaymentRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TenantID   uint            `gorm:"index;not null" json:"tenant_id"`
	DocumentID uint            `gorm:"index;not null" json:"document_id"`
	AccountID  uint            `gorm:"index;not null" json:"account_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Direction  LedgerDirection `gorm:"size:10;not null" json:"direction"`
	Method     string          `gorm:"size:50" json:"method,omitempty"`
	Reference  string          `gorm:"size:100" json:"reference,omitempty"`
	PaidAt     time.Time       `gorm:"not null" json:"paid_at"`
}
