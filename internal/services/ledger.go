package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/internal/models"
)

// PaymentInput is a payment applied while writing a document.
type PaymentInput struct {
	AccountID uint            `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// LedgerUpdater moves account balances and keeps the payment audit trail.
type LedgerUpdater struct {
	now func() time.Time
}

func NewLedgerUpdater(now func() time.Time) *LedgerUpdater {
	if now == nil {
		now = time.Now
	}
	return &LedgerUpdater{now: now}
}

// ApplyPayment credits or debits the account by p.Amount and inserts one
// PaymentRecord. A missing reference is filled with a random UUID.
func (l *LedgerUpdater) ApplyPayment(tx *gorm.DB, tenantID uint, p PaymentInput, dir models.LedgerDirection, documentID uint) (*models.PaymentRecord, error) {
	if dir == models.LedgerNone {
		return nil, fmt.Errorf("apply payment to document %d: no ledger direction", documentID)
	}
	if err := l.move(tx, tenantID, p.AccountID, dir.Sign().Mul(p.Amount)); err != nil {
		return nil, err
	}
	ref := p.Reference
	if ref == "" {
		ref = uuid.NewString()
	}
	rec := &models.PaymentRecord{
		TenantID:   tenantID,
		DocumentID: documentID,
		AccountID:  p.AccountID,
		Amount:     p.Amount,
		Direction:  dir,
		Method:     p.Method,
		Reference:  ref,
		PaidAt:     l.now().UTC(),
	}
	if err := tx.Create(rec).Error; err != nil {
		return nil, storageErr("record payment", err)
	}
	return rec, nil
}

// RevertPayments undoes the balance effect of every payment of the document and
// deletes the records. Used by the update path only.
func (l *LedgerUpdater) RevertPayments(tx *gorm.DB, tenantID, documentID uint) (int, error) {
	var recs []models.PaymentRecord
	if err := tx.Where("tenant_id = ? AND document_id = ?", tenantID, documentID).Order("id").Find(&recs).Error; err != nil {
		return 0, storageErr("load payments", err)
	}
	for _, r := range recs {
		if err := l.move(tx.Unscoped(), tenantID, r.AccountID, r.Direction.Sign().Mul(r.Amount).Neg()); err != nil {
			return 0, err
		}
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if err := tx.Where("tenant_id = ? AND document_id = ?", tenantID, documentID).Delete(&models.PaymentRecord{}).Error; err != nil {
		return 0, storageErr("delete payments", err)
	}
	return len(recs), nil
}

func (l *LedgerUpdater) move(tx *gorm.DB, tenantID, accountID uint, delta decimal.Decimal) error {
	res := tx.Model(&models.LedgerAccount{}).
		Where("id = ? AND tenant_id = ?", accountID, tenantID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return storageErr(fmt.Sprintf("update account %d", accountID), res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "account", ID: accountID}
	}
	return nil
}
