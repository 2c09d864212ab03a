package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-documents/internal/logger"
	"github.com/diewo77/go-documents/internal/models"
	"github.com/diewo77/go-documents/internal/numbering"
	"github.com/diewo77/go-documents/internal/scopelock"
	"github.com/diewo77/go-documents/validation"
)

const (
	DefaultTxTimeout   = 30 * time.Second
	defaultLockTimeout = 5 * time.Second
)

// LineInput is one requested document line. Totals are always recomputed.
type LineInput struct {
	ItemID      *uint           `json:"item_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInput is the request to create a document of DocType.
type CreateInput struct {
	TenantID       uint
	DocType        models.DocType
	Date           time.Time // zero means now
	Lines          []LineInput
	TaxRate        decimal.Decimal
	DiscountRate   decimal.Decimal
	Payment        *PaymentInput
	IdempotencyKey string
}

// UpdateInput replaces a document's lines, rates and payment.
type UpdateInput struct {
	TenantID     uint
	DocumentID   uint
	Lines        []LineInput
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Payment      *PaymentInput
}

// Result is what a committed write returns.
type Result struct {
	Document    *models.Document `json:"document"`
	Number      string           `json:"number"`
	StockAlerts []StockAlert     `json:"stock_alerts,omitempty"`
	Replayed    bool             `json:"replayed,omitempty"`
}

// Hook runs inside the transaction right before commit. An error aborts the write.
type Hook func(tx *gorm.DB, doc *models.Document) error

// DocumentService is the transactional orchestrator for every document type.
type DocumentService struct {
	db           *gorm.DB
	profiles     Profiles
	seq          *sequencer
	locker       scopelock.Locker
	catalog      ItemCatalog
	accounts     AccountDirectory
	inventory    *InventoryAdjuster
	ledger       *LedgerUpdater
	width        int
	loc          *time.Location
	txTimeout    time.Duration
	now          func() time.Time
	beforeCommit []Hook
	log          zerolog.Logger
}

// Option configures a DocumentService.
type Option func(*DocumentService)

func WithProfiles(p Profiles) Option { return func(s *DocumentService) { s.profiles = p } }
func WithAllocator(a numbering.Allocator) Option { return func(s *DocumentService) { s.seq.alloc = a } }
func WithLocker(l scopelock.Locker) Option { return func(s *DocumentService) { s.locker = l } }
func WithCatalog(c ItemCatalog) Option { return func(s *DocumentService) { s.catalog = c } }
func WithAccounts(a AccountDirectory) Option { return func(s *DocumentService) { s.accounts = a } }
func WithNumberWidth(w int) Option { return func(s *DocumentService) { s.width = w } }
func WithLocation(loc *time.Location) Option { return func(s *DocumentService) { s.loc = loc } }
func WithTxTimeout(d time.Duration) Option { return func(s *DocumentService) { s.txTimeout = d } }
func WithClock(now func() time.Time) Option { return func(s *DocumentService) { s.now = now } }
func WithLogger(l zerolog.Logger) Option { return func(s *DocumentService) { s.log = l } }
func WithBeforeCommit(h ...Hook) Option {
	return func(s *DocumentService) { s.beforeCommit = append(s.beforeCommit, h...) }
}
func WithMaxAttempts(n int) Option {
	return func(s *DocumentService) {
		if n > 0 {
			s.seq.maxAttempts = n
		}
	}
}

func NewDocumentService(db *gorm.DB, opts ...Option) *DocumentService {
	s := &DocumentService{
		db:        db,
		profiles:  DefaultProfiles(),
		seq:       &sequencer{alloc: numbering.StoreAllocator{}, maxAttempts: DefaultMaxAttempts},
		catalog:   GormCatalog{},
		accounts:  GormAccounts{},
		width:     numbering.DefaultWidth,
		loc:       time.UTC,
		txTimeout: DefaultTxTimeout,
		now:       time.Now,
		log:       logger.WithComponent("documents"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.locker == nil {
		l, err := scopelock.New(scopelock.StrategyAuto, db.Dialector.Name(), defaultLockTimeout)
		if err != nil {
			l = scopelock.Noop{}
		}
		s.locker = l
	}
	s.seq.log = s.log
	s.inventory = NewInventoryAdjuster(s.log)
	s.ledger = NewLedgerUpdater(s.now)
	return s
}

// CreateDocument numbers and persists a document with its lines, stock
// movements and optional payment in one transaction.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateInput) (*Result, error) {
	profile, ok := s.profiles.Lookup(in.DocType)
	payment := nonZeroPayment(in.Payment)
	v := make(validation.Violations)
	validation.RequiredID("tenant_id", in.TenantID, v)
	if !ok {
		v["doc_type"] = "unknown"
	}
	totals := s.validateContent(in.Lines, in.TaxRate, in.DiscountRate, payment, profile, ok, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	ctx, cancel := s.txContext(ctx)
	defer cancel()

	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := s.loadTenant(tx, in.TenantID)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			prev, err := s.findByIdempotencyKey(tx, tenant.ID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if prev != nil {
				if prev.DocType != profile.DocType {
					return fmt.Errorf("%w: idempotency key already used by a %s", ErrDuplicateRequest, prev.DocType)
				}
				res = &Result{Document: prev, Number: prev.Number, Replayed: true}
				return nil
			}
		}

		at := in.Date
		if at.IsZero() {
			at = s.now()
		}
		scope := numbering.NewScope(tenant.ID, profile.DocType, profile.Prefix, profile.DateRule, at, tenant.Location(s.loc), s.width)
		if profile.ScopeLock {
			scopelock.Acquire(tx, s.locker, scope.LockKey(), tenant.ID, s.log)
		}

		doc := &models.Document{
			TenantID: tenant.ID,
			DocType:  profile.DocType,
		}
		setAmounts(doc, profile, totals, in.TaxRate, in.DiscountRate, payment)
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			doc.IdempotencyKey = &key
		}
		if err := s.seq.insert(tx, scope, doc); err != nil {
			return err
		}

		alerts, err := s.apply(tx, profile, doc, in.Lines, totals, payment, ReasonDocumentCreated)
		if err != nil {
			return err
		}
		if err := s.runHooks(tx, doc); err != nil {
			return err
		}
		res = &Result{Document: doc, Number: doc.Number, StockAlerts: alerts}
		return nil
	})
	if err != nil {
		err = storageErr("create document", err)
		s.logFailure(err, "create document failed", in.TenantID, in.DocType)
		return nil, err
	}
	s.logCommitted("document created", res)
	return res, nil
}

// UpdateDocument reverses the document's stock movements and payments, replaces
// its lines and reapplies everything from the new input. The number is kept.
func (s *DocumentService) UpdateDocument(ctx context.Context, in UpdateInput) (*Result, error) {
	payment := nonZeroPayment(in.Payment)
	v := make(validation.Violations)
	validation.RequiredID("tenant_id", in.TenantID, v)
	validation.RequiredID("document_id", in.DocumentID, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	profile, err := s.documentProfile(ctx, in.TenantID, in.DocumentID)
	if err != nil {
		return nil, err
	}
	totals := s.validateContent(in.Lines, in.TaxRate, in.DiscountRate, payment, profile, true, v)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	ctx, cancel := s.txContext(ctx)
	defer cancel()

	var res *Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.lockDocument(tx, in.TenantID, in.DocumentID)
		if err != nil {
			return err
		}

		if _, err := s.inventory.Reverse(tx, doc.TenantID, doc.ID, ReasonDocumentUpdated); err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLine{}).Error; err != nil {
			return storageErr("delete lines", err)
		}
		if _, err := s.ledger.RevertPayments(tx, doc.TenantID, doc.ID); err != nil {
			return err
		}

		setAmounts(doc, profile, totals, in.TaxRate, in.DiscountRate, payment)
		err = tx.Model(doc).Select(
			"status", "subtotal", "tax_rate", "tax", "discount_rate", "discount",
			"rounding", "total", "paid_amount", "updated_at",
		).Updates(doc).Error
		if err != nil {
			return storageErr("update document", err)
		}

		alerts, err := s.apply(tx, profile, doc, in.Lines, totals, payment, ReasonDocumentUpdated)
		if err != nil {
			return err
		}
		if err := s.runHooks(tx, doc); err != nil {
			return err
		}
		res = &Result{Document: doc, Number: doc.Number, StockAlerts: alerts}
		return nil
	})
	if err != nil {
		err = storageErr("update document", err)
		s.logFailure(err, "update document failed", in.TenantID, "")
		return nil, err
	}
	s.logCommitted("document updated", res)
	return res, nil
}

// DeleteDocument soft-deletes the document, removes its lines and reverses its
// stock movements. Ledger balances and payment records are left as they are.
func (s *DocumentService) DeleteDocument(ctx context.Context, tenantID, documentID uint) error {
	v := make(validation.Violations)
	validation.RequiredID("tenant_id", tenantID, v)
	validation.RequiredID("document_id", documentID, v)
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}

	ctx, cancel := s.txContext(ctx)
	defer cancel()

	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.lockDocument(tx, tenantID, documentID)
		if err != nil {
			return err
		}
		number = doc.Number
		if _, err := s.inventory.Reverse(tx, tenantID, doc.ID, ReasonDocumentDeleted); err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLine{}).Error; err != nil {
			return storageErr("delete lines", err)
		}
		if err := tx.Delete(doc).Error; err != nil {
			return storageErr("delete document", err)
		}
		return nil
	})
	if err != nil {
		err = storageErr("delete document", err)
		s.logFailure(err, "delete document failed", tenantID, "")
		return err
	}
	s.log.Info().Uint("tenant_id", tenantID).Uint("document_id", documentID).Str("number", number).Msg("document deleted")
	return nil
}

// GetDocument loads a live document with its lines and payments.
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, documentID uint) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND tenant_id = ?", documentID, tenantID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "document", ID: documentID}
	}
	if err != nil {
		return nil, storageErr("get document", err)
	}
	return &doc, nil
}

// apply writes the lines, their stock movements and the payment of doc.
func (s *DocumentService) apply(tx *gorm.DB, profile Profile, doc *models.Document, lines []LineInput, totals Totals, payment *PaymentInput, reason string) ([]StockAlert, error) {
	var alerts []StockAlert
	doc.Lines = make([]models.DocumentLine, 0, len(lines))
	for i, in := range lines {
		line := models.DocumentLine{
			DocumentID:  doc.ID,
			ItemID:      in.ItemID,
			Position:    i + 1,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			LineTotal:   totals.LineTotals[i],
		}
		var item *models.InventoryItem
		if in.ItemID != nil {
			var err error
			item, err = s.catalog.Lookup(tx, doc.TenantID, *in.ItemID)
			if err != nil {
				return nil, err
			}
			line.ItemName = item.Name
			line.Category = item.Category
			if line.Description == "" {
				line.Description = item.Name
			}
		}
		if err := tx.Create(&line).Error; err != nil {
			return nil, storageErr("insert line", err)
		}
		doc.Lines = append(doc.Lines, line)

		if item == nil || !item.TracksStock() || profile.Inventory == InventoryNone {
			continue
		}
		_, alert, err := s.inventory.Adjust(tx, doc.TenantID, item.ID, profile.Inventory.Delta(in.Quantity), doc.ID, reason)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	doc.Payments = nil
	if payment != nil {
		if _, err := s.accounts.Account(tx, doc.TenantID, payment.AccountID); err != nil {
			return nil, err
		}
		rec, err := s.ledger.ApplyPayment(tx, doc.TenantID, *payment, profile.Ledger, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Payments = []models.PaymentRecord{*rec}
	}
	return alerts, nil
}

func (s *DocumentService) runHooks(tx *gorm.DB, doc *models.Document) error {
	for _, h := range s.beforeCommit {
		if err := h(tx, doc); err != nil {
			return err
		}
	}
	return nil
}

// validateContent checks lines, rates and payment and returns the computed totals.
// Payment rules that depend on the profile are skipped when the profile is unknown.
func (s *DocumentService) validateContent(lines []LineInput, taxRate, discountRate decimal.Decimal, payment *PaymentInput, profile Profile, haveProfile bool, v validation.Violations) Totals {
	if len(lines) == 0 {
		v["lines"] = "required"
	}
	for i, l := range lines {
		field := "lines[" + strconv.Itoa(i) + "]"
		if l.ItemID == nil {
			validation.Required(field+".description", l.Description, v)
		} else if *l.ItemID == 0 {
			v[field+".item_id"] = "required"
		}
		validation.PositiveDecimal(field+".quantity", l.Quantity, v)
		validation.NonNegativeDecimal(field+".unit_price", l.UnitPrice, v)
	}
	validation.RangeDecimal("tax_rate", taxRate, decimal.Zero, hundred, v)
	validation.RangeDecimal("discount_rate", discountRate, decimal.Zero, hundred, v)

	totals := ComputeTotals(lines, taxRate, discountRate)
	if payment != nil && haveProfile {
		validatePayment(payment, totals, profile, v)
	} else if payment != nil {
		validation.RequiredID("payment.account_id", payment.AccountID, v)
		validation.PositiveDecimal("payment.amount", payment.Amount, v)
	}
	return totals
}

// nonZeroPayment drops a zero payment: the document is written without a ledger step.
func nonZeroPayment(p *PaymentInput) *PaymentInput {
	if p != nil && p.Amount.IsZero() {
		return nil
	}
	return p
}

func validatePayment(p *PaymentInput, totals Totals, profile Profile, v validation.Violations) {
	if !profile.AcceptsPayment() {
		v["payment"] = "not_allowed"
		return
	}
	validation.RequiredID("payment.account_id", p.AccountID, v)
	validation.PositiveDecimal("payment.amount", p.Amount, v)
	if p.Amount.GreaterThan(totals.Total) {
		v["payment.amount"] = "exceeds_total"
	}
}

func setAmounts(doc *models.Document, profile Profile, t Totals, taxRate, discountRate decimal.Decimal, payment *PaymentInput) {
	paid := decimal.Zero
	if payment != nil {
		paid = payment.Amount
	}
	doc.Subtotal = t.Subtotal
	doc.TaxRate = taxRate
	doc.Tax = t.Tax
	doc.DiscountRate = discountRate
	doc.Discount = t.Discount
	doc.Rounding = t.Rounding
	doc.Total = t.Total
	doc.PaidAmount = paid
	doc.Status = profile.Status(t.Total, paid)
}

func (s *DocumentService) loadTenant(tx *gorm.DB, tenantID uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := tx.First(&tenant, tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "tenant", ID: tenantID}
	}
	if err != nil {
		return nil, storageErr("load tenant", err)
	}
	return &tenant, nil
}

// documentProfile reads the document's type before the write transaction so
// payment rules are checked up front. The type never changes after creation.
func (s *DocumentService) documentProfile(ctx context.Context, tenantID, documentID uint) (Profile, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Select("id", "doc_type").
		Where("id = ? AND tenant_id = ?", documentID, tenantID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, &NotFoundError{Resource: "document", ID: documentID}
	}
	if err != nil {
		return Profile{}, storageErr("load document", err)
	}
	profile, ok := s.profiles.Lookup(doc.DocType)
	if !ok {
		return Profile{}, &ValidationError{Violations: validation.Violations{"doc_type": "unknown"}}
	}
	return profile, nil
}

func (s *DocumentService) lockDocument(tx *gorm.DB, tenantID, documentID uint) (*models.Document, error) {
	var doc models.Document
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", documentID, tenantID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "document", ID: documentID}
	}
	if err != nil {
		return nil, storageErr("lock document", err)
	}
	return &doc, nil
}

func (s *DocumentService) findByIdempotencyKey(tx *gorm.DB, tenantID uint, key string) (*models.Document, error) {
	var doc models.Document
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Payments").
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("lookup idempotency key", err)
	}
	return &doc, nil
}

// txContext detaches the transaction from caller cancellation and bounds it.
func (s *DocumentService) txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
}

func (s *DocumentService) logCommitted(msg string, res *Result) {
	d := res.Document
	s.log.Info().
		Uint("tenant_id", d.TenantID).
		Str("doc_type", string(d.DocType)).
		Str("number", d.Number).
		Str("total", d.Total.String()).
		Bool("replayed", res.Replayed).
		Msg(msg)
	for _, a := range res.StockAlerts {
		s.log.Warn().
			Uint("tenant_id", d.TenantID).
			Uint("item_id", a.ItemID).
			Str("sku", a.SKU).
			Str("quantity", a.Quantity.String()).
			Bool("negative", a.Negative).
			Msg("stock alert")
	}
}

func (s *DocumentService) logFailure(err error, msg string, tenantID uint, docType models.DocType) {
	ev := s.log.Warn()
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrSequenceExhausted) {
		ev = s.log.Error()
	}
	ev.Err(err).Uint("tenant_id", tenantID).Str("doc_type", string(docType)).Msg(msg)
}
