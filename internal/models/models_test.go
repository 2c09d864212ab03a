package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTenant_Location(t *testing.T) {
	fallback := time.FixedZone("fallback", 3600)
	tests := []struct {
		name   string
		tenant *Tenant
		want   string
	}{
		{"nil tenant", nil, "fallback"},
		{"empty zone", &Tenant{}, "fallback"},
		{"unknown zone", &Tenant{Timezone: "Nowhere/Atlantis"}, "fallback"},
		{"utc", &Tenant{Timezone: "UTC"}, "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tenant.Location(fallback).String(); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_Balance(t *testing.T) {
	d := &Document{Total: decimal.NewFromInt(406), PaidAmount: decimal.NewFromInt(100)}
	if got := d.Balance(); !got.Equal(decimal.NewFromInt(306)) {
		t.Errorf("Balance() = %s, want 306", got)
	}
	if d.IsPaid() {
		t.Error("IsPaid() = true for unpaid status")
	}
	d.Status = DocumentStatusPaid
	if !d.IsPaid() {
		t.Error("IsPaid() = false for paid status")
	}
}

func TestLedgerDirection_Sign(t *testing.T) {
	tests := []struct {
		dir  LedgerDirection
		want int64
	}{
		{LedgerCredit, 1},
		{LedgerDebit, -1},
		{LedgerNone, 0},
	}
	for _, tt := range tests {
		if got := tt.dir.Sign(); !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("%q.Sign() = %s, want %d", tt.dir, got, tt.want)
		}
	}
}

func TestInventoryItem_TracksStock(t *testing.T) {
	if (&InventoryItem{IsService: true}).TracksStock() {
		t.Error("service item should not track stock")
	}
	if !(&InventoryItem{}).TracksStock() {
		t.Error("goods item should track stock")
	}
}
