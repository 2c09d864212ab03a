package models

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is an isolated business account. Every document, item and account belongs to one.
type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Code     string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Timezone string `gorm:"size:64" json:"timezone,omitempty"`
}

// Location returns the tenant's time zone, or fallback when unset or unknown.
func (t *Tenant) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if t == nil || t.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
