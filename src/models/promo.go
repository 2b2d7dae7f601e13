package models

import (
	"time"

	"signup/src/types"
)

type PromoCode struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Code      string     `gorm:"uniqueIndex" json:"code"`
	Discount  int64      `json:"discount"`
	ProgramID *uint      `json:"program_id,omitempty"`
	EventID   *uint      `json:"event_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Active    bool       `gorm:"default:true" json:"active"`

	types.Timestamps
}
