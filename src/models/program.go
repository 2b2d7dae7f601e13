package models

import (
	"time"

	"signup/src/types"
)

// Program is a purchasable enrollment offering. The class-rep counter lives
// on the row itself so reserve/release can be a single guarded UPDATE.
type Program struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	Title             string     `json:"title,omitempty"`
	Slug              string     `gorm:"uniqueIndex" json:"slug,omitempty"`
	Currency          string     `gorm:"default:'usd'" json:"currency,omitempty"`
	FullPrice         int64      `json:"full_price,omitempty"`
	ClassRepDiscount  int64      `json:"class_rep_discount,omitempty"`
	EarlyBirdDiscount int64      `json:"early_bird_discount,omitempty"`
	EarlyBirdDeadline *time.Time `json:"early_bird_deadline,omitempty"`
	ClassRepLimit     uint       `json:"class_rep_limit,omitempty"`
	ClassRepCount     uint       `json:"class_rep_count,omitempty"`
	IsFree            bool       `json:"is_free,omitempty"`

	types.Timestamps
}
