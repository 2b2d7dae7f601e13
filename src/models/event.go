package models

import (
	"time"

	"signup/src/types"
)

// Event is a paid-ticket offering. Same pricing and class-rep shape as
// Program so both can be resolved into a types.Offering.
type Event struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	Title             string     `json:"title,omitempty"`
	Slug              string     `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location          string     `json:"location,omitempty"`
	DateTime          *time.Time `json:"date_time,omitempty"`
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
