package models

import "signup/src/types"

type User struct {
	ID               uint    `gorm:"primarykey" json:"id"`
	Name             string  `json:"name,omitempty"`
	Email            string  `gorm:"uniqueIndex" json:"email,omitempty"`
	Role             string  `gorm:"default:'participant'" json:"role,omitempty"`
	StripeCustomerId *string `json:"stripe_customer_id,omitempty"`

	types.Timestamps
}
