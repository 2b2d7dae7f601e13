package models

import "signup/src/types"

// Donation is a recurring giving subscription. Checkout creates it pending;
// the webhook reconciler attaches the Stripe customer/subscription ids and
// records each billing cycle in DonationTransaction.
type Donation struct {
	ID       uint                 `gorm:"primarykey" json:"id"`
	UserID   uint                 `json:"user_id,omitempty"`
	Amount   int64                `json:"amount,omitempty"`
	Currency string               `gorm:"default:'usd'" json:"currency,omitempty"`
	Interval string               `gorm:"default:'month'" json:"interval,omitempty"`
	Status   types.DonationStatus `gorm:"default:'pending'" json:"status,omitempty"`

	StripeSessionId      *string `gorm:"index" json:"stripe_session_id,omitempty"`
	StripeCustomerId     *string `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionId *string `gorm:"index" json:"stripe_subscription_id,omitempty"`

	User         *User                 `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Transactions []DonationTransaction `json:"transactions,omitempty"`

	types.Timestamps
}
