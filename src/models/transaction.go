package models

import (
	"time"

	"signup/src/types"

	"github.com/google/uuid"
)

// DonationTransaction is one successfully billed cycle of a Donation.
// The (donation_id, stripe_invoice_id) unique index is the idempotency
// guard against duplicate webhook deliveries.
type DonationTransaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	DonationID      uint       `gorm:"uniqueIndex:ux_donation_invoice" json:"donation_id"`
	StripeInvoiceId string     `gorm:"uniqueIndex:ux_donation_invoice" json:"stripe_invoice_id"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	Donation Donation `gorm:"foreignKey:donation_id" json:"-"`

	types.Timestamps
}
