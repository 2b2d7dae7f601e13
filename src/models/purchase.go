package models

import (
	"time"

	"signup/src/types"
)

// Purchase is one checkout attempt for a program or event. Exactly one of
// ProgramID/EventID is set. Status transitions are compare-and-set updates
// keyed on (id, status) so concurrent webhook deliveries serialize per row.
// The partial unique indexes enforce at most one pending row per
// (user, offering) pair even across concurrent checkout attempts.
type Purchase struct {
	ID          uint                 `gorm:"primarykey" json:"id"`
	OrderNumber string               `gorm:"uniqueIndex" json:"order_number"`
	UserID      uint                 `gorm:"index:ux_purchases_pending_program,unique,where:status = 'pending';index:ux_purchases_pending_event,unique,where:status = 'pending'" json:"user_id,omitempty"`
	ProgramID   *uint                `gorm:"index:ux_purchases_pending_program,unique,where:status = 'pending'" json:"program_id,omitempty"`
	EventID     *uint                `gorm:"index:ux_purchases_pending_event,unique,where:status = 'pending'" json:"event_id,omitempty"`
	Status      types.PurchaseStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Currency    string               `gorm:"default:'usd'" json:"currency,omitempty"`

	// pricing snapshot, frozen at checkout
	FullPrice         int64 `json:"full_price"`
	ClassRepDiscount  int64 `json:"class_rep_discount"`
	EarlyBirdDiscount int64 `json:"early_bird_discount"`
	PromoDiscount     int64 `json:"promo_discount"`
	FinalPrice        int64 `json:"final_price"`
	IsClassRep        bool  `json:"is_class_rep"`
	IsEarlyBird       bool  `json:"is_early_bird"`

	// external correlation; session id is replaced on retry
	StripeSessionId       *string `gorm:"index" json:"stripe_session_id,omitempty"`
	StripePaymentIntentId *string `gorm:"index" json:"stripe_payment_intent_id,omitempty"`

	// billing snapshot, written once from the webhook payload
	CardBrand      *string `json:"card_brand,omitempty"`
	CardLast4      *string `json:"card_last4,omitempty"`
	BillingName    *string `json:"billing_name,omitempty"`
	BillingAddress *string `json:"billing_address,omitempty"`

	PurchaseDate *time.Time   `json:"purchase_date,omitempty"`
	Metadata     *types.JSONB `gorm:"type:jsonb" json:"-"`

	User    *User    `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Program *Program `gorm:"foreignKey:program_id" json:"program,omitempty"`
	Event   *Event   `gorm:"foreignKey:event_id" json:"event,omitempty"`

	types.Timestamps
}

// OfferingRef returns the kind and id of the purchased offering.
func (p *Purchase) OfferingRef() (types.OfferingKind, uint) {
	if p.ProgramID != nil {
		return types.OFFERING_PROGRAM, *p.ProgramID
	}
	if p.EventID != nil {
		return types.OFFERING_EVENT, *p.EventID
	}
	return "", 0
}
