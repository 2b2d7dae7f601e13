package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type PurchaseStatus string

const (
	PURCHASE_PENDING   PurchaseStatus = "pending"
	PURCHASE_COMPLETED PurchaseStatus = "completed"
	PURCHASE_FAILED    PurchaseStatus = "failed"
	PURCHASE_CANCELED  PurchaseStatus = "cancelled"
)

type DonationStatus string

const (
	DONATION_PENDING  DonationStatus = "pending"
	DONATION_ACTIVE   DonationStatus = "active"
	DONATION_CANCELED DonationStatus = "cancelled"
)

type OfferingKind string

const (
	OFFERING_PROGRAM OfferingKind = "program"
	OFFERING_EVENT   OfferingKind = "event"
)

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

// Offering is the priced view of a purchasable program enrollment or paid
// event ticket, resolved by the lookup in common and consumed by the
// pricing calculator and checkout initiator.
type Offering struct {
	Kind              OfferingKind
	ID                uint
	Title             string
	Currency          string
	FullPrice         int64
	ClassRepDiscount  int64
	EarlyBirdDiscount int64
	EarlyBirdDeadline *time.Time
	ClassRepLimit     uint
	IsFree            bool
}

// PricingSnapshot is the write-once price breakdown frozen on the purchase
// record at checkout time. Amounts are minor currency units.
type PricingSnapshot struct {
	FullPrice         int64 `json:"full_price"`
	ClassRepDiscount  int64 `json:"class_rep_discount"`
	EarlyBirdDiscount int64 `json:"early_bird_discount"`
	PromoDiscount     int64 `json:"promo_discount"`
	FinalPrice        int64 `json:"final_price"`
	IsClassRep        bool  `json:"is_class_rep"`
	IsEarlyBird       bool  `json:"is_early_bird"`
}

type CheckoutRequestBody struct {
	ProgramID  *uint   `json:"program_id,omitempty" binding:"omitempty,gt=0"`
	EventID    *uint   `json:"event_id,omitempty" binding:"omitempty,gt=0"`
	IsClassRep bool    `json:"is_class_rep,omitempty"`
	PromoCode  *string `json:"promo_code,omitempty" binding:"omitempty,promocode"`
}

type DonationCheckoutRequestBody struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency" binding:"required,len=3"`
	Interval string `json:"interval" binding:"required,oneof=month year"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type APIResponsePurchase struct {
	ID          uint           `json:"id"`
	OrderNumber string         `json:"order_number"`
	Status      PurchaseStatus `json:"status"`
	FinalPrice  int64          `json:"final_price"`
	Currency    string         `json:"currency,omitempty"`
	IsClassRep  bool           `json:"is_class_rep,omitempty"`
	IsEarlyBird bool           `json:"is_early_bird,omitempty"`
	ProgramID   *uint          `json:"program_id,omitempty"`
	EventID     *uint          `json:"event_id,omitempty"`
	// display fields joined at query time, never stored on the record
	OfferingTitle string     `json:"offering_title,omitempty"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
}
