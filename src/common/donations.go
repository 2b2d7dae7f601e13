package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signup/src/db"
	"signup/src/lib"
	"signup/src/models"
	"signup/src/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InitiateDonationCheckout creates a pending donation and its subscription
// checkout session, returning the redirect URL.
func InitiateDonationCheckout(ctx context.Context, userId uint, body *types.DonationCheckoutRequestBody) (string, error) {
	sessionId, redirectUrl, err := lib.CreateSubscriptionSession(ctx, &lib.SubscriptionSessionInput{
		Amount:   body.Amount,
		Currency: body.Currency,
		Interval: body.Interval,
		Metadata: map[string]string{
			"userId": fmt.Sprint(userId),
			"kind":   "donation",
		},
	})
	if err != nil {
		return "", err
	}

	gdb := db.GetDb()
	donation := models.Donation{
		UserID:          userId,
		Amount:          body.Amount,
		Currency:        body.Currency,
		Interval:        body.Interval,
		Status:          types.DONATION_PENDING,
		StripeSessionId: &sessionId,
	}
	if err := gdb.Create(&donation).Error; err != nil {
		return "", err
	}
	return redirectUrl, nil
}

// ActivateDonation attaches the Stripe customer and subscription ids once
// the checkout session completes, and moves the donation to active. It does
// NOT record a transaction; billing cycles arrive as separate invoice
// events.
func ActivateDonation(sessionId, customerId, subscriptionId string) error {
	gdb := db.GetDb()
	var donation models.Donation
	if err := gdb.Where("stripe_session_id = ?", sessionId).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		return err
	}
	res := gdb.
		Model(&models.Donation{}).
		Where("id = ? AND status = ?", donation.ID, types.DONATION_PENDING).
		Updates(map[string]any{
			"status":                 types.DONATION_ACTIVE,
			"stripe_customer_id":     customerId,
			"stripe_subscription_id": subscriptionId,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[donations] donation %d already activated\n", donation.ID)
	}
	return nil
}

// RecordDonationPayment appends one billed cycle to the donation ledger.
// The unique (donation_id, stripe_invoice_id) index plus DoNothing makes
// replayed invoice events write exactly one row.
func RecordDonationPayment(subscriptionId, invoiceId string, amount int64, currency string, paidAt time.Time) error {
	gdb := db.GetDb()
	var donation models.Donation
	if err := gdb.Where("stripe_subscription_id = ?", subscriptionId).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		return err
	}
	txn := models.DonationTransaction{
		DonationID:      donation.ID,
		StripeInvoiceId: invoiceId,
		Amount:          amount,
		Currency:        currency,
		PaidAt:          &paidAt,
	}
	res := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&txn)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[donations] duplicate invoice %s on donation %d ignored\n", invoiceId, donation.ID)
	}
	return nil
}

// CancelDonation moves an owned donation to cancelled. The Stripe
// subscription itself is cancelled from the billing portal; this only
// reflects the state locally.
func CancelDonation(donationId uint, requesterId uint) error {
	gdb := db.GetDb()
	var donation models.Donation
	if err := gdb.Where(&models.Donation{ID: donationId}).First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		return err
	}
	if donation.UserID != requesterId {
		return types.ErrForbidden
	}
	res := gdb.
		Model(&models.Donation{}).
		Where("id = ? AND status <> ?", donation.ID, types.DONATION_CANCELED).
		Update("status", types.DONATION_CANCELED)
	return res.Error
}

// GetDonations lists a user's donations with their transaction ledgers.
func GetDonations(userId uint) ([]models.Donation, error) {
	gdb := db.GetDb()
	var donations []models.Donation
	err := gdb.
		Model(&models.Donation{}).
		Where("user_id = ?", userId).
		Preload("Transactions").
		Order("created_at DESC").
		Find(&donations).
		Error
	return donations, err
}
