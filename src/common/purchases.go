package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"signup/src/config"
	"signup/src/db"
	"signup/src/lib"
	"signup/src/models"
	"signup/src/types"
	"signup/src/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InitiateCheckout validates the offering, freezes the price, settles the
// class-rep counter delta and leaves exactly one pending purchase per
// (user, offering) pair holding a fresh checkout session. Returns the
// redirect URL.
func InitiateCheckout(ctx context.Context, userId uint, body *types.CheckoutRequestBody) (string, error) {
	kind, offeringId, err := offeringRefFromBody(body)
	if err != nil {
		return "", err
	}

	gdb := db.GetDb()
	offering, err := LookupOffering(gdb, kind, offeringId)
	if err != nil {
		return "", err
	}
	if offering.IsFree {
		return "", types.ErrFreeOfferingNotPurchasable
	}

	var completed int64
	if err := scopeOffering(gdb.Model(&models.Purchase{}), kind, offeringId).
		Where("user_id = ? AND status = ?", userId, types.PURCHASE_COMPLETED).
		Count(&completed).Error; err != nil {
		return "", err
	}
	if completed > 0 {
		return "", types.ErrAlreadyPurchased
	}

	// Read outside the transaction only to pick the order number carried in
	// the session metadata. The transaction below re-reads the pending row
	// under a row lock before any write; this read is just a hint.
	orderNumber := utils.NewOrderNumber()
	var hinted models.Purchase
	if err := scopeOffering(gdb.Model(&models.Purchase{}), kind, offeringId).
		Where("user_id = ? AND status = ?", userId, types.PURCHASE_PENDING).
		First(&hinted).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	} else {
		orderNumber = hinted.OrderNumber
	}

	var promoDiscount int64
	if body.PromoCode != nil {
		promoDiscount = ValidatePromoCode(gdb, *body.PromoCode, offering)
	}
	snapshot := ComputePricing(PricingInput{
		FullPrice:         offering.FullPrice,
		IsClassRep:        body.IsClassRep,
		ClassRepDiscount:  offering.ClassRepDiscount,
		EarlyBirdDiscount: offering.EarlyBirdDiscount,
		EarlyBirdDeadline: offering.EarlyBirdDeadline,
		Now:               time.Now(),
		PromoDiscount:     promoDiscount,
	})

	sessionId, redirectUrl, err := lib.CreateCheckoutSession(ctx, &lib.CheckoutSessionInput{
		Amount:      snapshot.FinalPrice,
		Currency:    offering.Currency,
		ProductName: offering.Title,
		CancelPath:  fmt.Sprintf("/%ss/%d", kind, offeringId),
		Metadata: map[string]string{
			"orderNumber": orderNumber,
			"userId":      fmt.Sprint(userId),
			"offering":    fmt.Sprintf("%s:%d", kind, offeringId),
		},
	})
	if err != nil {
		return "", err
	}

	// The counter delta and the purchase upsert commit together so an abort
	// leaves the slot count untouched. The session created above is orphaned
	// on rollback and simply expires at the provider. The pending row is
	// re-read under FOR UPDATE so two concurrent attempts serialize: the
	// second blocks here, then sees the first's row and takes the update
	// path. A second insert racing past the lock (no row existed yet) hits
	// the partial unique index instead.
	err = gdb.Transaction(func(tx *gorm.DB) error {
		var existing models.Purchase
		hasPending := true
		if err := scopeOffering(tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.Purchase{}), kind, offeringId).
			Where("user_id = ? AND status = ?", userId, types.PURCHASE_PENDING).
			First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasPending = false
		}
		var previous *bool
		if hasPending {
			previous = &existing.IsClassRep
			orderNumber = existing.OrderNumber
		}
		delta := ResolveClassRepDelta(previous, body.IsClassRep)
		if err := ApplyClassRepDelta(tx, kind, offeringId, delta); err != nil {
			return err
		}
		if hasPending {
			res := tx.
				Model(&models.Purchase{}).
				Where("id = ? AND status = ?", existing.ID, types.PURCHASE_PENDING).
				Updates(map[string]any{
					"stripe_session_id":   sessionId,
					"full_price":          snapshot.FullPrice,
					"class_rep_discount":  snapshot.ClassRepDiscount,
					"early_bird_discount": snapshot.EarlyBirdDiscount,
					"promo_discount":      snapshot.PromoDiscount,
					"final_price":         snapshot.FinalPrice,
					"is_class_rep":        snapshot.IsClassRep,
					"is_early_bird":       snapshot.IsEarlyBird,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return types.ErrInvalidState
			}
			return nil
		}
		purchase := models.Purchase{
			OrderNumber:       orderNumber,
			UserID:            userId,
			Status:            types.PURCHASE_PENDING,
			Currency:          offering.Currency,
			FullPrice:         snapshot.FullPrice,
			ClassRepDiscount:  snapshot.ClassRepDiscount,
			EarlyBirdDiscount: snapshot.EarlyBirdDiscount,
			PromoDiscount:     snapshot.PromoDiscount,
			FinalPrice:        snapshot.FinalPrice,
			IsClassRep:        snapshot.IsClassRep,
			IsEarlyBird:       snapshot.IsEarlyBird,
			StripeSessionId:   &sessionId,
		}
		if kind == types.OFFERING_PROGRAM {
			purchase.ProgramID = &offeringId
		} else {
			purchase.EventID = &offeringId
		}
		if err := tx.Create(&purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: a pending purchase for this offering already exists", types.ErrInvalidState)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	go lib.CacheSessionOrder(context.Background(), sessionId, orderNumber, 24*time.Hour)
	return redirectUrl, nil
}

// CompletePurchase moves a pending purchase to completed and purges
// redundant pending siblings for the same pair. Reprocessing an already
// completed record is a success no-op with transitioned=false, which is what
// makes duplicate webhook deliveries safe. When the completing event carried
// no payment intent and a later delivery does, the id is attached to the
// completed record and attached=true tells the caller to backfill the
// billing snapshot.
func CompletePurchase(purchase *models.Purchase, paymentIntentId string) (transitioned, attached bool, err error) {
	gdb := db.GetDb()
	err = gdb.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":        types.PURCHASE_COMPLETED,
			"purchase_date": time.Now(),
		}
		if paymentIntentId != "" {
			updates["stripe_payment_intent_id"] = paymentIntentId
		}
		res := tx.
			Model(&models.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, types.PURCHASE_PENDING).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Purchase
			if err := tx.Where(&models.Purchase{ID: purchase.ID}).First(&current).Error; err != nil {
				return err
			}
			if current.Status == types.PURCHASE_COMPLETED {
				if paymentIntentId != "" && (current.StripePaymentIntentId == nil || *current.StripePaymentIntentId == "") {
					attach := tx.
						Model(&models.Purchase{}).
						Where("id = ? AND (stripe_payment_intent_id IS NULL OR stripe_payment_intent_id = '')", current.ID).
						Update("stripe_payment_intent_id", paymentIntentId)
					if attach.Error != nil {
						return attach.Error
					}
					attached = attach.RowsAffected > 0
				}
				log.Printf("[purchases] %s already completed, skipping\n", current.OrderNumber)
				return nil
			}
			return types.ErrInvalidState
		}
		transitioned = true

		// a sibling pending record for the same pair is now redundant
		kind, offeringId := purchase.OfferingRef()
		var siblings []models.Purchase
		if err := scopeOffering(tx.Model(&models.Purchase{}), kind, offeringId).
			Where("user_id = ? AND status = ? AND id <> ?", purchase.UserID, types.PURCHASE_PENDING, purchase.ID).
			Find(&siblings).Error; err != nil {
			return err
		}
		return deletePendingRecords(tx, siblings)
	})
	return transitioned, attached, err
}

// FindPurchaseBySession resolves the purchase referenced by a checkout
// session id, going through the redis order cache first.
func FindPurchaseBySession(ctx context.Context, sessionId string) (*models.Purchase, error) {
	gdb := db.GetDb()
	var purchase models.Purchase
	if orderNumber := lib.GetCachedSessionOrder(ctx, sessionId); orderNumber != "" {
		if err := gdb.Where(&models.Purchase{OrderNumber: orderNumber}).First(&purchase).Error; err == nil {
			return &purchase, nil
		}
	}
	if err := gdb.Where("stripe_session_id = ?", sessionId).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FindPurchaseByOrder resolves a purchase by the order number carried in
// payment-intent metadata.
func FindPurchaseByOrder(orderNumber string) (*models.Purchase, error) {
	gdb := db.GetDb()
	var purchase models.Purchase
	if err := gdb.Where(&models.Purchase{OrderNumber: orderNumber}).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// FailPurchase moves a pending purchase to failed, recording the intent
// that declined. Completed records are never regressed; a replay against an
// already failed record is a no-op.
func FailPurchase(purchase *models.Purchase, paymentIntentId string) error {
	if purchase.Status == types.PURCHASE_COMPLETED {
		log.Printf("[purchases] ignoring payment failure for completed order %s\n", purchase.OrderNumber)
		return nil
	}
	gdb := db.GetDb()
	updates := map[string]any{"status": types.PURCHASE_FAILED}
	if paymentIntentId != "" {
		updates["stripe_payment_intent_id"] = paymentIntentId
	}
	res := gdb.
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchase.ID, types.PURCHASE_PENDING).
		Updates(updates)
	return res.Error
}

// FailPurchaseByIntent moves the pending purchase matching a payment intent
// to failed. Replays and unknown intents are success no-ops.
func FailPurchaseByIntent(paymentIntentId string) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Where("stripe_payment_intent_id = ?", paymentIntentId).First(&purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}
		if purchase.Status == types.PURCHASE_COMPLETED {
			log.Printf("[purchases] ignoring payment failure for completed order %s\n", purchase.OrderNumber)
			return nil
		}
		res := tx.
			Model(&models.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, types.PURCHASE_PENDING).
			Update("status", types.PURCHASE_FAILED)
		if res.Error != nil {
			return res.Error
		}
		// zero rows means a concurrent delivery already failed it
		return nil
	})
}

// EnrichBillingSnapshot writes the card and billing details once. Populated
// fields are never blank-overwritten by a duplicate event.
func EnrichBillingSnapshot(purchaseId uint, details *lib.PaymentMethodDetails) error {
	gdb := db.GetDb()
	res := gdb.
		Model(&models.Purchase{}).
		Where("id = ? AND (card_brand IS NULL OR card_brand = '')", purchaseId).
		Updates(map[string]any{
			"card_brand":      details.CardBrand,
			"card_last4":      details.CardLast4,
			"billing_name":    details.BillingName,
			"billing_address": details.BillingAddress,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[purchases] billing snapshot already present for purchase %d\n", purchaseId)
	}
	return nil
}

// CleanupPendingPurchases is the housekeeper: it hard-deletes the user's
// pending records that are either stale (no activity inside the TTL window;
// a retry refreshes updated_at and with it the window) or redundant because
// a completed sibling exists. Class-rep reservations held by deleted rows
// are released.
func CleanupPendingPurchases(userId uint) error {
	return cleanupPending(func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userId)
	})
}

// CleanupAllPendingPurchases runs the same sweep service-wide, used by the
// nightly scheduler job.
func CleanupAllPendingPurchases() error {
	return cleanupPending(func(q *gorm.DB) *gorm.DB { return q })
}

func cleanupPending(scope func(*gorm.DB) *gorm.DB) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		var pending []models.Purchase
		if err := scope(tx.Model(&models.Purchase{})).
			Where("status = ?", types.PURCHASE_PENDING).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		cutoff := time.Now().Add(-config.PendingPurchaseTTL)
		var doomed []models.Purchase
		for _, p := range pending {
			if p.UpdatedAt.Before(cutoff) {
				doomed = append(doomed, p)
				continue
			}
			kind, offeringId := p.OfferingRef()
			var completed int64
			if err := scopeOffering(tx.Model(&models.Purchase{}), kind, offeringId).
				Where("user_id = ? AND status = ?", p.UserID, types.PURCHASE_COMPLETED).
				Count(&completed).Error; err != nil {
				return err
			}
			if completed > 0 {
				doomed = append(doomed, p)
			}
		}
		return deletePendingRecords(tx, doomed)
	})
}

// RetryPurchase issues a brand-new checkout session for an owned pending
// purchase, reusing the frozen pricing snapshot. The stored session id is
// replaced and the housekeeping window restarts.
func RetryPurchase(ctx context.Context, purchaseId uint, requesterId uint) (string, error) {
	gdb := db.GetDb()
	var purchase models.Purchase
	if err := gdb.Where(&models.Purchase{ID: purchaseId}).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", types.ErrNotFound
		}
		return "", err
	}
	if purchase.UserID != requesterId {
		return "", types.ErrForbidden
	}
	if purchase.Status == types.PURCHASE_COMPLETED {
		return "", types.ErrCannotRetryCompletedPurchase
	}
	if purchase.Status != types.PURCHASE_PENDING {
		return "", types.ErrInvalidState
	}

	kind, offeringId := purchase.OfferingRef()
	var completed int64
	if err := scopeOffering(gdb.Model(&models.Purchase{}), kind, offeringId).
		Where("user_id = ? AND status = ?", requesterId, types.PURCHASE_COMPLETED).
		Count(&completed).Error; err != nil {
		return "", err
	}
	if completed > 0 {
		return "", types.ErrAlreadyPurchased
	}

	offering, err := LookupOffering(gdb, kind, offeringId)
	if err != nil {
		return "", err
	}
	sessionId, redirectUrl, err := lib.CreateCheckoutSession(ctx, &lib.CheckoutSessionInput{
		Amount:      purchase.FinalPrice,
		Currency:    purchase.Currency,
		ProductName: offering.Title,
		CancelPath:  fmt.Sprintf("/%ss/%d", kind, offeringId),
		Metadata: map[string]string{
			"orderNumber": purchase.OrderNumber,
			"userId":      fmt.Sprint(requesterId),
			"offering":    fmt.Sprintf("%s:%d", kind, offeringId),
		},
	})
	if err != nil {
		return "", err
	}

	res := gdb.
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchase.ID, types.PURCHASE_PENDING).
		Update("stripe_session_id", sessionId)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", types.ErrInvalidState
	}

	go lib.CacheSessionOrder(context.Background(), sessionId, purchase.OrderNumber, 24*time.Hour)
	return redirectUrl, nil
}

// CancelPurchase hard-deletes an owned pending purchase and releases its
// class-rep slot when one was held.
func CancelPurchase(purchaseId uint, requesterId uint) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.Where(&models.Purchase{ID: purchaseId}).First(&purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}
		if purchase.UserID != requesterId {
			return types.ErrForbidden
		}
		if purchase.Status == types.PURCHASE_COMPLETED {
			return types.ErrCannotModifyCompletedPurchase
		}
		if purchase.Status != types.PURCHASE_PENDING {
			return types.ErrInvalidState
		}
		return deletePendingRecords(tx, []models.Purchase{purchase})
	})
}

// GetPendingPurchases lists the user's pending purchases after running the
// housekeeper inline.
func GetPendingPurchases(userId uint) ([]models.Purchase, error) {
	if err := CleanupPendingPurchases(userId); err != nil {
		return nil, err
	}
	gdb := db.GetDb()
	var purchases []models.Purchase
	err := gdb.
		Model(&models.Purchase{}).
		Where("user_id = ? AND status = ?", userId, types.PURCHASE_PENDING).
		Preload("Program").
		Preload("Event").
		Order("created_at DESC").
		Find(&purchases).
		Error
	return purchases, err
}

// deletePendingRecords hard-deletes still-pending rows and releases the
// class-rep slot of each row actually removed. The delete runs first; a slot
// is only released for a row this call took out, so losing the race to the
// reconciler never drifts the counter.
func deletePendingRecords(tx *gorm.DB, purchases []models.Purchase) error {
	for _, p := range purchases {
		res := tx.Unscoped().
			Where("id = ? AND status = ?", p.ID, types.PURCHASE_PENDING).
			Delete(&models.Purchase{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost a race with the reconciler; the record keeps its slot
			log.Printf("[purchases] skip delete, %s no longer pending\n", p.OrderNumber)
			continue
		}
		if p.IsClassRep {
			kind, offeringId := p.OfferingRef()
			if err := ReleaseClassRep(tx, kind, offeringId); err != nil {
				return err
			}
		}
	}
	return nil
}

func scopeOffering(q *gorm.DB, kind types.OfferingKind, id uint) *gorm.DB {
	if kind == types.OFFERING_EVENT {
		return q.Where("event_id = ?", id)
	}
	return q.Where("program_id = ?", id)
}

func offeringRefFromBody(body *types.CheckoutRequestBody) (types.OfferingKind, uint, error) {
	if body.ProgramID != nil && body.EventID != nil {
		return "", 0, fmt.Errorf("%w: provide either program_id or event_id, not both", types.ErrValidation)
	}
	if body.ProgramID != nil {
		return types.OFFERING_PROGRAM, *body.ProgramID, nil
	}
	if body.EventID != nil {
		return types.OFFERING_EVENT, *body.EventID, nil
	}
	return "", 0, fmt.Errorf("%w: program_id or event_id is required", types.ErrValidation)
}
