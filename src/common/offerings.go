package common

import (
	"errors"
	"log"
	"time"

	"signup/src/models"
	"signup/src/types"

	"gorm.io/gorm"
)

// LookupOffering resolves a program or event into the priced view consumed
// by the checkout initiator.
func LookupOffering(tx *gorm.DB, kind types.OfferingKind, id uint) (*types.Offering, error) {
	switch kind {
	case types.OFFERING_PROGRAM:
		var program models.Program
		if err := tx.Where(&models.Program{ID: id}).First(&program).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.ErrNotFound
			}
			return nil, err
		}
		return &types.Offering{
			Kind:              types.OFFERING_PROGRAM,
			ID:                program.ID,
			Title:             program.Title,
			Currency:          program.Currency,
			FullPrice:         program.FullPrice,
			ClassRepDiscount:  program.ClassRepDiscount,
			EarlyBirdDiscount: program.EarlyBirdDiscount,
			EarlyBirdDeadline: program.EarlyBirdDeadline,
			ClassRepLimit:     program.ClassRepLimit,
			IsFree:            program.IsFree || program.FullPrice == 0,
		}, nil
	case types.OFFERING_EVENT:
		var event models.Event
		if err := tx.Where(&models.Event{ID: id}).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.ErrNotFound
			}
			return nil, err
		}
		return &types.Offering{
			Kind:              types.OFFERING_EVENT,
			ID:                event.ID,
			Title:             event.Title,
			Currency:          event.Currency,
			FullPrice:         event.FullPrice,
			ClassRepDiscount:  event.ClassRepDiscount,
			EarlyBirdDiscount: event.EarlyBirdDiscount,
			EarlyBirdDeadline: event.EarlyBirdDeadline,
			ClassRepLimit:     event.ClassRepLimit,
			IsFree:            event.IsFree || event.FullPrice == 0,
		}, nil
	}
	return nil, types.ErrNotFound
}

// ValidatePromoCode returns the discount for a code valid on the given
// offering, or zero when the code is unknown, expired or scoped elsewhere.
// Promo validation never blocks a checkout: a bad code just means no extra
// discount.
func ValidatePromoCode(tx *gorm.DB, code string, offering *types.Offering) int64 {
	var promo models.PromoCode
	if err := tx.Where(&models.PromoCode{Code: code, Active: true}).First(&promo).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[promo] Error looking up code %s: %s\n", code, err.Error())
		}
		return 0
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(time.Now()) {
		return 0
	}
	if promo.ProgramID != nil && (offering.Kind != types.OFFERING_PROGRAM || *promo.ProgramID != offering.ID) {
		return 0
	}
	if promo.EventID != nil && (offering.Kind != types.OFFERING_EVENT || *promo.EventID != offering.ID) {
		return 0
	}
	return promo.Discount
}
