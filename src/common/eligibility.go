package common

import (
	"fmt"
	"log"

	"signup/src/models"
	"signup/src/types"

	"gorm.io/gorm"
)

// ResolveClassRepDelta compares the desired class-rep state against the state
// held by the existing pending purchase, if any, and returns the net counter
// delta: +1, -1 or 0. Repeating the same submission is always a no-op, which
// is what keeps the counter stable when a user clicks "proceed to payment"
// several times before paying.
func ResolveClassRepDelta(previous *bool, desired bool) int {
	if previous == nil {
		if desired {
			return 1
		}
		return 0
	}
	if *previous == desired {
		return 0
	}
	if desired {
		return 1
	}
	return -1
}

// ReserveClassRep takes one class-rep slot on the offering. The capacity
// guard is evaluated inside the same UPDATE that increments, so concurrent
// reservations can never overshoot the limit.
func ReserveClassRep(tx *gorm.DB, kind types.OfferingKind, id uint) error {
	res := offeringModel(tx, kind).
		Where("id = ? AND (class_rep_limit = 0 OR class_rep_count < class_rep_limit)", id).
		UpdateColumn("class_rep_count", gorm.Expr("class_rep_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrCapacityExceeded
	}
	return nil
}

// ReleaseClassRep returns one class-rep slot. Guarded so the counter can
// never go negative even when a release is replayed.
func ReleaseClassRep(tx *gorm.DB, kind types.OfferingKind, id uint) error {
	res := offeringModel(tx, kind).
		Where("id = ? AND class_rep_count > 0", id).
		UpdateColumn("class_rep_count", gorm.Expr("class_rep_count - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[eligibility] release for %s %d was a no-op\n", kind, id)
	}
	return nil
}

// ApplyClassRepDelta maps a resolved delta onto the counter operations.
func ApplyClassRepDelta(tx *gorm.DB, kind types.OfferingKind, id uint, delta int) error {
	switch delta {
	case 1:
		return ReserveClassRep(tx, kind, id)
	case -1:
		return ReleaseClassRep(tx, kind, id)
	case 0:
		return nil
	}
	return fmt.Errorf("invalid class-rep delta %d", delta)
}

func offeringModel(tx *gorm.DB, kind types.OfferingKind) *gorm.DB {
	if kind == types.OFFERING_EVENT {
		return tx.Model(&models.Event{})
	}
	return tx.Model(&models.Program{})
}
