package common

import (
	"time"

	"signup/src/types"
)

type PricingInput struct {
	FullPrice         int64
	IsClassRep        bool
	ClassRepDiscount  int64
	EarlyBirdDiscount int64
	EarlyBirdDeadline *time.Time
	Now               time.Time
	PromoDiscount     int64
}

// ComputePricing freezes the price breakdown for a checkout attempt.
// Class-rep and early-bird are mutually exclusive: choosing class-rep
// suppresses the early-bird discount even inside the deadline window. The
// promo discount stacks on top of either. The result never goes below zero.
func ComputePricing(input PricingInput) types.PricingSnapshot {
	snapshot := types.PricingSnapshot{
		FullPrice:     input.FullPrice,
		PromoDiscount: input.PromoDiscount,
	}
	if input.IsClassRep {
		snapshot.IsClassRep = true
		snapshot.ClassRepDiscount = input.ClassRepDiscount
	} else if input.EarlyBirdDeadline != nil && !input.Now.After(*input.EarlyBirdDeadline) {
		snapshot.IsEarlyBird = true
		snapshot.EarlyBirdDiscount = input.EarlyBirdDiscount
	}
	final := input.FullPrice - snapshot.ClassRepDiscount - snapshot.EarlyBirdDiscount - snapshot.PromoDiscount
	if final < 0 {
		final = 0
	}
	snapshot.FinalPrice = final
	return snapshot
}
