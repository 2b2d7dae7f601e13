package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputePricingClassRep(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour)
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		IsClassRep:        true,
		ClassRepDiscount:  500,
		EarlyBirdDiscount: 400,
		EarlyBirdDeadline: &deadline,
		Now:               time.Now(),
	})
	assert.Equal(t, int64(1400), snap.FinalPrice)
	assert.True(t, snap.IsClassRep)
	// class-rep suppresses early-bird even inside the deadline window
	assert.False(t, snap.IsEarlyBird)
	assert.Equal(t, int64(0), snap.EarlyBirdDiscount)
}

func TestComputePricingEarlyBird(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour)
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		ClassRepDiscount:  500,
		EarlyBirdDiscount: 400,
		EarlyBirdDeadline: &deadline,
		Now:               time.Now(),
	})
	assert.Equal(t, int64(1500), snap.FinalPrice)
	assert.True(t, snap.IsEarlyBird)
	assert.False(t, snap.IsClassRep)
}

func TestComputePricingAfterDeadline(t *testing.T) {
	deadline := time.Now().Add(-time.Hour)
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		ClassRepDiscount:  500,
		EarlyBirdDiscount: 400,
		EarlyBirdDeadline: &deadline,
		Now:               time.Now(),
	})
	assert.Equal(t, int64(1900), snap.FinalPrice)
	assert.False(t, snap.IsEarlyBird)
	assert.False(t, snap.IsClassRep)
}

func TestComputePricingDeadlineBoundary(t *testing.T) {
	// exactly at the deadline still counts as early-bird
	now := time.Now().Truncate(time.Second)
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		EarlyBirdDiscount: 400,
		EarlyBirdDeadline: &now,
		Now:               now,
	})
	assert.True(t, snap.IsEarlyBird)
	assert.Equal(t, int64(1500), snap.FinalPrice)
}

func TestComputePricingNoDeadline(t *testing.T) {
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		EarlyBirdDiscount: 400,
		Now:               time.Now(),
	})
	assert.False(t, snap.IsEarlyBird)
	assert.Equal(t, int64(1900), snap.FinalPrice)
}

func TestComputePricingPromoStacks(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour)
	snap := ComputePricing(PricingInput{
		FullPrice:         1900,
		IsClassRep:        true,
		ClassRepDiscount:  500,
		EarlyBirdDiscount: 400,
		EarlyBirdDeadline: &deadline,
		Now:               time.Now(),
		PromoDiscount:     300,
	})
	assert.Equal(t, int64(1100), snap.FinalPrice)
	assert.Equal(t, int64(300), snap.PromoDiscount)
}

func TestComputePricingFloorsAtZero(t *testing.T) {
	snap := ComputePricing(PricingInput{
		FullPrice:        400,
		IsClassRep:       true,
		ClassRepDiscount: 500,
		Now:              time.Now(),
	})
	assert.Equal(t, int64(0), snap.FinalPrice)
}

func TestComputePricingSnapshotKeepsComponents(t *testing.T) {
	snap := ComputePricing(PricingInput{
		FullPrice:        1900,
		IsClassRep:       true,
		ClassRepDiscount: 500,
		Now:              time.Now(),
		PromoDiscount:    100,
	})
	assert.Equal(t, int64(1900), snap.FullPrice)
	assert.Equal(t, int64(500), snap.ClassRepDiscount)
	assert.Equal(t, int64(100), snap.PromoDiscount)
	assert.Equal(t, snap.FullPrice-snap.ClassRepDiscount-snap.PromoDiscount, snap.FinalPrice)
}
