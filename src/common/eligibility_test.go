package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolp(b bool) *bool { return &b }

func TestResolveClassRepDelta(t *testing.T) {
	cases := []struct {
		name     string
		previous *bool
		desired  bool
		want     int
	}{
		{"first submission as class rep", nil, true, 1},
		{"first submission as regular", nil, false, 0},
		{"repeat submission keeps reservation", boolp(true), true, 0},
		{"repeat submission stays regular", boolp(false), false, 0},
		{"switch to class rep", boolp(false), true, 1},
		{"switch away from class rep", boolp(true), false, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveClassRepDelta(tc.previous, tc.desired))
		})
	}
}

func TestResolveClassRepDeltaSymmetry(t *testing.T) {
	// a switch there and back nets out to zero
	up := ResolveClassRepDelta(boolp(false), true)
	down := ResolveClassRepDelta(boolp(true), false)
	assert.Equal(t, 0, up+down)
}
