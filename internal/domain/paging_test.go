package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name               string
		total, page, lim   int
		wantStart, wantEnd int
	}{
		{"first page", 10, 1, 3, 0, 3},
		{"last partial page", 10, 4, 3, 9, 10},
		{"past the end", 10, 5, 3, 10, 10},
		{"empty", 0, 1, 20, 0, 0},
		{"huge page", 4, math.MaxInt / 50, 100, 4, 4},
		{"huge limit", 4, 2, math.MaxInt, 4, 4},
		{"huge both", 4, math.MaxInt, math.MaxInt, 4, 4},
		{"zero limit", 4, 1, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := pageBounds(tt.total, tt.page, tt.lim)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, pageOffset(1, 20))
	assert.Equal(t, 40, pageOffset(3, 20))
	assert.Equal(t, 0, pageOffset(0, 20))
	assert.Equal(t, maxOffset, pageOffset(math.MaxInt, 100))
	assert.Equal(t, maxOffset, pageOffset(2, math.MaxInt))
}
