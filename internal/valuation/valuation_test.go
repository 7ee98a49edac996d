package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestAgeFactor(t *testing.T) {
	tests := []struct {
		age  int
		want float64
	}{
		{0, 0.85},
		{-1, 0.85}, // future registration clamps to current-year factor
		{1, 0.75},
		{2, 0.67},
		{3, 0.57},
		{4, 0.47},
		{6, 0.30}, // 0.67 - 4*0.10 would be 0.27, floored
		{20, 0.30},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, AgeFactor(tt.age), 0.0001, "age %d", tt.age)
	}
}

func TestExpectedValue(t *testing.T) {
	// 60000 new, 2022 (age 3), 20000 km:
	// 60000*0.57 - 20000*0.15 = 34200 - 3000 = 31200.
	assert.InDelta(t, 31200, ExpectedValue(60000, 2022, 20000, now), 0.01)

	// Current-year car: 60000*0.85 - 0 = 51000.
	assert.InDelta(t, 51000, ExpectedValue(60000, 2025, 0, now), 0.01)
}

func TestExpectedValue_ResidualFloor(t *testing.T) {
	// Extreme mileage would push the value negative; it floors at 20% of new.
	got := ExpectedValue(30000, 2015, 400000, now)
	assert.InDelta(t, 6000, got, 0.01)

	// The floor holds for any input combination.
	for _, km := range []int{0, 100000, 1000000} {
		for _, year := range []int{1990, 2010, 2025} {
			assert.GreaterOrEqual(t, ExpectedValue(30000, year, km, now), 6000.0)
		}
	}
}

func TestScore_SignConvention(t *testing.T) {
	// Priced exactly at expectation scores zero.
	expected := ExpectedValue(60000, 2022, 20000, now)
	r := Score(expected, 60000, 2022, 20000, now)
	assert.InDelta(t, 0, r.Score, 0.0001)

	// Above expectation is positive, below negative.
	assert.Positive(t, Score(expected*1.1, 60000, 2022, 20000, now).Score)
	assert.Negative(t, Score(expected*0.9, 60000, 2022, 20000, now).Score)
}

func TestScore_Breakdown(t *testing.T) {
	r := Score(45000, 60000, 2022, 20000, now)

	assert.InDelta(t, 31200, r.ExpectedValue, 0.01)
	assert.InDelta(t, 3000, r.KmAdjustment, 0.01)
	// Age 3 loses 43% of the new price before mileage.
	assert.InDelta(t, 25800, r.AgeAdjustment, 0.01)
	// (45000-31200)/31200*100
	assert.InDelta(t, 44.23, r.Score, 0.01)
}
