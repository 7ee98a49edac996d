// Package valuation implements the depreciation-based expected-value model
// used to compare asking prices across different ages and mileages.
package valuation

import "time"

// Depreciation constants, calibrated for the premium segment.
const (
	firstYearFactor  = 0.85 // 15% off in the current model year
	secondYearFactor = 0.75 // 25% accumulated after one year
	thirdYearFactor  = 0.67 // 33% accumulated after two years
	yearlyDecay      = 0.10 // additional 10% per year beyond the third
	minAgeFactor     = 0.30 // age factor never drops below 30% of new
	perKmEuro        = 0.15 // flat mileage depreciation, EUR per km
	residualFloor    = 0.20 // expected value never drops below 20% of new
)

// Result is the normalized pricing score for one vehicle. Score is a signed
// percentage: positive means priced above the model's expectation, negative
// below. KmAdjustment and AgeAdjustment break the depreciation down for
// display; AgeAdjustment is the zero-mileage depreciation attributable to
// age alone and plays no part in the score itself.
type Result struct {
	Score         float64 `json:"score"`
	ExpectedValue float64 `json:"valorEsperado"`
	KmAdjustment  float64 `json:"ajustePorKm"`
	AgeAdjustment float64 `json:"ajustePorAño"`
}

// AgeFactor returns the fraction of the new price a vehicle of the given
// age retains before mileage is considered. Age 0 is the current model
// year; a registration year in the future clamps to 0.
func AgeFactor(age int) float64 {
	switch {
	case age <= 0:
		return firstYearFactor
	case age == 1:
		return secondYearFactor
	case age == 2:
		return thirdYearFactor
	default:
		f := thirdYearFactor - float64(age-2)*yearlyDecay
		if f < minAgeFactor {
			return minAgeFactor
		}
		return f
	}
}

// ExpectedValue computes the model's fair price for a vehicle given its
// original new price, registration year and odometer reading. The result
// floors at 20% of the new price regardless of mileage.
func ExpectedValue(newPrice float64, year, km int, now time.Time) float64 {
	age := now.Year() - year
	expected := newPrice*AgeFactor(age) - float64(km)*perKmEuro
	if floor := newPrice * residualFloor; expected < floor {
		return floor
	}
	return expected
}

// Score computes the relative pricing score. All four inputs must be known;
// callers with missing data must not call this (no valuation is produced
// for incomplete vehicles). The reference instant is injected so the
// computation stays deterministic under test.
func Score(price, newPrice float64, year, km int, now time.Time) Result {
	expected := ExpectedValue(newPrice, year, km, now)
	age := now.Year() - year
	return Result{
		Score:         (price - expected) / expected * 100,
		ExpectedValue: expected,
		KmAdjustment:  float64(km) * perKmEuro,
		AgeAdjustment: newPrice * (1 - AgeFactor(age)),
	}
}
