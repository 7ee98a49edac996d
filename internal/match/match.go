// Package match filters a pool of competitor listings down to those
// comparable with a reference vehicle.
package match

import (
	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/normalize"
)

// Options tunes the matcher tolerances.
type Options struct {
	// YearTolerance is the maximum model-year distance accepted when both
	// sides carry a known year. Unknown years skip the check entirely.
	YearTolerance int
	// PowerToleranceCV is the maximum horsepower distance accepted when
	// both sides carry a known power figure. Zero disables the check.
	PowerToleranceCV int
}

// DefaultOptions matches the dashboard defaults: same year ±1, ±20 CV.
func DefaultOptions() Options {
	return Options{YearTolerance: 1, PowerToleranceCV: 20}
}

// Reference is the vehicle competitors are compared against.
type Reference struct {
	ModelText string
	Year      *int
	PowerCV   *int
}

// Competitors returns the listings comparable to ref, in stable pool order.
//
// A competitor is comparable when the normalized model bases are exactly
// equal, the variants are equal whenever both sides have one (a bare base
// may match any of its trims), and the year and power figures fall inside
// the configured tolerances whenever known on both sides. Listing status
// and dealer identity are deliberately not inspected here: status is
// filtered at fetch time and dealer exclusion only applies to statistics.
func Competitors(ref Reference, pool []model.Listing, opts Options) []model.Listing {
	refNorm := normalize.Model(ref.ModelText)
	if refNorm.Base == "" {
		return nil
	}

	var matched []model.Listing
	for _, comp := range pool {
		if comp.ModelText == "" {
			continue
		}
		compNorm := normalize.Model(comp.ModelText)
		if compNorm.Base == "" || compNorm.Base != refNorm.Base {
			continue
		}

		// Variant rule is asymmetric: only reject when both sides declare
		// a variant and they differ.
		if refNorm.Variant != "" && compNorm.Variant != "" && refNorm.Variant != compNorm.Variant {
			continue
		}

		if !withinPower(ref.PowerCV, normalize.Power(comp.ModelText), opts.PowerToleranceCV) {
			continue
		}

		if !withinYears(ref.Year, comp.Year, opts.YearTolerance) {
			continue
		}

		matched = append(matched, comp)
	}
	return matched
}

func withinYears(a, b *int, tolerance int) bool {
	if a == nil || b == nil {
		return true
	}
	return abs(*a-*b) <= tolerance
}

func withinPower(a, b *int, tolerance int) bool {
	if tolerance <= 0 || a == nil || b == nil {
		return true
	}
	return abs(*a-*b) <= tolerance
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
