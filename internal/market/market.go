// Package market reduces a matched competitor set to summary statistics.
package market

import (
	"strings"
	"time"

	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/normalize"
	"github.com/motorline-group/pricing-cli/internal/parse"
	"github.com/motorline-group/pricing-cli/internal/valuation"
)

// SelfDealers is the set of dealer-name substrings the business considers
// its own network. Matched listings from these dealers are kept for display
// but excluded from every aggregate, since they mirror our own stock and
// would bias "the market". Membership is policy, injected via config.
type SelfDealers []string

// Excludes reports whether the given scraped dealer name belongs to the
// self set. Matching is diacritic- and case-insensitive.
func (s SelfDealers) Excludes(dealerName string) bool {
	if dealerName == "" {
		return false
	}
	folded := normalize.Fold(dealerName)
	for _, sub := range s {
		if sub != "" && strings.Contains(folded, normalize.Fold(sub)) {
			return true
		}
	}
	return false
}

// Summary holds the aggregate market figures over the counted (non-self)
// matched set. Every pointer field is nil when the contributing set is
// empty; zero is never substituted for "unknown".
type Summary struct {
	MeanPrice       *float64 `json:"precioMedio"`
	MinPrice        *float64 `json:"precioMinimo"`
	MaxPrice        *float64 `json:"precioMaximo"`
	MeanDiscountPct *float64 `json:"descuentoMedio"`
	MeanScore       *float64 `json:"scoreMedio"`
	MeanKm          *float64 `json:"kmMedio"`
	MatchedCount    int      `json:"competidores"`
	MatchedTotal    int      `json:"competidoresTotal"`
}

// Summarize partitions matched into counted vs. self-dealer listings and
// computes the market figures over the counted partition. Listings whose
// price (or, per metric, new price / valuation inputs) cannot be resolved
// are excluded from that metric's mean rather than counted as zero.
func Summarize(matched []model.Listing, self SelfDealers, now time.Time) Summary {
	s := Summary{MatchedTotal: len(matched)}

	var prices, discounts, scores, kms []float64
	for _, l := range matched {
		if self.Excludes(l.DealerName) {
			continue
		}
		s.MatchedCount++

		price := parse.Price(l.PriceText)
		if price != nil {
			prices = append(prices, *price)
		}
		if km := parse.Odometer(l.OdometerText); km != nil {
			kms = append(kms, float64(*km))
		}

		newPrice := ResolveNewPrice(l)
		if price != nil && *price > 0 && newPrice != nil && *newPrice > 0 {
			discounts = append(discounts, (*newPrice-*price)/(*newPrice)*100)
		}

		if score := ListingScore(l, now); score != nil {
			scores = append(scores, *score)
		}
	}

	s.MeanPrice = mean(prices)
	s.MinPrice = minOf(prices)
	s.MaxPrice = maxOf(prices)
	s.MeanDiscountPct = mean(discounts)
	s.MeanScore = mean(scores)
	s.MeanKm = mean(kms)
	return s
}

// ResolveNewPrice prefers the scraper's numeric original-new-price column
// and falls back to parsing the raw text field. Zero counts as missing.
func ResolveNewPrice(l model.Listing) *float64 {
	if l.NewPriceOriginal != nil && *l.NewPriceOriginal > 0 {
		return l.NewPriceOriginal
	}
	if p := parse.Price(l.NewPriceText); p != nil && *p > 0 {
		return p
	}
	return nil
}

// ListingScore computes the valuation score for a single listing, or nil
// when any of the four required inputs is missing. Attributing a false
// score to an incomplete listing would bias the market mean.
func ListingScore(l model.Listing, now time.Time) *float64 {
	price := parse.Price(l.PriceText)
	newPrice := ResolveNewPrice(l)
	km := parse.Odometer(l.OdometerText)
	if price == nil || *price <= 0 || newPrice == nil || l.Year == nil || km == nil {
		return nil
	}
	score := valuation.Score(*price, *newPrice, *l.Year, *km, now).Score
	return &score
}

func mean(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	m := sum / float64(len(vs))
	return &m
}

func minOf(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return &m
}

func maxOf(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}
