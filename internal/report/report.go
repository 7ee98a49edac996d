// Package report assembles the full comparison payload from the outputs of
// the matcher, the valuation model and the market aggregator.
package report

import (
	"fmt"
	"time"

	"github.com/motorline-group/pricing-cli/internal/market"
	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/normalize"
	"github.com/motorline-group/pricing-cli/internal/parse"
	"github.com/motorline-group/pricing-cli/internal/valuation"
)

// Position thresholds on the score delta (own score minus market mean),
// in percentage points.
const (
	competitiveBelow = -5.0
	highAbove        = 5.0
)

// Market-read thresholds: mean market price vs. theoretical expected value.
const marketSkewPct = 20.0

// perKmRecommendation is the per-km adjustment applied to the recommended
// price. Softer than the valuation model's rate: it nudges toward the
// observed market rather than the depreciation curve.
const perKmRecommendation = 0.10

// Params carries everything Assemble needs. Now is injected so reports are
// reproducible in tests.
type Params struct {
	Vehicle   model.Vehicle
	ModelText string // composed model+version string used for matching
	Matched   []model.Listing
	Summary   market.Summary
	History   []model.PriceChange
	Dealers   *normalize.DealerNormalizer
	Now       time.Time

	// StockAgeWarnDays triggers the stale-stock warning; zero disables it.
	StockAgeWarnDays int
}

// Assemble combines the analysis pieces into the response payload. It has
// no independent business logic beyond position classification, the
// recommended price and the recommendation text.
func Assemble(p Params) *model.ComparisonReport {
	price := parse.Price(p.Vehicle.PriceText)
	newPrice := parse.Price(p.Vehicle.NewPriceText)
	year := parse.Year(p.Vehicle.RegistrationDate)
	km := parse.Odometer(p.Vehicle.OdometerText)

	r := &model.ComparisonReport{
		ID:           p.Vehicle.ID,
		LicensePlate: p.Vehicle.LicensePlate,
		Model:        p.ModelText,
		Year:         year,
		Km:           km,
		Price:        price,
		NewPrice:     newPrice,
		URL:          p.Vehicle.URL,

		MeanPrice:    p.Summary.MeanPrice,
		MinPrice:     p.Summary.MinPrice,
		MaxPrice:     p.Summary.MaxPrice,
		MeanDiscount: p.Summary.MeanDiscountPct,
		MeanKm:       p.Summary.MeanKm,
		MatchedCount: p.Summary.MatchedCount,
		MatchedTotal: p.Summary.MatchedTotal,
		MarketScore:  p.Summary.MeanScore,

		Competitors:  competitorDetails(p),
		PriceHistory: p.History,
	}

	if price != nil && newPrice != nil && *newPrice > 0 {
		d := (*newPrice - *price) / *newPrice * 100
		r.Discount = &d
	}

	if price != nil && p.Summary.MeanPrice != nil {
		delta := *price - *p.Summary.MeanPrice
		pct := delta / *p.Summary.MeanPrice * 100
		r.PriceDelta = &delta
		r.PriceDeltaPct = &pct
	}

	// Own valuation needs price, new price and year; a missing odometer
	// reading counts as zero km, matching how the stock feed reports
	// unregistered vehicles.
	if price != nil && *price > 0 && newPrice != nil && *newPrice > 0 && year != nil {
		ownKm := 0
		if km != nil {
			ownKm = *km
		}
		v := valuation.Score(*price, *newPrice, *year, ownKm, p.Now)
		r.OwnScore = &v.Score
		r.ExpectedValue = &v.ExpectedValue
		r.KmAdjustment = &v.KmAdjustment
		r.AgeAdjustment = &v.AgeAdjustment

		// With no scoreable market the comparison degrades to the
		// depreciation model alone.
		marketScore := 0.0
		if p.Summary.MeanScore != nil {
			marketScore = *p.Summary.MeanScore
		}
		delta := v.Score - marketScore
		r.ScoreDelta = &delta

		pos, recommendation := classify(delta)
		r.Position = &pos
		r.Recommendation = recommendation
	}

	r.DaysInStock = daysInStock(p.Vehicle, p.Now)
	r.RecommendedPrice = recommendedPrice(price, km, p.Summary)
	r.MarketRead = marketRead(newPrice, year, km, p.Summary, p.Now)

	if p.StockAgeWarnDays > 0 && r.DaysInStock > p.StockAgeWarnDays &&
		r.Position != nil && *r.Position != model.PositionCompetitive {
		r.Recommendation += fmt.Sprintf(". ⚠️ Lleva %d días en stock - considera ajustar precio", r.DaysInStock)
		if r.RecommendedPrice != nil {
			cut := *r.RecommendedPrice * 0.95
			r.RecommendedPrice = &cut
		}
	}

	return r
}

// classify maps the score delta to a competitive position and its base
// recommendation text.
func classify(scoreDelta float64) (model.Position, string) {
	switch {
	case scoreDelta <= competitiveBelow:
		return model.PositionCompetitive, "Excelente precio considerando km, año y equipamiento"
	case scoreDelta >= highAbove:
		return model.PositionHigh, "Precio elevado para km, año y equipamiento"
	default:
		return model.PositionFair, "Precio equilibrado con el mercado"
	}
}

// recommendedPrice adjusts the market mean by the reference vehicle's
// mileage delta, clamped so we never suggest dropping below 80% of the
// current asking price or rising above 110% of the market mean.
func recommendedPrice(ownPrice *float64, ownKm *int, s market.Summary) *float64 {
	if s.MeanPrice == nil || s.MeanKm == nil {
		return nil
	}
	km := 0.0
	if ownKm != nil {
		km = float64(*ownKm)
	}
	rec := *s.MeanPrice - (km-*s.MeanKm)*perKmRecommendation
	if ownPrice != nil && rec < *ownPrice*0.8 {
		rec = *ownPrice * 0.8
	}
	if rec > *s.MeanPrice*1.1 {
		rec = *s.MeanPrice * 1.1
	}
	return &rec
}

// marketRead compares the observed market mean against the theoretical
// depreciation value to flag inflated or deflated demand for the model.
func marketRead(newPrice *float64, year, km *int, s market.Summary, now time.Time) string {
	if newPrice == nil || *newPrice <= 0 || year == nil || s.MeanPrice == nil {
		return ""
	}
	ownKm := 0
	if km != nil {
		ownKm = *km
	}
	expected := valuation.ExpectedValue(*newPrice, *year, ownKm, now)
	if expected <= 0 {
		return ""
	}
	pct := (*s.MeanPrice - expected) / expected * 100
	switch {
	case pct > marketSkewPct:
		return fmt.Sprintf("📈 Mercado inflado: Los compradores pagan %.0f%% más del valor teórico. Alta demanda del modelo", pct)
	case pct < -marketSkewPct:
		return fmt.Sprintf("📉 Mercado deflactado: Se vende %.0f%% por debajo del valor teórico", -pct)
	default:
		return "📊 Mercado equilibrado: Precios alineados con depreciación esperada"
	}
}

func daysInStock(v model.Vehicle, now time.Time) int {
	if t := parse.Date(v.FirstPublished); t != nil {
		return parse.DaysSince(*t, now)
	}
	return 0
}

// competitorDetails renders every matched listing, including self-dealer
// ones; the dashboard plots those in a different color but never hides
// them.
func competitorDetails(p Params) []model.CompetitorDetail {
	details := make([]model.CompetitorDetail, 0, len(p.Matched))
	for _, l := range p.Matched {
		price := parse.Price(l.PriceText)
		detail := model.CompetitorDetail{
			ID:       l.ID,
			Dealer:   p.Dealers.Normalize(l.DealerName),
			Model:    l.ModelText,
			Price:    price,
			NewPrice: market.ResolveNewPrice(l),
			Km:       parse.Odometer(l.OdometerText),
			Days:     daysPublished(l, p.Now),
			URL:      l.URL,
			Year:     l.Year,
			Score:    market.ListingScore(l, p.Now),
		}
		detail.PriceDrops, detail.TotalDropped = priceDrops(l, price)
		details = append(details, detail)
	}
	return details
}

func daysPublished(l model.Listing, now time.Time) int {
	if l.FirstSeen != nil {
		return parse.DaysSince(*l.FirstSeen, now)
	}
	return l.DaysPublished
}

// priceDrops falls back to deriving a single drop from the previous-price
// column for rows scraped before the counter columns existed.
func priceDrops(l model.Listing, price *float64) (int, float64) {
	if l.PriceDrops > 0 {
		return l.PriceDrops, l.TotalDropped
	}
	prev := parse.Price(l.PreviousPriceText)
	if l.Status == model.StatusPriceDown && prev != nil && price != nil && *prev > *price {
		return 1, *prev - *price
	}
	return 0, 0
}
