package ingest

import (
	"time"

	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/parse"
)

// DerivePriceChanges extracts history rows from an imported batch: any
// listing whose export carries a previous price different from the current
// one yields one change record. The scraper only fills precio_anterior on
// the export where the move happened, so re-imports do not duplicate rows.
func DerivePriceChanges(listings []model.Listing, now time.Time) []model.PriceChange {
	var changes []model.PriceChange
	for _, l := range listings {
		prev := parse.Price(l.PreviousPriceText)
		price := parse.Price(l.PriceText)
		if prev == nil || price == nil || *prev == *price {
			continue
		}
		changes = append(changes, model.PriceChange{
			AdID:      l.AdID,
			Source:    l.Source,
			OldPrice:  prev,
			NewPrice:  price,
			ChangedAt: now,
		})
	}
	return changes
}
