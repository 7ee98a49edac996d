// Package store persists stock vehicles, scraped competitor listings and
// their price-change history, behind a driver-selectable interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/motorline-group/pricing-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist. Callers
// check it with eris.Is to map lookups to 404s.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the pricing engine.
type Store interface {
	// Stock
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)

	// Competitor listings
	ListLiveListings(ctx context.Context) ([]model.Listing, error)
	ImportListings(ctx context.Context, listings []model.Listing) (int, error)

	// Price history, newest first, across the given source-scoped ad ids.
	ListPriceChanges(ctx context.Context, adIDs []string, limit int) ([]model.PriceChange, error)
	RecordPriceChanges(ctx context.Context, changes []model.PriceChange) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
