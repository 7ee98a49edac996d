package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorline-group/pricing-cli/internal/model"
)

func TestDerivePriceChanges(t *testing.T) {
	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	listings := []model.Listing{
		{Source: "BPS", AdID: "a1", PriceText: "42.000 €", PreviousPriceText: "44.000 €"},
		{Source: "BPS", AdID: "a2", PriceText: "44.000 €"},
		{Source: "MN", AdID: "a3", PriceText: "30.000 €", PreviousPriceText: "30.000 €"},
		{Source: "MN", AdID: "a4", PriceText: "consultar", PreviousPriceText: "31.000 €"},
	}

	changes := DerivePriceChanges(listings, now)
	require.Len(t, changes, 1)

	c := changes[0]
	assert.Equal(t, "a1", c.AdID)
	assert.Equal(t, "BPS", c.Source)
	require.NotNil(t, c.OldPrice)
	assert.InDelta(t, 44000, *c.OldPrice, 0.01)
	require.NotNil(t, c.NewPrice)
	assert.InDelta(t, 42000, *c.NewPrice, 0.01)
	assert.Equal(t, now, c.ChangedAt)
}

func TestDerivePriceChanges_Empty(t *testing.T) {
	assert.Nil(t, DerivePriceChanges(nil, time.Now()))
}
