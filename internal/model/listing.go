package model

import (
	"fmt"
	"time"
)

// ListingStatus is the lifecycle state of a scraped competitor listing.
// The set is closed; rows with an unrecognized status are quarantined at
// ingest and never reach the matching pipeline.
type ListingStatus string

const (
	StatusActive    ListingStatus = "activo"
	StatusNew       ListingStatus = "nuevo"
	StatusPriceDown ListingStatus = "precio_bajado"
	StatusPriceUp   ListingStatus = "precio_subido"
	StatusRemoved   ListingStatus = "retirado"
	StatusSold      ListingStatus = "vendido"
)

// ParseListingStatus maps a raw status string to a ListingStatus.
// The second return value is false for values outside the closed set.
func ParseListingStatus(s string) (ListingStatus, bool) {
	switch ListingStatus(s) {
	case StatusActive, StatusNew, StatusPriceDown, StatusPriceUp, StatusRemoved, StatusSold:
		return ListingStatus(s), true
	}
	return "", false
}

// Live reports whether a listing in this status is currently published and
// therefore eligible for matching.
func (s ListingStatus) Live() bool {
	switch s {
	case StatusActive, StatusNew, StatusPriceDown, StatusPriceUp:
		return true
	}
	return false
}

// LiveStatuses is the fixed set of statuses considered published.
func LiveStatuses() []ListingStatus {
	return []ListingStatus{StatusActive, StatusNew, StatusPriceDown, StatusPriceUp}
}

// Listing is one scraped external listing. Like Vehicle, raw scraped text is
// preserved; the engine parses on demand and treats failures as missing data.
type Listing struct {
	ID     string `json:"id"`
	Source string `json:"source"` // scraper source system, e.g. "BPS", "MN"
	AdID   string `json:"id_anuncio"`

	ModelText    string `json:"modelo"`
	Year         *int   `json:"año"`
	OdometerText string `json:"km"`

	PriceText         string   `json:"precio"`
	PreviousPriceText string   `json:"precio_anterior"`
	NewPriceText      string   `json:"precio_nuevo"`
	NewPriceOriginal  *float64 `json:"precio_nuevo_original"`

	DealerName    string        `json:"concesionario"`
	URL           string        `json:"url"`
	DaysPublished int           `json:"dias_publicado"`
	FirstSeen     *time.Time    `json:"primera_deteccion"`
	Status        ListingStatus `json:"estado_anuncio"`

	PriceDrops   int     `json:"numero_bajadas_precio"`
	TotalDropped float64 `json:"importe_total_bajado"`
}

// SourceID is the composite identifier of the listing across source systems.
func (l Listing) SourceID() string {
	return fmt.Sprintf("%s-%s", l.Source, l.AdID)
}
