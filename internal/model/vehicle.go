// Package model defines the domain types shared across the pricing engine.
package model

import "time"

// Vehicle is a read-only snapshot of one of our own stock listings, as
// scraped from the dealer management feed. Raw text fields are kept as-is;
// parsing happens inside the engine so that a malformed feed value degrades
// to a null in the report instead of failing the whole analysis.
type Vehicle struct {
	ID           string `json:"id"`
	LicensePlate string `json:"license_plate"`
	ModelName    string `json:"model_name"`   // e.g. "iX1", "Serie 3", "MINI 5 Puertas"
	VersionText  string `json:"version_text"` // e.g. "xDrive30 230 kW (313 CV)"

	// Raw feed values.
	RegistrationDate string `json:"registration_date"` // "DD / MM / YYYY" or ISO
	FirstPublished   string `json:"first_published"`
	OdometerText     string `json:"odometer_text"`
	PriceText        string `json:"price_text"`
	NewPriceText     string `json:"new_price_text"`

	URL       string `json:"url"`
	Available bool   `json:"available"`
}

// PriceChange is one row of the competitor price-change history.
type PriceChange struct {
	ID        string    `json:"id"`
	AdID      string    `json:"idAnuncio"`
	Source    string    `json:"source"`
	OldPrice  *float64  `json:"precioAnterior"`
	NewPrice  *float64  `json:"precioNuevo"`
	ChangedAt time.Time `json:"fechaCambio"`
}
