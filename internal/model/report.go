package model

// Position classifies how a vehicle is priced relative to the market.
type Position string

const (
	PositionCompetitive Position = "competitivo"
	PositionFair        Position = "justo"
	PositionHigh        Position = "alto"
)

// ParsePosition validates a position coming from a flag or query string.
func ParsePosition(s string) (Position, bool) {
	switch p := Position(s); p {
	case PositionCompetitive, PositionFair, PositionHigh:
		return p, true
	}
	return "", false
}

// CompetitorDetail is the per-competitor record included in a report.
// It covers every matched listing, including ones from our own dealer
// network that are excluded from the aggregate statistics: the dashboard
// still plots them, just in a different color.
type CompetitorDetail struct {
	ID           string   `json:"id"`
	Dealer       string   `json:"concesionario"`
	Model        string   `json:"modelo,omitempty"`
	Price        *float64 `json:"precio"`
	NewPrice     *float64 `json:"precioNuevo"`
	Km           *int     `json:"km"`
	Days         int      `json:"dias"`
	URL          string   `json:"url"`
	Year         *int     `json:"año"`
	Score        *float64 `json:"score"`
	PriceDrops   int      `json:"numeroBajadas"`
	TotalDropped float64  `json:"importeTotalBajado"`
}

// ComparisonReport is the full response of a single-vehicle analysis.
// JSON field names follow the dashboard contract; numeric fields are null
// whenever the underlying value could not be computed, never zero.
type ComparisonReport struct {
	ID           string   `json:"id"`
	LicensePlate string   `json:"matricula"`
	Model        string   `json:"modelo"`
	Year         *int     `json:"año"`
	Km           *int     `json:"km"`
	Price        *float64 `json:"nuestroPrecio"`
	NewPrice     *float64 `json:"precioNuevo"`
	Discount     *float64 `json:"descuentoNuestro"`
	URL          string   `json:"enlaceAnuncio"`

	MeanPrice     *float64 `json:"precioMedioCompetencia"`
	MinPrice      *float64 `json:"precioMinimoCompetencia"`
	MaxPrice      *float64 `json:"precioMaximoCompetencia"`
	MeanDiscount  *float64 `json:"descuentoMedioCompetencia"`
	MeanKm        *float64 `json:"kmMedioCompetencia"`
	PriceDelta    *float64 `json:"diferencia"`
	PriceDeltaPct *float64 `json:"porcentajeDif"`

	MatchedCount int `json:"competidores"`      // excluded-dealer listings not counted
	MatchedTotal int `json:"competidoresTotal"` // including excluded dealers

	OwnScore      *float64  `json:"scoreNuestro"`
	MarketScore   *float64  `json:"scoreMedioMercado"`
	ScoreDelta    *float64  `json:"diferenciaScore"`
	ExpectedValue *float64  `json:"valorEsperadoNuestro"`
	KmAdjustment  *float64  `json:"ajusteKm"`
	AgeAdjustment *float64  `json:"ajusteAño"`
	Position      *Position `json:"posicion"`

	RecommendedPrice *float64 `json:"precioRecomendado"`
	DaysInStock      int      `json:"diasEnStock"`
	Recommendation   string   `json:"recomendacion"`
	MarketRead       string   `json:"analisisMercado"`

	Competitors  []CompetitorDetail `json:"competidoresDetalle"`
	PriceHistory []PriceChange      `json:"historialCambios"`
}
