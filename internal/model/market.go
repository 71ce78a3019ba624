package model

// Data sources for a market snapshot. Synthetic data is generated locally
// when the live provider is unreachable.
const (
	SourceLive      = "live"
	SourceSynthetic = "synthetic"
)

// Candle represents one day of OHLCV data
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// MarketSnapshot holds the price series and derived quote for one symbol.
// It is built fresh per request and never persisted.
type MarketSnapshot struct {
	Symbol         string
	LatestPrice    float64
	PriceChangePct *float64
	Volume         *int64
	Candles        []Candle
	Source         string
}

// Closes returns the closing prices of the series in date order
func (s *MarketSnapshot) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}
