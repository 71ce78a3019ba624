package model

// MACD signal classifications
const (
	MACDBullish = "bullish"
	MACDBearish = "bearish"
	MACDNeutral = "neutral"
)

// TechnicalIndicators holds the computed technical indicators for a symbol.
// MA20/MA60 are nil when the series is too short, never zero.
type TechnicalIndicators struct {
	RSI  float64  `json:"rsi"`
	MACD string   `json:"macd"`
	MA20 *float64 `json:"ma20"`
	MA60 *float64 `json:"ma60"`
}

// MarketData is the market portion of an analysis response
type MarketData struct {
	LatestPrice         float64             `json:"latest_price"`
	PriceChangePct      *float64            `json:"price_change_pct"`
	Volume              *int64              `json:"volume"`
	TechnicalIndicators TechnicalIndicators `json:"technical_indicators"`
}

// FundamentalData holds the scraped fundamentals snapshot. All fields are
// nullable; ScrapeFailed distinguishes "source had no value" from "scraping
// failed" and is internal-only, never serialized as a fabricated number.
type FundamentalData struct {
	MonthlyRevenueGrowthYoY *string  `json:"monthly_revenue_growth_yoy"`
	GrossMargin             *string  `json:"gross_margin"`
	PERatio                 *float64 `json:"pe_ratio"`
	EPS                     *float64 `json:"eps"`

	ScrapeFailed bool   `json:"-"`
	ScrapeError  string `json:"-"`
}

// AnalysisResult is the complete response for one analysis request.
// Field names are a stable contract with front-end consumers.
type AnalysisResult struct {
	Symbol                     string          `json:"symbol"`
	MarketData                 MarketData      `json:"market_data"`
	FundamentalData            FundamentalData `json:"fundamental_data"`
	AISummary                  string          `json:"ai_summary"`
	IsPremiumAnalysisAvailable bool            `json:"is_premium_analysis_available"`
}
