package service

import (
	"context"
	"sync"

	"github.com/LyceumX/equant/internal/indicator"
	"github.com/LyceumX/equant/internal/model"

	"go.uber.org/zap"
)

// AnalysisService composes market data, fundamentals, indicators, and the
// narrative generator into one analysis response. The market and
// fundamental fetches run concurrently; both degrade gracefully, so the
// orchestration is effectively non-failing under normal operation.
type AnalysisService struct {
	marketData   *MarketDataService
	fundamentals *FundamentalService
	narrative    *NarrativeService
	lookbackDays int
	logger       *zap.Logger
}

// NewAnalysisService creates a new analysis orchestrator
func NewAnalysisService(
	marketData *MarketDataService,
	fundamentals *FundamentalService,
	narrative *NarrativeService,
	lookbackDays int,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		marketData:   marketData,
		fundamentals: fundamentals,
		narrative:    narrative,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// Analyze produces the full analysis result for one symbol. isPremium is
// the access gate's decision, passed through untouched.
func (s *AnalysisService) Analyze(ctx context.Context, symbol string, isPremium bool) *model.AnalysisResult {
	var (
		snapshot     *model.MarketSnapshot
		fundamentals *model.FundamentalData
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snapshot = s.marketData.FetchMarketData(ctx, symbol, s.lookbackDays)
	}()
	go func() {
		defer wg.Done()
		fundamentals = s.fundamentals.FetchFundamentals(ctx, symbol)
	}()
	wg.Wait()

	marketData := model.MarketData{
		LatestPrice:         snapshot.LatestPrice,
		PriceChangePct:      snapshot.PriceChangePct,
		Volume:              snapshot.Volume,
		TechnicalIndicators: computeIndicators(snapshot.Closes()),
	}

	summary := s.narrative.Summarize(ctx, symbol, marketData, *fundamentals)

	return &model.AnalysisResult{
		Symbol:                     symbol,
		MarketData:                 marketData,
		FundamentalData:            *fundamentals,
		AISummary:                  summary,
		IsPremiumAnalysisAvailable: isPremium,
	}
}

// computeIndicators derives the technical indicators from a close series,
// rounding at the response boundary
func computeIndicators(closes []float64) model.TechnicalIndicators {
	indicators := model.TechnicalIndicators{
		RSI:  round2(indicator.RSI(closes, indicator.RSIPeriod)),
		MACD: indicator.MACDSignalState(closes),
	}
	if ma20, ok := indicator.SMA(closes, 20); ok {
		v := round2(ma20)
		indicators.MA20 = &v
	}
	if ma60, ok := indicator.SMA(closes, 60); ok {
		v := round2(ma60)
		indicators.MA60 = &v
	}
	return indicators
}
