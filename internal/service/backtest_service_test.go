package service

import (
	"context"
	"testing"
	"time"

	"github.com/LyceumX/equant/internal/client"
	"github.com/LyceumX/equant/internal/config"
	"github.com/LyceumX/equant/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func frictionlessConfig() config.BacktestConfig {
	return config.BacktestConfig{
		CommissionRate:     0,
		SlippageRate:       0,
		TradingDaysPerYear: 252,
		InitialCapital:     100000,
	}
}

func candlesFromCloses(closes []float64) []model.Candle {
	candles := make([]model.Candle, len(closes))
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = model.Candle{
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

// vShapeCloses declines then recovers, producing exactly one golden cross
func vShapeCloses() []float64 {
	closes := make([]float64, 0, 20)
	price := 100.0
	for i := 0; i < 10; i++ {
		closes = append(closes, price)
		price -= 2
	}
	price = 90.0
	for i := 0; i < 10; i++ {
		closes = append(closes, price)
		price += 8
	}
	return closes
}

func TestValidateParametersRejectsBeforeFetch(t *testing.T) {
	// A nil market data dependency proves validation runs before any fetch
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())

	cases := []struct {
		name  string
		req   model.BacktestRequest
		field string
	}{
		{
			name:  "missing symbol",
			req:   model.BacktestRequest{MAShort: 5, MALong: 20, TakeProfitPct: 0.1, StopLossPct: 0.05, LookbackDays: 90},
			field: "symbol",
		},
		{
			name:  "short window not below long",
			req:   model.BacktestRequest{Symbol: "AAPL", MAShort: 20, MALong: 20, TakeProfitPct: 0.1, StopLossPct: 0.05, LookbackDays: 90},
			field: "ma_short",
		},
		{
			name:  "short window above long",
			req:   model.BacktestRequest{Symbol: "AAPL", MAShort: 30, MALong: 20, TakeProfitPct: 0.1, StopLossPct: 0.05, LookbackDays: 90},
			field: "ma_short",
		},
		{
			name:  "non-positive take profit",
			req:   model.BacktestRequest{Symbol: "AAPL", MAShort: 5, MALong: 20, TakeProfitPct: 0, StopLossPct: 0.05, LookbackDays: 90},
			field: "take_profit_pct",
		},
		{
			name:  "non-positive stop loss",
			req:   model.BacktestRequest{Symbol: "AAPL", MAShort: 5, MALong: 20, TakeProfitPct: 0.1, StopLossPct: -0.05, LookbackDays: 90},
			field: "stop_loss_pct",
		},
		{
			name:  "non-positive lookback",
			req:   model.BacktestRequest{Symbol: "AAPL", MAShort: 5, MALong: 20, TakeProfitPct: 0.1, StopLossPct: 0.05, LookbackDays: 0},
			field: "lookback_days",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RunBacktest(context.Background(), &tc.req)
			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestRunBacktestInsufficientData(t *testing.T) {
	// Unreachable provider means the synthetic fallback supplies exactly
	// lookback_days candles, which is below the required ma_long+5
	chartClient := client.NewChartClient("http://127.0.0.1:0", time.Second, zap.NewNop())
	marketData := NewMarketDataService(chartClient, time.Second, zap.NewNop())
	svc := NewBacktestService(marketData, frictionlessConfig(), zap.NewNop())

	_, err := svc.RunBacktest(context.Background(), &model.BacktestRequest{
		Symbol:        "AAPL",
		MAShort:       5,
		MALong:        20,
		TakeProfitPct: 0.1,
		StopLossPct:   0.05,
		LookbackDays:  10,
	})
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "lookback_days", validationErr.Field)
}

func TestSimulateSingleTradeClosedAtEnd(t *testing.T) {
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())
	candles := candlesFromCloses(vShapeCloses())
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.9,
		StopLossPct:   0.5,
		LookbackDays:  len(candles),
	}

	result := svc.simulate(candles, req, 100000)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, model.ExitEndOfData, trade.ExitReason)
	assert.Greater(t, trade.PnLPct, 0.0)
	assert.Equal(t, candles[len(candles)-1].Date, trade.ExitDate)

	assert.Equal(t, "MA-Crossover (3/5)", result.Strategy)
	assert.Equal(t, 1, result.Metrics.NumTrades)
	assert.Equal(t, 100.0, result.Metrics.WinRatePct)
	assert.Greater(t, result.Metrics.TotalReturnPct, 0.0)
}

func TestSimulateStopLossBeatsCrossover(t *testing.T) {
	// Entry on the recovery, then a sharp single-day drop breaches the stop
	// before the moving averages cross back down
	closes := []float64{100, 98, 96, 94, 92, 90, 88, 86, 84, 82, 90, 98, 106, 86, 88}
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())
	candles := candlesFromCloses(closes)
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.5,
		StopLossPct:   0.1,
		LookbackDays:  len(candles),
	}

	result := svc.simulate(candles, req, 100000)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, model.ExitStopLoss, trade.ExitReason)
	assert.Equal(t, 98.0, trade.EntryPrice)
	assert.Equal(t, 86.0, trade.ExitPrice)
	assert.InDelta(t, (86.0-98.0)/98.0*100, trade.PnLPct, 0.01)
	assert.Equal(t, 0.0, result.Metrics.WinRatePct)
}

func TestSimulateTakeProfit(t *testing.T) {
	// After entry the price gaps up past the take-profit threshold while the
	// short average stays above the long
	closes := []float64{100, 98, 96, 94, 92, 90, 88, 86, 84, 82, 90, 98, 120, 125}
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())
	candles := candlesFromCloses(closes)
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.15,
		StopLossPct:   0.3,
		LookbackDays:  len(candles),
	}

	result := svc.simulate(candles, req, 100000)

	require.NotEmpty(t, result.Trades)
	assert.Equal(t, model.ExitTakeProfit, result.Trades[0].ExitReason)
	assert.Greater(t, result.Trades[0].PnLPct, 15.0)
}

func TestSimulateNoCrossNoTrades(t *testing.T) {
	// A pure uptrend keeps the short average above the long from the first
	// evaluation, so no golden cross ever fires
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())
	candles := candlesFromCloses(closes)
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.2,
		StopLossPct:   0.1,
		LookbackDays:  len(candles),
	}

	result := svc.simulate(candles, req, 100000)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.Metrics.NumTrades)
	assert.Equal(t, 0.0, result.Metrics.WinRatePct)
	assert.Equal(t, 0.0, result.Metrics.TotalReturnPct)
	assert.Equal(t, 0.0, result.Metrics.SharpeRatio)
	for _, point := range result.EquityCurve {
		assert.Equal(t, 100000.0, point.Equity)
	}
}

func TestSimulateEquityCurveShape(t *testing.T) {
	svc := NewBacktestService(nil, frictionlessConfig(), zap.NewNop())
	candles := candlesFromCloses(vShapeCloses())
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.9,
		StopLossPct:   0.5,
		LookbackDays:  len(candles),
	}

	result := svc.simulate(candles, req, 100000)

	// One point per candle, starting at the initial capital
	require.Len(t, result.EquityCurve, len(candles))
	assert.Equal(t, 100000.0, result.EquityCurve[0].Equity)
	assert.Equal(t, candles[0].Date, result.EquityCurve[0].Date)
	assert.Equal(t, candles[len(candles)-1].Date, result.EquityCurve[len(result.EquityCurve)-1].Date)
}

func TestSimulateCommissionAndSlippageReduceReturns(t *testing.T) {
	cfg := frictionlessConfig()
	frictionless := NewBacktestService(nil, cfg, zap.NewNop())

	cfg.CommissionRate = 0.001
	cfg.SlippageRate = 0.0005
	withFriction := NewBacktestService(nil, cfg, zap.NewNop())

	candles := candlesFromCloses(vShapeCloses())
	req := &model.BacktestRequest{
		Symbol:        "TEST",
		MAShort:       3,
		MALong:        5,
		TakeProfitPct: 0.9,
		StopLossPct:   0.5,
		LookbackDays:  len(candles),
	}

	clean := frictionless.simulate(candles, req, 100000)
	costly := withFriction.simulate(candles, req, 100000)

	require.Len(t, clean.Trades, 1)
	require.Len(t, costly.Trades, 1)
	assert.Less(t, costly.Metrics.TotalReturnPct, clean.Metrics.TotalReturnPct)
	assert.Less(t, costly.Trades[0].PnLPct, clean.Trades[0].PnLPct)
	assert.Greater(t, costly.Trades[0].EntryPrice, clean.Trades[0].EntryPrice)
	assert.Less(t, costly.Trades[0].ExitPrice, clean.Trades[0].ExitPrice)
}

func TestRunBacktestOnSyntheticSeries(t *testing.T) {
	chartClient := client.NewChartClient("http://127.0.0.1:0", time.Second, zap.NewNop())
	marketData := NewMarketDataService(chartClient, time.Second, zap.NewNop())
	svc := NewBacktestService(marketData, frictionlessConfig(), zap.NewNop())

	result, err := svc.RunBacktest(context.Background(), &model.BacktestRequest{
		Symbol:        "2330.TW",
		MAShort:       5,
		MALong:        20,
		TakeProfitPct: 0.15,
		StopLossPct:   0.05,
		LookbackDays:  120,
	})
	require.NoError(t, err)

	assert.Equal(t, "2330.TW", result.Symbol)
	assert.Equal(t, "MA-Crossover (5/20)", result.Strategy)
	require.Len(t, result.EquityCurve, 120)
	assert.Equal(t, 100000.0, result.EquityCurve[0].Equity)
	assert.Equal(t, len(result.Trades), result.Metrics.NumTrades)
}
