package service

import (
	"context"
	"fmt"
	"math"

	"github.com/LyceumX/equant/internal/config"
	"github.com/LyceumX/equant/internal/model"

	"go.uber.org/zap"
)

// BacktestService simulates a moving-average crossover strategy over
// historical prices. The simulation itself is pure and single-threaded; all
// mutable state is local to one run.
type BacktestService struct {
	marketData *MarketDataService
	cfg        config.BacktestConfig
	logger     *zap.Logger
}

// NewBacktestService creates a new backtest service
func NewBacktestService(marketData *MarketDataService, cfg config.BacktestConfig, logger *zap.Logger) *BacktestService {
	return &BacktestService{
		marketData: marketData,
		cfg:        cfg,
		logger:     logger,
	}
}

// position is the open/flat strategy state during a replay
type position struct {
	open       bool
	shares     float64
	entryFill  float64
	entryDate  string
	investment float64
}

// RunBacktest validates parameters, replays history, and computes the
// performance metrics and equity curve
func (s *BacktestService) RunBacktest(ctx context.Context, req *model.BacktestRequest) (*model.BacktestResponse, error) {
	if err := validateParameters(req); err != nil {
		return nil, err
	}

	initialCapital := req.InitialCapital
	if initialCapital <= 0 {
		initialCapital = s.cfg.InitialCapital
	}

	// Market data fetch never fails; synthetic fallback keeps the replay fed
	snapshot := s.marketData.FetchMarketData(ctx, req.Symbol, req.LookbackDays)
	if len(snapshot.Candles) < req.MALong+5 {
		return nil, invalidParam("lookback_days",
			fmt.Sprintf("not enough data: need at least %d days, got %d", req.MALong+5, len(snapshot.Candles)))
	}

	result := s.simulate(snapshot.Candles, req, initialCapital)
	result.Symbol = req.Symbol

	s.logger.Info("Backtest completed",
		zap.String("symbol", req.Symbol),
		zap.String("source", snapshot.Source),
		zap.Int("numTrades", result.Metrics.NumTrades),
		zap.Float64("totalReturnPct", result.Metrics.TotalReturnPct))

	return result, nil
}

// validateParameters rejects invalid input before any external call
func validateParameters(req *model.BacktestRequest) error {
	switch {
	case req.Symbol == "":
		return invalidParam("symbol", "symbol is required")
	case req.MAShort <= 0:
		return invalidParam("ma_short", "must be a positive integer")
	case req.MALong <= 0:
		return invalidParam("ma_long", "must be a positive integer")
	case req.MAShort >= req.MALong:
		return invalidParam("ma_short", "must be strictly less than ma_long")
	case req.TakeProfitPct <= 0:
		return invalidParam("take_profit_pct", "must be a positive fraction")
	case req.StopLossPct <= 0:
		return invalidParam("stop_loss_pct", "must be a positive fraction")
	case req.LookbackDays <= 0:
		return invalidParam("lookback_days", "must be a positive integer")
	}
	return nil
}

// simulate walks the series day by day, maintaining two trailing moving
// averages and mark-to-market equity. One equity point is recorded per day;
// the first point equals the starting capital.
func (s *BacktestService) simulate(candles []model.Candle, req *model.BacktestRequest, initialCapital float64) *model.BacktestResponse {
	cash := initialCapital
	pos := position{}
	trades := make([]model.Trade, 0)
	curve := make([]model.EquityPoint, 0, len(candles))

	var shortSum, longSum float64
	var prevShort, prevLong float64
	havePrev := false

	for i, candle := range candles {
		price := candle.Close

		// Trailing window sums
		shortSum += price
		if i >= req.MAShort {
			shortSum -= candles[i-req.MAShort].Close
		}
		longSum += price
		if i >= req.MALong {
			longSum -= candles[i-req.MALong].Close
		}

		if i >= req.MALong-1 {
			curShort := shortSum / float64(req.MAShort)
			curLong := longSum / float64(req.MALong)

			if havePrev {
				if !pos.open {
					// Golden cross while flat: enter long
					if prevShort <= prevLong && curShort > curLong {
						pos = s.enter(cash, price, candle.Date)
						cash = 0
					}
				} else {
					change := (price - pos.entryFill) / pos.entryFill
					exitReason := ""
					switch {
					case prevShort >= prevLong && curShort < curLong:
						exitReason = model.ExitCrossover
					case change >= req.TakeProfitPct:
						exitReason = model.ExitTakeProfit
					case change <= -req.StopLossPct:
						exitReason = model.ExitStopLoss
					}
					if exitReason != "" {
						var trade model.Trade
						cash, trade = s.exit(&pos, price, candle.Date, exitReason)
						trades = append(trades, trade)
					}
				}
			}

			prevShort, prevLong = curShort, curLong
			havePrev = true
		}

		equity := cash
		if pos.open {
			equity += pos.shares * price
		}
		curve = append(curve, model.EquityPoint{Date: candle.Date, Equity: round2(equity)})
	}

	// Close any position left open at the end of the series
	if pos.open {
		last := candles[len(candles)-1]
		var trade model.Trade
		cash, trade = s.exit(&pos, last.Close, last.Date, model.ExitEndOfData)
		trades = append(trades, trade)
		curve[len(curve)-1].Equity = round2(cash)
	}

	return &model.BacktestResponse{
		Strategy:    fmt.Sprintf("MA-Crossover (%d/%d)", req.MAShort, req.MALong),
		Metrics:     computeMetrics(curve, trades, initialCapital, s.cfg.TradingDaysPerYear),
		EquityCurve: curve,
		Trades:      trades,
	}
}

// enter opens a long position at the close plus slippage, with commission
// deducted from the invested amount
func (s *BacktestService) enter(cash, price float64, date string) position {
	fill := price * (1 + s.cfg.SlippageRate)
	invested := cash * (1 - s.cfg.CommissionRate)
	return position{
		open:       true,
		shares:     invested / fill,
		entryFill:  fill,
		entryDate:  date,
		investment: cash,
	}
}

// exit closes the position at the close minus slippage, with commission
// deducted from the proceeds, and records the trade
func (s *BacktestService) exit(pos *position, price float64, date, reason string) (float64, model.Trade) {
	fill := price * (1 - s.cfg.SlippageRate)
	proceeds := pos.shares * fill * (1 - s.cfg.CommissionRate)
	trade := model.Trade{
		EntryDate:  pos.entryDate,
		ExitDate:   date,
		EntryPrice: round2(pos.entryFill),
		ExitPrice:  round2(fill),
		ExitReason: reason,
		PnLPct:     round2((proceeds - pos.investment) / pos.investment * 100),
	}
	*pos = position{}
	return proceeds, trade
}

// computeMetrics derives the performance metrics from the finished curve
// and trade list. Degenerate cases (no trades, flat curve) yield zeros, not
// division errors.
func computeMetrics(curve []model.EquityPoint, trades []model.Trade, initialCapital float64, tradingDays int) model.BacktestMetrics {
	metrics := model.BacktestMetrics{NumTrades: len(trades)}
	if len(curve) == 0 {
		return metrics
	}

	final := curve[len(curve)-1].Equity
	metrics.TotalReturnPct = round2((final - initialCapital) / initialCapital * 100)

	// Max drawdown: largest peak-to-trough percentage decline
	peak := curve[0].Equity
	maxDrawdown := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			drawdown := (point.Equity - peak) / peak * 100
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	metrics.MaxDrawdownPct = round2(maxDrawdown)

	metrics.SharpeRatio = sharpeRatio(curve, tradingDays)

	if len(trades) > 0 {
		wins := 0
		for _, trade := range trades {
			if trade.PnLPct > 0 {
				wins++
			}
		}
		metrics.WinRatePct = round2(float64(wins) / float64(len(trades)) * 100)
	}

	return metrics
}

// sharpeRatio annualizes mean/stddev of daily equity returns. Defined as 0
// when the standard deviation is 0.
func sharpeRatio(curve []model.EquityPoint, tradingDays int) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return math.Round(mean/std*math.Sqrt(float64(tradingDays))*1000) / 1000
}
