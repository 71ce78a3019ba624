package model

import "time"

// Exit reasons recorded on a completed trade
const (
	ExitCrossover  = "crossover"
	ExitTakeProfit = "take_profit"
	ExitStopLoss   = "stop_loss"
	ExitEndOfData  = "end_of_data"
)

// BacktestRequest represents the input parameters for a backtest
type BacktestRequest struct {
	Symbol         string  `json:"symbol" binding:"required,symbol"`
	InitialCapital float64 `json:"initial_capital" binding:"omitempty,gt=0"`
	MAShort        int     `json:"ma_short" binding:"required,gt=0"`
	MALong         int     `json:"ma_long" binding:"required,gt=0"`
	TakeProfitPct  float64 `json:"take_profit_pct" binding:"required,gt=0,lt=1"`
	StopLossPct    float64 `json:"stop_loss_pct" binding:"required,gt=0,lt=1"`
	LookbackDays   int     `json:"lookback_days" binding:"required,gt=0"`
}

// Trade represents a single completed round trip in a backtest.
// Prices are fill prices with slippage applied.
type Trade struct {
	EntryDate  string  `json:"entry_date"`
	ExitDate   string  `json:"exit_date"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	ExitReason string  `json:"exit_reason"`
	PnLPct     float64 `json:"pnl_pct"`
}

// EquityPoint is one day of mark-to-market portfolio equity
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// BacktestMetrics represents performance metrics from a backtest
type BacktestMetrics struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	NumTrades      int     `json:"num_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
}

// BacktestResponse is the complete result of a backtest run.
// Built once, immutable, returned to the caller.
type BacktestResponse struct {
	Symbol      string          `json:"symbol"`
	Strategy    string          `json:"strategy"`
	Metrics     BacktestMetrics `json:"metrics"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	Trades      []Trade         `json:"trades,omitempty"`
}

// BacktestRunSummary is a persisted backtest run as listed from history
type BacktestRunSummary struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int             `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Strategy  string          `json:"strategy" db:"strategy"`
	Metrics   BacktestMetrics `json:"metrics" db:"-"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
