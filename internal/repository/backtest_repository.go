package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LyceumX/equant/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// BacktestRepository persists completed backtest runs for premium users.
// The analysis pipeline itself is stateless; this history store is an
// optional feature enabled by configuration.
type BacktestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewBacktestRepository creates a new backtest repository
func NewBacktestRepository(db *sqlx.DB, logger *zap.Logger) *BacktestRepository {
	return &BacktestRepository{
		db:     db,
		logger: logger,
	}
}

// backtestRunRow is the database shape of a saved run
type backtestRunRow struct {
	ID        int64           `db:"id"`
	UserID    int             `db:"user_id"`
	Symbol    string          `db:"symbol"`
	Strategy  string          `db:"strategy"`
	Params    json.RawMessage `db:"params"`
	Metrics   json.RawMessage `db:"metrics"`
	CreatedAt time.Time       `db:"created_at"`
}

// SaveRun stores a completed run with its parameters and metrics
func (r *BacktestRepository) SaveRun(ctx context.Context, userID int, req *model.BacktestRequest, result *model.BacktestResponse) (int64, error) {
	params, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal backtest params: %w", err)
	}
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal backtest metrics: %w", err)
	}

	var id int64
	query := `
		INSERT INTO backtest_runs (user_id, symbol, strategy, params, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, userID, req.Symbol, result.Strategy, params, metrics).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to save backtest run: %w", err)
	}

	r.logger.Debug("Backtest run saved",
		zap.Int64("id", id),
		zap.Int("userID", userID),
		zap.String("symbol", req.Symbol))

	return id, nil
}

// ListRuns returns the caller's most recent saved runs
func (r *BacktestRepository) ListRuns(ctx context.Context, userID, limit int) ([]model.BacktestRunSummary, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, user_id, symbol, strategy, metrics, created_at
		FROM backtest_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []backtestRunRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}

	summaries := make([]model.BacktestRunSummary, 0, len(rows))
	for _, row := range rows {
		summary := model.BacktestRunSummary{
			ID:        row.ID,
			UserID:    row.UserID,
			Symbol:    row.Symbol,
			Strategy:  row.Strategy,
			CreatedAt: row.CreatedAt,
		}
		if err := json.Unmarshal(row.Metrics, &summary.Metrics); err != nil {
			r.logger.Warn("Failed to unmarshal stored metrics",
				zap.Int64("id", row.ID),
				zap.Error(err))
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
