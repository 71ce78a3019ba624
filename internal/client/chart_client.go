package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LyceumX/equant/internal/model"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const chartUserAgent = "Mozilla/5.0"

// ChartClient fetches daily OHLCV series from a Yahoo-compatible chart API
type ChartClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewChartClient creates a new chart API client
func NewChartClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ChartClient {
	return &ChartClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetDailySeries retrieves up to days daily candles ending today for the
// given symbol. It returns an error on any transport, status, or payload
// problem so the caller can fall back to synthetic data.
func (c *ChartClient) GetDailySeries(ctx context.Context, symbol string, days int) ([]model.Candle, error) {
	period2 := time.Now().Unix()
	period1 := period2 - int64(days)*86400

	params := url.Values{}
	params.Add("period1", strconv.FormatInt(period1, 10))
	params.Add("period2", strconv.FormatInt(period2, 10))
	params.Add("interval", "1d")

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", chartUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.Warn("Chart API error response",
			zap.String("symbol", symbol),
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("response", bodyBytes))
		return nil, fmt.Errorf("chart API returned status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart response: %w", err)
	}

	return parseChartPayload(body)
}

// parseChartPayload extracts candles from the chart API JSON. Entries with a
// null close are skipped rather than interpolated.
func parseChartPayload(body []byte) ([]model.Candle, error) {
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("malformed chart payload: missing result")
	}

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	if len(timestamps) == 0 || len(closes) != len(timestamps) {
		return nil, fmt.Errorf("malformed chart payload: empty or inconsistent series")
	}

	candles := make([]model.Candle, 0, len(timestamps))
	for i, ts := range timestamps {
		if closes[i].Type == gjson.Null {
			continue
		}
		candle := model.Candle{
			Date:  time.Unix(ts.Int(), 0).UTC().Format("2006-01-02"),
			Close: closes[i].Float(),
		}
		if i < len(opens) {
			candle.Open = opens[i].Float()
		}
		if i < len(highs) {
			candle.High = highs[i].Float()
		}
		if i < len(lows) {
			candle.Low = lows[i].Float()
		}
		if i < len(volumes) {
			candle.Volume = volumes[i].Int()
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("chart payload contained no usable candles")
	}

	return candles, nil
}
