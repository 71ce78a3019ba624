package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const reportUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ReportClient fetches financial report pages from the public report source
type ReportClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewReportClient creates a new financial report client
func NewReportClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ReportClient {
	return &ReportClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetRevenuePage fetches the raw revenue report HTML for a stock number
func (c *ReportClient) GetRevenuePage(ctx context.Context, stockNo string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/revenue", c.baseURL, stockNo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", reportUserAgent)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch report page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Report source error response",
			zap.String("stockNo", stockNo),
			zap.Int("statusCode", resp.StatusCode))
		return "", fmt.Errorf("report source returned status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read report page: %w", err)
	}

	return string(body), nil
}
