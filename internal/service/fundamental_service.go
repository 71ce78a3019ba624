package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LyceumX/equant/internal/client"
	"github.com/LyceumX/equant/internal/model"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

// FundamentalService scrapes a fundamentals snapshot from the public report
// source. Every field extraction is isolated: one failing field never aborts
// the others, and total failure yields an all-nil snapshot flagged as failed.
type FundamentalService struct {
	reportClient *client.ReportClient
	timeout      time.Duration
	logger       *zap.Logger
}

// NewFundamentalService creates a new fundamentals scraper service
func NewFundamentalService(reportClient *client.ReportClient, timeout time.Duration, logger *zap.Logger) *FundamentalService {
	return &FundamentalService{
		reportClient: reportClient,
		timeout:      timeout,
		logger:       logger,
	}
}

// FetchFundamentals returns the fundamentals snapshot for a symbol. It never
// returns an error: scraping failure is reported through ScrapeFailed.
// Taiwan numeric symbols (e.g. "2330.TW") are scraped from the report site;
// other markets get a deterministic seeded mock.
func (s *FundamentalService) FetchFundamentals(ctx context.Context, symbol string) *model.FundamentalData {
	stockNo := strings.TrimSpace(strings.Split(symbol, ".")[0])
	if !isDigits(stockNo) {
		s.logger.Debug("Non-TW symbol, returning mock fundamentals", zap.String("symbol", symbol))
		return mockFundamentals(symbol)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.reportClient.GetRevenuePage(fetchCtx, stockNo)
	if err != nil {
		s.logger.Warn("Fundamentals fetch failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return failedSnapshot(fmt.Sprintf("network error: %v", err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("Fundamentals page parse failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return failedSnapshot(fmt.Sprintf("parse error: %v", err))
	}

	// Independent best-effort extractions
	snapshot := &model.FundamentalData{
		MonthlyRevenueGrowthYoY: extractRevenueYoY(doc),
		GrossMargin:             extractLabeledPercent(doc, "毛利率"),
		PERatio:                 extractLabeledNumber(doc, "本益比"),
		EPS:                     extractLabeledNumber(doc, "EPS"),
	}

	if snapshot.MonthlyRevenueGrowthYoY == nil && snapshot.GrossMargin == nil &&
		snapshot.PERatio == nil && snapshot.EPS == nil {
		s.logger.Warn("All fundamental fields empty, page structure may have changed",
			zap.String("symbol", symbol))
		return failedSnapshot("parsed HTML returned no data")
	}

	return snapshot
}

// extractRevenueYoY locates the revenue table and reads the year-over-year
// growth cell of the most recent row
func extractRevenueYoY(doc *goquery.Document) *string {
	var result *string
	doc.Find("table.tb-stock").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		yoyIdx := -1
		table.Find("th").Each(func(i int, th *goquery.Selection) {
			header := strings.TrimSpace(th.Text())
			if yoyIdx < 0 && (strings.Contains(header, "年增率") || strings.Contains(header, "YoY")) {
				yoyIdx = i
			}
		})
		if yoyIdx < 0 {
			return true
		}

		cells := table.Find("tbody tr").First().Find("td")
		if yoyIdx < cells.Length() {
			if cleaned := cleanPercent(cells.Eq(yoyIdx).Text()); cleaned != nil {
				result = cleaned
			}
		}
		return false
	})
	return result
}

// extractLabeledPercent finds a table cell labeled by the given text and
// returns the adjacent value as a percentage string
func extractLabeledPercent(doc *goquery.Document, label string) *string {
	raw := findLabeledValue(doc, label)
	if raw == "" {
		return nil
	}
	return cleanPercent(raw)
}

// extractLabeledNumber finds a table cell labeled by the given text and
// returns the adjacent value as a number
func extractLabeledNumber(doc *goquery.Document, label string) *float64 {
	raw := findLabeledValue(doc, label)
	if raw == "" {
		return nil
	}
	match := numberPattern.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// findLabeledValue scans label/value table pairs for a matching label
func findLabeledValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(cell.Text()), label) {
			return true
		}
		next := cell.Next()
		if next.Length() == 0 {
			return true
		}
		value = strings.TrimSpace(next.Text())
		return false
	})
	return value
}

// cleanPercent normalizes a raw percentage cell like "-3.12%" or "28.50"
func cleanPercent(raw string) *string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" || raw == "-" || raw == "--" || strings.EqualFold(raw, "N/A") {
		return nil
	}
	match := numberPattern.FindString(raw)
	if match == "" {
		return nil
	}
	formatted := match + "%"
	return &formatted
}

// failedSnapshot is the all-nil snapshot used for total scraping failure
func failedSnapshot(reason string) *model.FundamentalData {
	return &model.FundamentalData{
		ScrapeFailed: true,
		ScrapeError:  reason,
	}
}

// mockFundamentals returns plausible seeded fundamentals for markets the
// scraper does not cover
func mockFundamentals(symbol string) *model.FundamentalData {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64() % (1 << 62))))

	yoy := fmt.Sprintf("%.1f%%", -5+rng.Float64()*45)
	margin := fmt.Sprintf("%.1f%%", 20+rng.Float64()*50)
	pe := math.Round((10+rng.Float64()*30)*10) / 10
	eps := math.Round((1+rng.Float64()*49)*100) / 100

	return &model.FundamentalData{
		MonthlyRevenueGrowthYoY: &yoy,
		GrossMargin:             &margin,
		PERatio:                 &pe,
		EPS:                     &eps,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
