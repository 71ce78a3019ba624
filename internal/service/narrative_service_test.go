package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/LyceumX/equant/internal/llm"
	"github.com/LyceumX/equant/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubProvider struct {
	out        string
	err        error
	lastPrompt llm.Prompt
}

func (p *stubProvider) Complete(_ context.Context, prompt llm.Prompt) (string, error) {
	p.lastPrompt = prompt
	return p.out, p.err
}

func (p *stubProvider) Name() string { return "stub" }

func sampleMarketData() model.MarketData {
	change := 1.23
	volume := int64(25_000_000)
	ma20 := 520.5
	return model.MarketData{
		LatestPrice:    530.0,
		PriceChangePct: &change,
		Volume:         &volume,
		TechnicalIndicators: model.TechnicalIndicators{
			RSI:  62.4,
			MACD: model.MACDBullish,
			MA20: &ma20,
		},
	}
}

func TestSummarizeNoProviderUsesTemplate(t *testing.T) {
	svc := NewNarrativeService(nil, time.Second, zap.NewNop())

	summary := svc.Summarize(context.Background(), "2330.TW", sampleMarketData(), model.FundamentalData{})

	assert.Contains(t, summary, "2330.TW")
	assert.Contains(t, summary, "bullish")
	assert.NotEmpty(t, summary)
}

func TestSummarizeProviderFailureFallsBack(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited")}
	svc := NewNarrativeService(provider, time.Second, zap.NewNop())

	summary := svc.Summarize(context.Background(), "AAPL", sampleMarketData(), model.FundamentalData{})

	assert.Contains(t, summary, "AAPL")
	assert.NotEmpty(t, summary)
}

func TestSummarizeUsesProviderOutput(t *testing.T) {
	provider := &stubProvider{out: "Strong momentum with elevated valuation risk."}
	svc := NewNarrativeService(provider, time.Second, zap.NewNop())

	summary := svc.Summarize(context.Background(), "AAPL", sampleMarketData(), model.FundamentalData{})

	assert.Equal(t, "Strong momentum with elevated valuation risk.", summary)
	assert.Equal(t, analystSystemPrompt, provider.lastPrompt.System)
	assert.Contains(t, provider.lastPrompt.User, "AAPL")
	assert.Contains(t, provider.lastPrompt.User, "530.00")
}

func TestBuildUserPromptRendersMissingValues(t *testing.T) {
	prompt := buildUserPrompt("TSLA", model.MarketData{LatestPrice: 250}, model.FundamentalData{})

	// Nil fields render as N/A, never as zeros
	assert.GreaterOrEqual(t, strings.Count(prompt, "N/A"), 6)
	assert.Contains(t, prompt, "TSLA")
}

func TestTemplateSummarySentiment(t *testing.T) {
	market := sampleMarketData()

	market.TechnicalIndicators.MACD = model.MACDBearish
	assert.Contains(t, templateSummary("X", market, model.FundamentalData{}), "bearish")

	market.TechnicalIndicators.MACD = model.MACDNeutral
	assert.Contains(t, templateSummary("X", market, model.FundamentalData{}), "neutral")

	// Overbought RSI suppresses the bullish call even on a bullish cross
	market.TechnicalIndicators.MACD = model.MACDBullish
	market.TechnicalIndicators.RSI = 82
	summary := templateSummary("X", market, model.FundamentalData{})
	assert.Contains(t, summary, "neutral setup")

	yoy := "15.2%"
	withRevenue := templateSummary("X", market, model.FundamentalData{MonthlyRevenueGrowthYoY: &yoy})
	assert.Contains(t, withRevenue, "15.2%")
}
