package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/LyceumX/equant/internal/llm"
	"github.com/LyceumX/equant/internal/model"

	"go.uber.org/zap"
)

const analystSystemPrompt = "You are a professional quantitative stock analyst. " +
	"Given structured financial data, write a concise, insightful, plain-language " +
	"analysis (2-4 sentences) in the same language the user uses. Be balanced: " +
	"highlight both opportunities and risks. Do NOT give explicit buy/sell advice."

// NarrativeService assembles a provider-agnostic prompt and generates the
// AI summary, falling back to a deterministic template when no provider is
// configured or the call fails. The summary is supplementary, so Summarize
// never returns an error.
type NarrativeService struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNarrativeService creates a narrative service. A nil provider means the
// template fallback is always used.
func NewNarrativeService(provider llm.Provider, timeout time.Duration, logger *zap.Logger) *NarrativeService {
	return &NarrativeService{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Summarize produces the narrative summary for one analysis
func (s *NarrativeService) Summarize(ctx context.Context, symbol string, market model.MarketData, fundamentals model.FundamentalData) string {
	if s.provider == nil {
		return templateSummary(symbol, market, fundamentals)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := llm.Prompt{
		System: analystSystemPrompt,
		User:   buildUserPrompt(symbol, market, fundamentals),
	}

	summary, err := s.provider.Complete(callCtx, prompt)
	if err != nil {
		s.logger.Warn("LLM call failed, using template summary",
			zap.String("symbol", symbol),
			zap.String("provider", s.provider.Name()),
			zap.Error(err))
		return templateSummary(symbol, market, fundamentals)
	}

	return summary
}

// buildUserPrompt interpolates the numeric inputs into the prompt body
func buildUserPrompt(symbol string, market model.MarketData, fundamentals model.FundamentalData) string {
	ind := market.TechnicalIndicators
	return fmt.Sprintf(`Stock: %s

Market Data:
- Latest Price: %s
- Price Change: %s%%
- Volume: %s

Technical Indicators:
- RSI (14): %.2f
- MACD Signal: %s
- MA20: %s
- MA60: %s

Fundamental Data:
- Monthly Revenue Growth YoY: %s
- Gross Margin: %s
- P/E Ratio: %s
- EPS: %s

Please provide a concise analysis.`,
		symbol,
		strconv.FormatFloat(market.LatestPrice, 'f', 2, 64),
		fmtFloatPtr(market.PriceChangePct),
		fmtIntPtr(market.Volume),
		ind.RSI,
		ind.MACD,
		fmtFloatPtr(ind.MA20),
		fmtFloatPtr(ind.MA60),
		fmtStringPtr(fundamentals.MonthlyRevenueGrowthYoY),
		fmtStringPtr(fundamentals.GrossMargin),
		fmtFloatPtr(fundamentals.PERatio),
		fmtFloatPtr(fundamentals.EPS),
	)
}

// templateSummary renders the deterministic fallback summary from the
// numeric inputs alone
func templateSummary(symbol string, market model.MarketData, fundamentals model.FundamentalData) string {
	ind := market.TechnicalIndicators

	sentiment := "neutral"
	switch {
	case ind.MACD == model.MACDBullish && ind.RSI < 70:
		sentiment = "bullish"
	case ind.MACD == model.MACDBearish:
		sentiment = "bearish"
	}

	revenueNote := "with revenue data pending"
	if fundamentals.MonthlyRevenueGrowthYoY != nil {
		revenueNote = fmt.Sprintf("with revenue YoY growth of %s", *fundamentals.MonthlyRevenueGrowthYoY)
	}

	return fmt.Sprintf(
		"%s is currently priced at %.2f, %s. Technical indicators show a %s setup "+
			"(RSI %.1f, MACD %s). Investors should monitor volume and upcoming earnings "+
			"for further confirmation.",
		symbol, market.LatestPrice, revenueNote, sentiment, ind.RSI, ind.MACD,
	)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func fmtIntPtr(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatInt(*v, 10)
}

func fmtStringPtr(v *string) string {
	if v == nil {
		return "N/A"
	}
	return *v
}
