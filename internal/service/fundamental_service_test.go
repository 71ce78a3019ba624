package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LyceumX/equant/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const revenuePageHTML = `<html><body>
<table class="tb-stock">
  <thead><tr><th>月份</th><th>營收</th><th>年增率</th></tr></thead>
  <tbody>
    <tr><td>2026/07</td><td>256,953</td><td>12.5%</td></tr>
    <tr><td>2026/06</td><td>248,271</td><td>10.1%</td></tr>
  </tbody>
</table>
<table>
  <tr><td>毛利率</td><td>53.1%</td></tr>
  <tr><td>本益比</td><td>18.2</td></tr>
  <tr><td>EPS</td><td>9.87</td></tr>
</table>
</body></html>`

func newFundamentalService(reportURL string) *FundamentalService {
	reportClient := client.NewReportClient(reportURL, time.Second, zap.NewNop())
	return NewFundamentalService(reportClient, time.Second, zap.NewNop())
}

func TestFetchFundamentalsScrapesAllFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, revenuePageHTML)
	}))
	defer server.Close()

	svc := newFundamentalService(server.URL)
	data := svc.FetchFundamentals(context.Background(), "2330.TW")

	require.NotNil(t, data)
	assert.False(t, data.ScrapeFailed)
	require.NotNil(t, data.MonthlyRevenueGrowthYoY)
	assert.Equal(t, "12.5%", *data.MonthlyRevenueGrowthYoY)
	require.NotNil(t, data.GrossMargin)
	assert.Equal(t, "53.1%", *data.GrossMargin)
	require.NotNil(t, data.PERatio)
	assert.Equal(t, 18.2, *data.PERatio)
	require.NotNil(t, data.EPS)
	assert.Equal(t, 9.87, *data.EPS)
}

func TestFetchFundamentalsPartialPage(t *testing.T) {
	// Only the margin row exists; the other extractions must fail
	// independently without aborting it
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table><tr><td>毛利率</td><td>41.7%</td></tr></table></body></html>`)
	}))
	defer server.Close()

	svc := newFundamentalService(server.URL)
	data := svc.FetchFundamentals(context.Background(), "2317")

	require.NotNil(t, data)
	assert.False(t, data.ScrapeFailed)
	require.NotNil(t, data.GrossMargin)
	assert.Equal(t, "41.7%", *data.GrossMargin)
	assert.Nil(t, data.MonthlyRevenueGrowthYoY)
	assert.Nil(t, data.PERatio)
	assert.Nil(t, data.EPS)
}

func TestFetchFundamentalsNetworkFailure(t *testing.T) {
	svc := newFundamentalService("http://127.0.0.1:0")
	data := svc.FetchFundamentals(context.Background(), "2330.TW")

	require.NotNil(t, data)
	assert.True(t, data.ScrapeFailed)
	assert.NotEmpty(t, data.ScrapeError)
	assert.Nil(t, data.MonthlyRevenueGrowthYoY)
	assert.Nil(t, data.GrossMargin)
	assert.Nil(t, data.PERatio)
	assert.Nil(t, data.EPS)
}

func TestFetchFundamentalsEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>maintenance</p></body></html>`)
	}))
	defer server.Close()

	svc := newFundamentalService(server.URL)
	data := svc.FetchFundamentals(context.Background(), "2330")

	require.NotNil(t, data)
	assert.True(t, data.ScrapeFailed)
	assert.NotEmpty(t, data.ScrapeError)
}

func TestFetchFundamentalsNonTaiwanSymbolMock(t *testing.T) {
	// No HTTP call happens for non-numeric tickers
	svc := newFundamentalService("http://127.0.0.1:0")

	first := svc.FetchFundamentals(context.Background(), "AAPL")
	second := svc.FetchFundamentals(context.Background(), "AAPL")

	require.NotNil(t, first)
	assert.False(t, first.ScrapeFailed)
	require.NotNil(t, first.MonthlyRevenueGrowthYoY)
	require.NotNil(t, first.GrossMargin)
	require.NotNil(t, first.PERatio)
	require.NotNil(t, first.EPS)
	assert.Equal(t, first, second)
}

func TestCleanPercent(t *testing.T) {
	for raw, want := range map[string]string{
		"12.5%":  "12.5%",
		" -3.12": "-3.12%",
		"1,234":  "1234%",
	} {
		got := cleanPercent(raw)
		require.NotNil(t, got, "raw=%q", raw)
		assert.Equal(t, want, *got, "raw=%q", raw)
	}

	assert.Nil(t, cleanPercent(""))
	assert.Nil(t, cleanPercent("-"))
	assert.Nil(t, cleanPercent("--"))
	assert.Nil(t, cleanPercent("N/A"))
}
