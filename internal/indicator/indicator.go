// Package indicator provides pure technical indicator math over closing
// price series. No I/O, deterministic, safe for concurrent use.
package indicator

import "github.com/LyceumX/equant/internal/model"

// Default periods used by the analysis pipeline
const (
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// RSI computes the Wilder-smoothed Relative Strength Index over the given
// period. The result is always within [0,100]. With fewer than period+1
// observations it returns the neutral midpoint 50 instead of failing.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing over the remaining observations
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	rsi := 100 - 100/(1+rs)
	if rsi < 0 {
		return 0
	}
	if rsi > 100 {
		return 100
	}
	return rsi
}

// MACDSignalState classifies the latest observation of the MACD line against
// its signal line: "bullish" when the MACD line crosses above the signal
// line on the latest close, "bearish" when it crosses below, "neutral"
// otherwise (including insufficient history).
func MACDSignalState(closes []float64) string {
	if len(closes) < MACDSlow+1 {
		return model.MACDNeutral
	}

	emaFast := EMA(closes, MACDFast)
	emaSlow := EMA(closes, MACDSlow)
	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}
	signalLine := EMA(macdLine, MACDSignal)

	last := len(closes) - 1
	prevDiff := macdLine[last-1] - signalLine[last-1]
	currDiff := macdLine[last] - signalLine[last]

	switch {
	case prevDiff <= 0 && currDiff > 0:
		return model.MACDBullish
	case prevDiff >= 0 && currDiff < 0:
		return model.MACDBearish
	default:
		return model.MACDNeutral
	}
}

// SMA computes the simple moving average over the trailing window closes.
// The second return value is false when fewer than window observations
// exist; callers must render that as unavailable, never as zero.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	var sum float64
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// EMA computes the exponential moving average series for the given span,
// seeded from the first value (adjust=false convention).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
