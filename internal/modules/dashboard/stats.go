package dashboard

import (
	"fmt"
	"math"

	"github.com/aristath/copydash/internal/clients/copytrade"
	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeClosedTradesStats summarises closed trades by realised profit.
// Ties for the most common symbol go to the symbol seen first.
func ComputeClosedTradesStats(signals []copytrade.Signal) ClosedTradesStats {
	if len(signals) == 0 {
		return ClosedTradesStats{}
	}

	pnl := make([]float64, len(signals))
	counts := make(map[string]int)
	var order []string
	stats := ClosedTradesStats{TradesCount: len(signals)}

	for i, s := range signals {
		pnl[i] = s.RealisedProfit
		switch {
		case s.RealisedProfit > 0:
			stats.WinsCount++
		case s.RealisedProfit < 0:
			stats.LossesCount++
		}
		if s.Instrument != "" {
			if counts[s.Instrument] == 0 {
				order = append(order, s.Instrument)
			}
			counts[s.Instrument]++
		}
	}

	stats.WinRatePct = float64(stats.WinsCount) / float64(stats.TradesCount) * 100
	stats.TotalRealisedPnl = floats.Sum(pnl)
	stats.AvgRealisedPnl = stat.Mean(pnl, nil)
	stats.BiggestWin = floats.Max(pnl)
	stats.BiggestLoss = floats.Min(pnl)

	best := 0
	for _, symbol := range order {
		if counts[symbol] > best {
			best = counts[symbol]
			symbol := symbol
			stats.MostCommonSymbol = &symbol
		}
	}

	return stats
}

// FormatCurrency renders value with thousands separators and two decimals.
// USD uses "$", other currencies prefix their code.
func FormatCurrency(value float64, code string) string {
	symbol := code
	if code == "" || code == "USD" {
		symbol = "$"
	}
	sign := ""
	if value < 0 {
		sign = "-"
		value = math.Abs(value)
	}
	return sign + symbol + humanize.FormatFloat("#,###.##", value)
}

// FeeDisplay renders a performance fee percentage
func FeeDisplay(fee float64) string {
	if fee == 0 {
		return "Free"
	}
	return fmt.Sprintf("%.1f%%", fee)
}

// InceptionDisplay renders an optional inception date
func InceptionDisplay(inception *string) string {
	if inception == nil || *inception == "" {
		return "Unknown"
	}
	return *inception
}
