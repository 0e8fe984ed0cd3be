package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/edge-backtester/internal/backtest"
	"github.com/yourusername/edge-backtester/internal/variance"
)

// money renders a currency amount to the cent
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func pct(v float64) string {
	return decimal.NewFromFloat(v*100).StringFixed(2) + "%"
}

func printResult(w io.Writer, r *backtest.Result) {
	m := r.Metrics
	fmt.Fprintf(w, "\n=== Backtest %s (%s / %s) ===\n", r.RunID, r.Model, r.Strategy)
	fmt.Fprintf(w, "Period:          %s to %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Events:          %d processed, %d skipped, %d warm-up\n",
		r.Counts.EventsProcessed, r.Counts.EventsSkipped, r.WarmUpEvents)
	fmt.Fprintf(w, "Wagers:          %d placed, %d rejected\n", r.Counts.Placed, r.Counts.Rejected)
	fmt.Fprintf(w, "Record:          %d-%d-%d (win rate %s)\n", m.Wins, m.Losses, m.Pushes, pct(m.WinRate))
	fmt.Fprintf(w, "Bankroll:        %s -> %s (peak %s)\n",
		money(r.Bankroll.Initial), money(r.Bankroll.Current), money(r.Bankroll.Peak))
	fmt.Fprintf(w, "Profit:          %s on %s staked (ROI %s)\n", money(m.TotalProfit), money(m.TotalStaked), pct(m.ROI))
	fmt.Fprintf(w, "Total return:    %s\n", pct(m.TotalReturn))
	fmt.Fprintf(w, "Max drawdown:    %s\n", pct(m.MaxDrawdown))
	fmt.Fprintf(w, "Sharpe:          %.3f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Profit factor:   %.3f\n", m.ProfitFactor)

	if len(r.Counts.Rejections) > 0 {
		reasons := make([]string, 0, len(r.Counts.Rejections))
		for reason := range r.Counts.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		fmt.Fprintln(w, "Rejections:")
		for _, reason := range reasons {
			fmt.Fprintf(w, "  %-22s %d\n", reason, r.Counts.Rejections[reason])
		}
	}
}

func printVariance(w io.Writer, report variance.Report) {
	d := report.Distribution
	fmt.Fprintf(w, "\n=== Monte Carlo (%d simulations, %d wagers) ===\n", d.Simulations, d.Wagers)
	fmt.Fprintf(w, "Mean profit:     %s (analytic EV %s)\n", money(d.Mean), money(d.AnalyticEV))
	fmt.Fprintf(w, "P5 / P50 / P95:  %s / %s / %s\n", money(d.P5), money(d.Median), money(d.P95))
	fmt.Fprintf(w, "P(profit):       %s\n", pct(d.ProbProfit))
	fmt.Fprintf(w, "Risk of ruin:    %s\n", pct(report.Ruin.RiskOfRuin))
	fmt.Fprintf(w, "Max losing run:  %.1f expected over %d bets\n", report.Streaks.ExpectedMaxStreak, report.Streaks.Bets)
}

func printWalkForward(w io.Writer, wf backtest.WalkForwardResult) {
	fmt.Fprintf(w, "\n=== Walk-forward (%d windows) ===\n", len(wf.Windows))
	for _, win := range wf.Windows {
		fmt.Fprintf(w, "  #%d season %d  trained on %v  wagers %d  return %s\n",
			win.WindowID, win.Season, win.TrainSeasons, win.TestMetrics.TotalWagers, pct(win.TestMetrics.TotalReturn))
	}
	fmt.Fprintf(w, "Consistency:     %.3f\n", wf.ConsistencyScore)
	fmt.Fprintf(w, "Overfit score:   %.3f\n", wf.OverfitScore)
}

func printAggregated(w io.Writer, export *backtest.Export) {
	fmt.Fprintf(w, "\n=== Evaluation %s ===\n", export.Model)
	fmt.Fprintf(w, "Replay return:   %s over %d wagers\n", pct(export.Metrics.TotalReturn), export.Metrics.TotalWagers)
	agg := export.Aggregated
	if agg == nil {
		return
	}
	fmt.Fprintf(w, "Scores:          replay %.3f  monte carlo %.3f  walk-forward %.3f\n",
		agg.HistoricalScore, agg.MonteCarloScore, agg.WalkForwardScore)
	fmt.Fprintf(w, "Weights:         %.2f / %.2f / %.2f\n",
		agg.Weights.HistoricalReplay, agg.Weights.MonteCarlo, agg.Weights.WalkForward)
	fmt.Fprintf(w, "Composite:       %.3f\n", agg.CompositeScore)
	fmt.Fprintf(w, "Recommendation:  %s\n", agg.Recommendation)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
