package main

import (
	"fmt"
	"os"
	"strings"

	"cvscreen/internal/api"
	"cvscreen/internal/rankview"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// statusBadge colors a batch status. Finished batches render green whether
// the service says "completed" or "processed"; unknown statuses pass
// through undecorated so new server states stay visible.
func statusBadge(status string) string {
	switch status {
	case api.BatchStatusCompleted, api.BatchStatusProcessed:
		return colorize(colorGreen, status)
	case api.BatchStatusPending, api.BatchStatusProcessing:
		return colorize(colorYellow, status)
	case api.BatchStatusFailed:
		return colorize(colorRed, status)
	default:
		return status
	}
}

func bandColor(score float64) string {
	switch rankview.ScoreBand(score) {
	case rankview.BandHigh:
		return colorGreen
	case rankview.BandMedium:
		return colorYellow
	default:
		return colorRed
	}
}

// renderRun prints a ranking run: headline first, then one row per result
// in the order the service delivered them.
func renderRun(run api.RankingRun) {
	fmt.Println(colorize(colorBold, rankview.Summary(run)))
	if len(run.Results) == 0 {
		return
	}
	fmt.Println()
	for _, r := range run.Results {
		score := colorize(bandColor(r.SimilarityScore), fmt.Sprintf("%6s", rankview.FormatScore(r.SimilarityScore)))
		fmt.Printf("%4d.  %s  %s\n", r.RankPosition, score, r.Filename)
	}
}

// activityBar renders a proportional bar for the dashboard chart.
func activityBar(count, max, width int) string {
	if max <= 0 || count <= 0 {
		return ""
	}
	n := count * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
