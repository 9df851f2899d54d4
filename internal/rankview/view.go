// Package rankview holds the most recent ranking run for display. Runs are
// transient: the view keeps at most one, in memory only, and never reorders
// the results it was given.
package rankview

import (
	"fmt"
	"sync"

	"cvscreen/internal/api"
)

// Band is the qualitative similarity tier of a score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Similarity banding thresholds.
const (
	highThreshold   = 0.7
	mediumThreshold = 0.5
)

// View is a single-slot holder for the latest ranking run. Replace is the
// only mutation; there is no history of prior runs.
type View struct {
	mu  sync.Mutex
	run *api.RankingRun
}

func New() *View {
	return &View{}
}

// Replace swaps in a new run, discarding any prior one.
func (v *View) Replace(run api.RankingRun) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.run = &run
}

// Current returns the held run, if any.
func (v *View) Current() (api.RankingRun, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.run == nil {
		return api.RankingRun{}, false
	}
	return *v.run, true
}

// ScoreBand classifies a similarity score into its display tier.
func ScoreBand(score float64) Band {
	switch {
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// FormatScore renders a similarity score as a percentage with one decimal.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// Summary is the headline for a run, e.g. "Top 3 of 10 matches".
func Summary(run api.RankingRun) string {
	return fmt.Sprintf("Top %d of %d matches", len(run.Results), run.TotalCount)
}
