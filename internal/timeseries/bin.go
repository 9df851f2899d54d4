// Package timeseries turns the dashboard's sparse per-date counts into a
// dense fixed-width daily series for charting.
package timeseries

import (
	"time"

	"cvscreen/internal/api"
)

// Row is one day of activity. DateKey is the UTC calendar date in
// YYYY-MM-DD form; Label is the short human-readable form of the same date.
type Row struct {
	DateKey string
	Label   string
	Uploads int
	Runs    int
	JDs     int
}

// Bin expands agg's three date-count series into exactly windowDays rows,
// ordered oldest to newest, ending at the UTC calendar date of ref. Dates
// absent from a series count as zero; entries outside the window are
// dropped. The output depends only on agg, windowDays and ref.
func Bin(agg api.DashboardAggregate, windowDays int, ref time.Time) []Row {
	if windowDays <= 0 {
		return nil
	}

	uploads := countsByDate(agg.UploadsByDate)
	runs := countsByDate(agg.RunsByDate)
	jds := countsByDate(agg.JDsByDate)

	u := ref.UTC()
	end := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	rows := make([]Row, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		key := d.Format("2006-01-02")
		rows = append(rows, Row{
			DateKey: key,
			Label:   d.Format("Jan 2"),
			Uploads: uploads[key],
			Runs:    runs[key],
			JDs:     jds[key],
		})
	}
	return rows
}

func countsByDate(series []api.DatedCount) map[string]int {
	m := make(map[string]int, len(series))
	for _, dc := range series {
		m[dc.Date] = dc.Count
	}
	return m
}
