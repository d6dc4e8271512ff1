package forecast

import (
	"sort"
	"time"

	"github.com/inferloop/tsforecast/pkg/models"
)

const day = 24 * time.Hour

// step advances a timestamp by one period of the series. Monthly and
// yearly series step on the calendar so they do not drift.
type step struct {
	months int
	every  time.Duration
}

func (s step) next(t time.Time, n int) time.Time {
	if s.months > 0 {
		return t.AddDate(0, s.months*n, 0)
	}
	return t.Add(time.Duration(n) * s.every)
}

// approx returns the nominal duration of one step
func (s step) approx() time.Duration {
	if s.months > 0 {
		return time.Duration(s.months) * 30 * day
	}
	return s.every
}

// uniqueTimestamps returns the distinct timestamps of series in ascending order
func uniqueTimestamps(series *models.Series) []time.Time {
	seen := make(map[time.Time]bool, series.Len())
	out := make([]time.Time, 0, series.Len())
	for _, p := range series.Points {
		if seen[p.Timestamp] {
			continue
		}
		seen[p.Timestamp] = true
		out = append(out, p.Timestamp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// inferStep derives the series frequency from the median spacing
func inferStep(timestamps []time.Time) step {
	if len(timestamps) < 2 {
		return step{every: day}
	}
	diffs := make([]time.Duration, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		if d := timestamps[i].Sub(timestamps[i-1]); d > 0 {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return step{every: day}
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	median := diffs[len(diffs)/2]

	switch {
	case median >= 28*day && median <= 31*day:
		return step{months: 1}
	case median >= 89*day && median <= 92*day:
		return step{months: 3}
	case median >= 365*day && median <= 366*day:
		return step{months: 12}
	default:
		return step{every: median}
	}
}

// timeline returns the historical timestamps followed by horizon future ones
func timeline(history []time.Time, s step, horizon int) []time.Time {
	out := make([]time.Time, 0, len(history)+horizon)
	out = append(out, history...)
	if len(history) == 0 {
		return out
	}
	last := history[len(history)-1]
	for i := 1; i <= horizon; i++ {
		out = append(out, s.next(last, i))
	}
	return out
}
