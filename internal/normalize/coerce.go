package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// missingMarkers are the cell spellings of a missing value, lowercased
var missingMarkers = map[string]bool{
	"nan": true, "-nan": true, "n/a": true, "na": true, "#n/a": true,
	"null": true, "none": true, "inf": true, "-inf": true, "+inf": true,
	"infinity": true, "-infinity": true,
}

// IsMissingMarker reports whether cell spells a missing value such as NaN
// or N/A. Such cells do not make a column non-numeric.
func IsMissingMarker(cell string) bool {
	return missingMarkers[strings.ToLower(strings.TrimSpace(cell))]
}

// ParseNumber coerces a cell to a finite float. It accepts surrounding
// whitespace, a leading "$", a trailing "%" and "," thousands separators.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	s = strings.TrimSuffix(s, "%")
	if strings.HasPrefix(s, "-$") {
		s = "-" + s[2:]
	} else {
		s = strings.TrimPrefix(s, "$")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseTimestamp parses a date-like cell and drops any timezone offset,
// keeping the wall clock reading. The result is expressed in UTC.
func ParseTimestamp(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return StripZone(t), true
}

// StripZone returns the wall clock time of t without its offset
func StripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FormatTimestamp renders a naive timestamp the way the CSV exports do
func FormatTimestamp(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

// FormatNumber renders a value so that ParseNumber returns it unchanged
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
