package normalize

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// 2023-Q1, 2023_Q1, 2023 Q1, 2023Q1
	yearFirst = regexp.MustCompile(`(?i)(20\d{2})[\s_-]?Q([1-4])`)
	// Q1 2023, Q1-2023, Q1_2023
	quarterFirst = regexp.MustCompile(`(?i)Q([1-4])[\s_-]?(20\d{2})`)
)

// Date formats seen in the determination date columns.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// FormatQuarter renders a year and quarter as "YYYY-Qn".
func FormatQuarter(year, q int) string {
	return fmt.Sprintf("%d-Q%d", year, q)
}

// Quarter parses a reporting quarter in any of the common spellings, or a
// calendar date that falls inside it, and returns the canonical "YYYY-Qn".
func Quarter(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if m := yearFirst.FindStringSubmatch(s); m != nil {
		return canonical(m[1], m[2]), true
	}
	if m := quarterFirst.FindStringSubmatch(s); m != nil {
		return canonical(m[2], m[1]), true
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatQuarter(t.Year(), (int(t.Month())-1)/3+1), true
		}
	}
	return "", false
}

// QuarterFromFilename extracts the reporting quarter from a file name such as
// "idr_puf_2023_Q1.csv" or "Q3 2024 disputes.parquet".
func QuarterFromFilename(path string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := yearFirst.FindStringSubmatch(base); m != nil {
		return canonical(m[1], m[2]), true
	}
	if m := quarterFirst.FindStringSubmatch(base); m != nil {
		return canonical(m[2], m[1]), true
	}
	return "", false
}

func canonical(year, q string) string {
	y, _ := strconv.Atoi(year)
	n, _ := strconv.Atoi(q)
	return FormatQuarter(y, n)
}
