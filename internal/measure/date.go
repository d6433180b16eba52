package measure

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DateLayout is the canonical calendar date format stored on every record.
const DateLayout = time.DateOnly

// excelEpoch is day zero of the 1900 date system as spreadsheets count it
// (the phantom 1900-02-29 is absorbed by starting on the 30th).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var ymdPattern = regexp.MustCompile(`^(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})\s*日?`)

// ParseDate accepts ISO dates (with or without a time part), slash or dot
// separated dates, 年月日 dates, 8-digit yyyymmdd values and Excel serial
// numbers. It returns the canonical YYYY-MM-DD form, or false when the input
// is not recognized.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return "", false
	}

	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}

	if len(s) == 8 && isDigits(s) {
		return buildDate(s[:4], s[4:6], s[6:])
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}

	t, ok := ExcelSerialToDate(serial)
	if !ok {
		return "", false
	}

	return t.Format(DateLayout), true
}

// ExcelSerialToDate converts a spreadsheet serial day number to a UTC date.
// Fractions (time of day) are dropped.
func ExcelSerialToDate(serial float64) (time.Time, bool) {
	if serial < 1 || serial > 2958465 || math.IsNaN(serial) {
		return time.Time{}, false
	}

	return excelEpoch.AddDate(0, 0, int(math.Floor(serial))), true
}

// DateIn parses a canonical date at midnight in loc.
func DateIn(date string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

func buildDate(ys, ms, ds string) (string, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)

	if y < 1900 || m < 1 || m > 12 || d < 1 {
		return "", false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(m) || t.Day() != d {
		return "", false
	}

	return t.Format(DateLayout), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
