package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format sent to the tracker.
const DateLayout = "2006-01-02"

var (
	ordinalSuffix = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)
	relativeIn    = regexp.MustCompile(`^in (\d{1,3}|a|an|one|two|three) (day|days|week|weeks)$`)
)

// datedLayouts carry their own year.
var datedLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// yearlessLayouts take the year of the reference time.
var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
	"1/2",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var smallNumbers = map[string]int{"a": 1, "an": 1, "one": 1, "two": 2, "three": 3}

// ParseDueDate converts a spoken date ("March 15th", "2024-03-15",
// "tomorrow", "next friday", "in 3 days") into a YYYY-MM-DD calendar date
// relative to now. Times of day are never produced. A date without a year
// takes the year of now.
func ParseDueDate(raw string, now time.Time) (string, bool) {
	s := normalizeDateText(raw)
	if s == "" {
		return "", false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if d, ok := relativeDate(s, today); ok {
		return d.Format(DateLayout), true
	}
	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, today.Location())
		if d.Day() != t.Day() {
			// February 29th outside a leap year.
			return "", false
		}
		return d.Format(DateLayout), true
	}
	return "", false
}

func normalizeDateText(raw string) string {
	s := strings.ToLower(cleanValue(raw))
	s = strings.ReplaceAll(s, ",", " ")
	s = ordinalSuffix.ReplaceAllString(s, "$1")

	var words []string
	for _, w := range strings.Fields(s) {
		switch w {
		case "on", "the", "of", "by":
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func relativeDate(s string, today time.Time) (time.Time, bool) {
	switch s {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow":
		return today.AddDate(0, 0, 2), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	}

	if m := relativeIn.FindStringSubmatch(s); m != nil {
		n, ok := smallNumbers[m[1]]
		if !ok {
			n, _ = strconv.Atoi(m[1])
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return today.AddDate(0, 0, n), true
	}

	next := false
	if rest, ok := strings.CutPrefix(s, "next "); ok {
		s, next = rest, true
	} else if rest, ok := strings.CutPrefix(s, "this "); ok {
		s = rest
	}
	wd, ok := weekdays[s]
	if !ok {
		return time.Time{}, false
	}
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	if next && days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days), true
}
