package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// foldKey returns the case-folded, trimmed form of s used for all
// case-insensitive identity and directory comparisons. A new Caser is
// created per call because cases.Caser is not safe for concurrent use.
func foldKey(s string) string {
	return foldCase(strings.TrimSpace(s))
}

// foldCase case-folds s without trimming it.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// collapseSpaces replaces every run of whitespace with a single space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
