// Package normalise prepares raw extracted text and filenames for ingestion.
package normalise

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tabsAndReturns = regexp.MustCompile(`[\t\r]+`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	yearPattern    = regexp.MustCompile(`(19|20)\d{2}`)
)

// Clean normalises raw extracted text before chunking: form feeds become
// newlines, tabs and carriage returns collapse to single spaces, runs of
// three or more newlines collapse to exactly two, and surrounding
// whitespace is trimmed.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\f", "\n")
	s = tabsAndReturns.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// YearFromFilename extracts the first 4-digit year starting with 19 or 20
// from a filename. Returns nil when no such token exists.
func YearFromFilename(filename string) *int {
	match := yearPattern.FindString(filename)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}
