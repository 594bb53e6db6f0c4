package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// datePattern finds an embedded MM-DD fragment: two two-digit groups
	// separated by a hyphen, immediately preceded by whitespace.
	datePattern = regexp.MustCompile(`\s(\d{2})-(\d{2})`)

	// markerPatterns remove the matched fragment together with its
	// "ON " marker, with or without the trailing four-digit year the
	// card feed sometimes appends.
	markerYearPattern = regexp.MustCompile(`\bON \d{2}-\d{2} \d{4}\b`)
	markerPattern     = regexp.MustCompile(`\bON \d{2}-\d{2}\b`)

	spaceRunPattern = regexp.MustCompile(`\s{2,}`)
)

// ExtractTransactionDate infers the true transaction date from a
// description that may embed a " MM-DD" fragment, using the post date as
// the year reference. When a valid candidate is found the fragment (and
// its "ON " marker, if present) is removed from the description;
// otherwise the post date is returned and the description is unmodified.
//
// A candidate strictly after the post date is assumed to be from the
// prior year (a December purchase posting in January). A fragment that
// is not a real calendar date is discarded.
func ExtractTransactionDate(description string, postDate time.Time) (time.Time, string) {
	m := datePattern.FindStringSubmatch(description)
	if m == nil {
		return postDate, description
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	candidate, ok := makeDate(postDate.Year(), month, day)
	if !ok {
		return postDate, description
	}
	if candidate.After(postDate) {
		candidate, ok = makeDate(postDate.Year()-1, month, day)
		if !ok {
			// Feb 29 rolling back into a non-leap year.
			return postDate, description
		}
	}

	return candidate, removeDateFragment(description, m[0])
}

// makeDate builds a UTC midnight date and reports whether (month, day)
// is a real calendar date in that year. time.Date normalizes overflow
// (Feb 30 becomes Mar 1), so the components are checked after
// construction.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func removeDateFragment(description, fragment string) string {
	cleaned := description
	switch {
	case markerYearPattern.MatchString(cleaned):
		cleaned = markerYearPattern.ReplaceAllString(cleaned, "")
	case markerPattern.MatchString(cleaned):
		cleaned = markerPattern.ReplaceAllString(cleaned, "")
	default:
		cleaned = strings.Replace(cleaned, fragment, "", 1)
	}
	cleaned = spaceRunPattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
