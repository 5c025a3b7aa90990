package timeutil

import (
	"time"
)

// DOBLayout is the date format the EMR uses for birth dates
const DOBLayout = "2006-01-02"

// ParseDOB parses a YYYY-MM-DD date of birth
func ParseDOB(dateStr string) (time.Time, error) {
	return time.Parse(DOBLayout, dateStr)
}

// FormatDOB formats a date of birth as YYYY-MM-DD
func FormatDOB(t time.Time) string {
	return t.Format(DOBLayout)
}

// Age returns whole years from dob to now
// Returns 0 for dates in the future or unparseable inputs upstream should
// have rejected
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if dob.AddDate(years, 0, 0).After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AgeFromString returns whole years for a YYYY-MM-DD birth date, or -1 when
// the date does not parse
func AgeFromString(dateStr string) int {
	dob, err := ParseDOB(dateStr)
	if err != nil {
		return -1
	}
	return Age(dob, time.Now())
}
