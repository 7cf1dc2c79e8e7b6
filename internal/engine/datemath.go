package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/tartampluch/go-remind/internal/config"
)

// RecurringDate is a calendar date that repeats every year.
// Day and Month are zero when unknown. Year is the origin year (e.g. the year
// of birth) and only feeds age calculation; zero means unknown.
type RecurringDate struct {
	Day   int `json:"day,omitempty" yaml:"day,omitempty"`
	Month int `json:"month,omitempty" yaml:"month,omitempty"`
	Year  int `json:"year,omitempty" yaml:"year,omitempty"`
}

// IsValid reports whether the date carries a usable day and month.
// Every "does this entity have a date" decision goes through here.
func (d RecurringDate) IsValid() bool {
	if d.Day <= 0 || d.Month <= 0 || d.Month > config.MaxMonth {
		return false
	}
	// Measured against a leap year: Feb 29 is legal, Feb 30 is not.
	return d.Day <= daysIn(config.DefaultLeapYear, time.Month(d.Month))
}

// HasYear reports whether the origin year is known.
func (d RecurringDate) HasYear() bool {
	return d.Year != 0
}

// String renders the date in vCard form: 1990-06-10 or --06-10.
func (d RecurringDate) String() string {
	if !d.IsValid() {
		return ""
	}
	if d.HasYear() {
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	return fmt.Sprintf("--%02d-%02d", d.Month, d.Day)
}

// StartOfDay strips the time of day, keeping t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysIn returns the length of month in year.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// occurrenceIn places d in year, clamping the day to the month length so
// that Feb 29 becomes Feb 28 in non-leap years instead of rolling into March.
func occurrenceIn(d RecurringDate, year int, loc *time.Location) time.Time {
	month := time.Month(d.Month)
	day := min(d.Day, daysIn(year, month))
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NextOccurrence returns the first occurrence of d on or after referenceDay.
// referenceDay should already be day-granular; the time of day is ignored.
// The result is midnight in referenceDay's location.
//
// d must be valid; callers filter with IsValid first.
func NextOccurrence(d RecurringDate, referenceDay time.Time) time.Time {
	if !d.IsValid() {
		panic(fmt.Sprintf("engine: NextOccurrence called with invalid date %+v", d))
	}
	ref := StartOfDay(referenceDay)
	candidate := occurrenceIn(d, ref.Year(), ref.Location())
	if !candidate.Before(ref) {
		return candidate
	}
	return occurrenceIn(d, ref.Year()+1, ref.Location())
}

// OccurrenceInYear returns d placed in the given year (day clamped).
func OccurrenceInYear(d RecurringDate, year int, loc *time.Location) time.Time {
	return occurrenceIn(d, year, loc)
}

// DaysUntil counts calendar days from referenceDay to occurrence.
// Both sides are reduced to their civil date, so DST transitions do not
// produce off-by-one results.
func DaysUntil(occurrence, referenceDay time.Time) int {
	oy, om, od := occurrence.In(referenceDay.Location()).Date()
	ry, rm, rd := referenceDay.Date()
	o := time.Date(oy, om, od, 0, 0, 0, 0, time.UTC)
	r := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return int(o.Sub(r).Hours() / 24)
}

// Age returns the age reached at occurrence, or false when the origin year is
// unknown.
func Age(occurrence time.Time, d RecurringDate) (int, bool) {
	if !d.HasYear() {
		return 0, false
	}
	return occurrence.Year() - d.Year, true
}

// ParseRecurringDate handles the date forms found in vCard BDAY fields.
func ParseRecurringDate(value string) (RecurringDate, error) {
	// Full dates (Year known)
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return RecurringDate{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}, nil
		}
	}

	// Truncated dates (Year unknown). time.Parse assumes year 0, a leap year, so --02-29 is accepted.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return RecurringDate{Day: t.Day(), Month: int(t.Month())}, nil
		}
	}

	return RecurringDate{}, errors.New(config.ErrDateParse)
}
