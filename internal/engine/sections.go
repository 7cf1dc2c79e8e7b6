package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/go-remind/internal/config"
)

// SectionKind tags a bucket of the sectioned view.
type SectionKind string

const (
	SectionToday    SectionKind = "today"
	SectionUpcoming SectionKind = "upcoming"
	SectionMonth    SectionKind = "month"
	SectionUndated  SectionKind = "undated"
)

// Item is one entry of a section with its computed occurrence data.
// Next, DaysUntil and Age are zero for undated items.
type Item[T any] struct {
	Value     T         `json:"value"`
	Next      time.Time `json:"next,omitzero"`
	DaysUntil int       `json:"days_until"`
	Age       int       `json:"age,omitempty"`
	HasAge    bool      `json:"has_age"`
}

// Section is an ordered group of items sharing a temporal relationship to the
// reference day. Month and Year are only set for SectionMonth.
type Section[T any] struct {
	Kind  SectionKind `json:"kind"`
	Month time.Month  `json:"month,omitempty"`
	Year  int         `json:"year,omitempty"`
	Items []Item[T]   `json:"items"`
}

// Values returns the section items without occurrence data.
func (s Section[T]) Values() []T {
	out := make([]T, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Value
	}
	return out
}

// SectionOptions configures Sectioned.
type SectionOptions[T any] struct {
	// DateOf extracts the recurring date; invalid dates land in Undated.
	DateOf func(T) RecurringDate

	// NameOf supplies the tie-breaking key.
	NameOf func(T) string

	// ReferenceDay is "today"; the time of day is ignored.
	ReferenceDay time.Time

	// UpcomingWindowDays bounds the Upcoming section. Zero or less means
	// config.DefaultWindowDays.
	UpcomingWindowDays int
}

type placed[T any] struct {
	item  Item[T]
	name  string
	index int
}

// Sectioned groups items into Today, Upcoming, one section per
// (month, year) of the next occurrence, and Undated, in that order.
// Empty sections are omitted; an empty input yields nil.
//
// Ordering never depends on input order except as the last tie-breaker
// between items that share both date and name.
func Sectioned[T any](items []T, opts SectionOptions[T]) []Section[T] {
	if len(items) == 0 {
		return nil
	}

	window := opts.UpcomingWindowDays
	if window <= 0 {
		window = config.DefaultWindowDays
	}
	ref := StartOfDay(opts.ReferenceDay)
	refIndex := ref.Year()*config.YearMonths + int(ref.Month())

	var today, upcoming, undated []placed[T]
	months := make(map[int][]placed[T])

	for i, v := range items {
		p := placed[T]{item: Item[T]{Value: v}, name: opts.NameOf(v), index: i}
		d := opts.DateOf(v)
		if !d.IsValid() {
			undated = append(undated, p)
			continue
		}

		next := NextOccurrence(d, ref)
		p.item.Next = next
		p.item.DaysUntil = DaysUntil(next, ref)
		p.item.Age, p.item.HasAge = Age(next, d)

		switch {
		case p.item.DaysUntil == 0:
			today = append(today, p)
		case p.item.DaysUntil <= window:
			upcoming = append(upcoming, p)
		default:
			// Signed month distance from the reference month.
			key := next.Year()*config.YearMonths + int(next.Month()) - refIndex
			months[key] = append(months[key], p)
		}
	}

	var sections []Section[T]

	if len(today) > 0 {
		slices.SortFunc(today, byName[T])
		sections = append(sections, newSection(SectionToday, today))
	}

	if len(upcoming) > 0 {
		slices.SortFunc(upcoming, func(a, b placed[T]) int {
			return cmp.Or(cmp.Compare(a.item.DaysUntil, b.item.DaysUntil), byName(a, b))
		})
		sections = append(sections, newSection(SectionUpcoming, upcoming))
	}

	keys := make([]int, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		group := months[k]
		slices.SortFunc(group, func(a, b placed[T]) int {
			return cmp.Or(a.item.Next.Compare(b.item.Next), byName(a, b))
		})
		s := newSection(SectionMonth, group)
		s.Month = group[0].item.Next.Month()
		s.Year = group[0].item.Next.Year()
		sections = append(sections, s)
	}

	if len(undated) > 0 {
		slices.SortFunc(undated, byName[T])
		sections = append(sections, newSection(SectionUndated, undated))
	}

	return sections
}

func byName[T any](a, b placed[T]) int {
	return cmp.Or(
		cmp.Compare(strings.ToLower(a.name), strings.ToLower(b.name)),
		cmp.Compare(a.name, b.name),
		cmp.Compare(a.index, b.index),
	)
}

func newSection[T any](kind SectionKind, ps []placed[T]) Section[T] {
	s := Section[T]{Kind: kind, Items: make([]Item[T], len(ps))}
	for i, p := range ps {
		s.Items[i] = p.item
	}
	return s
}

// Localizer looks up a translated message. ok is false when the message is
// missing, in which case callers fall back to English.
type Localizer interface {
	Message(id string, data map[string]any, pluralCount any) (msg string, ok bool)
}

// MonthName returns the localized name of m.
func MonthName(m time.Month, loc Localizer) string {
	if loc != nil {
		if msg, ok := loc.Message(fmt.Sprintf("%s%d", config.TKeyMonthPrefix, int(m)), nil, nil); ok {
			return msg
		}
	}
	return m.String()
}

// SectionTitle renders a human title for s. Month buckets show the year
// whenever it differs from the reference year, so "January" next year never
// reads like a January already past.
func SectionTitle[T any](s Section[T], referenceDay time.Time, loc Localizer) string {
	lookup := func(id, fallback string, data map[string]any) string {
		if loc != nil {
			if msg, ok := loc.Message(id, data, nil); ok {
				return msg
			}
		}
		return fallback
	}

	switch s.Kind {
	case SectionToday:
		return lookup(config.TKeySectionToday, config.FallbackSectionToday, nil)
	case SectionUpcoming:
		return lookup(config.TKeySectionUpcoming, config.FallbackSectionUpcoming, nil)
	case SectionUndated:
		return lookup(config.TKeySectionUndated, config.FallbackSectionUndated, nil)
	}

	month := MonthName(s.Month, loc)
	if s.Year == referenceDay.Year() {
		return lookup(config.TKeySectionMonth, month, map[string]any{"Month": month})
	}
	return lookup(config.TKeySectionMonthYr,
		fmt.Sprintf(config.FallbackSectionMonthYr, month, s.Year),
		map[string]any{"Month": month, "Year": s.Year})
}

// FormatDayMonth renders t as a day and month, e.g. "June 12" or "12 juin".
// The layout itself is a translatable message.
func FormatDayMonth(t time.Time, loc Localizer) string {
	layout := config.DateFormatDayMonth
	if loc != nil {
		if msg, ok := loc.Message(config.TKeyFormatDayMonth, nil, nil); ok {
			layout = msg
		}
	}
	return strings.Replace(t.Format(layout), t.Month().String(), MonthName(t.Month(), loc), 1)
}
