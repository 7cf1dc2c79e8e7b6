package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
	"github.com/tartampluch/go-remind/internal/config"
)

// Alarm is a reminder attached to a feed event: OffsetDays before the
// occurrence, at Hour:Minute local time.
type Alarm struct {
	OffsetDays int
	Hour       int
	Minute     int
}

// CalendarEntry pairs an entity with the alarms its policy asks for.
type CalendarEntry struct {
	Entity Entity
	Alarms []Alarm
}

// CalendarBuilder renders entities as an iCalendar feed.
type CalendarBuilder struct {
	Clock Clock

	// FormatSummary allows callers to inject localized strings.
	FormatSummary func(e Entity, age int, hasAge bool) string
}

// Build encodes entries as a VCALENDAR.
//
// Birthdays with a known year get one event per year (previous, current,
// next) so the summary can carry the age; they are never generated before the
// origin year. Everything else is a single yearly recurring event.
func (b *CalendarBuilder) Build(entries []CalendarEntry) ([]byte, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	now := b.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, entry := range entries {
		if !entry.Entity.Date.IsValid() {
			continue
		}
		var events []*ical.Event
		if entry.Entity.Kind == config.KindBirthday && entry.Entity.Date.HasYear() {
			events = b.yearlyEvents(entry, now)
		} else {
			events = []*ical.Event{b.recurringEvent(entry, now)}
		}
		for _, e := range events {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(cal.Children),
	)
	return buf.Bytes(), nil
}

// yearlyEvents generates events for CurrentYear-1, CurrentYear and CurrentYear+1.
func (b *CalendarBuilder) yearlyEvents(entry CalendarEntry, now time.Time) []*ical.Event {
	e := entry.Entity
	var events []*ical.Event
	for _, y := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		if y < e.Date.Year {
			continue
		}
		date := OccurrenceInYear(e.Date, y, now.Location())
		age, hasAge := Age(date, e.Date)
		summary := b.summary(e, age, hasAge)

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, e.ID, y, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)
		event.Props.SetText(config.PropCategories, e.Kind)
		setDate(event, date)
		addAlarms(event, entry.Alarms, summary)
		events = append(events, event)
	}
	return events
}

// recurringEvent emits one event starting last year with a YEARLY rule.
func (b *CalendarBuilder) recurringEvent(entry CalendarEntry, now time.Time) *ical.Event {
	e := entry.Entity
	summary := b.summary(e, 0, false)

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUIDRecurring, e.ID, config.ICalDomain))
	event.Props.SetText(config.PropSummary, summary)
	event.Props.SetText(config.PropCategories, e.Kind)
	setDate(event, OccurrenceInYear(e.Date, now.Year()-1, now.Location()))
	event.Props.SetRecurrenceRule(YearlyRule(e.Date))
	addAlarms(event, entry.Alarms, summary)
	return event
}

// YearlyRule expresses d as an RRULE. Feb 29 maps to the last day of
// February so non-leap years fall on Feb 28, matching NextOccurrence.
func YearlyRule(d RecurringDate) *rrule.ROption {
	day := d.Day
	if time.Month(d.Month) == time.February && d.Day == 29 {
		day = -1
	}
	return &rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{d.Month},
		Bymonthday: []int{day},
	}
}

func (b *CalendarBuilder) summary(e Entity, age int, hasAge bool) string {
	if b.FormatSummary != nil {
		return b.FormatSummary(e, age, hasAge)
	}
	if e.Kind == config.KindHoliday {
		return e.Name
	}
	if hasAge {
		if age == 0 {
			return fmt.Sprintf(config.FallbackSummaryBirth, e.Name)
		}
		return fmt.Sprintf(config.FallbackSummaryAge, e.Name, age)
	}
	return fmt.Sprintf(config.FallbackSummary, e.Name)
}

func setDate(event *ical.Event, date time.Time) {
	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(date)
	event.Props.Set(dtStartProp)
}

// addAlarms appends one DISPLAY alarm per offset.
func addAlarms(event *ical.Event, alarms []Alarm, description string) {
	for _, a := range alarms {
		alarm := ical.NewComponent(config.ICalComponent)
		alarm.Props.SetText(config.PropAction, config.ICalAction)
		alarm.Props.SetText(config.PropDescription, description)

		// Set trigger manually to avoid "VALUE=TEXT" param
		triggerProp := ical.NewProp(config.PropTrigger)
		triggerProp.Value = AlarmTrigger(a)
		alarm.Props.Set(triggerProp)

		event.Children = append(event.Children, alarm)
	}
}

// AlarmTrigger renders the alarm as an ISO 8601 duration relative to the
// start of the all-day event, e.g. one day before at 09:00 is -PT15H.
func AlarmTrigger(a Alarm) string {
	d := time.Duration(a.Hour)*time.Hour +
		time.Duration(a.Minute)*time.Minute -
		time.Duration(a.OffsetDays)*24*time.Hour

	var sb strings.Builder
	if d < 0 {
		sb.WriteString(config.ISONegativePrefix)
		d = -d
	} else {
		sb.WriteString(config.ISOPeriodPrefix)
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	if days > 0 {
		fmt.Fprintf(&sb, "%d%s", days, config.ISODay)
	}
	if hours > 0 || minutes > 0 || days == 0 {
		sb.WriteString(config.ISOTime)
		if hours > 0 {
			fmt.Fprintf(&sb, "%d%s", hours, config.ISOHour)
		}
		if minutes > 0 || hours == 0 {
			fmt.Fprintf(&sb, "%d%s", minutes, config.ISOMinute)
		}
	}
	return sb.String()
}
