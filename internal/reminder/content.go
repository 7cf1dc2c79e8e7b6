package reminder

import (
	"fmt"
	"time"

	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
)

// Content builds the localized title and body of the notification that
// fires offsetDays before occurrence. loc may be nil, in which case the
// English fallbacks are used.
func Content(e engine.Entity, offsetDays int, occurrence time.Time, loc engine.Localizer) (title, body string) {
	age, hasAge := engine.Age(occurrence, e.Date)
	hasAge = hasAge && age > 0
	holiday := e.Kind == config.KindHoliday

	tr := func(id, fallback string, data map[string]any, count any) string {
		if loc != nil {
			if msg, ok := loc.Message(id, data, count); ok {
				return msg
			}
		}
		return fallback
	}
	data := map[string]any{"Name": e.Name}

	if holiday {
		title = tr(config.TKeyRemTitleHoliday, fmt.Sprintf(config.FallbackTitleHoliday, e.Name), data, nil)
	} else {
		title = tr(config.TKeyRemTitleBirthday, fmt.Sprintf(config.FallbackTitleBirthday, e.Name), data, nil)
	}

	if hasAge {
		data["Age"] = age
	}

	if offsetDays == 0 {
		switch {
		case holiday:
			body = tr(config.TKeyRemTodayHoliday, fmt.Sprintf(config.FallbackTodayHoliday, e.Name), data, nil)
		case hasAge:
			body = tr(config.TKeyRemTodayAge, fmt.Sprintf(config.FallbackTodayAge, e.Name, age), data, nil)
		default:
			body = tr(config.TKeyRemTodayBirthday, fmt.Sprintf(config.FallbackTodayBirthday, e.Name), data, nil)
		}
		return title, body
	}

	date := engine.FormatDayMonth(occurrence, loc)
	data["Count"] = offsetDays
	data["Date"] = date

	switch {
	case holiday:
		body = tr(config.TKeyRemSoonHoliday, fmt.Sprintf(config.FallbackSoonHoliday, e.Name, offsetDays, date), data, offsetDays)
	case hasAge:
		body = tr(config.TKeyRemSoonAge, fmt.Sprintf(config.FallbackSoonAge, e.Name, offsetDays, date, age), data, offsetDays)
	default:
		body = tr(config.TKeyRemSoonBirthday, fmt.Sprintf(config.FallbackSoonBirthday, e.Name, offsetDays, date), data, offsetDays)
	}
	return title, body
}
