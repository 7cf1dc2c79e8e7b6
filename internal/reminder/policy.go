package reminder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tartampluch/go-remind/internal/config"
)

// Policy describes when an entity's reminders fire: one notification per
// offset (0 = on the day, N = N days before) at Hour:Minute local time.
type Policy struct {
	Enabled     bool  `json:"enabled" yaml:"enabled"`
	OffsetsDays []int `json:"offsets_days" yaml:"offsets_days"`
	Hour        int   `json:"hour" yaml:"hour"`
	Minute      int   `json:"minute" yaml:"minute"`
}

var (
	errOffsetRange = errors.New("offset out of range")
	errHourRange   = errors.New("hour out of range")
	errMinuteRange = errors.New("minute out of range")
)

// DefaultPolicy is used when nothing else is configured: enabled, on the day
// and one day before, at 09:00.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:     true,
		OffsetsDays: slices.Clone(config.DefaultOffsetsDays),
		Hour:        config.DefaultRemHour,
		Minute:      config.DefaultRemMinute,
	}
}

// FromSettings converts the settings file representation.
func FromSettings(s config.PolicySettings) Policy {
	return Policy{
		Enabled:     s.Enabled,
		OffsetsDays: slices.Clone(s.OffsetsDays),
		Hour:        s.Hour,
		Minute:      s.Minute,
	}.Normalize()
}

// Settings converts p back to its settings file representation.
func (p Policy) Settings() config.PolicySettings {
	return config.PolicySettings{
		Enabled:     p.Enabled,
		OffsetsDays: slices.Clone(p.OffsetsDays),
		Hour:        p.Hour,
		Minute:      p.Minute,
	}
}

// Normalize returns a copy with offsets sorted, deduplicated and restricted
// to 0..config.MaxOffsetDays. The input slice is never modified.
func (p Policy) Normalize() Policy {
	offsets := make([]int, 0, len(p.OffsetsDays))
	for _, o := range p.OffsetsDays {
		if o >= 0 && o <= config.MaxOffsetDays {
			offsets = append(offsets, o)
		}
	}
	slices.Sort(offsets)
	p.OffsetsDays = slices.Compact(offsets)
	return p
}

// Validate rejects policies the scheduler cannot honour.
func (p Policy) Validate() error {
	for _, o := range p.OffsetsDays {
		if o < 0 || o > config.MaxOffsetDays {
			return fmt.Errorf("%s: %w: %d", config.ErrPolicyInvalid, errOffsetRange, o)
		}
	}
	if p.Hour < 0 || p.Hour > config.MaxHour {
		return fmt.Errorf("%s: %w: %d", config.ErrPolicyInvalid, errHourRange, p.Hour)
	}
	if p.Minute < 0 || p.Minute > config.MaxMinute {
		return fmt.Errorf("%s: %w: %d", config.ErrPolicyInvalid, errMinuteRange, p.Minute)
	}
	return nil
}

// Clone returns a deep copy.
func (p Policy) Clone() Policy {
	p.OffsetsDays = slices.Clone(p.OffsetsDays)
	return p
}
