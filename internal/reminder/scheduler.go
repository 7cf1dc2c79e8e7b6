// Package reminder turns entities and their policies into scheduled
// notifications.
package reminder

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
)

// PendingReminder is a notification successfully handed to the dispatcher.
type PendingReminder struct {
	ID         string    `json:"id"`
	EntityID   uuid.UUID `json:"entity_id"`
	OffsetDays int       `json:"offset_days"`
	FireAt     time.Time `json:"fire_at"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
}

// Scheduler keeps the dispatcher in sync with entity policies.
//
// Every reschedule first cancels all identifiers the entity could own, so a
// narrowed policy never leaves stale notifications behind. Calls for the same
// entity are serialized; different entities run concurrently.
type Scheduler struct {
	dispatcher Dispatcher
	localizer  engine.Localizer
	locks      KeyedMutex
	log        *slog.Logger
}

// NewScheduler wires a scheduler to d. loc may be nil.
func NewScheduler(d Dispatcher, loc engine.Localizer) *Scheduler {
	return &Scheduler{
		dispatcher: d,
		localizer:  loc,
		log:        slog.With(config.LogKeyComponent, config.CompScheduler),
	}
}

// Reschedule replaces the entity's pending notifications according to
// policy. Fire times already in the past relative to now are skipped for this
// cycle; the next occurrence is picked up by a later reschedule.
//
// Dispatcher failures are logged and swallowed. The returned slice only lists
// reminders the dispatcher accepted.
func (s *Scheduler) Reschedule(target engine.Entity, policy Policy, now time.Time) []PendingReminder {
	unlock := s.locks.Lock(target.ID.String())
	defer unlock()

	s.cancelAll(target)

	if !policy.Enabled || !target.Date.IsValid() {
		return nil
	}
	policy = policy.Normalize()

	occurrence := engine.NextOccurrence(target.Date, engine.StartOfDay(now))

	var pending []PendingReminder
	for _, offset := range policy.OffsetsDays {
		day := occurrence.AddDate(0, 0, -offset)
		fireAt := time.Date(day.Year(), day.Month(), day.Day(), policy.Hour, policy.Minute, 0, 0, now.Location())

		id := Identifier(target.Kind, target.ID, offset)
		if fireAt.Before(now) {
			s.log.Debug(config.MsgSkippedPast,
				config.LogKeyID, id,
				config.LogKeyFireAt, fireAt,
			)
			continue
		}

		title, body := Content(target, offset, occurrence, s.localizer)
		if err := s.dispatcher.ScheduleAt(id, fireAt, title, body); err != nil {
			s.log.Error(config.ErrScheduleFailed,
				config.LogKeyID, id,
				config.LogKeyError, err,
			)
			continue
		}
		s.log.Debug(config.MsgScheduled,
			config.LogKeyID, id,
			config.LogKeyOffset, offset,
			config.LogKeyFireAt, fireAt,
		)

		pending = append(pending, PendingReminder{
			ID:         id,
			EntityID:   target.ID,
			OffsetDays: offset,
			FireAt:     fireAt,
			Title:      title,
			Body:       body,
		})
	}
	return pending
}

// CancelAll removes every notification the entity could own.
func (s *Scheduler) CancelAll(target engine.Entity) {
	unlock := s.locks.Lock(target.ID.String())
	defer unlock()
	s.cancelAll(target)
}

func (s *Scheduler) cancelAll(target engine.Entity) {
	if err := s.dispatcher.CancelAll(Identifiers(target.Kind, target.ID)); err != nil {
		s.log.Warn(config.ErrCancelFailed,
			config.LogKeyEntity, target.ID,
			config.LogKeyKind, target.Kind,
			config.LogKeyError, err,
		)
		return
	}
	s.log.Debug(config.MsgCancelled,
		config.LogKeyEntity, target.ID,
		config.LogKeyKind, target.Kind,
	)
}
