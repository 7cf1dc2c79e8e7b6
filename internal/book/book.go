// Package book owns the in-memory set of entities and keeps their reminders
// in step with every change.
package book

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
	"github.com/tartampluch/go-remind/internal/reminder"
)

var (
	ErrUnknownEntity = errors.New(config.ErrEntityUnknown)
	ErrMissingID     = errors.New(config.ErrEntityID)
)

// Book is the source of truth for bucketing and scheduling. All mutations
// reschedule the affected entity before returning.
type Book struct {
	policies  reminder.PolicyStore
	scheduler *reminder.Scheduler
	clock     engine.Clock
	window    int
	log       *slog.Logger

	mu       sync.RWMutex
	entities map[uuid.UUID]engine.Entity
}

// New creates an empty book. window is the Upcoming section size in days.
func New(policies reminder.PolicyStore, scheduler *reminder.Scheduler, clock engine.Clock, window int) *Book {
	return &Book{
		policies:  policies,
		scheduler: scheduler,
		clock:     clock,
		window:    window,
		log:       slog.With(config.LogKeyComponent, config.CompBook),
		entities:  make(map[uuid.UUID]engine.Entity),
	}
}

// Add inserts e and schedules its reminders. A nil policy means the entity
// follows the default policy.
func (b *Book) Add(ctx context.Context, e engine.Entity, p *reminder.Policy) ([]reminder.PendingReminder, error) {
	if e.ID == uuid.Nil {
		return nil, ErrMissingID
	}
	if p != nil {
		if err := b.policies.SetPolicy(ctx, e.ID, *p); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.entities[e.ID]; ok {
		b.retire(old, e)
	}
	b.entities[e.ID] = e
	b.log.Debug(config.MsgEntityAdded, config.LogKeyEntity, e.ID, config.LogKeyName, e.Name)
	return b.reschedule(ctx, e)
}

// Update replaces an existing entity, typically after its date changed.
func (b *Book) Update(ctx context.Context, e engine.Entity) ([]reminder.PendingReminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old, ok := b.entities[e.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, e.ID)
	}
	b.retire(old, e)
	b.entities[e.ID] = e
	b.log.Debug(config.MsgEntityUpdated, config.LogKeyEntity, e.ID)
	return b.reschedule(ctx, e)
}

// SetPolicy stores an explicit policy for id and reschedules it.
func (b *Book) SetPolicy(ctx context.Context, id uuid.UUID, p reminder.Policy) ([]reminder.PendingReminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	if err := b.policies.SetPolicy(ctx, id, p); err != nil {
		return nil, err
	}
	return b.reschedule(ctx, e)
}

// Delete cancels every reminder of id, then removes the entity and its
// policy. Once Delete returns the entity is gone from Sections.
func (b *Book) Delete(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	b.scheduler.CancelAll(e)
	delete(b.entities, id)
	b.log.Debug(config.MsgEntityDeleted, config.LogKeyEntity, id)

	if err := b.policies.DeletePolicy(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyDelete, err)
	}
	return nil
}

// Replace swaps the whole entity set, as done after a contact import.
// Entities that disappeared lose their reminders; their stored policies are
// kept so a contact that comes back later keeps its settings.
func (b *Book) Replace(ctx context.Context, entities []engine.Entity) ([]reminder.PendingReminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[uuid.UUID]engine.Entity, len(entities))
	for _, e := range entities {
		next[e.ID] = e
	}
	for id, old := range b.entities {
		e, ok := next[id]
		if !ok {
			b.scheduler.CancelAll(old)
			continue
		}
		b.retire(old, e)
	}
	b.entities = next
	return b.rescheduleAll(ctx)
}

// RescheduleAll re-runs the scheduler for every entity, e.g. after midnight
// or a default policy change.
func (b *Book) RescheduleAll(ctx context.Context) ([]reminder.PendingReminder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rescheduleAll(ctx)
}

// Get returns the entity with id.
func (b *Book) Get(id uuid.UUID) (engine.Entity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entities[id]
	return e, ok
}

// Entities lists every entity ordered by name.
func (b *Book) Entities() []engine.Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := slices.Collect(maps.Values(b.entities))
	slices.SortFunc(out, func(x, y engine.Entity) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name)),
			cmp.Compare(x.Name, y.Name),
			cmp.Compare(x.ID.String(), y.ID.String()),
		)
	})
	return out
}

// Sections buckets the current entities relative to today.
func (b *Book) Sections() []engine.Section[engine.Entity] {
	return engine.Sectioned(b.Entities(), engine.SectionOptions[engine.Entity]{
		DateOf:             engine.EntityDate,
		NameOf:             engine.EntityName,
		ReferenceDay:       engine.Today(b.clock),
		UpcomingWindowDays: b.window,
	})
}

// CalendarEntries pairs every entity with the alarms its policy asks for.
func (b *Book) CalendarEntries(ctx context.Context) ([]engine.CalendarEntry, error) {
	entities := b.Entities()
	entries := make([]engine.CalendarEntry, 0, len(entities))
	for _, e := range entities {
		p, err := b.policies.Policy(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		entry := engine.CalendarEntry{Entity: e}
		if p.Enabled {
			for _, o := range p.Normalize().OffsetsDays {
				entry.Alarms = append(entry.Alarms, engine.Alarm{OffsetDays: o, Hour: p.Hour, Minute: p.Minute})
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// retire cancels the reminders of old when its replacement lives in another
// identifier space. Reminder ids embed the kind, so rescheduling e alone
// would never reach them.
func (b *Book) retire(old, e engine.Entity) {
	if old.Kind != e.Kind {
		b.scheduler.CancelAll(old)
	}
}

func (b *Book) reschedule(ctx context.Context, e engine.Entity) ([]reminder.PendingReminder, error) {
	p, err := b.policies.Policy(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return b.scheduler.Reschedule(e, p, b.clock.Now()), nil
}

func (b *Book) rescheduleAll(ctx context.Context) ([]reminder.PendingReminder, error) {
	b.log.Info(config.MsgRescheduleAll, config.LogKeyCount, len(b.entities))

	var (
		pending []reminder.PendingReminder
		errs    []error
	)
	for _, e := range b.entities {
		ps, err := b.reschedule(ctx, e)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pending = append(pending, ps...)
	}
	slices.SortFunc(pending, func(x, y reminder.PendingReminder) int {
		return cmp.Or(x.FireAt.Compare(y.FireAt), cmp.Compare(x.ID, y.ID))
	})
	return pending, errors.Join(errs...)
}
