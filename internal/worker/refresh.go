package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/go-remind/internal/book"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
)

// Publisher receives the rendered documents.
type Publisher interface {
	Update(ics []byte)
	UpdateSections(v any) error
}

// SectionView is the JSON form of a section: the bucket plus its
// localized title.
type SectionView struct {
	Title string `json:"title"`
	engine.Section[engine.Entity]
}

// Refresh re-imports contacts, reschedules every reminder and republishes
// the feeds.
type Refresh struct {
	Importer  *engine.Importer
	Source    engine.SourceConfig
	Holidays  []config.HolidaySettings
	Book      *book.Book
	Builder   *engine.CalendarBuilder
	Localizer engine.Localizer
	Publisher Publisher
}

// Run performs one refresh. A failed import keeps the previous entity set
// but the reminders and feeds are still refreshed, since "today" moved.
func (r *Refresh) Run(ctx context.Context) error {
	var errs []error

	contacts, err := r.Importer.Import(ctx, r.Source)
	if err != nil {
		slog.Warn(config.ErrImportFailed,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", config.ErrImportFailed, err))
		if _, err := r.Book.RescheduleAll(ctx); err != nil {
			errs = append(errs, err)
		}
	} else {
		entities := append(contacts, engine.HolidayEntities(r.Holidays)...)
		if _, err := r.Book.Replace(ctx, entities); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.publish(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Refresh) publish(ctx context.Context) error {
	if r.Publisher == nil {
		return nil
	}

	entries, err := r.Book.CalendarEntries(ctx)
	if err != nil {
		return err
	}
	ics, err := r.Builder.Build(entries)
	if err != nil {
		return err
	}
	r.Publisher.Update(ics)

	return r.Publisher.UpdateSections(r.Sections())
}

// Sections returns the current bucketed view with localized titles.
func (r *Refresh) Sections() []SectionView {
	today := engine.Today(r.Builder.Clock)
	sections := r.Book.Sections()
	views := make([]SectionView, len(sections))
	for i, s := range sections {
		views[i] = SectionView{Title: engine.SectionTitle(s, today, r.Localizer), Section: s}
	}
	return views
}
