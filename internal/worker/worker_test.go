package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-remind/internal/book"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/engine"
	"github.com/tartampluch/go-remind/internal/i18n"
	"github.com/tartampluch/go-remind/internal/notify"
	"github.com/tartampluch/go-remind/internal/reminder"
	"github.com/tartampluch/go-remind/internal/worker"
)

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := worker.New("not a cron", time.UTC, func(context.Context) error { return nil })
	assert.ErrorContains(t, err, config.ErrCronSpec)
}

func TestWorker_NextUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	w, err := worker.New(config.DefaultRefreshCron, tokyo, func(context.Context) error { return nil })
	require.NoError(t, err)
	w.Start()
	defer w.Stop(context.Background())

	next := w.Next().In(tokyo)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 5, next.Minute())
}

func TestWorker_TicksAndStops(t *testing.T) {
	var runs atomic.Int32
	w, err := worker.New("@every 1s", time.UTC, func(context.Context) error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	})
	require.NoError(t, err)

	w.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)

	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestWorker_RunNowReturnsError(t *testing.T) {
	boom := errors.New("boom")
	w, err := worker.New(config.DefaultRefreshCron, time.UTC, func(context.Context) error { return boom })
	require.NoError(t, err)
	assert.ErrorIs(t, w.RunNow(context.Background()), boom)
}

// fakePublisher records the last published documents.
type fakePublisher struct {
	mu       sync.Mutex
	ics      []byte
	sections []byte
}

func (f *fakePublisher) Update(ics []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ics = ics
}

func (f *fakePublisher) UpdateSections(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = data
	return nil
}

func newRefresh(t *testing.T, vcf string) (*worker.Refresh, *notify.TimerDispatcher, *fakePublisher) {
	t.Helper()
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	clock := engine.FixedClock(now)

	path := filepath.Join(t.TempDir(), "contacts.vcf")
	require.NoError(t, os.WriteFile(path, []byte(vcf), 0o600))

	d := notify.NewTimerDispatcher(notify.LogSender{}, func() time.Time { return now })
	t.Cleanup(d.Close)

	tr := i18n.New("en")
	b := book.New(reminder.NewMemoryStore(reminder.DefaultPolicy()), reminder.NewScheduler(d, tr), clock, 0)
	pub := &fakePublisher{}

	return &worker.Refresh{
		Importer:  &engine.Importer{},
		Source:    engine.SourceConfig{Mode: config.SourceModeLocal, LocalPath: path},
		Holidays:  []config.HolidaySettings{{Name: "New Year", Day: 1, Month: 1}},
		Book:      b,
		Builder:   &engine.CalendarBuilder{Clock: clock},
		Localizer: tr,
		Publisher: pub,
	}, d, pub
}

func TestRefresh_Run(t *testing.T) {
	vcf := "BEGIN:VCARD\nVERSION:3.0\nFN:Anna\nBDAY:1990-06-10\nEND:VCARD\n" +
		"BEGIN:VCARD\nVERSION:3.0\nFN:Bob\nBDAY:--06-15\nEND:VCARD\n" +
		"BEGIN:VCARD\nVERSION:3.0\nFN:Dora\nEND:VCARD"
	r, d, pub := newRefresh(t, vcf)

	require.NoError(t, r.Run(context.Background()))

	assert.Len(t, r.Book.Entities(), 4)
	// Anna today + Bob 0/1 + New Year 0/1.
	assert.Len(t, d.Pending(), 5)

	assert.Contains(t, string(pub.ics), "SUMMARY:Birthday: Anna (35)")
	assert.Contains(t, string(pub.ics), "SUMMARY:New Year")
	assert.Contains(t, string(pub.ics), "BEGIN:VALARM")

	var views []map[string]any
	require.NoError(t, json.Unmarshal(pub.sections, &views))
	require.Len(t, views, 4)
	assert.Equal(t, "Today", views[0]["title"])
	assert.Equal(t, "Upcoming", views[1]["title"])
	assert.Equal(t, "January 2026", views[2]["title"])
	assert.Equal(t, "No date", views[3]["title"])
}

func TestRefresh_ImportFailureKeepsPreviousEntities(t *testing.T) {
	r, d, _ := newRefresh(t, "BEGIN:VCARD\nVERSION:3.0\nFN:Bob\nBDAY:--06-15\nEND:VCARD")
	require.NoError(t, r.Run(context.Background()))
	require.Len(t, r.Book.Entities(), 2)

	r.Source.LocalPath = filepath.Join(t.TempDir(), "missing.vcf")
	err := r.Run(context.Background())
	assert.ErrorContains(t, err, config.ErrImportFailed)

	assert.Len(t, r.Book.Entities(), 2, "a failed import does not wipe the book")
	assert.Len(t, d.Pending(), 4)
}
