package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tartampluch/go-remind/internal/config"
)

// TimerDispatcher is an in-process reminder.Dispatcher. Each pending
// notification is a time.AfterFunc timer; scheduling an id that is already
// pending replaces it.
type TimerDispatcher struct {
	sender Sender
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingTimer
	closed  bool
}

type pendingTimer struct {
	timer *time.Timer
	n     Notification
}

// NewTimerDispatcher delivers through sender. now may be nil for time.Now.
func NewTimerDispatcher(sender Sender, now func() time.Time) *TimerDispatcher {
	if now == nil {
		now = time.Now
	}
	return &TimerDispatcher{
		sender:  sender,
		now:     now,
		pending: make(map[string]*pendingTimer),
	}
}

// ScheduleAt arms a timer for fireAt. A fire time in the past fires at once.
func (d *TimerDispatcher) ScheduleAt(id string, fireAt time.Time, title, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	if old, ok := d.pending[id]; ok {
		old.timer.Stop()
	}

	p := &pendingTimer{n: Notification{ID: id, FireAt: fireAt, Title: title, Body: body}}
	p.timer = time.AfterFunc(max(fireAt.Sub(d.now()), 0), func() { d.fire(p) })
	d.pending[id] = p
	return nil
}

func (d *TimerDispatcher) Cancel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel(id)
	return nil
}

func (d *TimerDispatcher) CancelAll(ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.cancel(id)
	}
	return nil
}

func (d *TimerDispatcher) cancel(id string) {
	if p, ok := d.pending[id]; ok {
		p.timer.Stop()
		delete(d.pending, id)
	}
}

// Pending lists the ids of armed notifications, sorted.
func (d *TimerDispatcher) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.pending))
	for id := range d.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FireTime returns when id is due, if it is pending.
func (d *TimerDispatcher) FireTime(id string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return p.n.FireAt, true
}

// Close stops every timer. Later ScheduleAt calls are ignored.
func (d *TimerDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.pending {
		d.cancel(id)
	}
	d.closed = true
}

func (d *TimerDispatcher) fire(p *pendingTimer) {
	d.mu.Lock()
	// A replaced or cancelled timer may still run if Stop lost the race.
	if d.pending[p.n.ID] != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, p.n.ID)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), config.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, p.n); err != nil {
		slog.Error(config.ErrSendFailed,
			config.LogKeyComponent, config.CompNotify,
			config.LogKeyID, p.n.ID,
			config.LogKeyError, err,
		)
		return
	}
	slog.Debug(config.MsgNotifDelivered,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyID, p.n.ID,
	)
}
