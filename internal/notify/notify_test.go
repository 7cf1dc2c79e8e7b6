package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/notify"
	"github.com/tartampluch/go-remind/internal/reminder"
	"gopkg.in/telebot.v3"
)

var _ reminder.Dispatcher = (*notify.TimerDispatcher)(nil)

// recordingSender captures delivered notifications.
type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	ch   chan notify.Notification
	err  error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ch: make(chan notify.Notification, 16)}
}

func (r *recordingSender) Send(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	r.ch <- n
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestTimerDispatcher_FiresDueNotification(t *testing.T) {
	s := newRecordingSender()
	d := notify.NewTimerDispatcher(s, nil)
	defer d.Close()

	require.NoError(t, d.ScheduleAt("birthday_X_0", time.Now().Add(10*time.Millisecond), "Birthday: Anna", "Today!"))

	select {
	case n := <-s.ch:
		assert.Equal(t, "birthday_X_0", n.ID)
		assert.Equal(t, "Birthday: Anna", n.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never fired")
	}
	assert.Empty(t, d.Pending(), "fired notifications are no longer pending")
}

func TestTimerDispatcher_ReplacesById(t *testing.T) {
	s := newRecordingSender()
	d := notify.NewTimerDispatcher(s, nil)
	defer d.Close()

	later := time.Now().Add(time.Hour)
	require.NoError(t, d.ScheduleAt("id", time.Now().Add(20*time.Millisecond), "old", "old"))
	require.NoError(t, d.ScheduleAt("id", later, "new", "new"))

	assert.Equal(t, []string{"id"}, d.Pending())
	at, ok := d.FireTime("id")
	require.True(t, ok)
	assert.Equal(t, later, at)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, s.count(), "the replaced timer must not fire")
}

func TestTimerDispatcher_Cancel(t *testing.T) {
	s := newRecordingSender()
	d := notify.NewTimerDispatcher(s, nil)
	defer d.Close()

	future := time.Now().Add(time.Hour)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.ScheduleAt(id, future, id, id))
	}

	require.NoError(t, d.Cancel("b"))
	require.NoError(t, d.Cancel("unknown"), "cancelling an unknown id is a no-op")
	assert.Equal(t, []string{"a", "c"}, d.Pending())

	require.NoError(t, d.CancelAll([]string{"a", "c", "zzz"}))
	assert.Empty(t, d.Pending())
}

func TestTimerDispatcher_PastFireTimeFiresImmediately(t *testing.T) {
	s := newRecordingSender()
	now := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	d := notify.NewTimerDispatcher(s, func() time.Time { return now })
	defer d.Close()

	require.NoError(t, d.ScheduleAt("late", now.Add(-time.Minute), "t", "b"))
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("past notification did not fire")
	}
}

func TestTimerDispatcher_SenderErrorIsSwallowed(t *testing.T) {
	s := newRecordingSender()
	s.err = errors.New("offline")
	d := notify.NewTimerDispatcher(s, nil)
	defer d.Close()

	require.NoError(t, d.ScheduleAt("x", time.Now(), "t", "b"))
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("notification did not fire")
	}
}

func TestTimerDispatcher_Close(t *testing.T) {
	s := newRecordingSender()
	d := notify.NewTimerDispatcher(s, nil)

	require.NoError(t, d.ScheduleAt("x", time.Now().Add(20*time.Millisecond), "t", "b"))
	d.Close()
	require.NoError(t, d.ScheduleAt("y", time.Now(), "t", "b"))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, s.count())
	assert.Empty(t, d.Pending())
}

type failingSender struct{ err error }

func (f failingSender) Send(context.Context, notify.Notification) error { return f.err }

func TestMultiSender_TriesAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	rec := newRecordingSender()
	m := notify.MultiSender{failingSender{err: boom}, notify.LogSender{}, rec}

	err := m.Send(context.Background(), notify.Notification{ID: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rec.count(), "later senders still run")
}

// MockTelegramClient simulates the Telegram API using `testify/mock`.
type MockTelegramClient struct {
	mock.Mock
}

func (m *MockTelegramClient) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	args := m.Called(to, what, opts)
	if msg := args.Get(0); msg != nil {
		return msg.(*telebot.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestTelegramSender_Send(t *testing.T) {
	client := new(MockTelegramClient)
	client.On("Send", &telebot.Chat{ID: 42}, "*Birthday: Anna*\nAnna turns 35 today!", mock.Anything).
		Return(&telebot.Message{}, nil)

	s := notify.NewTelegramSender(client, 42)
	err := s.Send(context.Background(), notify.Notification{Title: "Birthday: Anna", Body: "Anna turns 35 today!"})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestTelegramSender_Errors(t *testing.T) {
	client := new(MockTelegramClient)
	client.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("chat not found"))

	s := notify.NewTelegramSender(client, 42)
	err := s.Send(context.Background(), notify.Notification{Title: "t"})
	assert.ErrorContains(t, err, config.ErrSendFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, notify.Notification{}), context.Canceled)
	client.AssertNumberOfCalls(t, "Send", 1)
}

func TestNewTelegramSender_WithOfflineBot(t *testing.T) {
	bot, err := telebot.NewBot(telebot.Settings{Token: "123:abc", Offline: true})
	require.NoError(t, err)

	// *telebot.Bot satisfies TelegramClient.
	var client notify.TelegramClient = bot
	assert.NotNil(t, notify.NewTelegramSender(client, 1))
}
