package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pathakanu/waremind/internal/model"
	"github.com/pathakanu/waremind/internal/store"
)

type sentMessage struct {
	to   string
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendWhatsAppMessage(to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeEnricher struct {
	message string
	err     error
}

func (f fakeEnricher) Motivate(context.Context, string) (string, error) {
	return f.message, f.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler(t *testing.T, sender Sender, enricher Enricher, start time.Time) (*Scheduler, *store.Store, *fakeClock) {
	t.Helper()

	st := store.New(store.NewFilePersister(filepath.Join(t.TempDir(), "reminders.json")))
	if err := st.Load(); err != nil {
		t.Fatalf("load store: %v", err)
	}
	clock := &fakeClock{now: start}
	s := New(st, sender, enricher, time.UTC, log.New(io.Discard, "", 0))
	s.now = clock.Now
	s.onFatal = func(err error) { t.Fatalf("unexpected fatal: %v", err) }
	return s, st, clock
}

func at(hour, minute, second int) time.Time {
	return time.Date(2026, 10, 15, hour, minute, second, 0, time.UTC)
}

func mustTick(t *testing.T, s *Scheduler) {
	t.Helper()
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func TestOnceReminderRetiredAfterDelivery(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s, st, clock := newTestScheduler(t, sender, fakeEnricher{message: "You can do it."}, at(18, 29, 58))

	if _, err := st.Create("+15551234567", "call mom", "18:30", model.RepeatOnce); err != nil {
		t.Fatalf("create: %v", err)
	}

	mustTick(t, s)
	if sender.count() != 0 {
		t.Fatalf("sent before due: %+v", sender.sent)
	}

	clock.Advance(3 * time.Second)
	mustTick(t, s)
	if sender.count() != 1 {
		t.Fatalf("expected one delivery, got %d", sender.count())
	}
	want := "⏰ Reminder: *call mom*\n\n✨ You can do it."
	if got := sender.sent[0]; got.to != "+15551234567" || got.body != want {
		t.Fatalf("unexpected message: %+v", got)
	}

	for i := 0; i < 5; i++ {
		clock.Advance(3 * time.Second)
		mustTick(t, s)
	}
	if st.Len() != 0 {
		t.Fatalf("once reminder still stored")
	}
	if sender.count() != 1 {
		t.Fatalf("once reminder delivered %d times", sender.count())
	}
}

func TestOnceReminderRetiredEvenWhenSendFails(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{err: errors.New("channel down")}
	s, st, _ := newTestScheduler(t, sender, fakeEnricher{err: errors.New("no oracle")}, at(9, 0, 1))

	if _, err := st.Create("user", "take medicine", "09:00", model.RepeatOnce); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Create("other", "stand up", "09:00", model.RepeatOnce); err != nil {
		t.Fatalf("create: %v", err)
	}

	mustTick(t, s)
	if sender.count() != 2 {
		t.Fatalf("expected both candidates attempted, got %d", sender.count())
	}
	if st.Len() != 0 {
		t.Fatalf("failed deliveries were not retired, %d left", st.Len())
	}
}

func TestDailyReminderCooldown(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s, st, clock := newTestScheduler(t, sender, nil, at(5, 0, 0))

	r, err := st.Create("user", "pray Fajr", "05:00", model.RepeatDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mustTick(t, s)
	if sender.count() != 1 {
		t.Fatalf("expected one delivery, got %d", sender.count())
	}
	if got := sender.sent[0].body; got != "⏰ Reminder: *pray Fajr*" {
		t.Fatalf("unexpected body without motivation: %q", got)
	}
	if inflight := st.InFlight(); len(inflight) != 1 || inflight[0].ID != r.ID {
		t.Fatalf("daily reminder not in flight: %+v", inflight)
	}

	// Rest of the minute: no duplicate.
	for i := 0; i < 19; i++ {
		clock.Advance(3 * time.Second)
		mustTick(t, s)
	}
	if sender.count() != 1 {
		t.Fatalf("daily reminder sent %d times in one minute", sender.count())
	}
	if len(st.InFlight()) != 1 || s.PendingRearms() != 1 {
		t.Fatalf("cooldown ended early")
	}

	clock.Advance(3 * time.Second)
	mustTick(t, s)
	if len(st.InFlight()) != 0 || s.PendingRearms() != 0 {
		t.Fatalf("reminder not re-armed after cooldown")
	}
	if got := st.ScanDue("05:00"); len(got) != 1 {
		t.Fatalf("re-armed reminder not due at 05:00: %+v", got)
	}

	clock.now = at(5, 0, 0).Add(24 * time.Hour)
	mustTick(t, s)
	if sender.count() != 2 {
		t.Fatalf("expected delivery on the next day, got %d", sender.count())
	}
}

func TestDeletedDuringCooldownStaysDeleted(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s, st, clock := newTestScheduler(t, sender, nil, at(21, 0, 0))

	if _, err := st.Create("user", "read Quran", "21:00", model.RepeatDaily); err != nil {
		t.Fatalf("create: %v", err)
	}
	mustTick(t, s)

	if _, err := st.DeleteByText("user", "read Quran"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	clock.Advance(RearmCooldown)
	mustTick(t, s)

	if st.Len() != 0 {
		t.Fatalf("deleted reminder came back")
	}
	if s.PendingRearms() != 0 {
		t.Fatalf("re-arm event not consumed")
	}
}

func TestStartRecoversInFlight(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s, st, clock := newTestScheduler(t, sender, nil, at(7, 0, 0))

	if _, err := st.Create("user", "walk", "07:00", model.RepeatDaily); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Create("user", "pay bill", "07:00", model.RepeatOnce); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.ClaimDue("07:00"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := s.recoverInFlight(); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got := st.List("user"); len(got) != 1 || got[0].Text != "walk" {
		t.Fatalf("one-time in-flight reminder not retired: %+v", got)
	}
	if s.PendingRearms() != 1 {
		t.Fatalf("daily in-flight reminder not queued for re-arm")
	}

	clock.Advance(RearmCooldown)
	mustTick(t, s)
	if len(st.InFlight()) != 0 {
		t.Fatalf("recovered reminder not re-armed")
	}
	if sender.count() != 0 {
		t.Fatalf("recovered reminder was re-delivered")
	}
}

func TestComposeMessage(t *testing.T) {
	t.Parallel()

	if got := ComposeMessage("drink water", ""); got != "⏰ Reminder: *drink water*" {
		t.Fatalf("ComposeMessage without motivation = %q", got)
	}
	if got := ComposeMessage("drink water", "Stay hydrated."); !strings.HasSuffix(got, "\n\n✨ Stay hydrated.") {
		t.Fatalf("ComposeMessage with motivation = %q", got)
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestScheduler(t, &fakeSender{}, nil, at(12, 0, 0))

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
}
