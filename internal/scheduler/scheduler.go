package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pathakanu/waremind/internal/model"
	"github.com/pathakanu/waremind/internal/store"
	"github.com/pathakanu/waremind/internal/timeofday"
	"github.com/robfig/cron/v3"
)

const (
	// TickPeriod is how often the store is scanned for due reminders.
	TickPeriod = 3 * time.Second
	// RearmCooldown is how long a delivered daily reminder stays sent before it is eligible again.
	RearmCooldown = time.Minute
)

// Sender delivers a text message to a chat identity.
type Sender interface {
	SendWhatsAppMessage(to, body string) error
}

// Enricher returns an optional note appended to a delivered reminder.
type Enricher interface {
	Motivate(ctx context.Context, text string) (string, error)
}

type rearm struct {
	id    string
	owner string
	text  string
	due   time.Time
}

// Scheduler delivers reminders at their wall-clock minute.
type Scheduler struct {
	store    *store.Store
	sender   Sender
	enricher Enricher
	location *time.Location
	logger   *log.Logger
	now      func() time.Time

	cron   *cron.Cron
	cancel context.CancelFunc

	mu     sync.Mutex
	rearms []rearm

	// onFatal is called when a tick fails to persist the store.
	onFatal func(error)
}

// New creates a Scheduler. A nil location means time.Local.
func New(st *store.Store, sender Sender, enricher Enricher, location *time.Location, logger *log.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	s := &Scheduler{
		store:    st,
		sender:   sender,
		enricher: enricher,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
	s.onFatal = func(err error) {
		s.logger.Fatalf("scheduler: %v", err)
	}
	return s
}

// Start recovers reminders left in flight by a previous run and registers the tick job.
func (s *Scheduler) Start() error {
	if err := s.recoverInFlight(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))),
	)
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", TickPeriod), func() {
		if err := s.Tick(ctx); err != nil {
			s.onFatal(err)
		}
	})
	if err != nil {
		cancel()
		return err
	}
	s.cron.Start()
	s.logger.Printf("scheduler: started, tick every %s in %s", TickPeriod, s.location)
	return nil
}

// Stop halts the tick job and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	<-done.Done()
	s.cancel()
}

// Tick performs one scan: pending re-arms first, then every reminder due this minute.
// It only returns an error when the store could not be persisted.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now().In(s.location)

	if err := s.processRearms(now); err != nil {
		return err
	}

	due, err := s.store.ClaimDue(timeofday.Minute(now))
	if err != nil {
		return err
	}

	for _, r := range due {
		s.deliver(ctx, r)

		if r.Repeat == model.RepeatDaily {
			s.scheduleRearm(r, now.Add(RearmCooldown))
			continue
		}
		removed, err := s.store.Retire(r.Owner, r.Text)
		if err != nil {
			return err
		}
		s.logger.Printf("scheduler: one-time reminder %q retired (%d removed)", r.Text, removed)
	}
	return nil
}

// PendingRearms reports how many daily reminders are waiting out their cooldown.
func (s *Scheduler) PendingRearms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rearms)
}

// ComposeMessage builds the delivered text for a reminder.
func ComposeMessage(text, motivation string) string {
	message := fmt.Sprintf("⏰ Reminder: *%s*", text)
	if motivation != "" {
		message += "\n\n✨ " + motivation
	}
	return message
}

func (s *Scheduler) deliver(ctx context.Context, r model.Reminder) {
	motivation := ""
	if s.enricher != nil {
		m, err := s.enricher.Motivate(ctx, r.Text)
		if err != nil {
			s.logger.Printf("scheduler: no motivation for %q: %v", r.Text, err)
		} else {
			motivation = m
		}
	}

	s.logger.Printf("scheduler: sending reminder to %s: %q", r.Owner, r.Text)
	if err := s.sender.SendWhatsAppMessage(r.Owner, ComposeMessage(r.Text, motivation)); err != nil {
		s.logger.Printf("scheduler: send reminder %s to %s: %v", r.ID, r.Owner, err)
		return
	}
	s.logger.Printf("scheduler: reminder %s sent to %s", r.ID, r.Owner)
}

func (s *Scheduler) scheduleRearm(r model.Reminder, due time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rearms = append(s.rearms, rearm{id: r.ID, owner: r.Owner, text: r.Text, due: due})
}

func (s *Scheduler) processRearms(now time.Time) error {
	s.mu.Lock()
	var ready []rearm
	waiting := s.rearms[:0]
	for _, ev := range s.rearms {
		if now.Before(ev.due) {
			waiting = append(waiting, ev)
			continue
		}
		ready = append(ready, ev)
	}
	s.rearms = waiting
	s.mu.Unlock()

	for _, ev := range ready {
		found, err := s.store.Rearm(ev.id)
		if err != nil {
			return err
		}
		if !found {
			s.logger.Printf("scheduler: reminder %q for %s was deleted during cooldown, not re-armed", ev.text, ev.owner)
			continue
		}
		s.logger.Printf("scheduler: reset sent flag for reminder %q", ev.text)
	}
	return nil
}

// recoverInFlight handles reminders persisted with sent=true by a run that
// stopped before finishing them: one-time reminders are retired, daily ones
// get a fresh cooldown.
func (s *Scheduler) recoverInFlight() error {
	now := s.now().In(s.location)
	for _, r := range s.store.InFlight() {
		if r.Repeat == model.RepeatDaily {
			s.scheduleRearm(r, now.Add(RearmCooldown))
			continue
		}
		if _, err := s.store.Retire(r.Owner, r.Text); err != nil {
			return err
		}
		s.logger.Printf("scheduler: retired one-time reminder %q left in flight", r.Text)
	}
	return nil
}
