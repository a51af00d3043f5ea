package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathakanu/waremind/internal/model"
)

// ErrPersistence wraps every failure to write the collection through to stable storage.
// The in-memory and on-disk views may have diverged once it is returned.
var ErrPersistence = errors.New("reminder persistence failed")

// Persister loads and rewrites the full reminder collection.
type Persister interface {
	LoadAll() ([]model.Reminder, error)
	ReplaceAll(reminders []model.Reminder) error
}

// Store owns the canonical reminder collection and writes it through to a
// Persister after every mutation.
type Store struct {
	mu        sync.Mutex
	persister Persister
	reminders []*model.Reminder
	now       func() time.Time
}

// New returns an empty Store backed by persister. Call Load to read existing reminders.
func New(persister Persister) *Store {
	return &Store{
		persister: persister,
		now:       time.Now,
	}
}

// Load replaces the in-memory collection with whatever the persister holds.
func (s *Store) Load() error {
	loaded, err := s.persister.LoadAll()
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = make([]*model.Reminder, 0, len(loaded))
	for i := range loaded {
		r := loaded[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Repeat == "" {
			r.Repeat = model.RepeatOnce
		}
		s.reminders = append(s.reminders, &r)
	}
	return nil
}

// Len reports how many reminders are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reminders)
}

// Create appends a new pending reminder and persists the collection.
func (s *Store) Create(owner, text, at string, repeat model.Repeat) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &model.Reminder{
		ID:        uuid.NewString(),
		Owner:     owner,
		Text:      text,
		Time:      at,
		Repeat:    repeat,
		CreatedAt: s.now(),
	}
	s.reminders = append(s.reminders, r)
	return *r, s.persistLocked()
}

// DeleteAll removes every reminder owned by owner.
func (s *Store) DeleteAll(owner string) (int, error) {
	return s.removeWhere(func(r *model.Reminder) bool {
		return r.Owner == owner
	})
}

// DeleteByText removes every reminder of owner whose text is exactly text, duplicates included.
func (s *Store) DeleteByText(owner, text string) (int, error) {
	return s.removeWhere(func(r *model.Reminder) bool {
		return r.Owner == owner && r.Text == text
	})
}

// Retire removes a delivered one-off reminder. It matches on content rather
// than identity, so same-text duplicates of the owner go with it.
func (s *Store) Retire(owner, text string) (int, error) {
	return s.DeleteByText(owner, text)
}

// List returns the owner's reminders in store order.
func (s *Store) List(owner string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Reminder
	for _, r := range s.reminders {
		if r.Owner == owner {
			out = append(out, *r)
		}
	}
	return out
}

// ScanDue returns the reminders due at minute that have not been sent yet.
func (s *Store) ScanDue(minute string) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.Reminder
	for _, r := range s.reminders {
		if r.Time == minute && !r.Sent {
			due = append(due, *r)
		}
	}
	return due
}

// InFlight returns every reminder whose sent flag is set.
func (s *Store) InFlight() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Reminder
	for _, r := range s.reminders {
		if r.Sent {
			out = append(out, *r)
		}
	}
	return out
}

// MarkSent flags a single reminder as in flight.
func (s *Store) MarkSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.findLocked(id)
	if r == nil || r.Sent {
		return nil
	}
	r.Sent = true
	return s.persistLocked()
}

// ClaimDue marks every reminder due at minute as sent and returns them.
// Scan and mark happen under one lock so a reminder is claimed at most once per minute.
func (s *Store) ClaimDue(minute string) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []model.Reminder
	for _, r := range s.reminders {
		if r.Time == minute && !r.Sent {
			r.Sent = true
			claimed = append(claimed, *r)
		}
	}
	if len(claimed) == 0 {
		return nil, nil
	}
	return claimed, s.persistLocked()
}

// Rearm clears the sent flag of the reminder with id. It reports false when
// the reminder no longer exists, e.g. because it was deleted during the cooldown.
func (s *Store) Rearm(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.findLocked(id)
	if r == nil {
		return false, nil
	}
	if !r.Sent {
		return true, nil
	}
	r.Sent = false
	return true, s.persistLocked()
}

func (s *Store) removeWhere(match func(*model.Reminder) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reminders[:0]
	removed := 0
	for _, r := range s.reminders {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(s.reminders); i++ {
		s.reminders[i] = nil
	}
	s.reminders = kept
	return removed, s.persistLocked()
}

func (s *Store) findLocked(id string) *model.Reminder {
	for _, r := range s.reminders {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) persistLocked() error {
	snapshot := make([]model.Reminder, len(s.reminders))
	for i, r := range s.reminders {
		snapshot[i] = *r
	}
	if err := s.persister.ReplaceAll(snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
