// Package state holds the process-wide pet state store and the bounded
// history buffers.
//
// The store follows a single-writer/multiple-reader discipline: only the
// message router and the action executor mutate it; everything else reads
// immutable point-in-time copies.
package state

import (
	"log/slog"
	"sync"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/wire"
)

// DefaultHistoryCapacity is the per-buffer retention count. It is a tunable
// bound, not a contract.
const DefaultHistoryCapacity = 50

// Archiver mirrors history records to an external sink. Archiving is
// fire-and-forget; failures are logged and never affect the in-memory
// buffers.
type Archiver interface {
	ArchiveAction(r models.ActionRecord) error
	ArchiveMessage(r models.SentMessageRecord) error
}

// Store is the single-writer snapshot of the pet's vitals plus the three
// independent history ring buffers.
type Store struct {
	mu sync.RWMutex

	vitals   models.PetVitals
	hasPet   bool
	moodCfg  models.MoodThresholds
	archiver Archiver

	actions  *ring[models.ActionRecord]
	messages *ring[models.SentMessageRecord]
	prompts  *ring[models.PromptRecord]
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryCapacity overrides the per-buffer retention count.
func WithHistoryCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.actions = newRing[models.ActionRecord](n)
			s.messages = newRing[models.SentMessageRecord](n)
			s.prompts = newRing[models.PromptRecord](n)
		}
	}
}

// WithMoodThresholds overrides the emotion classification cutoffs.
func WithMoodThresholds(t models.MoodThresholds) Option {
	return func(s *Store) { s.moodCfg = t }
}

// WithArchiver attaches an external history archive.
func WithArchiver(a Archiver) Option {
	return func(s *Store) { s.archiver = a }
}

// NewStore creates an empty store; vitals stay zero-valued until the first
// update from the platform.
func NewStore(opts ...Option) *Store {
	s := &Store{
		moodCfg:  models.DefaultMoodThresholds(),
		actions:  newRing[models.ActionRecord](DefaultHistoryCapacity),
		messages: newRing[models.SentMessageRecord](DefaultHistoryCapacity),
		prompts:  newRing[models.PromptRecord](DefaultHistoryCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyUpdate merges a pet payload into the stored vitals. Fields present in
// the update overwrite; absent fields are left unchanged.
func (s *Store) ApplyUpdate(p *wire.PetPayload) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasPet = true
	if p.ID != nil {
		s.vitals.Identity.ID = *p.ID
	}
	if p.Name != nil {
		s.vitals.Identity.Name = *p.Name
	}
	if p.Dead != nil {
		s.vitals.Dead = *p.Dead
	}
	if p.Sleeping != nil {
		s.vitals.Sleeping = *p.Sleeping
	}
	if p.HotelTier != nil {
		s.vitals.HotelTier = *p.HotelTier
	}
	if balance, ok := p.BalanceValue(); ok {
		s.vitals.Balance = balance
	}
	if st := p.Stats; st != nil {
		if st.Hunger != nil {
			s.vitals.Hunger = clampVital(*st.Hunger)
		}
		if st.Health != nil {
			s.vitals.Health = clampVital(*st.Health)
		}
		if st.Energy != nil {
			s.vitals.Energy = clampVital(*st.Energy)
		}
		if st.Happiness != nil {
			s.vitals.Happiness = clampVital(*st.Happiness)
		}
		if st.Hygiene != nil {
			s.vitals.Hygiene = clampVital(*st.Hygiene)
		}
		if st.XP != nil {
			s.vitals.XP = *st.XP
		}
		if st.XPMax != nil {
			s.vitals.XPMax = *st.XPMax
		}
		if st.Level != nil {
			s.vitals.Level = *st.Level
		}
	}
	slog.Debug("state: vitals updated",
		"hunger", s.vitals.Hunger, "health", s.vitals.Health,
		"energy", s.vitals.Energy, "happiness", s.vitals.Happiness,
		"hygiene", s.vitals.Hygiene, "dead", s.vitals.Dead, "sleeping", s.vitals.Sleeping)
}

// Vitals returns a copy of the current vitals snapshot.
func (s *Store) Vitals() models.PetVitals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vitals
}

// HasPet reports whether at least one pet payload has been applied.
func (s *Store) HasPet() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPet
}

// PetStatus assembles the pet half of the snapshot query, including the
// derived mood.
func (s *Store) PetStatus() models.PetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.vitals
	return models.PetStatus{
		Identity:  v.Identity,
		Vitals:    v,
		Sleeping:  v.Sleeping,
		Dead:      v.Dead,
		Balance:   v.Balance,
		HotelTier: v.HotelTier,
		Mood:      models.MoodFor(v, s.moodCfg),
	}
}

// RecordAction appends an executed-action record, evicting the oldest entry
// once the buffer is full.
func (s *Store) RecordAction(r models.ActionRecord) {
	s.mu.Lock()
	s.actions.push(r)
	archiver := s.archiver
	s.mu.Unlock()

	if archiver != nil {
		go func() {
			if err := archiver.ArchiveAction(r); err != nil {
				slog.Warn("state: action archive failed", "error", err, "action", r.Action.Type)
			}
		}()
	}
}

// RecordMessage appends an outbound-message record.
func (s *Store) RecordMessage(r models.SentMessageRecord) {
	s.mu.Lock()
	s.messages.push(r)
	archiver := s.archiver
	s.mu.Unlock()

	if archiver != nil {
		go func() {
			if err := archiver.ArchiveMessage(r); err != nil {
				slog.Warn("state: message archive failed", "error", err, "type", r.Type)
			}
		}()
	}
}

// RecordPrompt appends a decision-engine invocation record.
func (s *Store) RecordPrompt(r models.PromptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts.push(r)
}

// Actions returns the executed-action history, most recent first.
func (s *Store) Actions() []models.ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions.newestFirst()
}

// Messages returns the outbound-message history, most recent first.
func (s *Store) Messages() []models.SentMessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.newestFirst()
}

// Prompts returns the decision-engine invocation history, most recent first.
func (s *Store) Prompts() []models.PromptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts.newestFirst()
}

func clampVital(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
