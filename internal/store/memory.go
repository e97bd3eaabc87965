package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tolarian/deckforge/internal/model"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs. It hands
// out copies, matching the aliasing behavior of the database drivers.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.WizardSession
	decks    map[string]model.GeneratedDeckRecord
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.WizardSession),
		decks:    make(map[string]model.GeneratedDeckRecord),
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) LoadSession(_ context.Context, key string) (*model.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	sess.Record = sess.Record.Clone()
	return &sess, nil
}

func (s *MemoryStore) SaveSession(_ context.Context, key string, sess *model.WizardSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Record = sess.Record.Clone()
	s.sessions[key] = cp
	return nil
}

func (s *MemoryStore) ClearSession(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

func (s *MemoryStore) SaveDeck(_ context.Context, deck *model.GeneratedDeckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[deck.ID] = *deck
	return nil
}

func (s *MemoryStore) GetDeck(_ context.Context, id string) (*model.GeneratedDeckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deck, ok := s.decks[id]
	if !ok {
		return nil, ErrDeckNotFound
	}
	return &deck, nil
}

func (s *MemoryStore) ListDecks(_ context.Context, filter DeckFilter) ([]model.GeneratedDeckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var decks []model.GeneratedDeckRecord
	for _, d := range s.decks {
		if filter.Commander != "" && d.Commander != filter.Commander {
			continue
		}
		decks = append(decks, d)
	}
	sort.Slice(decks, func(i, j int) bool {
		return decks[i].GeneratedAt.After(decks[j].GeneratedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(decks) {
			return nil, nil
		}
		decks = decks[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(decks) > limit {
		decks = decks[:limit]
	}
	return decks, nil
}

func (s *MemoryStore) DeleteDeck(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decks[id]; !ok {
		return ErrDeckNotFound
	}
	delete(s.decks, id)
	return nil
}
