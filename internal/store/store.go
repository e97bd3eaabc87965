package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tolarian/deckforge/internal/model"
)

// ErrDeckNotFound is returned by GetDeck and DeleteDeck when no deck has
// the given id.
var ErrDeckNotFound = eris.New("store: deck not found")

// DeckFilter specifies criteria for listing generated decks.
type DeckFilter struct {
	Commander string `json:"commander,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for wizard sessions and
// generated decks. Session methods satisfy wizard.SessionStore.
type Store interface {
	// Wizard sessions (keyed snapshots). A corrupt or missing snapshot
	// loads as (nil, nil); the wizard starts fresh.
	LoadSession(ctx context.Context, key string) (*model.WizardSession, error)
	SaveSession(ctx context.Context, key string, s *model.WizardSession) error
	ClearSession(ctx context.Context, key string) error

	// Generated decks
	SaveDeck(ctx context.Context, deck *model.GeneratedDeckRecord) error
	GetDeck(ctx context.Context, id string) (*model.GeneratedDeckRecord, error)
	ListDecks(ctx context.Context, filter DeckFilter) ([]model.GeneratedDeckRecord, error)
	DeleteDeck(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
