package model

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SnapshotVersion tags persisted WizardSession snapshots. Loaders discard
// snapshots with an unknown version the same way they discard corrupt ones.
const SnapshotVersion = 1

// WizardSession is the full state of one consultation wizard instance. It
// is owned by a single wizard machine and mutated only through its public
// actions.
type WizardSession struct {
	Version          int                `json:"version"`
	SessionID        string             `json:"session_id"`
	CurrentStepIndex int                `json:"current_step_index"`
	Record           ConsultationRecord `json:"record"`
	IsComplete       bool               `json:"is_complete"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewSession creates a fresh session with a new session ID and the default
// record.
func NewSession() *WizardSession {
	return &WizardSession{
		Version:   SnapshotVersion,
		SessionID: NewSessionID("consult"),
		Record:    DefaultRecord(),
		UpdatedAt: time.Now().UTC(),
	}
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionID returns an identifier in the form
// "<purpose>-<millisecond-timestamp>-<9-char-base36>". Uniqueness is
// probabilistic; do not use these as database primary keys without an
// upstream uniqueness check.
func NewSessionID(purpose string) string {
	var suffix strings.Builder
	for i := 0; i < 9; i++ {
		suffix.WriteByte(base36Alphabet[rand.Intn(len(base36Alphabet))])
	}
	return fmt.Sprintf("%s-%d-%s", purpose, time.Now().UnixMilli(), suffix.String())
}
