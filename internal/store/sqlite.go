package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tolarian/deckforge/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// default driver: a single local file, no server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS wizard_sessions (
	key        TEXT PRIMARY KEY,
	snapshot   TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS decks (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	commander    TEXT NOT NULL,
	record       TEXT NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decks_commander ON decks(commander);
CREATE INDEX IF NOT EXISTS idx_decks_generated_at ON decks(generated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadSession(ctx context.Context, key string) (*model.WizardSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM wizard_sessions WHERE key = ?`,
		key,
	)

	var snapshot string
	err := row.Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load session")
	}

	var sess model.WizardSession
	if err := json.Unmarshal([]byte(snapshot), &sess); err != nil {
		// A corrupt snapshot is not worth failing the wizard over.
		zap.L().Warn("sqlite: discarding corrupt session snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}
	return &sess, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, key string, sess *model.WizardSession) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wizard_sessions (key, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		key, string(snapshot), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save session")
}

func (s *SQLiteStore) ClearSession(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_sessions WHERE key = ?`,
		key,
	)
	return eris.Wrap(err, "sqlite: clear session")
}

func (s *SQLiteStore) SaveDeck(ctx context.Context, deck *model.GeneratedDeckRecord) error {
	recordJSON, err := json.Marshal(deck)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal deck")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decks (id, name, commander, record, generated_at) VALUES (?, ?, ?, ?, ?)`,
		deck.ID, deck.Name, deck.Commander, string(recordJSON), deck.GeneratedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert deck %s", deck.ID)
}

func (s *SQLiteStore) GetDeck(ctx context.Context, id string) (*model.GeneratedDeckRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM decks WHERE id = ?`,
		id,
	)

	var recordJSON string
	err := row.Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, ErrDeckNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get deck %s", id)
	}

	var deck model.GeneratedDeckRecord
	if err := json.Unmarshal([]byte(recordJSON), &deck); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal deck %s", id)
	}
	return &deck, nil
}

func (s *SQLiteStore) ListDecks(ctx context.Context, filter DeckFilter) ([]model.GeneratedDeckRecord, error) {
	query := `SELECT record FROM decks WHERE 1=1`
	var args []any

	if filter.Commander != "" {
		query += ` AND commander = ?`
		args = append(args, filter.Commander)
	}
	query += ` ORDER BY generated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decks")
	}
	defer rows.Close()

	var decks []model.GeneratedDeckRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deck")
		}
		var deck model.GeneratedDeckRecord
		if err := json.Unmarshal([]byte(recordJSON), &deck); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal deck")
		}
		decks = append(decks, deck)
	}
	return decks, eris.Wrap(rows.Err(), "sqlite: list decks iterate")
}

func (s *SQLiteStore) DeleteDeck(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM decks WHERE id = ?`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete deck %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrDeckNotFound
	}
	return nil
}
