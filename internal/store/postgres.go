package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/db"
	"github.com/tolarian/deckforge/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations. Session
// saves in particular fire on every wizard mutation.
var preparedStatements = map[string]string{
	"load_session":  `SELECT snapshot FROM wizard_sessions WHERE key = $1`,
	"save_session":  `INSERT INTO wizard_sessions (key, snapshot, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET snapshot = $2, updated_at = $3`,
	"clear_session": `DELETE FROM wizard_sessions WHERE key = $1`,
	"insert_deck":   `INSERT INTO decks (id, name, commander, record, generated_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_deck":      `SELECT record FROM decks WHERE id = $1`,
	"delete_deck":   `DELETE FROM decks WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wizard_sessions (
	key        TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decks (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	commander    TEXT NOT NULL,
	record       JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS deck_cards (
	deck_id  TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	cmc      DOUBLE PRECISION NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	price    DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (deck_id, position)
);

CREATE INDEX IF NOT EXISTS idx_decks_commander ON decks(commander);
CREATE INDEX IF NOT EXISTS idx_decks_generated_at ON decks(generated_at);
CREATE INDEX IF NOT EXISTS idx_deck_cards_deck_id ON deck_cards(deck_id);
CREATE INDEX IF NOT EXISTS idx_deck_cards_name ON deck_cards(name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadSession(ctx context.Context, key string) (*model.WizardSession, error) {
	var snapshot []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM wizard_sessions WHERE key = $1`,
		key,
	).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: load session")
	}

	var sess model.WizardSession
	if err := json.Unmarshal(snapshot, &sess); err != nil {
		zap.L().Warn("postgres: discarding corrupt session snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}
	return &sess, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, key string, sess *model.WizardSession) error {
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal session")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO wizard_sessions (key, snapshot, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET snapshot = $2, updated_at = $3`,
		key, snapshot, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save session")
}

func (s *PostgresStore) ClearSession(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM wizard_sessions WHERE key = $1`,
		key,
	)
	return eris.Wrap(err, "postgres: clear session")
}

func (s *PostgresStore) SaveDeck(ctx context.Context, deck *model.GeneratedDeckRecord) error {
	recordJSON, err := json.Marshal(deck)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal deck")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO decks (id, name, commander, record, generated_at) VALUES ($1, $2, $3, $4, $5)`,
		deck.ID, deck.Name, deck.Commander, recordJSON, deck.GeneratedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert deck %s", deck.ID)
	}

	// Card rows are a queryable projection of the record JSON.
	rows := make([][]any, 0, len(deck.Cards))
	for i, c := range deck.Cards {
		rows = append(rows, []any{deck.ID, i, c.Name, c.CMC, c.Role, c.Price})
	}
	_, err = db.CopyFrom(ctx, s.pool, "deck_cards",
		[]string{"deck_id", "position", "name", "cmc", "category", "price"}, rows)
	return eris.Wrapf(err, "postgres: copy deck cards %s", deck.ID)
}

func (s *PostgresStore) GetDeck(ctx context.Context, id string) (*model.GeneratedDeckRecord, error) {
	var recordJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM decks WHERE id = $1`,
		id,
	).Scan(&recordJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeckNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get deck %s", id)
	}

	var deck model.GeneratedDeckRecord
	if err := json.Unmarshal(recordJSON, &deck); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal deck %s", id)
	}
	return &deck, nil
}

func (s *PostgresStore) ListDecks(ctx context.Context, filter DeckFilter) ([]model.GeneratedDeckRecord, error) {
	query := `SELECT record FROM decks WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Commander != "" {
		query += fmt.Sprintf(` AND commander = $%d`, argIdx)
		args = append(args, filter.Commander)
		argIdx++
	}
	query += ` ORDER BY generated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decks")
	}
	defer rows.Close()

	var decks []model.GeneratedDeckRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan deck")
		}
		var deck model.GeneratedDeckRecord
		if err := json.Unmarshal(recordJSON, &deck); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal deck")
		}
		decks = append(decks, deck)
	}
	return decks, eris.Wrap(rows.Err(), "postgres: list decks iterate")
}

func (s *PostgresStore) DeleteDeck(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM decks WHERE id = $1`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete deck %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeckNotFound
	}
	return nil
}
