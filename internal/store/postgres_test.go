package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresLoadSession(t *testing.T) {
	s, mock := newMockPostgres(t)

	sess := model.NewSession()
	sess.Record.Commander = "Atraxa, Praetors' Voice"
	snapshot, err := json.Marshal(sess)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT snapshot FROM wizard_sessions`).
		WithArgs("wizard").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}).AddRow(snapshot))

	got, err := s.LoadSession(context.Background(), "wizard")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Atraxa, Praetors' Voice", got.Record.Commander)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadSessionMissing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT snapshot FROM wizard_sessions`).
		WithArgs("wizard").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.LoadSession(context.Background(), "wizard")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadSessionCorruptSnapshotDiscarded(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT snapshot FROM wizard_sessions`).
		WithArgs("wizard").
		WillReturnRows(pgxmock.NewRows([]string{"snapshot"}).AddRow([]byte(`{"version": not json`)))

	got, err := s.LoadSession(context.Background(), "wizard")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSession(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO wizard_sessions`).
		WithArgs("wizard", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveSession(context.Background(), "wizard", model.NewSession())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveDeckCopiesCards(t *testing.T) {
	s, mock := newMockPostgres(t)

	deck := testDeck("deck-1", "Atraxa, Praetors' Voice")

	mock.ExpectExec(`INSERT INTO decks`).
		WithArgs(deck.ID, deck.Name, deck.Commander, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"deck_cards"},
		[]string{"deck_id", "position", "name", "cmc", "category", "price"}).
		WillReturnResult(int64(len(deck.Cards)))

	err := s.SaveDeck(context.Background(), deck)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetDeck(t *testing.T) {
	s, mock := newMockPostgres(t)

	deck := testDeck("deck-1", "Atraxa, Praetors' Voice")
	recordJSON, err := json.Marshal(deck)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM decks`).
		WithArgs("deck-1").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(recordJSON))

	got, err := s.GetDeck(context.Background(), "deck-1")
	require.NoError(t, err)
	assert.Equal(t, deck.Commander, got.Commander)
	assert.Len(t, got.Cards, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetDeckNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT record FROM decks`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDeck(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDeckNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteDeckNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM decks`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteDeck(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDeckNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDecksCommanderFilter(t *testing.T) {
	s, mock := newMockPostgres(t)

	deck := testDeck("deck-1", "Krenko, Mob Boss")
	recordJSON, err := json.Marshal(deck)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM decks`).
		WithArgs("Krenko, Mob Boss", 100).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(recordJSON))

	decks, err := s.ListDecks(context.Background(), DeckFilter{Commander: "Krenko, Mob Boss"})
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "deck-1", decks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
