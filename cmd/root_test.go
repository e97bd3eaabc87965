package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"consult", "generate", "suggest", "decks", "export", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestInitStore_MemoryDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "memory"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.LoadSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
