package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolarian/deckforge/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Driver: "memory"},
		Wizard: config.WizardConfig{SnapshotKey: "test.wizard"},
	}
}

func runConsult(t *testing.T, input string) (string, error) {
	t.Helper()
	cfg = testConfig()

	var out bytes.Buffer
	consultCmd.SetIn(strings.NewReader(input))
	consultCmd.SetOut(&out)
	consultCmd.SetContext(context.Background())
	err := consultCmd.RunE(consultCmd, nil)
	return out.String(), err
}

func TestConsult_FullWalkthrough(t *testing.T) {
	input := strings.Join([]string{
		"Atraxa, Praetors' Voice", // commander (suggestions step skipped)
		"counters",                // strategy
		"not-a-number",            // budget, rejected and re-prompted
		"250",                     // budget
		"3",                       // power level
		"combat",                  // primary win condition
		"voltron",                 // combat style
		"",                        // secondary win conditions
		"medium",                  // interaction level
		"removal, board_wipes",    // interaction types
		"balanced",                // timing
		"moderate",                // complexity
		"",                        // avoid strategies
		"",                        // avoid cards
		"",                        // pet cards
		"diplomatic",              // politics
	}, "\n") + "\n"

	out, err := runConsult(t, input)
	require.NoError(t, err)

	assert.Contains(t, out, "Step 1 of 11: Commander")
	// Suggestions were skipped: strategy is step 3.
	assert.Contains(t, out, "Step 3 of 11: Strategy")
	assert.Contains(t, out, "error: enter a number")
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, "Atraxa, Praetors' Voice")
	assert.Contains(t, out, "Budget:      $250.00")
	assert.Contains(t, out, "deckforge generate")
}

func TestConsult_QuitSavesProgress(t *testing.T) {
	out, err := runConsult(t, "/quit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress saved.")
}

func TestConsult_EOFBehavesLikeQuit(t *testing.T) {
	out, err := runConsult(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress saved.")
}

func TestConsult_InvalidAnswerReprompts(t *testing.T) {
	// An empty commander answer asks for suggestions; picking nothing on
	// the suggestions step keeps the wizard on that step.
	input := strings.Join([]string{
		"",      // commander blank: wants suggestions
		"",      // suggestion step: no pick, verdict error
		"/quit", // leave
	}, "\n") + "\n"

	out, err := runConsult(t, input)
	require.NoError(t, err)
	assert.Contains(t, out, "Commander Suggestions")
	assert.Contains(t, out, "error: pick a commander from the suggestions")
}

func TestConsult_BackRevisitsPreviousStep(t *testing.T) {
	input := strings.Join([]string{
		"Atraxa, Praetors' Voice", // commander
		"/back",                   // strategy prompt: go back
		"/quit",
	}, "\n") + "\n"

	out, err := runConsult(t, input)
	require.NoError(t, err)
	// Going back is a plain decrement, so it lands on the suggestions step
	// even though forward progression skipped it.
	assert.Contains(t, out, "Step 3 of 11: Strategy")
	assert.Contains(t, out, "Step 2 of 11: Commander Suggestions")
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"single", "removal", []string{"removal"}},
		{"trims entries", " removal , stax ", []string{"removal", "stax"}},
		{"drops empties", "removal,,stax,", []string{"removal", "stax"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseList(tt.in))
		})
	}
}

func TestPromptLine_Commands(t *testing.T) {
	var out bytes.Buffer

	line, act := promptLine(bufio.NewReader(strings.NewReader("hello\n")), &out, "Q:")
	assert.Equal(t, stepNext, act)
	assert.Equal(t, "hello", line)

	_, act = promptLine(bufio.NewReader(strings.NewReader("/back\n")), &out, "Q:")
	assert.Equal(t, stepBack, act)

	_, act = promptLine(bufio.NewReader(strings.NewReader("/quit\n")), &out, "Q:")
	assert.Equal(t, stepQuit, act)

	// EOF with no pending input quits; a final unterminated line is kept.
	_, act = promptLine(bufio.NewReader(strings.NewReader("")), &out, "Q:")
	assert.Equal(t, stepQuit, act)

	line, act = promptLine(bufio.NewReader(strings.NewReader("partial")), &out, "Q:")
	assert.Equal(t, stepNext, act)
	assert.Equal(t, "partial", line)
}
