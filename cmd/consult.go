package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tolarian/deckforge/internal/model"
	"github.com/tolarian/deckforge/internal/recommend"
	"github.com/tolarian/deckforge/internal/wizard"
	anthropicpkg "github.com/tolarian/deckforge/pkg/anthropic"
)

var consultReset bool

// stepAction is the outcome of one interactive prompt.
type stepAction int

const (
	stepNext stepAction = iota // input accepted, try to advance
	stepStay                   // input rejected, re-prompt the same step
	stepBack                   // go to the previous step
	stepQuit                   // leave the wizard, snapshot persists
)

var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Walk through the deck-building consultation wizard",
	Long: `consult runs the interactive consultation: commander, strategy,
budget, power level, win conditions, interaction, complexity,
restrictions and politics. Progress is snapshotted after every answer,
so an interrupted consultation resumes where it left off.

Type /back at any prompt to revisit the previous step, or /quit to
leave with progress saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		m := wizard.NewMachine(ctx, st, cfg.Wizard.SnapshotKey)
		if consultReset {
			m.Reset(ctx)
		}

		rd := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		for {
			step := m.CurrentStep()
			fmt.Fprintf(out, "\n== Step %d of %d: %s ==\n", step.Index+1, wizard.StepCount(), step.Title)

			if step.Index == wizard.StepSummary {
				printSummary(out, m.Record())
				v := m.Verdict()
				for _, w := range v.Warnings {
					fmt.Fprintf(out, "  note: %s\n", w)
				}
				fmt.Fprintln(out, "\nConsultation ready. Run 'deckforge generate' to build the deck.")
				return nil
			}

			act, err := promptStep(ctx, m, rd, out)
			if err != nil {
				return err
			}
			switch act {
			case stepQuit:
				fmt.Fprintln(out, "Progress saved.")
				return nil
			case stepBack:
				m.PreviousStep(ctx)
				continue
			case stepStay:
				continue
			}

			v := m.Verdict()
			for _, w := range v.Warnings {
				fmt.Fprintf(out, "  note: %s\n", w)
			}
			if !v.IsValid {
				for _, e := range v.Errors {
					fmt.Fprintf(out, "  error: %s\n", e)
				}
				continue
			}
			m.NextStep(ctx)
		}
	},
}

// promptStep collects the current step's answers into a patch and applies
// it. Validation happens afterwards through the machine's verdict, so a
// bad answer shows its error and re-prompts instead of aborting.
func promptStep(ctx context.Context, m *wizard.Machine, rd *bufio.Reader, out io.Writer) (stepAction, error) {
	switch m.CurrentStep().Index {
	case wizard.StepCommander:
		line, act := promptLine(rd, out, "Commander name (blank to get suggestions):")
		if act != stepNext {
			return act, nil
		}
		if line == "" {
			needs := true
			m.UpdateData(ctx, model.Patch{NeedsCommanderSuggestions: &needs})
		} else {
			m.UpdateData(ctx, model.Patch{Commander: &line})
		}

	case wizard.StepSuggestions:
		return promptSuggestions(ctx, m, rd, out)

	case wizard.StepStrategy:
		line, act := promptLine(rd, out, "Deck strategy (aggro, control, combo, tribal, ...):")
		if act != stepNext {
			return act, nil
		}
		if line != "" {
			m.UpdateData(ctx, model.Patch{Strategy: &line})
		}

	case wizard.StepBudget:
		line, act := promptLine(rd, out, "Budget in USD (blank for no limit):")
		if act != stepNext {
			return act, nil
		}
		if line != "" {
			b, err := strconv.ParseFloat(line, 64)
			if err != nil {
				fmt.Fprintln(out, "  error: enter a number, like 250")
				return stepStay, nil
			}
			m.UpdateData(ctx, model.Patch{Budget: &b})
		}

	case wizard.StepPowerLevel:
		line, act := promptLine(rd, out, "Power level 1 (casual) to 4 (cEDH):")
		if act != stepNext {
			return act, nil
		}
		lvl, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(out, "  error: enter 1, 2, 3 or 4")
			return stepStay, nil
		}
		m.UpdateData(ctx, model.Patch{PowerLevel: &lvl})

	case wizard.StepWinConditions:
		primary, act := promptLine(rd, out, "Primary win condition (combat, combo, alternate, attrition):")
		if act != stepNext {
			return act, nil
		}
		wc := model.WinConditions{Primary: model.WinConditionTag(primary)}
		switch wc.Primary {
		case model.WinConditionCombat:
			style, act := promptLine(rd, out, "Combat style (voltron, go_wide, stompy; blank to skip):")
			if act != stepNext {
				return act, nil
			}
			wc.CombatStyle = style
		case model.WinConditionCombo:
			ct, act := promptLine(rd, out, "Combo type (infinite, synergy, engine; blank to skip):")
			if act != stepNext {
				return act, nil
			}
			wc.ComboType = ct
		}
		secondary, act := promptLine(rd, out, "Secondary win conditions (comma-separated, blank for none):")
		if act != stepNext {
			return act, nil
		}
		wc.Secondary = parseList(secondary)
		m.UpdateData(ctx, model.Patch{WinConditions: &wc})

	case wizard.StepInteraction:
		level, act := promptLine(rd, out, "Interaction level (low, medium, high):")
		if act != stepNext {
			return act, nil
		}
		types, act := promptLine(rd, out, "Interaction types (removal, counterspells, board_wipes, stax; comma-separated):")
		if act != stepNext {
			return act, nil
		}
		timing, act := promptLine(rd, out, "Timing preference (proactive, reactive, balanced; blank to skip):")
		if act != stepNext {
			return act, nil
		}
		in := model.Interaction{
			Level:  model.InteractionLevel(level),
			Types:  parseList(types),
			Timing: timing,
		}
		m.UpdateData(ctx, model.Patch{Interaction: &in})

	case wizard.StepComplexity:
		line, act := promptLine(rd, out, "Complexity level (simple, moderate, complex):")
		if act != stepNext {
			return act, nil
		}
		if line != "" {
			m.UpdateData(ctx, model.Patch{ComplexityLevel: &line})
		}

	case wizard.StepRestrictions:
		avoidStrats, act := promptLine(rd, out, "Strategies to avoid (comma-separated, blank for none):")
		if act != stepNext {
			return act, nil
		}
		avoidCards, act := promptLine(rd, out, "Cards to avoid (comma-separated, blank for none):")
		if act != stepNext {
			return act, nil
		}
		petCards, act := promptLine(rd, out, "Pet cards to include (comma-separated, blank for none):")
		if act != stepNext {
			return act, nil
		}
		re := model.Restrictions{
			AvoidStrategies: parseList(avoidStrats),
			AvoidCards:      parseList(avoidCards),
			PetCards:        parseList(petCards),
		}
		m.UpdateData(ctx, model.Patch{Restrictions: &re})

	case wizard.StepPolitics:
		line, act := promptLine(rd, out, "Table politics style (aggressive, diplomatic, hidden, kingmaker_averse; blank to skip):")
		if act != stepNext {
			return act, nil
		}
		if line != "" {
			po := model.Politics{Style: line}
			m.UpdateData(ctx, model.Patch{Politics: &po})
		}
	}

	return stepNext, nil
}

// promptSuggestions asks Claude for commanders fitting the record so far.
// Without an Anthropic key (or on a failed call) the step degrades to a
// plain name prompt.
func promptSuggestions(ctx context.Context, m *wizard.Machine, rd *bufio.Reader, out io.Writer) (stepAction, error) {
	var picks []recommend.CommanderSuggestion
	if cfg.Anthropic.Key != "" {
		suggester := recommend.NewSuggester(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
		var err error
		picks, err = suggester.SuggestCommanders(ctx, m.Record())
		if err != nil {
			zap.L().Warn("commander suggestions failed", zap.Error(err))
		}
	}

	if len(picks) == 0 {
		fmt.Fprintln(out, "No suggestions available.")
	}
	for i, s := range picks {
		fmt.Fprintf(out, "  %d. %s [%s]: %s\n", i+1, s.Name, strings.Join(s.Colors, ""), s.Reason)
	}

	line, act := promptLine(rd, out, "Pick a number or type a commander name:")
	if act != stepNext {
		return act, nil
	}
	name := line
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(picks) {
		name = picks[n-1].Name
	}
	if name != "" {
		m.UpdateData(ctx, model.Patch{Commander: &name})
	}
	return stepNext, nil
}

// promptLine reads one trimmed line. EOF behaves like /quit so piped input
// never spins.
func promptLine(rd *bufio.Reader, out io.Writer, label string) (string, stepAction) {
	fmt.Fprintf(out, "%s ", label)
	line, err := rd.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", stepQuit
	}
	switch line {
	case "/back":
		return "", stepBack
	case "/quit":
		return "", stepQuit
	}
	return line, stepNext
}

// parseList splits comma-separated answers, dropping empty entries.
func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(out io.Writer, r model.ConsultationRecord) {
	fmt.Fprintf(out, "  Commander:   %s\n", orUnset(r.Commander))
	fmt.Fprintf(out, "  Strategy:    %s\n", orUnset(r.Strategy))
	if r.Budget != nil {
		fmt.Fprintf(out, "  Budget:      $%.2f\n", *r.Budget)
	} else {
		fmt.Fprintf(out, "  Budget:      no limit\n")
	}
	if r.PowerLevel != nil {
		fmt.Fprintf(out, "  Power level: %d\n", *r.PowerLevel)
	} else {
		fmt.Fprintf(out, "  Power level: (unset)\n")
	}
	if r.WinConditions != nil {
		fmt.Fprintf(out, "  Win by:      %s\n", r.WinConditions.Primary)
		if len(r.WinConditions.Secondary) > 0 {
			fmt.Fprintf(out, "  Backup:      %s\n", strings.Join(r.WinConditions.Secondary, ", "))
		}
	}
	if r.Interaction != nil {
		fmt.Fprintf(out, "  Interaction: %s", r.Interaction.Level)
		if len(r.Interaction.Types) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(r.Interaction.Types, ", "))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  Complexity:  %s\n", orUnset(r.ComplexityLevel))
	if r.Restrictions != nil {
		if len(r.Restrictions.AvoidStrategies) > 0 {
			fmt.Fprintf(out, "  Avoiding:    %s\n", strings.Join(r.Restrictions.AvoidStrategies, ", "))
		}
		if len(r.Restrictions.PetCards) > 0 {
			fmt.Fprintf(out, "  Pet cards:   %s\n", strings.Join(r.Restrictions.PetCards, ", "))
		}
	}
	if r.Politics != nil && r.Politics.Style != "" {
		fmt.Fprintf(out, "  Politics:    %s\n", r.Politics.Style)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func init() {
	consultCmd.Flags().BoolVar(&consultReset, "reset", false, "discard any saved progress and start over")
	rootCmd.AddCommand(consultCmd)
}
