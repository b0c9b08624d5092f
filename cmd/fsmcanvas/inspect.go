package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ha1tch/fsm-canvas/internal/ui"
	"github.com/ha1tch/fsm-canvas/pkg/fsm"
	"github.com/ha1tch/fsm-canvas/pkg/graphfile"
	"github.com/ha1tch/fsm-canvas/pkg/simulate"
	"github.com/spf13/cobra"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show states, transitions and machine analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, meta, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			ui.Banner(w, title(args[0], meta))
			printInfo(w, doc, meta)
			printAnalysis(w, doc)
			return nil
		},
	}
}

func printInfo(w io.Writer, doc graphfile.Document, meta graphfile.Meta) {
	m := simulate.PrepareMachine(doc.Graph())

	field := func(name, value string) {
		fmt.Fprintf(w, "  %s  %s\n", ui.Info.Sprintf("%-12s", name), value)
	}
	if meta.Description != "" {
		field("Description", meta.Description)
	}
	if !meta.Saved.IsZero() {
		field("Saved", meta.Saved.Format("2006-01-02 15:04"))
	}
	field("States", fmt.Sprint(len(doc.States)))
	field("Transitions", fmt.Sprint(len(doc.Transitions)))
	start := "(none)"
	if m.Start != "" {
		start = m.Start
	}
	field("Start", start)
	var accepting []string
	for _, s := range m.States {
		if s.Ending {
			accepting = append(accepting, s.Id)
		}
	}
	field("Accepting", strings.Join(accepting, " "))
	field("Alphabet", strings.Join(strings.Split(m.Alphabet, ""), " "))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(doc.States))
	for _, s := range doc.States {
		ending := "no"
		if s.Ending {
			ending = "yes"
		}
		rows = append(rows, []string{s.ID.String(), ending, s.Location.String()})
	}
	ui.Table(w, []string{"STATE", "ENDING", "LOCATION"}, rows)
	if len(rows) > 0 {
		fmt.Fprintln(w)
	}

	rows = rows[:0]
	for _, t := range doc.Transitions {
		symbol := t.Symbol
		if symbol == "" {
			symbol = "(unlabelled)"
		}
		rows = append(rows, []string{t.ID.String(), t.Start.State, t.End.State, symbol})
	}
	ui.Table(w, []string{"TRANSITION", "FROM", "TO", "SYMBOL"}, rows)
	if len(rows) > 0 {
		fmt.Fprintln(w)
	}
}

// machineWarnings lists what would stop or surprise a simulation of doc.
// The machine is returned when it is runnable.
func machineWarnings(doc graphfile.Document) ([]string, *fsm.FSM) {
	var warnings []string
	unlabelled := 0
	for _, t := range doc.Transitions {
		if t.Symbol == "" {
			unlabelled++
		}
	}
	if unlabelled > 0 {
		warnings = append(warnings, fmt.Sprintf("%d unlabelled transition(s) are ignored when simulating", unlabelled))
	}

	f := simulate.PrepareMachine(doc.Graph()).Machine()
	if err := f.Validate(); err != nil {
		return append(warnings, "not runnable: "+err.Error()), nil
	}
	if states := f.NonDeterministicStates(); len(states) > 0 {
		warnings = append(warnings, "nondeterministic states: "+strings.Join(states, ", "))
	}
	if states := f.UnreachableStates(); len(states) > 0 {
		warnings = append(warnings, "unreachable states: "+strings.Join(states, ", "))
	}
	if states := f.DeadStates(); len(states) > 0 {
		warnings = append(warnings, "dead states: "+strings.Join(states, ", "))
	}
	return warnings, f
}

func printAnalysis(w io.Writer, doc graphfile.Document) {
	warnings, f := machineWarnings(doc)
	for _, msg := range warnings {
		fmt.Fprintf(w, "  %s %s\n", ui.WarnIcon(), msg)
	}
	if f == nil {
		return
	}

	incomplete := f.IncompleteStates()
	if len(incomplete) == 0 {
		if len(warnings) == 0 {
			fmt.Fprintf(w, "  %s complete deterministic machine\n", ui.StatusIcon(true))
		}
		return
	}
	states := make([]string, 0, len(incomplete))
	for s := range incomplete {
		states = append(states, s)
	}
	sort.Strings(states)
	for _, s := range states {
		fmt.Fprintf(w, "  %s %s has no move on %s\n", ui.Subtle.Sprint("·"), s, quoteRunes(incomplete[s]))
	}
}

func quoteRunes(rs []rune) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%q", r)
	}
	return strings.Join(parts, " ")
}

func (a *app) validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a graph file for dangling references and machine problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if err := doc.Validate(); err != nil {
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(w, "  %s %s\n", ui.StatusIcon(false), line)
				}
				return fmt.Errorf("%s: invalid graph", args[0])
			}

			warnings, _ := machineWarnings(doc)
			for _, msg := range warnings {
				fmt.Fprintf(w, "  %s %s\n", ui.WarnIcon(), msg)
			}
			if strict && len(warnings) > 0 {
				return errors.New(args[0] + ": machine has warnings")
			}
			fmt.Fprintf(w, "  %s %s: valid graph with %d states, %d transitions\n",
				ui.StatusIcon(true), args[0], len(doc.States), len(doc.Transitions))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat machine warnings as errors")
	return cmd
}
