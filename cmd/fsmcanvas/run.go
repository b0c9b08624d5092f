package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ha1tch/fsm-canvas/internal/ui"
	"github.com/ha1tch/fsm-canvas/pkg/fsm"
	"github.com/ha1tch/fsm-canvas/pkg/simulate"
	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Step through a machine interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, meta, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			runner, err := fsm.NewRunner(simulate.PrepareMachine(doc.Graph()).Machine())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "FSM: %s\n", title(args[0], meta))
			fmt.Fprintln(w, "Commands: <symbols>, reset, status, history, inputs, quit")
			fmt.Fprintln(w)
			repl(cmd.InOrStdin(), w, runner)
			return nil
		},
	}
}

// repl feeds lines from in to the runner. Each character of a line that is
// not a command is one input symbol.
func repl(in io.Reader, w io.Writer, runner *fsm.Runner) {
	fmt.Fprintln(w, runner.Status())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit", "q":
			return
		case "reset":
			runner.Reset()
			fmt.Fprintln(w, "Reset to initial state")
			fmt.Fprintln(w, runner.Status())
		case "status":
			fmt.Fprintln(w, runner.Status())
		case "history":
			printHistory(w, runner)
		case "inputs":
			inputs := runner.AvailableInputs()
			if len(inputs) == 0 {
				fmt.Fprintln(w, "No inputs available from current state")
			} else {
				fmt.Fprintf(w, "Available inputs: %s\n", quoteRunes(inputs))
			}
		case "help", "?":
			fmt.Fprintln(w, "Commands:")
			fmt.Fprintln(w, "  <symbols>  - Feed each character to the FSM")
			fmt.Fprintln(w, "  reset      - Reset to initial state")
			fmt.Fprintln(w, "  status     - Show current status")
			fmt.Fprintln(w, "  history    - Show execution history")
			fmt.Fprintln(w, "  inputs     - Show available inputs")
			fmt.Fprintln(w, "  quit       - Exit")
		default:
			for _, r := range line {
				ok, err := runner.Step(r)
				if err != nil {
					fmt.Fprintf(w, "%s %v\n", ui.StatusIcon(false), err)
					break
				}
				if !ok {
					fmt.Fprintf(w, "%s no transition from %s on %q\n", ui.StatusIcon(false), runner.CurrentState(), r)
					break
				}
			}
			fmt.Fprintln(w, runner.Status())
		}
	}
}

func printHistory(w io.Writer, r *fsm.Runner) {
	history := r.History()
	if len(history) == 0 {
		fmt.Fprintln(w, "No history yet")
		return
	}

	fmt.Fprintln(w, "History:")
	for i, step := range history {
		fmt.Fprintf(w, "  %d: %s --%c--> %s\n", i+1, step.FromState, step.Input, step.ToState)
	}
}

func (a *app) simulateCmd() *cobra.Command {
	var local bool
	var url string
	cmd := &cobra.Command{
		Use:   "simulate <file> <tape>",
		Short: "Run a tape through a machine",
		Long: "Run a tape through a machine. The machine is posted to the simulation\n" +
			"service configured under [api], or run in-process with --local.",
		Example: "  fsmcanvas simulate machine.fsmc abba\n  fsmcanvas simulate --local machine.json ''",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			tape := args[1]
			m := simulate.PrepareMachine(doc.Graph())

			var resp simulate.SimulationResponse
			if local {
				resp, err = m.Run(tape)
			} else {
				if url == "" {
					url = a.cfg.API.URL
				}
				client := simulate.NewClient(url, a.cfg.Timeout(), a.logger)
				resp, err = client.Simulate(cmd.Context(), m, tape)
			}
			if err != nil {
				var se *simulate.ServiceError
				if errors.As(err, &se) {
					a.logger.Debug("service error", "status", se.Status, "request_id", se.RequestID)
				}
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("simulation timed out after %s", a.cfg.Timeout())
				}
				return err
			}

			printSimulation(cmd.OutOrStdout(), tape, resp)
			if !resp.Accepted {
				return errRejected
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "simulate in-process instead of calling the service")
	cmd.Flags().StringVar(&url, "url", "", "simulation service URL (default from config)")
	return cmd
}

// errRejected makes a rejected tape exit non-zero.
var errRejected = errors.New("tape rejected")

func printSimulation(w io.Writer, tape string, resp simulate.SimulationResponse) {
	fmt.Fprintf(w, "  %s %q %s\n", ui.StatusIcon(resp.Accepted), tape, ui.Verdict(resp.Accepted))
	fmt.Fprintf(w, "  %s %s\n", ui.Subtle.Sprint("path"), strings.Join(resp.Path, " → "))
	if resp.RemainingInput != "" {
		fmt.Fprintf(w, "  %s %q\n", ui.Subtle.Sprint("remaining"), resp.RemainingInput)
	}
}
