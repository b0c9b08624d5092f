// Command fsmcanvas draws, checks and simulates finite state machines.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ha1tch/fsm-canvas/internal/config"
	"github.com/ha1tch/fsm-canvas/internal/ui"
	"github.com/ha1tch/fsm-canvas/pkg/graphfile"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		ui.Bad.Fprintf(os.Stderr, "fsmcanvas: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	level  slog.Level

	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fsmcanvas",
		Short: "fsmcanvas - draw, check and simulate finite state machines",
		Long: ui.Brand.Sprint("fsmcanvas") + " - draw, check and simulate finite state machines\n" +
			ui.Subtle.Sprint("Edit graphs in the terminal, export diagrams and run tapes locally or remotely"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.SetVersionTemplate("fsmcanvas {{ .Version }}\n")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.Path()+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.editCmd(),
		a.infoCmd(),
		a.validateCmd(),
		a.convertCmd(),
		a.dotCmd(),
		a.exportCmd(),
		a.runCmd(),
		a.simulateCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(stderr io.Writer) error {
	if a.configPath != "" {
		cfg, err := config.LoadFrom(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := a.level.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: a.level}))
	return nil
}

// loadDocument reads a graph from a JSON file or bundle.
func (a *app) loadDocument(path string) (graphfile.Document, graphfile.Meta, error) {
	doc, meta, err := graphfile.ReadFile(path)
	if err != nil {
		return graphfile.Document{}, graphfile.Meta{}, fmt.Errorf("load %s: %w", path, err)
	}
	a.logger.Debug("loaded", "path", path, "states", len(doc.States), "transitions", len(doc.Transitions))
	return doc, meta, nil
}

// title picks a diagram title: the bundle name, else the file name.
func title(path string, meta graphfile.Meta) string {
	if meta.Name != "" {
		return meta.Name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// swapExt replaces the extension of path.
func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
