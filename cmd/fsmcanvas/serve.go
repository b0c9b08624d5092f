package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ha1tch/fsm-canvas/internal/config"
	"github.com/ha1tch/fsm-canvas/internal/tui"
	"github.com/ha1tch/fsm-canvas/pkg/simulate"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the /simulate endpoint",
		Long: "Serve the /simulate endpoint, running posted machines in-process.\n" +
			"Point [api] url at it to simulate from the editor.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving http://%s/simulate\n", ln.Addr())
			return serve(cmd.Context(), ln, simulate.NewMux(simulate.NewHandler(a.logger)), a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// serve runs h on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, a *app) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	a.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) editCmd() *cobra.Command {
	var local bool
	var logFile string
	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a graph in the terminal",
		Long: "Edit a graph in the terminal. Click to add states, drag a state's\n" +
			"rim onto another state to link them, and press x to run a tape.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the editor, so logs go to a file or nowhere.
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: a.level}))
			}
			a.logger = logger

			opts := tui.Options{Config: a.cfg, ConfigPath: a.configPath, Logger: logger}
			if opts.ConfigPath == "" {
				opts.ConfigPath = config.Path()
			}
			if len(args) == 1 {
				opts.Path = args[0]
				doc, _, err := a.loadDocument(args[0])
				switch {
				case err == nil:
					opts.Document = &doc
				case errors.Is(err, fs.ErrNotExist):
					a.logger.Info("new file", "path", args[0])
				default:
					return err
				}
			}
			if !local {
				opts.Simulator = simulate.NewClient(a.cfg.API.URL, a.cfg.Timeout(), a.logger)
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("creating screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("initializing screen: %w", err)
			}
			defer screen.Fini()
			screen.EnableMouse()
			screen.Clear()

			tui.New(screen, opts).Run()
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "run tapes in-process instead of calling the service")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while editing")
	return cmd
}
