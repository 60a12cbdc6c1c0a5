package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/extkit/internal/config"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/wallet"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string

	// Ready, if set, receives the bound address once the server listens.
	Ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured local ledger over HTTP",
		Long: `Expose the configured local ledger (memory, sqlite or bolt) over HTTP.

Reads are open. Writes must be signed by the owner key: server.owner from
the config, or the local wallet when it is empty. Point other machines at
it with backend = "http".

Example:
  extkit serve --listen 127.0.0.1:8545`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	e, err := newEnv(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Ledger.Backend == config.BackendHTTP && opts.Ledger == nil {
		return e.out.Fail("cannot serve", configError(errors.New("ledger.backend is http; serve needs a local backend")))
	}

	owner, err := serverOwner(e)
	if err != nil {
		return e.out.Fail("failed to determine ledger owner", err)
	}

	backend, err := e.openBackend()
	if err != nil {
		return e.out.Fail("failed to open ledger", err)
	}

	listen := opts.Listen
	if listen == "" {
		listen = e.cfg.Server.Listen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return e.out.Fail("failed to listen", err)
	}

	srv := &http.Server{
		Handler:           ledger.NewServer(backend, owner, ledger.WithServerLogger(e.logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	slog.Info("ledger server listening", "addr", addr, "owner", owner.Address(), "backend", e.cfg.Ledger.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "Ledger listening on http://%s\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	select {
	case err := <-errc:
		return e.out.Fail("server error", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down ledger server")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}

func serverOwner(e *env) (wallet.PublicKey, error) {
	if e.cfg.Server.Owner != "" {
		pk, err := wallet.ParsePublicKey(e.cfg.Server.Owner)
		if err != nil {
			return nil, configError(fmt.Errorf("server.owner: %w", err))
		}
		return pk, nil
	}
	key, err := e.loadKey()
	if err != nil {
		return nil, err
	}
	return key.PublicKey(), nil
}
