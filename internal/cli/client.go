package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/session"
	"github.com/andjpython/Estacionamento-Free/internal/store"
	"github.com/andjpython/Estacionamento-Free/internal/transport"
)

// newFetcher builds the resilient fetcher for the configured backend.
func newFetcher() *transport.Fetcher {
	tc := transport.DefaultConfig(cfg.ServerURL()).
		WithRetries(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay).
		WithTimeout(cfg.RequestTimeout)
	return transport.NewFetcher(tc, logger, clock.Real())
}

// withGateway opens the state store, restores the session and runs fn with
// a gateway bound to it. The store is closed when fn returns.
func withGateway(cmd *cobra.Command, fn func(ctx context.Context, gw *session.Gateway) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer st.Close()

	out := cmd.ErrOrStderr()
	gw := session.New(session.Options{
		Fetcher: newFetcher(),
		Store:   st,
		Clock:   clock.Real(),
		Navigator: session.NavigatorFunc(func(route string) {
			fmt.Fprintf(out, "-> %s\n", route)
		}),
		CSRFToken: cfg.CSRFToken,
		Logger:    logger,
	})
	if _, err := gw.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return fn(ctx, gw)
}
