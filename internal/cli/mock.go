package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/mockbackend"
	"github.com/andjpython/Estacionamento-Free/internal/store"
)

func newMockBackendCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Run a local development backend",
		Long: "mock-backend serves the login, logout and /tempo-excedido endpoints with the\n" +
			"configured supervisor password, JWT secret and staff badges.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("addr") {
				addr = cfg.Mock.Addr
			}
			opts := mockbackend.OptionsFromConfig(cfg.Mock)
			opts.Store = store.NewMemoryStore()
			opts.Logger = logger
			return mockbackend.New(opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :5000)")
	return cmd
}
