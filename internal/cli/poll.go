package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/notifier"
	"github.com/andjpython/Estacionamento-Free/internal/session"
	"github.com/andjpython/Estacionamento-Free/internal/statusapi"
)

// newNotifier builds a notifier that renders to the command's stdout.
func newNotifier(cmd *cobra.Command, bell bool) *notifier.Notifier {
	var cue notifier.Cue = notifier.NopCue{}
	if bell {
		cue = notifier.BellCue{W: cmd.OutOrStdout()}
	}
	return notifier.New(newFetcher(), clock.Real(), notifier.Options{
		ActiveInterval:     cfg.Notifier.ActiveInterval,
		BackgroundInterval: cfg.Notifier.BackgroundInterval,
		Cue:                cue,
		Views:              []notifier.View{notifier.NewTextView(cmd.OutOrStdout())},
		Logger:             logger,
	})
}

func newPollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Check once for vehicles over their time limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n := newNotifier(cmd, false)
			if err := n.Poll(ctx); err != nil {
				return err
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		hidden     bool
		noBell     bool
		statusAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for vehicles over their time limit until interrupted",
		Long: "watch polls every active interval while visible and every background interval while hidden.\n" +
			"SIGUSR1 marks the display hidden and SIGUSR2 visible; POST /visibility on the status API does the same.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			if !cmd.Flags().Changed("status-addr") {
				statusAddr = cfg.StatusAddr
			}

			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				n := newNotifier(cmd, cfg.Notifier.Bell && !noBell)
				n.Start(ctx)
				defer n.Stop()
				if hidden {
					n.SetVisibility(true)
				}

				stopSignals := watchVisibility(ctx, n)
				defer stopSignals()

				errCh := make(chan error, 1)
				if statusAddr != "" {
					srv := statusapi.New(n, gw, logger)
					go func() { errCh <- srv.ListenAndServe(ctx, statusAddr) }()
				}

				select {
				case <-ctx.Done():
					logger.Info("watch interrupted")
					return nil
				case err := <-errCh:
					if err != nil && !errors.Is(err, context.Canceled) {
						return fmt.Errorf("status API: %w", err)
					}
					return nil
				}
			})
		},
	}

	cmd.Flags().BoolVar(&hidden, "hidden", false, "Start in background cadence")
	cmd.Flags().BoolVar(&noBell, "no-bell", false, "Do not ring the terminal bell on new alerts")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Serve the status API on this address (e.g. 127.0.0.1:8089)")
	return cmd
}
