package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/session"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				state := gw.State()
				out := cmd.OutOrStdout()
				if !state.LoggedIn() {
					fmt.Fprintln(out, "Nobody is logged in.")
					return nil
				}

				operator := state.Operator
				if operator == "" {
					operator = "(none)"
				}
				fmt.Fprintf(out, "Operator:   %s\n", operator)
				if !state.SupervisorActive {
					fmt.Fprintln(out, "Supervisor: not logged in")
					return nil
				}
				fmt.Fprintln(out, "Supervisor: logged in")
				if token, ok, err := gw.Token(ctx); err == nil && ok {
					if claims, err := gw.Validator().Inspect(token); err == nil && claims.Name != "" {
						fmt.Fprintf(out, "  Name:     %s\n", claims.Name)
					}
				}
				if !state.TokenExpiry.IsZero() {
					fmt.Fprintf(out, "  Expires:  %s (in %s)\n",
						state.TokenExpiry.Local().Format(time.RFC3339),
						time.Until(state.TokenExpiry).Round(time.Second))
				}
				return nil
			})
		},
	}
}
