package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/session"
)

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log the operator or the supervisor out",
	}
	cmd.AddCommand(newLogoutStaffCmd(), newLogoutSupervisorCmd())
	return cmd
}

func newLogoutStaffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "staff",
		Short: "Log the remembered operator out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				env, err := gw.LogoutStaff(ctx)
				if errors.Is(err, session.ErrNotLoggedIn) {
					return fmt.Errorf("no operator is logged in")
				}
				if err != nil {
					return err
				}
				if !env.OK {
					return fmt.Errorf("logout failed: %s", env.Message())
				}
				printMessage(cmd, env.Message(), "Operator logged out")
				return nil
			})
		},
	}
}

func newLogoutSupervisorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supervisor",
		Short: "End the supervisor session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				if !gw.State().SupervisorActive {
					return fmt.Errorf("no supervisor session")
				}
				env, err := gw.LogoutSupervisor(ctx)
				if err != nil {
					return err
				}
				if env == nil {
					return session.ErrSessionInvalid
				}
				if !env.OK {
					return fmt.Errorf("logout failed: %s", env.Message())
				}
				printMessage(cmd, env.Message(), "Supervisor logged out")
				return nil
			})
		},
	}
}
