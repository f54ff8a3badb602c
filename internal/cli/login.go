package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/session"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log an operator or the supervisor in",
	}
	cmd.AddCommand(newLoginStaffCmd(), newLoginSupervisorCmd())
	return cmd
}

func newLoginStaffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "staff <badge>",
		Short: "Log an operator in by 4-digit badge number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				env, err := gw.LoginStaff(ctx, args[0])
				if errors.Is(err, session.ErrInvalidBadge) {
					return fmt.Errorf("badge must be exactly 4 digits")
				}
				if err != nil {
					return err
				}
				if !env.OK {
					return fmt.Errorf("login failed: %s", env.Message())
				}
				printMessage(cmd, env.Message(), "Operator logged in")
				return nil
			})
		},
	}
}

func newLoginSupervisorCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "supervisor",
		Short: "Log the supervisor in and store the bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Supervisor password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}

			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				env, err := gw.LoginSupervisor(ctx, password)
				if err != nil {
					return err
				}
				if !gw.State().SupervisorActive {
					return fmt.Errorf("login failed: %s", env.Message())
				}
				printMessage(cmd, env.Message(), "Supervisor logged in")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Supervisor password (prompted if omitted)")
	return cmd
}
