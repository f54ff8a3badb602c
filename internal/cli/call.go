package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andjpython/Estacionamento-Free/internal/session"
)

func newCallCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "call <method> <path>",
		Short: "Make an authenticated call and print the result envelope",
		Long: "call sends a request with the stored supervisor token, retrying transient failures.\n" +
			"An expired or rejected token clears the session and exits with an error.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			path := args[1]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			var body any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return fmt.Errorf("parse --data: %w", err)
				}
			} else if method != http.MethodGet && method != http.MethodHead {
				body = map[string]any{}
			}

			return withGateway(cmd, func(ctx context.Context, gw *session.Gateway) error {
				env := gw.AuthenticatedCall(ctx, method, path, body)
				if env == nil {
					return session.ErrSessionInvalid
				}
				out, err := json.MarshalIndent(env, "", "  ")
				if err != nil {
					return fmt.Errorf("encode envelope: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				if !env.OK {
					return fmt.Errorf("call failed: %s", env.Message())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}
