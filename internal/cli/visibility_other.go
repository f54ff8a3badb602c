//go:build !unix

package cli

import (
	"context"

	"github.com/andjpython/Estacionamento-Free/internal/notifier"
)

// watchVisibility is a no-op where SIGUSR1/SIGUSR2 do not exist; use the
// status API's POST /visibility instead.
func watchVisibility(context.Context, *notifier.Notifier) (stop func()) {
	return func() {}
}
