//go:build unix

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andjpython/Estacionamento-Free/internal/notifier"
)

// watchVisibility maps SIGUSR1 to hidden and SIGUSR2 to visible until ctx
// ends or the returned stop function is called.
func watchVisibility(ctx context.Context, n *notifier.Notifier) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case sig := <-ch:
				n.SetVisibility(sig == syscall.SIGUSR1)
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
