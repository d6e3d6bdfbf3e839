package graceful

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Context returns a child of ctx that is canceled on SIGINT or SIGTERM. The
// signal handler is released once the returned context is done.
func Context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			log.Printf("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
