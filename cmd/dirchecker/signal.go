package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// SIGPIPE is swallowed so a closed stdout does not kill a long hash run.
func signalContext(parent context.Context, stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)

	go func() {
		for {
			select {
			case sig := <-sigChan:
				if sig == syscall.SIGPIPE {
					continue
				}
				fmt.Fprintf(stderr, "\nReceived signal: %v\n", sig)
				fmt.Fprintf(stderr, "Initiating graceful shutdown...\n")
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
