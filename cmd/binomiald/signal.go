package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals defines the signals to catch in order to do a proper
// shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// shutdownListener listens for OS signals such as SIGINT (Ctrl+C) and returns
// a context that is canceled when one is received.
func shutdownListener() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		sig := <-interruptChannel
		bnmdLog.Infof("Received signal (%s).  Shutting down...", sig)
		cancel()

		// Keep reporting so the user knows shutdown is in progress.
		for sig := range interruptChannel {
			bnmdLog.Infof("Received signal (%s).  Already shutting down...", sig)
		}
	}()
	return ctx
}
