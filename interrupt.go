package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// signalError reports that a command was cancelled by a termination signal.
type signalError struct {
	signal os.Signal
}

func (e signalError) Error() string {
	return fmt.Sprintf("interrupted by %v", e.signal)
}

// interruptible returns a context that is cancelled when a signal arrives on
// the process signal channel. stop releases the listener and waits for it, so
// the channel is free for the session's own listener afterwards.
func (a *app) interruptible(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		select {
		case sig := <-a.env.signals:
			a.env.writer.Warn("received signal, cancelling", "signal", sig)
			cancel(signalError{signal: sig})
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			close(done)
			<-exited
			cancel(nil)
		})
	}
}

// interrupted returns the signal that cancelled ctx, or err when ctx was not
// cancelled by a signal.
func interrupted(ctx context.Context, err error) error {
	var sigErr signalError
	if errors.As(context.Cause(ctx), &sigErr) {
		return sigErr
	}
	return err
}
