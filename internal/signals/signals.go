// Package signals turns OS signals into reactive streams: a one-shot stream
// for shutdown and a repeating stream for configuration reloads.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// ReloadSignals are the OS signals that trigger a configuration reload.
var ReloadSignals = []os.Signal{
	syscall.SIGHUP,
}

// Shutdown creates an Observable that emits the first shutdown signal
// received and then completes.
func Shutdown() ro.Observable[os.Signal] {
	return Once(ShutdownSignals...)
}

// Once creates an Observable that emits the first of the given signals and
// then completes. The subscription errors if its context ends first.
func Once(signals ...os.Signal) ro.Observable[os.Signal] {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		stop := make(chan struct{})
		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			case <-stop:
			}
		}()

		return func() {
			signal.Stop(ch)
			close(stop)
		}
	})
}

// Repeat creates an Observable that emits every one of the given signals
// until the subscription's context ends. It never completes on its own.
func Repeat(signals ...os.Signal) ro.Observable[os.Signal] {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		stop := make(chan struct{})
		go func() {
			for {
				select {
				case sig := <-ch:
					observer.NextWithContext(ctx, sig)
				case <-ctx.Done():
					observer.CompleteWithContext(ctx)
					return
				case <-stop:
					return
				}
			}
		}()

		return func() {
			signal.Stop(ch)
			close(stop)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal is received or ctx is
// canceled. It returns the received signal, or ctx's error.
func WaitForShutdown(ctx context.Context) (os.Signal, error) {
	return wait(ctx, Shutdown())
}

func wait(ctx context.Context, obs ro.Observable[os.Signal]) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, obs)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// OnReload calls callback for every reload signal until ctx ends or the
// returned subscription is unsubscribed. Callbacks run sequentially.
func OnReload(ctx context.Context, callback func(context.Context, os.Signal)) ro.Subscription {
	return OnSignals(ctx, callback, ReloadSignals...)
}

// OnSignals calls callback for every one of the given signals.
func OnSignals(ctx context.Context, callback func(context.Context, os.Signal), signals ...os.Signal) ro.Subscription {
	return Repeat(signals...).SubscribeWithContext(ctx, ro.OnNextWithContext(func(ctx context.Context, sig os.Signal) {
		callback(ctx, sig)
	}))
}
