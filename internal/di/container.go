// Package di wires the hotswap services together with samber/do v2.
//
// Services are lazy singletons. Resolving ServerService pulls in the whole
// graph: config, loggers, metrics, the App with its dispatcher and store,
// then the HTTP server around the base router.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
)

// ConfigPathKey names the config file path value in the injector.
const ConfigPathKey = "config.path"

// Container owns the injector for one process run.
type Container struct {
	injector *do.RootScope
}

// NewContainer registers every provider for the config file at configPath.
// Nothing is built until the first Invoke.
func NewContainer(configPath string) *Container {
	injector := do.New()
	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	RegisterSingletons(injector)
	return &Container{injector: injector}
}

// Injector exposes the root scope.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service or panics. Startup only.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// InvokeNamed resolves a named value.
func InvokeNamed[T any](c *Container, name string) (T, error) {
	return do.InvokeNamed[T](c.injector, name)
}

// Shutdown stops every built service in reverse build order: the server
// first, then the App's cache, then the config watcher.
func (c *Container) Shutdown() error {
	return reportErr(c.injector.Shutdown())
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- reportErr(c.injector.ShutdownWithContext(ctx))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("di: shutdown timed out: %w", ctx.Err())
	}
}

func reportErr(report *do.ShutdownReport) error {
	if report == nil || report.Succeed {
		return nil
	}
	return fmt.Errorf("di: shutdown failed: %s", report.Error())
}
