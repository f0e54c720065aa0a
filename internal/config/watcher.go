package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeCallback is called once per debounced change of the watched file.
// The file is not read by the watcher; the callback typically triggers a
// reload, which fetches and validates the file itself so a broken edit
// surfaces as a misconfiguration.
type ChangeCallback func(ctx context.Context) error

// ErrWatcherClosed is returned by Close on an already closed watcher.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// defaultDebounce absorbs the burst of events editors emit per save.
const defaultDebounce = 100 * time.Millisecond

// Watcher reports changes of one config file. The parent directory is
// watched so replace-by-rename saves are seen too.
//
// Changes are delivered from a single goroutine. Events arriving while a
// callback runs collapse into one pending delivery, so a slow reload is
// followed by at most one more.
type Watcher struct {
	fs        *fsnotify.Watcher
	pending   chan struct{}
	done      chan struct{}
	path      string
	callbacks []ChangeCallback
	debounce  time.Duration
	mu        sync.Mutex
	closed    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must stay quiet before a change
// is delivered. Default is 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		if closeErr := fs.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close fsnotify watcher")
		}
		return nil, err
	}

	w := &Watcher{
		fs:       fs,
		path:     abs,
		debounce: defaultDebounce,
		pending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// OnChange registers a callback. Callbacks run in registration order.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch blocks until ctx is canceled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.deliver(ctx)
	}()
	defer wg.Wait()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !relevant(event, name) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.markPending)
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("path", w.path).Msg("config watcher error")
		}
	}
}

// relevant keeps writes and creates of the watched file. Chmod noise from
// indexers is dropped.
func relevant(event fsnotify.Event, name string) bool {
	if filepath.Base(event.Name) != name {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) markPending() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) deliver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.pending:
		}

		log.Info().Str("path", w.path).Msg("config file changed")

		w.mu.Lock()
		callbacks := append([]ChangeCallback(nil), w.callbacks...)
		w.mu.Unlock()

		for _, cb := range callbacks {
			if err := cb(ctx); err != nil {
				log.Error().Err(err).Str("path", w.path).Msg("config change callback failed")
			}
		}
	}
}

// Close stops watching and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	close(w.done)
	return w.fs.Close()
}
