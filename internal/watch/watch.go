// Package watch reloads a document when its file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 50 * time.Millisecond

var (
	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

	// ErrNilTarget indicates no document was given to reload.
	ErrNilTarget = errors.New("reload target is required")
)

// Target receives the new file contents.
type Target interface {
	SetText(text string)
}

// Event reports one reload.
type Event struct {
	Path  string
	Bytes int
	Time  time.Time
	// Err is set when the file could not be read. The target keeps its
	// previous text.
	Err error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last filesystem event
// before the file is read.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches one file.
type Watcher struct {
	path     string
	target   Target
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	events   chan Event
}

// New creates a watcher for path. The parent directory is watched so that
// editors which save by renaming a temporary file are still seen.
func New(path string, target Target, opts ...Option) (*Watcher, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	w := &Watcher{
		path:     abs,
		target:   target,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		watcher:  fw,
		events:   make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Events returns the reload notifications. Events are dropped when the
// channel is full.
func (w *Watcher) Events() <-chan Event { return w.events }

// Run processes filesystem events until ctx is done. It closes the
// underlying watcher and the events channel on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer func() { _ = w.watcher.Close() }()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.String("path", w.path), zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	evt := Event{Path: w.path, Time: time.Now()}
	data, err := os.ReadFile(w.path)
	if err != nil {
		evt.Err = fmt.Errorf("reading %s: %w", w.path, err)
		w.logger.Debug("reload skipped", zap.String("path", w.path), zap.Error(err))
	} else {
		evt.Bytes = len(data)
		w.target.SetText(string(data))
		w.logger.Debug("document reloaded", zap.String("path", w.path), zap.Int("bytes", len(data)))
	}
	select {
	case w.events <- evt:
	default:
	}
}
