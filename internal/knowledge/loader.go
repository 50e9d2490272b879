// Package knowledge loads the static knowledge document used as grounding for AI answers.
package knowledge

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/hyperjump/oboji/internal/extract"
	"github.com/hyperjump/oboji/internal/watcher"
	"go.uber.org/zap"
)

// Loader reads the knowledge document. By default every Text call reads the file again,
// so edits take effect immediately. With caching enabled the last successful read is
// reused until Invalidate is called, which Watch does on every change to the file.
type Loader struct {
	path   string
	read   func(path string) (string, error)
	logger *zap.Logger
	cache  bool

	mu     sync.Mutex
	cached *string
	gen    uint64 // bumped by Invalidate
	reads  int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithCache keeps the document in memory after the first successful read.
func WithCache(enabled bool) LoaderOption {
	return func(ld *Loader) { ld.cache = enabled }
}

// NewLoader returns a loader for the document at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	ld := &Loader{
		path:   path,
		read:   extract.NewExtractor().Extract,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Path returns the document path.
func (ld *Loader) Path() string { return ld.path }

// Text returns the document text. It never fails: a missing file or an
// extraction error yields an empty string.
func (ld *Loader) Text(_ context.Context) string {
	var gen uint64
	if ld.cache {
		ld.mu.Lock()
		if ld.cached != nil {
			s := *ld.cached
			ld.mu.Unlock()
			return s
		}
		gen = ld.gen
		ld.mu.Unlock()
	}

	text, err := ld.read(ld.path)
	ld.mu.Lock()
	ld.reads++
	ld.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ld.logger.Debug("knowledge document not found", zap.String("path", ld.path))
		} else {
			ld.logger.Warn("knowledge document unreadable", zap.String("path", ld.path), zap.Error(err))
		}
		return ""
	}
	if ld.cache {
		ld.mu.Lock()
		// an Invalidate during the read means text may already be stale
		if ld.gen == gen {
			ld.cached = &text
		}
		ld.mu.Unlock()
	}
	return text
}

// Invalidate drops the cached document, if any.
func (ld *Loader) Invalidate() {
	ld.mu.Lock()
	ld.cached = nil
	ld.gen++
	ld.mu.Unlock()
}

// Reads returns how many times the file has been read.
func (ld *Loader) Reads() int {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.reads
}

// Watch invalidates the cache whenever the document changes or is removed,
// until ctx is cancelled. The returned watcher may be stopped early with Stop.
func (ld *Loader) Watch(ctx context.Context, opts ...watcher.WatcherOption) (*watcher.Watcher, error) {
	invalidate := func(path string) {
		ld.logger.Info("knowledge document changed, reloading on next use", zap.String("path", path))
		ld.Invalidate()
	}
	w := watcher.NewWatcher([]string{ld.path}, invalidate, invalidate, opts...)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
