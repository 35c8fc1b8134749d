package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultReloadDelay debounces bursts of file events into one reload.
const DefaultReloadDelay = 500 * time.Millisecond

// Snapshot holds the active configuration. Readers always see a complete,
// immutable *Config; reloads replace it atomically.
type Snapshot struct {
	current atomic.Pointer[Config]
	version atomic.Uint64
}

// NewSnapshot creates a snapshot holding cfg.
func NewSnapshot(cfg *Config) *Snapshot {
	s := &Snapshot{}
	s.Store(cfg)
	return s
}

// Load returns the active configuration.
func (s *Snapshot) Load() *Config {
	return s.current.Load()
}

// Store replaces the active configuration.
func (s *Snapshot) Store(cfg *Config) {
	s.current.Store(cfg)
	s.version.Add(1)
}

// Version counts the stores made so far.
func (s *Snapshot) Version() uint64 {
	return s.version.Load()
}

// Watcher reloads configuration files when they change and swaps the
// snapshot on success. A failed reload keeps the previous configuration.
type Watcher struct {
	loader   *Loader
	snapshot *Snapshot
	paths    []string
	logger   zerolog.Logger
	delay    time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	onReload []func(*ParsedConfig, error)
}

// NewWatcher creates a watcher for the given configuration sources.
func NewWatcher(loader *Loader, snapshot *Snapshot, paths []string, logger zerolog.Logger) *Watcher {
	return &Watcher{
		loader:   loader,
		snapshot: snapshot,
		paths:    paths,
		logger:   logger.With().Str("component", "config-watcher").Logger(),
		delay:    DefaultReloadDelay,
	}
}

// SetDelay changes the debounce delay. It must be called before Start.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// OnReload registers fn to be called after every reload attempt.
func (w *Watcher) OnReload(fn func(*ParsedConfig, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Start begins watching. Parent directories are watched so that editors
// replacing files atomically still trigger a reload. Watching stops when ctx
// is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("Failed to stat path for watching")
			continue
		}
		dir := p
		if !info.IsDir() {
			dir = filepath.Dir(p)
		}
		dirs[dir] = struct{}{}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("path", dir).Msg("Failed to watch directory")
		}
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	go w.processEvents(ctx, watcher)

	w.logger.Info().
		Int("paths", len(w.paths)).
		Msg("Started watching configuration")

	return nil
}

// Reload loads the configuration now and swaps the snapshot on success.
func (w *Watcher) Reload(ctx context.Context) error {
	parsed, err := w.loader.Load(ctx, w.paths...)

	var files []string
	var warnings int
	if parsed != nil {
		files = parsed.SourceFiles
		warnings = len(parsed.Warnings())
	}
	telemetry.RecordConfigReload(ctx, files, warnings, err)

	if err == nil {
		w.snapshot.Store(parsed.Config)
		w.logger.Info().
			Uint64("version", w.snapshot.Version()).
			Int("warnings", len(parsed.Warnings())).
			Msg("Configuration reloaded")
	} else {
		w.logger.Error().Err(err).Msg("Configuration reload failed, keeping previous configuration")
	}

	w.mu.Lock()
	callbacks := append([]func(*ParsedConfig, error){}, w.onReload...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(parsed, err)
	}

	return err
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !w.watches(event.Name) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Configuration file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.delay, func() {
				_ = w.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// watches reports whether a changed file belongs to the configured sources.
func (w *Watcher) watches(name string) bool {
	clean := filepath.Clean(name)
	for _, p := range w.paths {
		p = filepath.Clean(p)
		if clean == p {
			return true
		}
		if filepath.Dir(clean) == p && (strings.HasSuffix(clean, ".yaml") || strings.HasSuffix(clean, ".yml")) {
			return true
		}
	}
	return false
}
