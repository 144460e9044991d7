package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to the configuration document.
//
// Configuration is read exactly once per process; a change to the file on
// disk is detected and logged, but never reloaded. The operator restarts
// the process to apply it.
type Holder struct {
	mu      sync.RWMutex
	doc     *Document
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
}

// NewHolder loads and validates the configuration file at path.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		doc:    doc,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the configuration document.
func (h *Holder) Get() *Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.doc
}

// Path returns the absolute path of the loaded file.
func (h *Holder) Path() string {
	return h.path
}

// WatchFile starts watching the config file. A modification logs a
// restart-required notice.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory; editors that save atomically replace the file.
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals listens for SIGHUP. Since configuration is read once, a
// SIGHUP logs the same restart-required notice instead of reloading.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Warn().
					Str("path", h.path).
					Msg("SIGHUP received; configuration is read at startup only, restart to apply changes")
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

func (h *Holder) watchLoop() {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				h.logger.Warn().
					Str("path", h.path).
					Str("op", event.Op.String()).
					Msg("config file changed on disk; restart to apply changes")
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops watching.
func (h *Holder) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}
