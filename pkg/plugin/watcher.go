package plugin

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Event reports one definition file change observed by the Watcher. Err is
// set when the changed file failed to load or validate.
type Event struct {
	Path string
	Def  *Definition
	Err  error
}

// Watcher monitors a definitions directory and reloads files as they are
// created or modified. It backs the `scans validate --watch` surface so
// authors get feedback while editing definitions.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
}

// NewWatcher creates a watcher for the given definitions directory.
func NewWatcher(dir string, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		dir:     dir,
		watcher: fw,
		logger:  logger.With().Str("component", "plugin.watcher").Logger(),
	}, nil
}

// Start begins watching and returns a channel of load events. The channel
// is closed when the context is cancelled or the underlying watcher stops.
func (w *Watcher) Start(ctx context.Context) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !eligibleExt(ev.Name) {
					continue
				}
				def, err := Load(ev.Name)
				if err != nil {
					w.logger.Warn().Err(err).Str("file", ev.Name).Msg("definition failed to load")
				} else {
					w.logger.Info().Str("file", ev.Name).Str("scan", def.Name).Msg("definition loaded")
				}
				select {
				case events <- Event{Path: ev.Name, Def: def, Err: err}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error().Err(err).Msg("watch error")
			}
		}
	}()

	return events
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func eligibleExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
