// Package watch exposes the watcher handle referenced from the Plugin
// Context; the handle is absent under one-shot builds. The reactor loop that
// decides what to rebuild in response to a change lives outside the bundler
// core; this package only implements the handle plugins and the Graph are
// allowed to hold.
package watch

import "github.com/fsnotify/fsnotify"

// Reactor is the capability a Plugin Context's watcher field exposes. It is
// present only when a Build was created under watch mode; one-shot builds
// leave PluginContext.Watcher nil.
type Reactor struct {
	w *fsnotify.Watcher
}

// New creates a reactor backed by a real fsnotify watcher.
func New() (*Reactor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Reactor{w: w}, nil
}

// AddFile registers a path (file or directory) with the underlying watcher,
// the way a plugin's resolveId/load hook requests to be woken on change by
// returning watchFiles/watchDirs.
func (r *Reactor) AddFile(path string) error {
	return r.w.Add(path)
}

// Events exposes the raw fsnotify event stream so an external reactor can
// consume it; the core does not interpret these events itself.
func (r *Reactor) Events() <-chan fsnotify.Event {
	return r.w.Events
}

// Errors exposes the raw fsnotify error stream.
func (r *Reactor) Errors() <-chan error {
	return r.w.Errors
}

// Close releases the underlying OS watch handles.
func (r *Reactor) Close() error {
	return r.w.Close()
}
