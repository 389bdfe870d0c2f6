package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
)

// LogWatcher reports changes to build and run log files
type LogWatcher struct {
	watcher   *fsnotify.Watcher
	paths     []string
	events    chan model.FileEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewLogWatcher watches every directory under paths
func NewLogWatcher(paths []string) (*LogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	lw := &LogWatcher{
		watcher: watcher,
		paths:   paths,
		events:  make(chan model.FileEvent, 100),
		done:    make(chan struct{}),
	}

	for _, path := range paths {
		if err := lw.addPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go lw.processEvents()

	return lw, nil
}

func (lw *LogWatcher) addPath(path string) error {
	// Recursively add directories
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return lw.watcher.Add(p)
		}
		return nil
	})
}

func (lw *LogWatcher) processEvents() {
	defer close(lw.events)
	for {
		select {
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}

			// New subdirectories are watched as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = lw.addPath(event.Name)
					continue
				}
			}

			if !strings.EqualFold(filepath.Ext(event.Name), ".jsonl") || event.Op == fsnotify.Chmod {
				continue
			}

			fe := model.FileEvent{Path: event.Name, Operation: event.Op.String()}
			select {
			case lw.events <- fe:
			case <-lw.done:
				return
			default:
				// a reload is already queued
				util.LogDebug("Log watcher queue full, dropping event", util.F("path", event.Name))
			}

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Log monitoring error: " + err.Error())

		case <-lw.done:
			return
		}
	}
}

// Events returns log file change events
func (lw *LogWatcher) Events() <-chan model.FileEvent {
	return lw.events
}

// Close stops watching
func (lw *LogWatcher) Close() error {
	var err error
	lw.closeOnce.Do(func() {
		close(lw.done)
		err = lw.watcher.Close()
	})
	return err
}
