package wordlist

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 350 * time.Millisecond

// Watch reloads the word file at path whenever it changes and hands the new
// list to onChange. Reload errors are logged and the previous list stays in
// effect. The watcher stops when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func([]string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save, so watch the directory instead of the file.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		reload := func() {
			for i := 0; i < 10; i++ {
				if _, err := os.Stat(abs); err == nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}
			words, err := Load(abs)
			if err != nil {
				log.Warnf("failed to reload word list %s: %v", abs, err)
				return
			}
			log.Infof("word list reloaded from %s (%d words)", abs, len(words))
			onChange(words)
		}

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(debounceDelay, reload)
				} else {
					timer.Reset(debounceDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("fsnotify error: %v", err)
			}
		}
	}()

	return nil
}
