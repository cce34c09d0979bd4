// Package watch notifies about changes to files.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"src.vbridge.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[watch] ")

// DefaultDebounce is used when File is called with a non-positive debounce
// interval.
const DefaultDebounce = 200 * time.Millisecond

// File watches a file. A value is sent on the returned channel when the file
// has been written, created or renamed into place, and then left alone for
// the debounce interval. At most one notification is pending at any time.
//
// The directory of the file is watched rather than the file itself, so that
// editors that save by replacing the file are handled. The channel is closed
// when ctx is done.
func File(ctx context.Context, path string, debounce time.Duration) (<-chan struct{}, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer w.Close()
		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs ||
					!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logutil.Log(logger, "watch error", logutil.Fields{"path": abs, "err": err})
			case <-timer.C:
				logutil.Log(logger, "changed", logutil.Fields{"path": abs})
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
