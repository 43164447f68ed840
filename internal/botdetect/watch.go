package botdetect

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the pattern set whenever the file changes. Events are
// debounced because editors emit several writes per save.
func (p *PatternSet) Watch(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := w.Add(ev.Name); err != nil {
						slog.Error("patterns watch re-add", "path", ev.Name, "err", err)
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(250 * time.Millisecond)
				}
			case <-debounce.C:
				if err := p.LoadFile(path); err != nil {
					slog.Error("patterns reload failed", "path", path, "err", err)
				} else {
					slog.Info("patterns reloaded", "path", path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("patterns watch error", "err", err)
			}
		}
	}()
	return nil
}
