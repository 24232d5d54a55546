package qualifications

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the registry into p whenever the file at path changes. A
// reload that fails to parse keeps the previous registry. Watch blocks until
// ctx is done.
func Watch(ctx context.Context, path string, p *Provider, log zerolog.Logger) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watch the directory so editors that replace the file are still seen
	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			r, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("qualifications reload failed, keeping previous")
				return
			}
			p.Set(r)
			log.Info().Str("path", path).Int("task_types", len(r.TaskTypes())).Msg("qualifications reloaded")
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	log.Debug().Str("dir", dir).Str("file", file).Msg("qualifications watcher started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("dir", dir).Msg("qualifications watch error")
		}
	}
}
