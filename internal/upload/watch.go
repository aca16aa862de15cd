package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a file must stay unchanged before Watch imports it.
const DefaultSettle = 500 * time.Millisecond

// Watch imports image files created in dir until ctx is done. A file is
// imported once, after no events have been seen for it for settle.
func (im *Importer) Watch(ctx context.Context, dir string, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	im.log.Info("watching for images", zap.String("dir", dir))

	pending := make(map[string]time.Time)
	imported := make(map[string]struct{})

	ticker := time.NewTicker(settle / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				if _, done := imported[event.Name]; !done {
					pending[event.Name] = time.Now()
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			im.log.Warn("watch error", zap.Error(err))

		case now := <-ticker.C:
			var ready []string
			for path, last := range pending {
				if now.Sub(last) >= settle {
					ready = append(ready, path)
					delete(pending, path)
					imported[path] = struct{}{}
				}
			}
			if len(ready) == 0 {
				continue
			}
			// a cancelled context ends the loop on the next select
			_, _ = im.ImportFiles(ctx, ready)
		}
	}
}
