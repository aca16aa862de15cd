package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/store"
)

// Keys of the persisted state.
const (
	KeyImages    = "images"
	KeyTags      = "tags"
	KeyAppConfig = "appConfig"
	KeyAdmin     = "isAdmin"
)

const persistTimeout = 5 * time.Second

type persistedConfig struct {
	ItemsPerRow int `json:"itemsPerRow"`
}

// load decodes key into v. Missing and unreadable values both report false;
// the latter is logged so the caller can fall back to defaults.
func (c *Catalog) load(ctx context.Context, key string, v any) bool {
	raw, err := c.kv.Get(ctx, key)
	if errors.Is(err, store.ErrMiss) {
		return false
	}
	if err != nil {
		c.log.Warn("load failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.log.Warn("discarding unreadable value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// save writes v under key. Failures are logged and swallowed: the in-memory
// catalog stays authoritative and the next successful write catches up.
func (c *Catalog) save(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Error("encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.kv.Set(ctx, key, raw); err != nil {
		c.log.Warn("persist failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.log.Debug("persisted", zap.String("key", key), zap.Int("bytes", len(raw)))
}

func (c *Catalog) saveImages() { c.save(KeyImages, c.images.list) }

func (c *Catalog) saveTags() { c.save(KeyTags, c.tags.list) }

func (c *Catalog) saveSettings() {
	cfg := c.settings.Get()
	c.save(KeyAppConfig, persistedConfig{ItemsPerRow: cfg.ItemsPerRow})
	c.save(KeyAdmin, cfg.IsAdmin)
}
