// Package catalog is the image catalog engine: it owns images, tags and
// settings, applies every mutation, and computes the filtered, sorted view.
//
// All methods are safe for concurrent use. Each command holds the catalog
// lock until it has mutated state and flushed it to the store, so commands
// never interleave.
package catalog

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/domain"
	"github.com/pbaille/gallery/internal/store"
)

// Catalog is the process-wide gallery state.
type Catalog struct {
	mu sync.Mutex

	kv    store.KV
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	tags     *Tags
	images   *Images
	settings *Settings

	query     string
	tagFilter []string
	selection []string

	version    uint64
	views      *gocache.Cache
	demoImages int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Catalog) { c.newID = gen }
}

// WithDemoImages seeds n placeholder images when the store has none.
func WithDemoImages(n int) Option {
	return func(c *Catalog) { c.demoImages = n }
}

// Open hydrates a catalog from kv, seeding default tags (and optionally
// demo images) when nothing is stored yet.
func Open(ctx context.Context, kv store.KV, opts ...Option) *Catalog {
	c := &Catalog{
		kv:    kv,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		views: gocache.New(5*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}

	var tags []domain.Tag
	c.load(ctx, KeyTags, &tags)
	seededTags := len(tags) == 0
	if seededTags {
		tags = domain.DefaultTags(c.now())
	}
	c.tags = newTags(tags)

	var images []domain.Image
	c.load(ctx, KeyImages, &images)
	seededImages := len(images) == 0 && c.demoImages > 0
	if seededImages {
		images = demoImages(c.demoImages, c.now(), c.newID)
	}
	c.images = newImages(images)

	var cfg persistedConfig
	c.load(ctx, KeyAppConfig, &cfg)
	var admin bool
	c.load(ctx, KeyAdmin, &admin)
	c.settings = newSettings(domain.AppConfig{ItemsPerRow: cfg.ItemsPerRow, IsAdmin: admin})

	if seededTags {
		c.saveTags()
	}
	if seededImages {
		c.saveImages()
	}

	c.log.Info("catalog opened",
		zap.Int("images", c.images.Len()),
		zap.Int("tags", c.tags.Len()),
		zap.Bool("seeded_tags", seededTags),
		zap.Bool("seeded_images", seededImages),
	)
	return c
}

// changed invalidates the memoized view by moving to a new version. The
// previous version's entry is dropped since it can never be read again.
func (c *Catalog) changed() {
	c.views.Delete(viewKey(c.version))
	c.version++
}

func viewKey(version uint64) string {
	return strconv.FormatUint(version, 10)
}

// view returns the filtered view, computing it at most once per version.
// Callers must hold c.mu and must not modify the result.
func (c *Catalog) view() []domain.Image {
	key := viewKey(c.version)
	if v, ok := c.views.Get(key); ok {
		return v.([]domain.Image)
	}
	v := buildView(c.images.list, c.query, toSet(c.tagFilter), c.tags)
	c.views.Set(key, v, gocache.DefaultExpiration)
	return v
}

// FilteredView returns the images to display for the current query and tag
// filter, in display order.
func (c *Catalog) FilteredView() []domain.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view()
	out := make([]domain.Image, len(v))
	for i, img := range v {
		out[i] = img.Clone()
	}
	return out
}

// Page returns a window of the filtered view.
func (c *Catalog) Page(offset, limit int) Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return window(c.view(), offset, limit)
}

// Images returns every image in stored order (most recent first).
func (c *Catalog) Images() []domain.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images.All()
}

// Image looks up one image.
func (c *Catalog) Image(id string) (domain.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images.Get(id)
}

// ResolveImageID expands a unique id prefix to a full id.
func (c *Catalog) ResolveImageID(prefix string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := ""
	for _, img := range c.images.list {
		if img.ID == prefix {
			return img.ID, true
		}
		if strings.HasPrefix(img.ID, prefix) {
			if found != "" {
				return "", false
			}
			found = img.ID
		}
	}
	return found, found != ""
}

// AddImage stores a new unclassified image at the front of the list.
func (c *Catalog) AddImage(name, url string) domain.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	img := c.images.Prepend(c.newID(), name, url, c.now())
	c.changed()
	c.saveImages()
	c.log.Debug("image added", zap.String("id", img.ID), zap.String("name", name))
	return img
}

// UpdateImageTags replaces an image's tags.
func (c *Catalog) UpdateImageTags(id string, tagIDs []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.images.SetTags(id, tagIDs) {
		return false
	}
	c.changed()
	c.saveImages()
	return true
}

// ToggleStar flips an image's starred flag.
func (c *Catalog) ToggleStar(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.images.ToggleStar(id) {
		return false
	}
	c.changed()
	c.saveImages()
	return true
}

// AddAnnotation attaches a note to an image. Blank content is rejected.
func (c *Catalog) AddAnnotation(id, content string) (domain.Annotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.images.AddAnnotation(id, c.newID(), content, c.now())
	if !ok {
		return domain.Annotation{}, false
	}
	c.changed()
	c.saveImages()
	return a, true
}

// DeleteAnnotation removes one note from an image.
func (c *Catalog) DeleteAnnotation(id, annotationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.images.DeleteAnnotation(id, annotationID) {
		return false
	}
	c.changed()
	c.saveImages()
	return true
}

// DeleteImage removes one image.
func (c *Catalog) DeleteImage(id string) bool {
	return c.BatchDeleteImages([]string{id}) == 1
}

// BatchDeleteImages removes all listed images and drops them from the
// selection. It returns how many images were removed.
func (c *Catalog) BatchDeleteImages(ids []string) int {
	if len(ids) == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.images.Delete(ids)
	if removed == 0 {
		return 0
	}
	c.pruneSelection()
	c.changed()
	c.saveImages()
	c.log.Info("images deleted", zap.Int("count", removed))
	return removed
}

func (c *Catalog) pruneSelection() {
	kept := c.selection[:0]
	for _, id := range c.selection {
		if c.images.index(id) >= 0 {
			kept = append(kept, id)
		}
	}
	c.selection = kept
}

// Selection returns the selected image ids in selection order.
func (c *Catalog) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.selection...)
}

// ToggleSelection adds or removes an image from the selection.
func (c *Catalog) ToggleSelection(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sel := range c.selection {
		if sel == id {
			c.selection = append(c.selection[:i:i], c.selection[i+1:]...)
			return
		}
	}
	if c.images.index(id) >= 0 {
		c.selection = append(c.selection, id)
	}
}

// Select replaces the selection with the listed ids that exist.
func (c *Catalog) Select(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(ids))
	c.selection = c.selection[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup || c.images.index(id) < 0 {
			continue
		}
		seen[id] = struct{}{}
		c.selection = append(c.selection, id)
	}
}

// SelectAll selects exactly the current filtered view.
func (c *Catalog) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view()
	c.selection = make([]string, len(v))
	for i, img := range v {
		c.selection[i] = img.ID
	}
}

// DeselectAll clears the selection.
func (c *Catalog) DeselectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = nil
}

// BatchAddTags adds tagIDs to every selected image and returns how many
// images were updated.
func (c *Catalog) BatchAddTags(tagIDs []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.selection) == 0 || len(tagIDs) == 0 {
		return 0
	}
	n := 0
	for _, id := range c.selection {
		if c.images.AddTags(id, tagIDs) {
			n++
		}
	}
	c.changed()
	c.saveImages()
	return n
}

// BatchRemoveTags removes tagIDs from every selected image and returns how
// many images were updated.
func (c *Catalog) BatchRemoveTags(tagIDs []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.selection) == 0 || len(tagIDs) == 0 {
		return 0
	}
	n := 0
	for _, id := range c.selection {
		if c.images.RemoveTags(id, tagIDs) {
			n++
		}
	}
	c.changed()
	c.saveImages()
	return n
}

// CopyNames joins the selected images' names, extension stripped, with
// commas. Images appear in catalog order.
func (c *Catalog) CopyNames() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	selected := toSet(c.selection)
	var names []string
	for _, img := range c.images.list {
		if _, ok := selected[img.ID]; ok {
			names = append(names, strings.TrimSuffix(img.Name, filepath.Ext(img.Name)))
		}
	}
	return strings.Join(names, ",")
}

// SetQuery sets the search text.
func (c *Catalog) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q == c.query {
		return
	}
	c.query = q
	c.changed()
}

// Query returns the current search text.
func (c *Catalog) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetTagFilter sets the tag ids an image must share at least one of.
func (c *Catalog) SetTagFilter(tagIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tagFilter = append([]string(nil), tagIDs...)
	c.changed()
}

// TagFilter returns the current tag filter.
func (c *Catalog) TagFilter() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tagFilter...)
}

// Tags returns every tag in creation order.
func (c *Catalog) Tags() []domain.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags.All()
}

// TagName resolves a tag id for display.
func (c *Catalog) TagName(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags.Name(id)
}

// TagIDByName looks a tag up by name, ignoring case.
func (c *Catalog) TagIDByName(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags.IDByName(name)
}

// AddTag creates a tag. It fails on a blank or already used name.
func (c *Catalog) AddTag(name string) (domain.Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addTag(name)
}

func (c *Catalog) addTag(name string) (domain.Tag, bool) {
	tag, ok := c.tags.Add(c.newID(), name, c.now())
	if !ok {
		return domain.Tag{}, false
	}
	c.changed()
	c.saveTags()
	c.log.Debug("tag added", zap.String("id", tag.ID), zap.String("name", tag.Name))
	return tag, true
}

// EnsureTag returns the tag called name, creating it when missing.
func (c *Catalog) EnsureTag(name string) (domain.Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.tags.IDByName(name); ok {
		return c.tags.Get(id)
	}
	return c.addTag(name)
}

// RenameTag renames a tag unless another tag already has the name.
func (c *Catalog) RenameTag(id, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tags.Rename(id, name) {
		return false
	}
	c.changed()
	c.saveTags()
	return true
}

// DeleteTag removes a non-protected tag. Images keep referencing the id.
func (c *Catalog) DeleteTag(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tags.Delete(id) {
		return false
	}
	c.changed()
	c.saveTags()
	c.log.Info("tag deleted", zap.String("id", id))
	return true
}

// Settings returns the UI preferences.
func (c *Catalog) Settings() domain.AppConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Get()
}

// SetItemsPerRow changes the grid width; values outside 2..4 are ignored.
func (c *Catalog) SetItemsPerRow(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.settings.SetItemsPerRow(n) {
		return false
	}
	c.saveSettings()
	return true
}

// SetAdmin toggles admin mode.
func (c *Catalog) SetAdmin(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.SetAdmin(on)
	c.saveSettings()
}

// IsAdmin reports whether admin mode is on.
func (c *Catalog) IsAdmin() bool {
	return c.Settings().IsAdmin
}
