package catalog

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/pbaille/gallery/internal/domain"
)

// Tags is the tag list of a catalog. It is not safe for concurrent use;
// Catalog serializes access.
type Tags struct {
	list []domain.Tag
}

func newTags(list []domain.Tag) *Tags {
	return &Tags{list: append([]domain.Tag(nil), list...)}
}

// foldName normalizes a name for case-insensitive comparison.
func foldName(s string) string {
	return cases.Fold().String(s)
}

// All returns a copy of the tags in creation order.
func (t *Tags) All() []domain.Tag {
	return append([]domain.Tag(nil), t.list...)
}

func (t *Tags) Len() int { return len(t.list) }

func (t *Tags) Get(id string) (domain.Tag, bool) {
	for _, tag := range t.list {
		if tag.ID == id {
			return tag, true
		}
	}
	return domain.Tag{}, false
}

// Name resolves a tag id to its display name. It is the only place that
// decides how dangling references are shown.
func (t *Tags) Name(id string) string {
	if tag, ok := t.Get(id); ok {
		return tag.Name
	}
	return domain.UnknownTagName
}

// IDByName finds a tag by name, ignoring case.
func (t *Tags) IDByName(name string) (string, bool) {
	folded := foldName(strings.TrimSpace(name))
	for _, tag := range t.list {
		if foldName(tag.Name) == folded {
			return tag.ID, true
		}
	}
	return "", false
}

// nameTaken reports whether a tag other than exceptID already uses name.
func (t *Tags) nameTaken(name, exceptID string) bool {
	folded := foldName(name)
	for _, tag := range t.list {
		if tag.ID != exceptID && foldName(tag.Name) == folded {
			return true
		}
	}
	return false
}

// Add appends a tag unless the name is blank or already taken.
func (t *Tags) Add(id, name string, now time.Time) (domain.Tag, bool) {
	name = strings.TrimSpace(name)
	if name == "" || t.nameTaken(name, "") {
		return domain.Tag{}, false
	}
	if _, exists := t.Get(id); exists {
		return domain.Tag{}, false
	}

	tag := domain.Tag{ID: id, Name: name, CreatedAt: now}
	t.list = append(t.list, tag)
	return tag, true
}

// Rename changes a tag's name in place.
func (t *Tags) Rename(id, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || t.nameTaken(name, id) {
		return false
	}
	for i := range t.list {
		if t.list[i].ID == id {
			t.list[i].Name = name
			return true
		}
	}
	return false
}

// Delete removes a tag. Protected tags are refused. Images that reference
// the id keep it; see Name for how it is displayed.
func (t *Tags) Delete(id string) bool {
	if domain.IsProtectedTag(id) {
		return false
	}
	for i := range t.list {
		if t.list[i].ID == id {
			t.list = append(t.list[:i], t.list[i+1:]...)
			return true
		}
	}
	return false
}

// joinedNames is the space-joined display names of ids, used by search.
func (t *Tags) joinedNames(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = t.Name(id)
	}
	return strings.Join(names, " ")
}
