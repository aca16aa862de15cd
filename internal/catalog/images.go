package catalog

import (
	"strings"
	"time"

	"github.com/pbaille/gallery/internal/domain"
)

// Images is the image list of a catalog, most recent first. Like Tags it
// relies on Catalog for locking.
type Images struct {
	list []domain.Image
}

func newImages(list []domain.Image) *Images {
	imgs := &Images{list: make([]domain.Image, 0, len(list))}
	for _, img := range list {
		img = img.Clone()
		img.Tags = normalizeTags(img.Tags)
		if img.Annotations == nil {
			img.Annotations = []domain.Annotation{}
		}
		imgs.list = append(imgs.list, img)
	}
	return imgs
}

// normalizeTags dedupes ids keeping first occurrence and enforces the
// sentinel rules: never empty, and the sentinel never sits next to a real tag.
func normalizeTags(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	hasReal := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if id != domain.TagUnclassified {
			hasReal = true
		}
	}

	if !hasReal {
		return []string{domain.TagUnclassified}
	}
	filtered := out[:0]
	for _, id := range out {
		if id != domain.TagUnclassified {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

func (s *Images) Len() int { return len(s.list) }

// All returns deep copies in stored order.
func (s *Images) All() []domain.Image {
	out := make([]domain.Image, len(s.list))
	for i, img := range s.list {
		out[i] = img.Clone()
	}
	return out
}

func (s *Images) index(id string) int {
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Images) Get(id string) (domain.Image, bool) {
	if i := s.index(id); i >= 0 {
		return s.list[i].Clone(), true
	}
	return domain.Image{}, false
}

// Prepend inserts a fresh, unclassified image at the front.
func (s *Images) Prepend(id, name, url string, now time.Time) domain.Image {
	img := domain.Image{
		ID:          id,
		Name:        name,
		URL:         url,
		Tags:        []string{domain.TagUnclassified},
		IsStarred:   false,
		Annotations: []domain.Annotation{},
		UploadDate:  now,
	}
	s.list = append([]domain.Image{img}, s.list...)
	return img.Clone()
}

func (s *Images) SetTags(id string, tagIDs []string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.list[i].Tags = normalizeTags(tagIDs)
	return true
}

func (s *Images) AddTags(id string, tagIDs []string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	merged := append(append([]string(nil), s.list[i].Tags...), tagIDs...)
	s.list[i].Tags = normalizeTags(merged)
	return true
}

func (s *Images) RemoveTags(id string, tagIDs []string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	drop := toSet(tagIDs)
	kept := make([]string, 0, len(s.list[i].Tags))
	for _, t := range s.list[i].Tags {
		if _, ok := drop[t]; !ok {
			kept = append(kept, t)
		}
	}
	s.list[i].Tags = normalizeTags(kept)
	return true
}

func (s *Images) ToggleStar(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.list[i].IsStarred = !s.list[i].IsStarred
	return true
}

// AddAnnotation appends trimmed content; blank content is rejected.
func (s *Images) AddAnnotation(id, annotationID, content string, now time.Time) (domain.Annotation, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Annotation{}, false
	}
	i := s.index(id)
	if i < 0 {
		return domain.Annotation{}, false
	}
	a := domain.Annotation{ID: annotationID, Content: content, CreatedAt: now}
	s.list[i].Annotations = append(s.list[i].Annotations, a)
	return a, true
}

func (s *Images) DeleteAnnotation(id, annotationID string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	annos := s.list[i].Annotations
	for j := range annos {
		if annos[j].ID == annotationID {
			s.list[i].Annotations = append(annos[:j:j], annos[j+1:]...)
			return true
		}
	}
	return false
}

// Delete removes every image whose id is in ids and returns how many went.
func (s *Images) Delete(ids []string) int {
	drop := toSet(ids)
	kept := s.list[:0]
	removed := 0
	for _, img := range s.list {
		if _, ok := drop[img.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, img)
	}
	// clear the tail so dropped images can be collected
	for i := len(kept); i < len(s.list); i++ {
		s.list[i] = domain.Image{}
	}
	s.list = kept
	return removed
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
