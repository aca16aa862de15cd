package catalog

import (
	"sort"
	"strings"

	"github.com/pbaille/gallery/internal/domain"
)

// Page sizes of the browsing grid: the first screen, then each extension.
const (
	DefaultPageSize = 25
	PageIncrement   = 6
)

// Page is a window of the filtered view.
type Page struct {
	Images  []domain.Image `json:"images"`
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
	HasMore bool           `json:"hasMore"`
}

// matchesQuery implements the text filter: name or resolved tag names
// contain the query, ignoring case.
func matchesQuery(img domain.Image, foldedQuery string, tags *Tags) bool {
	if foldedQuery == "" {
		return true
	}
	if strings.Contains(foldName(img.Name), foldedQuery) {
		return true
	}
	return strings.Contains(foldName(tags.joinedNames(img.Tags)), foldedQuery)
}

// matchesTagFilter is true when the filter is empty or shares any tag with img.
func matchesTagFilter(img domain.Image, filter map[string]struct{}) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range img.Tags {
		if _, ok := filter[t]; ok {
			return true
		}
	}
	return false
}

// less orders images: starred, classified, not uncertain, newest upload.
func less(a, b domain.Image) bool {
	if a.IsStarred != b.IsStarred {
		return a.IsStarred
	}
	if au, bu := a.IsUnclassified(), b.IsUnclassified(); au != bu {
		return bu
	}
	if au, bu := a.HasTag(domain.TagUncertain), b.HasTag(domain.TagUncertain); au != bu {
		return bu
	}
	return a.UploadDate.After(b.UploadDate)
}

// buildView filters and sorts images. Ties keep stored order.
func buildView(images []domain.Image, query string, filter map[string]struct{}, tags *Tags) []domain.Image {
	folded := foldName(query)

	view := make([]domain.Image, 0, len(images))
	for _, img := range images {
		if matchesQuery(img, folded, tags) && matchesTagFilter(img, filter) {
			view = append(view, img)
		}
	}

	sort.SliceStable(view, func(i, j int) bool {
		return less(view[i], view[j])
	})
	return view
}

// window cuts a page out of view. limit <= 0 means DefaultPageSize.
func window(view []domain.Image, offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	p := Page{Total: len(view), Offset: offset, Limit: limit, Images: []domain.Image{}}
	if offset >= len(view) {
		return p
	}
	end := offset + limit
	if end > len(view) {
		end = len(view)
	}
	for _, img := range view[offset:end] {
		p.Images = append(p.Images, img.Clone())
	}
	p.HasMore = end < len(view)
	return p
}
