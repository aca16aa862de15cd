package export

import (
	"strconv"
	"time"

	"github.com/pbaille/gallery/internal/domain"
)

// ImageRecord is the flattened form of an image used by CLI listings.
type ImageRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Starred     bool      `json:"starred" yaml:"starred"`
	Annotations []string  `json:"annotations" yaml:"annotations"`
	Uploaded    time.Time `json:"uploaded" yaml:"uploaded"`
}

// Records resolves tag names and annotation contents.
func Records(images []domain.Image, tags TagNamer) []ImageRecord {
	out := make([]ImageRecord, len(images))
	for i, img := range images {
		rec := ImageRecord{
			ID:          img.ID,
			Name:        img.Name,
			Tags:        make([]string, len(img.Tags)),
			Starred:     img.IsStarred,
			Annotations: make([]string, len(img.Annotations)),
			Uploaded:    img.UploadDate,
		}
		for j, id := range img.Tags {
			rec.Tags[j] = tags.TagName(id)
		}
		for j, a := range img.Annotations {
			rec.Annotations[j] = a.Content
		}
		out[i] = rec
	}
	return out
}

// ImageTable lays images out for terminal display. IDs are shortened to
// eight characters; any unique prefix is accepted back by the CLI.
func ImageTable(images []domain.Image, tags TagNamer) *Table {
	t := &Table{Headers: []string{"ID", "Name", "Tags", "★", "Notes", "Uploaded"}}
	for _, img := range images {
		star := ""
		if img.IsStarred {
			star = "★"
		}
		t.Rows = append(t.Rows, []string{
			shortID(img.ID),
			truncate(img.Name, 40),
			truncate(TagNames(img, tags), 40),
			star,
			strconv.Itoa(len(img.Annotations)),
			img.UploadDate.Format("2006-01-02 15:04"),
		})
	}
	return t
}

// TagTable lays tags out for terminal display.
func TagTable(list []domain.Tag, counts map[string]int) *Table {
	t := &Table{Headers: []string{"ID", "Name", "Images"}}
	for _, tag := range list {
		t.Rows = append(t.Rows, []string{tag.ID, tag.Name, strconv.Itoa(counts[tag.ID])})
	}
	return t
}

// TagCounts counts references per tag id.
func TagCounts(images []domain.Image) map[string]int {
	counts := make(map[string]int)
	for _, img := range images {
		for _, id := range img.Tags {
			counts[id]++
		}
	}
	return counts
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
