package domain

import "time"

// Built-in tag ids. These never collide with user tags, which get UUIDs.
const (
	TagUnclassified   = "unclassified"
	TagUncertain      = "uncertain"
	TagSurfaceDefect  = "surface_defect"
	TagBurst          = "burst"
	TagOffset         = "offset"
	TagOverSoldering  = "over_soldering"
	TagUnderSoldering = "under_soldering"
)

// UnknownTagName is displayed for tag ids that no longer resolve to a Tag.
const UnknownTagName = "Unknown tag"

// Tag represents a classification label
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Annotation is a free-text note owned by exactly one Image
type Annotation struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Image represents an imported picture and its classification
type Image struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Tags        []string     `json:"tags"`
	IsStarred   bool         `json:"isStarred"`
	Annotations []Annotation `json:"annotations"`
	UploadDate  time.Time    `json:"uploadDate"`
}

// HasTag reports whether the image references the given tag id.
func (img Image) HasTag(id string) bool {
	for _, t := range img.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// IsUnclassified reports whether the sentinel is the image's only tag.
func (img Image) IsUnclassified() bool {
	return len(img.Tags) == 1 && img.Tags[0] == TagUnclassified
}

// Clone returns a deep copy so callers can't mutate catalog state.
func (img Image) Clone() Image {
	out := img
	out.Tags = make([]string, len(img.Tags))
	copy(out.Tags, img.Tags)
	out.Annotations = make([]Annotation, len(img.Annotations))
	copy(out.Annotations, img.Annotations)
	return out
}

// AppConfig holds the persisted UI preferences
type AppConfig struct {
	ItemsPerRow int  `json:"itemsPerRow"`
	IsAdmin     bool `json:"isAdmin"`
}

// DefaultTags returns the tag set seeded on first run.
func DefaultTags(now time.Time) []Tag {
	return []Tag{
		{ID: TagUnclassified, Name: "unclassified", CreatedAt: now},
		{ID: TagUncertain, Name: "uncertain", CreatedAt: now},
		{ID: TagSurfaceDefect, Name: "surface defect", CreatedAt: now},
		{ID: TagBurst, Name: "burst", CreatedAt: now},
		{ID: TagOffset, Name: "offset", CreatedAt: now},
		{ID: TagOverSoldering, Name: "over soldering", CreatedAt: now},
		{ID: TagUnderSoldering, Name: "under soldering", CreatedAt: now},
	}
}

// IsProtectedTag reports whether a tag id may never be deleted.
func IsProtectedTag(id string) bool {
	switch id {
	case TagUnclassified, TagUncertain, TagSurfaceDefect:
		return true
	}
	return false
}
