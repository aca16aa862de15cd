// Package dataset stores the documentation page that describes the image
// dataset. Reading is open; every edit requires admin mode.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/store"
)

// Key is the store key of the page.
const Key = "datasetPage"

// Section kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

var (
	// ErrAdminRequired is returned by edits made outside admin mode.
	ErrAdminRequired = errors.New("admin mode required")
	// ErrSectionNotFound is returned for unknown section ids.
	ErrSectionNotFound = errors.New("section not found")
	// ErrEmptyContent rejects blank sections.
	ErrEmptyContent = errors.New("content is empty")
)

// Section is one block of the page.
type Section struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	// HTML is sanitized rich text for text sections.
	HTML string `json:"html,omitempty"`
	// URL and Caption describe image sections.
	URL     string `json:"url,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Page is the dataset documentation.
type Page struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultPage is shown until an admin edits the page.
func DefaultPage() Page {
	return Page{
		Title:       "Solder joint defect dataset",
		Description: "Images of solder joints labelled by defect type.",
		Sections:    []Section{},
	}
}

// Gate tells whether admin mode is on. *catalog.Catalog satisfies it.
type Gate interface {
	IsAdmin() bool
}

// Store reads and edits the page through a KV store. Edits are serialized
// so concurrent requests never drop each other's changes.
type Store struct {
	mu   sync.Mutex
	kv   store.KV
	gate Gate
	log  *zap.Logger
	now  func() time.Time
}

// New creates a Store.
func New(kv store.KV, gate Gate, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, gate: gate, log: log, now: time.Now}
}

// Page loads the page, or the default page when none is stored.
func (s *Store) Page(ctx context.Context) (Page, error) {
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, store.ErrMiss) {
		return DefaultPage(), nil
	}
	if err != nil {
		return Page{}, fmt.Errorf("load dataset page: %w", err)
	}

	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("discarding unreadable dataset page", zap.Error(err))
		return DefaultPage(), nil
	}
	if p.Sections == nil {
		p.Sections = []Section{}
	}
	return p, nil
}

// edit loads the page, applies fn and saves the result. fn runs only in
// admin mode.
func (s *Store) edit(ctx context.Context, fn func(*Page) error) (Page, error) {
	if !s.gate.IsAdmin() {
		return Page{}, ErrAdminRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Page(ctx)
	if err != nil {
		return Page{}, err
	}
	if err := fn(&p); err != nil {
		return Page{}, err
	}
	p.UpdatedAt = s.now()

	raw, err := json.Marshal(p)
	if err != nil {
		return Page{}, fmt.Errorf("encode dataset page: %w", err)
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return Page{}, fmt.Errorf("save dataset page: %w", err)
	}
	return p, nil
}

// SetTitle replaces the page title and description. Blank values keep the
// current ones.
func (s *Store) SetTitle(ctx context.Context, title, description string) (Page, error) {
	return s.edit(ctx, func(p *Page) error {
		if t := strings.TrimSpace(title); t != "" {
			p.Title = t
		}
		if d := strings.TrimSpace(description); d != "" {
			p.Description = d
		}
		return nil
	})
}

// AddText appends a sanitized rich text section.
func (s *Store) AddText(ctx context.Context, fragment string) (Section, error) {
	clean := Sanitize(fragment)
	if PlainText(clean) == "" {
		return Section{}, ErrEmptyContent
	}
	sec := Section{ID: uuid.New().String(), Kind: KindText, HTML: clean}
	_, err := s.edit(ctx, func(p *Page) error {
		p.Sections = append(p.Sections, sec)
		return nil
	})
	return sec, err
}

// AddImage appends an image section.
func (s *Store) AddImage(ctx context.Context, url, caption string) (Section, error) {
	if !safeURL("img", url) {
		return Section{}, fmt.Errorf("image url: %w", ErrEmptyContent)
	}
	sec := Section{ID: uuid.New().String(), Kind: KindImage, URL: url, Caption: strings.TrimSpace(caption)}
	_, err := s.edit(ctx, func(p *Page) error {
		p.Sections = append(p.Sections, sec)
		return nil
	})
	return sec, err
}

// UpdateText replaces the content of a text section.
func (s *Store) UpdateText(ctx context.Context, id, fragment string) (Section, error) {
	clean := Sanitize(fragment)
	if PlainText(clean) == "" {
		return Section{}, ErrEmptyContent
	}
	var out Section
	_, err := s.edit(ctx, func(p *Page) error {
		for i := range p.Sections {
			if p.Sections[i].ID == id && p.Sections[i].Kind == KindText {
				p.Sections[i].HTML = clean
				out = p.Sections[i]
				return nil
			}
		}
		return ErrSectionNotFound
	})
	return out, err
}

// DeleteSection removes a section.
func (s *Store) DeleteSection(ctx context.Context, id string) error {
	_, err := s.edit(ctx, func(p *Page) error {
		for i := range p.Sections {
			if p.Sections[i].ID == id {
				p.Sections = append(p.Sections[:i], p.Sections[i+1:]...)
				return nil
			}
		}
		return ErrSectionNotFound
	})
	return err
}

// Reset removes the stored page so the default shows again.
func (s *Store) Reset(ctx context.Context) error {
	if !s.gate.IsAdmin() {
		return ErrAdminRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(ctx, Key)
}
