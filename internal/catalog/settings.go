package catalog

import "github.com/pbaille/gallery/internal/domain"

// Items-per-row bounds for the grid layout.
const (
	MinItemsPerRow     = 2
	MaxItemsPerRow     = 4
	DefaultItemsPerRow = 3
)

// Settings holds the persisted UI preferences.
type Settings struct {
	cfg domain.AppConfig
}

func newSettings(cfg domain.AppConfig) *Settings {
	if cfg.ItemsPerRow < MinItemsPerRow || cfg.ItemsPerRow > MaxItemsPerRow {
		cfg.ItemsPerRow = DefaultItemsPerRow
	}
	return &Settings{cfg: cfg}
}

func (s *Settings) Get() domain.AppConfig { return s.cfg }

// SetItemsPerRow ignores values outside [MinItemsPerRow, MaxItemsPerRow].
func (s *Settings) SetItemsPerRow(n int) bool {
	if n < MinItemsPerRow || n > MaxItemsPerRow {
		return false
	}
	s.cfg.ItemsPerRow = n
	return true
}

func (s *Settings) SetAdmin(on bool) {
	s.cfg.IsAdmin = on
}
