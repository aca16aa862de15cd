package catalog

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pbaille/gallery/internal/domain"
)

const demoImageBase = "https://placehold.co/512x512/png"

// demoImages builds placeholder images for demos: one upload per day going
// back from now, every fifth starred, every third annotated.
func demoImages(n int, now time.Time, newID func() string) []domain.Image {
	images := make([]domain.Image, n)
	for i := range images {
		img := domain.Image{
			ID:          newID(),
			Name:        fmt.Sprintf("solder_joint_%d.png", i+1),
			URL:         demoImageBase + "?text=" + url.QueryEscape(fmt.Sprintf("joint %d", i+1)),
			Tags:        []string{domain.TagUnclassified},
			IsStarred:   i%5 == 0,
			Annotations: []domain.Annotation{},
			UploadDate:  now.Add(-time.Duration(i) * 24 * time.Hour),
		}
		if i%3 == 0 {
			img.Annotations = append(img.Annotations, domain.Annotation{
				ID:        newID(),
				Content:   fmt.Sprintf("Sample note for image %d.", i+1),
				CreatedAt: now,
			})
		}
		images[i] = img
	}
	return images
}
