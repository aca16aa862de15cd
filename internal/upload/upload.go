// Package upload turns image files, directories and remote URLs into
// catalog images. Only PNG and JPEG up to MaxFileSize are accepted.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest accepted image, in bytes.
const MaxFileSize = 10 << 20

// Accepted content types.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

var (
	// ErrUnsupportedType rejects anything that does not sniff as PNG or JPEG.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge rejects files above MaxFileSize.
	ErrTooLarge = errors.New("file too large")
)

// Candidate is a validated image ready to be added to the catalog.
type Candidate struct {
	Name string
	MIME string
	Data []byte
}

// DataURI encodes the image inline, e.g. "data:image/png;base64,...".
func (c Candidate) DataURI() string {
	return "data:" + c.MIME + ";base64," + base64.StdEncoding.EncodeToString(c.Data)
}

// Sniff returns the content type of data if it is an accepted image.
func Sniff(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	switch mime {
	case MIMEPNG, MIMEJPEG:
		return mime, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
}

// Validate checks size and type of an in-memory image.
func Validate(name string, data []byte) (Candidate, error) {
	if len(data) > MaxFileSize {
		return Candidate{}, fmt.Errorf("%s: %w (%d bytes)", name, ErrTooLarge, len(data))
	}
	mime, err := Sniff(data)
	if err != nil {
		return Candidate{}, fmt.Errorf("%s: %w", name, err)
	}
	return Candidate{Name: name, MIME: mime, Data: data}, nil
}

// ReadFrom reads at most MaxFileSize+1 bytes from r and validates them.
func ReadFrom(name string, r io.Reader) (Candidate, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return Candidate{}, fmt.Errorf("read %s: %w", name, err)
	}
	return Validate(name, data)
}

// ReadFile loads and validates one image file. The size is checked before
// reading so oversized files are never loaded.
func ReadFile(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return Candidate{}, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadFrom(filepath.Base(path), f)
}

// Collect expands paths into regular files, walking directories
// recursively. Hidden files and directories are skipped.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := path != p && strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if !hidden && d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return files, nil
}
