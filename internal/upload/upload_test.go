package upload

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/domain"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00")
)

// recorder is an Adder that keeps what it was given.
type recorder struct {
	mu     sync.Mutex
	images []domain.Image
}

func (r *recorder) AddImage(name, url string) domain.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := domain.Image{ID: name, Name: name, URL: url, Tags: []string{domain.TagUnclassified}}
	r.images = append(r.images, img)
	return img
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, img := range r.images {
		out = append(out, img.Name)
	}
	return out
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestValidate(t *testing.T) {
	c, err := Validate("a.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, c.MIME)

	c, err = Validate("b.jpg", jpegBytes)
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, c.MIME)

	_, err = Validate("c.gif", gifBytes)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	// extension does not matter, content does
	_, err = Validate("fake.png", []byte("hello world"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte(nil), pngBytes...), make([]byte, MaxFileSize)...)
	_, err = Validate("big.png", big)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDataURI(t *testing.T) {
	c := Candidate{Name: "a.png", MIME: MIMEPNG, Data: []byte{1, 2, 3}}
	assert.Equal(t, "data:image/png;base64,AQID", c.DataURI())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), pngBytes)

	c, err := ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "a.png", c.Name)
	assert.True(t, strings.HasPrefix(c.DataURI(), "data:image/png;base64,"))

	_, err = ReadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	// oversized files are refused from their size alone
	f, err := os.Create(filepath.Join(dir, "huge.png"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxFileSize+1))
	require.NoError(t, f.Close())
	_, err = ReadFile(filepath.Join(dir, "huge.png"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.png"), pngBytes)
	writeFile(t, filepath.Join(dir, "nested", "deep", "b.jpg"), jpegBytes)
	writeFile(t, filepath.Join(dir, ".hidden", "c.png"), pngBytes)
	writeFile(t, filepath.Join(dir, ".DS_Store"), []byte("x"))
	single := filepath.Join(t.TempDir(), "single.png")
	writeFile(t, single, pngBytes)

	files, err := Collect([]string{dir, single})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "top.png"),
		filepath.Join(dir, "nested", "deep", "b.jpg"),
		single,
	}, files)

	_, err = Collect([]string{filepath.Join(dir, "nope")})
	assert.Error(t, err)
}

func TestImporter_Import(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	for i, name := range []string{"a.png", "b.png", "c.jpg", "d.png", "e.jpg"} {
		data := pngBytes
		if i%2 == 0 && strings.HasSuffix(name, ".jpg") {
			data = jpegBytes
		}
		writeFile(t, filepath.Join(dir, "batch", name), data)
	}
	writeFile(t, filepath.Join(dir, "batch", "notes.txt"), []byte("not an image"))
	writeFile(t, filepath.Join(dir, "batch", "anim.gif"), gifBytes)

	rec := &recorder{}
	im := NewImporter(rec, zap.NewNop(), 2)

	report, err := im.Import(context.Background(), []string{filepath.Join(dir, "batch")})
	require.NoError(t, err)

	assert.Len(t, report.Added, 5)
	assert.ElementsMatch(t, []string{"a.png", "b.png", "c.jpg", "d.png", "e.jpg"}, rec.names())
	require.Len(t, report.Rejected, 2)
	for _, r := range report.Rejected {
		assert.ErrorIs(t, r.Err, ErrUnsupportedType)
		assert.NotEmpty(t, r.Reason)
	}
}

func TestImporter_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.png"), pngBytes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := NewImporter(rec, nil, 1).Import(ctx, []string{dir})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.names())
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img/board.png":
			w.Write(pngBytes)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>hi</body></html>"))
		case "/big.png":
			w.Write(pngBytes)
			w.Write(bytes.Repeat([]byte{0}, MaxFileSize))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	ctx := context.Background()

	c, err := f.Fetch(ctx, srv.URL+"/img/board.png")
	require.NoError(t, err)
	assert.Equal(t, "board.png", c.Name)
	assert.Equal(t, MIMEPNG, c.MIME)

	_, err = f.Fetch(ctx, srv.URL+"/page")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = f.Fetch(ctx, srv.URL+"/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(ctx, srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Fetch(ctx, "ftp://example.com/a.png")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	im := NewImporter(rec, zap.NewNop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir, 100*time.Millisecond) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "dropped.png"), pngBytes)
	writeFile(t, filepath.Join(dir, "readme.txt"), []byte("text"))

	assert.Eventually(t, func() bool {
		return len(rec.names()) == 1
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"dropped.png"}, rec.names())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
