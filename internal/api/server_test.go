package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pbaille/gallery/internal/catalog"
	"github.com/pbaille/gallery/internal/dataset"
	"github.com/pbaille/gallery/internal/domain"
	"github.com/pbaille/gallery/internal/store"
	"github.com/pbaille/gallery/internal/upload"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeFetcher struct {
	cand upload.Candidate
	err  error
	got  string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (upload.Candidate, error) {
	f.got = rawURL
	return f.cand, f.err
}

type testServer struct {
	cat   *catalog.Catalog
	fetch *fakeFetcher
	h     http.Handler
}

func newTestServer(t *testing.T, opts ...catalog.Option) *testServer {
	t.Helper()
	kv := store.NewMemory()
	cat := catalog.Open(context.Background(), kv, opts...)
	fetch := &fakeFetcher{}
	srv := New(cat, dataset.New(kv, cat, zap.NewNop()), fetch, zap.NewNop(), ":0")
	return &testServer{cat: cat, fetch: fetch, h: srv.Handler()}
}

// do sends a request and decodes the envelope's data into out, if given.
func (ts *testServer) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		env := struct {
			Data json.RawMessage `json:"data"`
		}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var out map[string]string
	rec := ts.do(t, http.MethodGet, "/health", nil, &out)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodOptions, "/images", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestImages_AddListAndGet(t *testing.T) {
	ts := newTestServer(t)

	var img domain.Image
	rec := ts.do(t, http.MethodPost, "/images", AddImageRequest{Name: "joint.png", URL: "https://example.com/j.png"}, &img)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{domain.TagUnclassified}, img.Tags)

	rec = ts.do(t, http.MethodPost, "/images", AddImageRequest{Name: " "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, errorCode(t, rec))

	var page catalog.Page
	ts.do(t, http.MethodGet, "/images", nil, &page)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, catalog.DefaultPageSize, page.Limit)

	var got domain.Image
	rec = ts.do(t, http.MethodGet, "/images/"+img.ID[:8], nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, img.ID, got.ID)

	rec = ts.do(t, http.MethodGet, "/images/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImages_ListFilters(t *testing.T) {
	ts := newTestServer(t, catalog.WithDemoImages(30))
	a := ts.cat.AddImage("burst_case.png", "u")
	ts.cat.UpdateImageTags(a.ID, []string{domain.TagBurst})

	var page catalog.Page
	ts.do(t, http.MethodGet, "/images?offset=25&limit=6", nil, &page)
	assert.Equal(t, 31, page.Total)
	assert.Len(t, page.Images, 6)
	assert.False(t, page.HasMore)

	// tag names are accepted as well as ids
	ts.do(t, http.MethodGet, "/images?tag=burst", nil, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, a.ID, page.Images[0].ID)

	// the filter persists until changed
	ts.do(t, http.MethodGet, "/images", nil, &page)
	assert.Equal(t, 1, page.Total)

	ts.do(t, http.MethodGet, "/images?tag=&q=solder_joint_1", nil, &page)
	assert.Equal(t, 11, page.Total) // solder_joint_1 and _10 .. _19

	rec := ts.do(t, http.MethodGet, "/images?limit=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImages_TagsStarAnnotations(t *testing.T) {
	ts := newTestServer(t)
	img := ts.cat.AddImage("a.png", "u")

	var got domain.Image
	rec := ts.do(t, http.MethodPut, "/images/"+img.ID+"/tags", TagsRequest{Tags: []string{"burst", domain.TagOffset, "bridging"}}, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	bridging, ok := ts.cat.TagIDByName("bridging")
	require.True(t, ok, "unknown names are created")
	assert.Equal(t, []string{domain.TagBurst, domain.TagOffset, bridging}, got.Tags)

	ts.do(t, http.MethodPut, "/images/"+img.ID+"/tags", TagsRequest{}, &got)
	assert.Equal(t, []string{domain.TagUnclassified}, got.Tags)

	ts.do(t, http.MethodPost, "/images/"+img.ID+"/star", nil, &got)
	assert.True(t, got.IsStarred)

	var note domain.Annotation
	rec = ts.do(t, http.MethodPost, "/images/"+img.ID+"/annotations", AnnotationRequest{Content: " cold joint "}, &note)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cold joint", note.Content)

	rec = ts.do(t, http.MethodPost, "/images/"+img.ID+"/annotations", AnnotationRequest{Content: "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/images/"+img.ID+"/annotations/"+note.ID, nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, got.Annotations)

	rec = ts.do(t, http.MethodDelete, "/images/"+img.ID+"/annotations/"+note.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImages_DeleteNeedsAdminAndConfirm(t *testing.T) {
	ts := newTestServer(t)
	img := ts.cat.AddImage("a.png", "u")

	rec := ts.do(t, http.MethodDelete, "/images/"+img.ID+"?confirm=true", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeAdminRequired, errorCode(t, rec))

	ts.cat.SetAdmin(true)
	rec = ts.do(t, http.MethodDelete, "/images/"+img.ID, nil, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Len(t, ts.cat.Images(), 1)

	rec = ts.do(t, http.MethodDelete, "/images/"+img.ID+"?confirm=true", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.cat.Images())
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, map[string][]byte{
		"good.png":  pngBytes,
		"notes.txt": []byte("hello"),
	})
	req := httptest.NewRequest(http.MethodPost, "/images/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Data upload.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data.Added, 1)
	assert.Equal(t, "good.png", env.Data.Added[0].Name)
	assert.True(t, strings.HasPrefix(env.Data.Added[0].URL, "data:image/png;base64,"))
	require.Len(t, env.Data.Rejected, 1)
	assert.Equal(t, "notes.txt", env.Data.Rejected[0].Path)

	body, ct = multipartBody(t, map[string][]byte{"notes.txt": []byte("hello")})
	req = httptest.NewRequest(http.MethodPost, "/images/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, ts.cat.Images(), 1)
}

func TestUpload_OversizedFileOnlyRejectsItself(t *testing.T) {
	ts := newTestServer(t)

	huge := make([]byte, upload.MaxFileSize+1)
	copy(huge, pngBytes)
	body, ct := multipartBody(t, map[string][]byte{
		"good.png": pngBytes,
		"huge.png": huge,
	})
	req := httptest.NewRequest(http.MethodPost, "/images/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data upload.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data.Added, 1)
	assert.Equal(t, "good.png", env.Data.Added[0].Name)
	require.Len(t, env.Data.Rejected, 1)
	assert.Equal(t, "huge.png", env.Data.Rejected[0].Path)
	assert.Contains(t, env.Data.Rejected[0].Reason, "too large")
	assert.Len(t, ts.cat.Images(), 1)
}

func TestUpload_NoFiles(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, map[string][]byte{})
	req := httptest.NewRequest(http.MethodPost, "/images/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/images/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportURL(t *testing.T) {
	ts := newTestServer(t)
	ts.fetch.cand = upload.Candidate{Name: "remote.png", MIME: upload.MIMEPNG, Data: pngBytes}

	var img domain.Image
	rec := ts.do(t, http.MethodPost, "/images/import-url", ImportURLRequest{URL: "https://example.com/remote.png"}, &img)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "remote.png", img.Name)
	assert.True(t, strings.HasPrefix(img.URL, "data:image/png"))

	ts.do(t, http.MethodPost, "/images/import-url", ImportURLRequest{URL: "https://example.com/remote.png", Link: true}, &img)
	assert.Equal(t, "https://example.com/remote.png", img.URL)

	ts.fetch.err = upload.ErrUnsupportedType
	rec = ts.do(t, http.MethodPost, "/images/import-url", ImportURLRequest{URL: "https://example.com/x.gif"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.fetch.err = upload.ErrTooLarge
	rec = ts.do(t, http.MethodPost, "/images/import-url", ImportURLRequest{URL: "https://example.com/huge.png"}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	ts.fetch.err = errors.New("connection refused")
	rec = ts.do(t, http.MethodPost, "/images/import-url", ImportURLRequest{URL: "https://example.com/down.png"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSelectionAndBatch(t *testing.T) {
	ts := newTestServer(t)
	a := ts.cat.AddImage("a.png", "u")
	b := ts.cat.AddImage("b.jpg", "u")
	ts.cat.AddImage("c.png", "u")

	var sel SelectionResponse
	ts.do(t, http.MethodPost, "/selection/toggle/"+a.ID, nil, &sel)
	ts.do(t, http.MethodPost, "/selection/toggle/"+b.ID, nil, &sel)
	assert.Equal(t, []string{a.ID, b.ID}, sel.IDs)

	var names map[string]string
	ts.do(t, http.MethodGet, "/selection/names", nil, &names)
	assert.Equal(t, "b,a", names["names"])

	var res BatchResponse
	ts.do(t, http.MethodPost, "/batch/tags/add", BatchRequest{Tags: []string{"burst"}}, &res)
	assert.Equal(t, 2, res.Updated)
	got, _ := ts.cat.Image(a.ID)
	assert.Equal(t, []string{domain.TagBurst}, got.Tags)

	ts.do(t, http.MethodPost, "/batch/tags/remove", BatchRequest{IDs: []string{a.ID}, Tags: []string{domain.TagBurst}}, &res)
	assert.Equal(t, 1, res.Updated)
	got, _ = ts.cat.Image(a.ID)
	assert.Equal(t, []string{domain.TagUnclassified}, got.Tags)
	assert.Equal(t, []string{a.ID}, ts.cat.Selection())

	rec := ts.do(t, http.MethodPost, "/batch/tags/add", BatchRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.do(t, http.MethodPost, "/selection/all", nil, &sel)
	assert.Len(t, sel.IDs, 3)

	rec = ts.do(t, http.MethodPost, "/batch/delete?confirm=true", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.cat.SetAdmin(true)
	rec = ts.do(t, http.MethodPost, "/batch/delete", nil, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	var deleted map[string]int
	ts.do(t, http.MethodPost, "/batch/delete?confirm=true", BatchRequest{IDs: []string{a.ID, b.ID}}, &deleted)
	assert.Equal(t, 2, deleted["deleted"])
	assert.Len(t, ts.cat.Images(), 1)
	assert.Empty(t, ts.cat.Selection())

	ts.do(t, http.MethodDelete, "/selection", nil, &sel)
	assert.Empty(t, sel.IDs)
	assert.NotNil(t, sel.IDs)
}

func TestTags(t *testing.T) {
	ts := newTestServer(t)
	img := ts.cat.AddImage("a.png", "u")
	ts.cat.UpdateImageTags(img.ID, []string{domain.TagBurst})

	var list []TagWithCount
	ts.do(t, http.MethodGet, "/tags", nil, &list)
	require.Len(t, list, 7)
	for _, tag := range list {
		if tag.ID == domain.TagBurst {
			assert.Equal(t, 1, tag.Count)
		}
	}

	var tag domain.Tag
	rec := ts.do(t, http.MethodPost, "/tags", TagRequest{Name: "bridge"}, &tag)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/tags", TagRequest{Name: "BRIDGE"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPut, "/tags/"+tag.ID, TagRequest{Name: "burst"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var renamed domain.Tag
	rec = ts.do(t, http.MethodPut, "/tags/"+tag.ID, TagRequest{Name: "bridging"}, &renamed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bridging", renamed.Name)
	assert.False(t, renamed.CreatedAt.IsZero())

	rec = ts.do(t, http.MethodPut, "/tags/missing", TagRequest{Name: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/tags/"+tag.ID, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.cat.SetAdmin(true)
	rec = ts.do(t, http.MethodDelete, "/tags/"+domain.TagUnclassified, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/tags/"+tag.ID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ts.cat.Tags(), 7)
}

func TestConfig(t *testing.T) {
	ts := newTestServer(t)

	var cfg domain.AppConfig
	ts.do(t, http.MethodGet, "/config", nil, &cfg)
	assert.Equal(t, domain.AppConfig{ItemsPerRow: 3}, cfg)

	n, admin := 4, true
	ts.do(t, http.MethodPut, "/config", ConfigRequest{ItemsPerRow: &n, IsAdmin: &admin}, &cfg)
	assert.Equal(t, domain.AppConfig{ItemsPerRow: 4, IsAdmin: true}, cfg)

	bad := 7
	rec := ts.do(t, http.MethodPut, "/config", ConfigRequest{ItemsPerRow: &bad}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, ts.cat.Settings().ItemsPerRow)
}

func TestDataset(t *testing.T) {
	ts := newTestServer(t)

	var page dataset.Page
	ts.do(t, http.MethodGet, "/dataset", nil, &page)
	assert.Equal(t, dataset.DefaultPage().Title, page.Title)

	rec := ts.do(t, http.MethodPut, "/dataset", DatasetRequest{Title: "x"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.cat.SetAdmin(true)
	ts.do(t, http.MethodPut, "/dataset", DatasetRequest{Title: "Line 3 captures"}, &page)
	assert.Equal(t, "Line 3 captures", page.Title)

	var sec dataset.Section
	rec = ts.do(t, http.MethodPost, "/dataset/sections", SectionRequest{HTML: "<p>hi</p><script>x</script>"}, &sec)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "<p>hi</p>", sec.HTML)

	rec = ts.do(t, http.MethodPost, "/dataset/sections", SectionRequest{Kind: "video"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.do(t, http.MethodPut, "/dataset/sections/"+sec.ID, SectionRequest{HTML: "<p>bye</p>"}, &sec)
	assert.Equal(t, "<p>bye</p>", sec.HTML)

	rec = ts.do(t, http.MethodDelete, "/dataset/sections/"+sec.ID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/dataset/sections/"+sec.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.do(t, http.MethodDelete, "/dataset", nil, &page)
	assert.Equal(t, dataset.DefaultPage(), page)

	ts.cat.SetAdmin(false)
	rec = ts.do(t, http.MethodDelete, "/dataset", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportXLSX(t *testing.T) {
	ts := newTestServer(t, catalog.WithDemoImages(3))

	rec := ts.do(t, http.MethodGet, "/export.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestRecovery(t *testing.T) {
	h := withRecovery(zap.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, errorCode(t, rec))
}
