package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pardo/card"
)

const testFeed = `<rss xmlns:g="http://base.google.com/ns/1.0"><channel>
<item><title>Heladera</title><g:id>HEL-360</g:id><price>6199999 ARS</price>
<installment><months>12</months></installment></item>
<item><title>Cafetera</title><g:id>CAF-1</g:id><price>54999</price></item>
</channel></rss>`

type failingLoader struct{}

func (failingLoader) Load(context.Context, string) (image.Image, error) {
	return nil, errors.New("no photos in tests")
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	t.Cleanup(upstream.Close)

	fetcher := card.NewFetcher()
	fetcher.Strategies = []card.Strategy{{
		Name:  "test",
		Build: func(target string) string { return upstream.URL + "/?url=" + url.QueryEscape(target) },
	}}
	s := New(Config{
		Fetcher: fetcher,
		Loader:  failingLoader{},
		Logger:  zap.NewNop(),
		OutDir:  t.TempDir(),
	})
	return s, upstream
}

func TestHandlePing(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pong\n", rec.Body.String())
}

func TestHandleFeed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed?url=https://x.example.com/feed.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res feedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "test", res.Source)
	require.Equal(t, 2, res.Count)
	require.Equal(t, "HEL-360", res.Products[0].SKU)
	require.Equal(t, 12, res.Products[0].Installments)
}

func TestHandleFeedMissingURL(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCardReturnsJPEG(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/card?url=feedref&sku=CAF-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "pardo_CAF-1.jpg")

	body := rec.Body.Bytes()
	require.Greater(t, len(body), 2)
	require.Equal(t, []byte{0xff, 0xd8}, body[:2], "JPEG SOI marker")
}

func TestHandleCardUnknownSKU(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/card?url=feedref&sku=NOPE", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBatch(t *testing.T) {
	s, _ := newTestServer(t)
	dir := t.TempDir()
	form := url.Values{"url": {"feedref"}, "dir": {dir}}
	req := httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Count int    `json:"count"`
		Dir   string `json:"dir"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 2, res.Count)

	for _, name := range []string{"pardo_HEL-360.jpg", "pardo_CAF-1.jpg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Equal(t, []byte{0xff, 0xd8}, data[:2])
	}
}

func TestHandleBatchRequiresPost(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batch?url=feedref", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
