package card

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	_ "golang.org/x/image/webp"

	"pardo/pkg/config"
	"pardo/pkg/logger"
)

// ImageLoader fetches and decodes a product photo. Implementations must
// return an error rather than a partial image; the layout engine turns
// any failure into a placeholder.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// HTTPImageLoader fetches photos over HTTP with a byte-bounded memory
// LRU and a disk cache keyed by URL in front of the network.
type HTTPImageLoader struct {
	Client *http.Client
}

// NewImageLoader returns the default photo loader.
func NewImageLoader() *HTTPImageLoader {
	return &HTTPImageLoader{Client: &http.Client{Timeout: 8 * time.Second}}
}

func (l *HTTPImageLoader) Load(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("image: empty url")
	}
	if raw, ok := photoCache.get(url); ok {
		return decodePhoto(raw)
	}
	if raw, ok := photoDiskGet(url); ok {
		photoCache.put(url, raw)
		return decodePhoto(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "pardo-imagefetcher/1.0")

	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("image fetch: status %d", resp.StatusCode)
	}

	var rc io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		if gr, e := gzip.NewReader(resp.Body); e == nil {
			rc = gr
			defer gr.Close()
		}
	case "deflate":
		if zr, e := zlib.NewReader(resp.Body); e == nil {
			rc = zr
			defer zr.Close()
		} else {
			rc = flate.NewReader(resp.Body)
		}
	}

	raw, err := io.ReadAll(rc)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("image read: err=%v len=%d", err, len(raw))
	}
	img, err := decodePhoto(raw)
	if err != nil {
		logger.S().Debugw("image decode failed", "url", url, "ct", resp.Header.Get("Content-Type"), "err", err)
		return nil, err
	}
	photoCache.put(url, raw)
	photoDiskPut(url, raw)
	return img, nil
}

func decodePhoto(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}
	return img, nil
}

// ---------------------- Photo cache (LRU by bytes) ----------------------

type photoEntry struct {
	key        string
	data       []byte
	prev, next *photoEntry
}

type photoLRU struct {
	mu    sync.Mutex
	items map[string]*photoEntry
	head  *photoEntry
	tail  *photoEntry
	size  int64
	max   int64
}

func newPhotoLRU(max int64) *photoLRU {
	return &photoLRU{items: map[string]*photoEntry{}, max: max}
}

func (c *photoLRU) moveFront(e *photoEntry) {
	if c.head == e {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.tail == e {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *photoLRU) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.moveFront(e)
	return e.data, true
}

func (c *photoLRU) put(key string, data []byte) {
	if int64(len(data)) > c.max {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.size += int64(len(data)) - int64(len(e.data))
		e.data = data
		c.moveFront(e)
	} else {
		e := &photoEntry{key: key, data: data}
		c.items[key] = e
		c.size += int64(len(data))
		e.next = c.head
		if c.head != nil {
			c.head.prev = e
		}
		c.head = e
		if c.tail == nil {
			c.tail = e
		}
	}
	for c.size > c.max && c.tail != nil {
		evict := c.tail
		c.tail = evict.prev
		if c.tail != nil {
			c.tail.next = nil
		} else {
			c.head = nil
		}
		c.size -= int64(len(evict.data))
		delete(c.items, evict.key)
	}
}

var photoCache = func() *photoLRU {
	mb := config.GetEnvInt("PARDO_IMG_CACHE_MB", 32)
	if mb < 1 {
		mb = 1
	}
	return newPhotoLRU(int64(mb) * 1024 * 1024)
}()
