// Package postercache downloads movie posters, resizes them on demand and
// keeps both the originals and the resized variants in a disk cache.
package postercache

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/exfatt/films-server/idhash"
)

// maxPosterBytes caps how much we download per poster.
const maxPosterBytes = 20 << 20

type Options struct {
	Cachedir string
	// Quality is the JPEG quality for resized posters, defaults to 85.
	Quality int
	// Client used to fetch posters, defaults to one with a 15s timeout.
	Client *http.Client
}

type Cache struct {
	cachedir string
	quality  int
	client   *http.Client
	tmpExt   string
	// per-poster locks so concurrent requests resize once
	fetchMutexMap     map[string]*sync.Mutex
	fetchMutexMapLock sync.Mutex
}

func New(o Options) *Cache {
	c := &Cache{
		cachedir:      o.Cachedir,
		quality:       o.Quality,
		client:        o.Client,
		tmpExt:        fmt.Sprintf(".%d", os.Getpid()),
		fetchMutexMap: make(map[string]*sync.Mutex),
	}
	if c.quality == 0 {
		c.quality = 85
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

func param2uint(params map[string][]string, param string) uint {
	if val, ok := params[param]; ok && len(val) > 0 {
		x, _ := strconv.ParseUint(val[0], 10, 32)
		return uint(x)
	}
	return 0
}

// Serve writes the poster behind imageURL, resized according to the request's
// w, h and q query parameters. Without parameters the original is served.
func (c *Cache) Serve(w http.ResponseWriter, r *http.Request, imageURL string) {
	key := idhash.Hash(imageURL)

	m := c.lockPoster(key)
	defer m.Unlock()

	original, err := c.original(r, key, imageURL)
	if err != nil {
		http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
		return
	}

	params := r.URL.Query()
	width := param2uint(params, "w")
	height := param2uint(params, "h")
	quality := param2uint(params, "q")
	if quality == 0 {
		quality = uint(c.quality)
	}

	w.Header().Set("cache-control", "max-age=86400, stale-while-revalidate=300")

	if width == 0 && height == 0 {
		w.Header().Set("Content-Type", http.DetectContentType(original))
		w.Write(original)
		return
	}

	blob, err := c.resized(original, key, width, height, quality)
	if err != nil {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(blob)
}

func (c *Cache) lockPoster(key string) *sync.Mutex {
	c.fetchMutexMapLock.Lock()
	m, ok := c.fetchMutexMap[key]
	if !ok {
		m = &sync.Mutex{}
		c.fetchMutexMap[key] = m
	}
	c.fetchMutexMapLock.Unlock()
	m.Lock()
	return m
}

// original returns the poster bytes, downloading them on a cache miss.
func (c *Cache) original(r *http.Request, key, imageURL string) ([]byte, error) {
	if blob := c.cacheRead(key); blob != nil {
		return blob, nil
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poster fetch: unexpected status %d", resp.StatusCode)
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes))
	if err != nil {
		return nil, err
	}

	c.cacheWrite(key, blob)
	return blob, nil
}

// resized returns the resized poster, from the cache when possible.
func (c *Cache) resized(original []byte, key string, width, height, quality uint) ([]byte, error) {
	variant := fmt.Sprintf("%s:%dx%dq=%d", key, width, height, quality)
	if blob := c.cacheRead(variant); blob != nil {
		return blob, nil
	}

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, err
	}

	// a zero dimension keeps the aspect ratio
	img = imaging.Resize(img, int(width), int(height), imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(quality)}); err != nil {
		return nil, err
	}

	c.cacheWrite(variant, buf.Bytes())
	return buf.Bytes(), nil
}

func (c *Cache) cacheRead(name string) []byte {
	if c.cachedir == "" {
		return nil
	}
	blob, err := os.ReadFile(filepath.Join(c.cachedir, name))
	if err != nil {
		return nil
	}
	return blob
}

// cacheWrite stores via a tmp file and rename so readers never see partials.
func (c *Cache) cacheWrite(name string, blob []byte) {
	if c.cachedir == "" {
		return
	}
	fn := filepath.Join(c.cachedir, name)
	tmp := fn + c.tmpExt
	if err := os.WriteFile(tmp, blob, 0666); err != nil {
		return
	}
	if err := os.Rename(tmp, fn); err != nil {
		os.Remove(tmp)
	}
}
