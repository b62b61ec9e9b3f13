package render

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SplitEmojiGlyphs groups the runes of an emoji segment into displayable
// glyphs: a base pictograph together with its skin-tone modifiers, variation
// selectors, keycap combiners and ZWJ-joined continuations forms one glyph,
// and a regional-indicator pair forms one flag glyph.
func SplitEmojiGlyphs(text string) [][]rune {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	glyphs := make([][]rune, 0, len(runes))
	var current []rune
	joined := false // previous rune was a ZWJ

	for _, r := range runes {
		switch {
		case len(current) == 0:
			current = append(current, r)
		case joined, isEmojiContinuation(r):
			current = append(current, r)
		case isRegionalIndicator(r) && len(current) == 1 && isRegionalIndicator(current[0]):
			current = append(current, r)
		default:
			glyphs = append(glyphs, current)
			current = []rune{r}
		}
		joined = r == 0x200D
	}

	return append(glyphs, current)
}

// isEmojiContinuation reports whether the rune extends the preceding glyph
// rather than starting a new one.
func isEmojiContinuation(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0xFE0F || r == 0xFE0E: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	case r == 0x20E3: // combining enclosing keycap
		return true
	}
	return false
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

// EmojiKey derives the content-addressed remote key for a glyph: lowercase
// hex code points joined by dashes, with presentation selectors dropped,
// matching the Twemoji asset naming convention.
func EmojiKey(glyph []rune) string {
	parts := make([]string, 0, len(glyph))
	for _, r := range glyph {
		if r == 0xFE0F || r == 0xFE0E {
			continue
		}
		parts = append(parts, fmt.Sprintf("%x", r))
	}
	return strings.Join(parts, "-")
}

// GlyphFetcher retrieves an emoji bitmap by its remote key.
type GlyphFetcher interface {
	Fetch(ctx context.Context, key string) (image.Image, error)
}

// HTTPGlyphSource fetches emoji bitmaps from a CDN that serves PNG assets
// addressed by code-point key (e.g. Twemoji).
type HTTPGlyphSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGlyphSource(baseURL string) *HTTPGlyphSource {
	return &HTTPGlyphSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch downloads and decodes the bitmap for key.
func (s *HTTPGlyphSource) Fetch(ctx context.Context, key string) (image.Image, error) {
	url := fmt.Sprintf("%s/%s.png", s.baseURL, key)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emoji %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("emoji %s fetch returned status %d", key, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode emoji %s: %w", key, err)
	}

	return img, nil
}

// GlyphCache is a process-wide, content-addressed cache of fetched emoji
// bitmaps. It is safe for concurrent population; equivalent entries fetched
// twice are idempotent by key, and singleflight collapses concurrent fetches
// of the same key. Clear it at job end to bound memory.
type GlyphCache struct {
	source GlyphFetcher

	mu      sync.RWMutex
	entries map[string]image.Image
	group   singleflight.Group
}

func NewGlyphCache(source GlyphFetcher) *GlyphCache {
	return &GlyphCache{
		source:  source,
		entries: make(map[string]image.Image),
	}
}

// Resolve returns the bitmap for key, fetching and caching it on first use.
func (c *GlyphCache) Resolve(ctx context.Context, key string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		img, err := c.source.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = img
		c.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(image.Image), nil
}

// Len returns the number of cached bitmaps.
func (c *GlyphCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached bitmap.
func (c *GlyphCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]image.Image)
	c.mu.Unlock()
}
