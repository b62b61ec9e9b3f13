package render

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSplitEmojiGlyphs(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"two simple emoji", "😀🎉", 2},
		{"skin tone modifier", "👍🏽", 1},
		{"zwj family", "👨‍👩‍👧", 1},
		{"flag pair", "🇯🇵", 1},
		{"two flags", "🇯🇵🇺🇸", 2},
		{"heart with selector", "❤️", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			glyphs := SplitEmojiGlyphs(tc.text)
			if len(glyphs) != tc.want {
				t.Errorf("expected %d glyphs, got %d: %v", tc.want, len(glyphs), glyphs)
			}
		})
	}

	if SplitEmojiGlyphs("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestEmojiKey(t *testing.T) {
	cases := []struct {
		glyph []rune
		want  string
	}{
		{[]rune{0x1F600}, "1f600"},
		{[]rune{0x2764, 0xFE0F}, "2764"},
		{[]rune{0x1F1EF, 0x1F1F5}, "1f1ef-1f1f5"},
		{[]rune{0x1F44D, 0x1F3FD}, "1f44d-1f3fd"},
	}

	for _, tc := range cases {
		if got := EmojiKey(tc.glyph); got != tc.want {
			t.Errorf("EmojiKey(%U) = %q, want %q", tc.glyph, got, tc.want)
		}
	}
}

// countingFetcher returns a fixed bitmap and counts how many fetches reach
// the backing source.
type countingFetcher struct {
	calls int64
	fail  bool
}

func (f *countingFetcher) Fetch(ctx context.Context, key string) (image.Image, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.fail {
		return nil, errors.New("source unavailable")
	}
	return image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil
}

func TestGlyphCacheResolveCachesByKey(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewGlyphCache(fetcher)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.Resolve(ctx, "1f600"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if atomic.LoadInt64(&fetcher.calls) != 1 {
		t.Errorf("expected 1 source fetch, got %d", fetcher.calls)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", cache.Len())
	}
}

func TestGlyphCacheConcurrentResolve(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewGlyphCache(fetcher)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Resolve(ctx, "1f389"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", cache.Len())
	}
}

func TestGlyphCacheFetchFailureNotCached(t *testing.T) {
	fetcher := &countingFetcher{fail: true}
	cache := NewGlyphCache(fetcher)

	if _, err := cache.Resolve(context.Background(), "1f600"); err == nil {
		t.Fatal("expected error from failing source")
	}
	if cache.Len() != 0 {
		t.Errorf("failed fetch must not be cached, got %d entries", cache.Len())
	}
}

func TestGlyphCacheClear(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewGlyphCache(fetcher)
	ctx := context.Background()

	if _, err := cache.Resolve(ctx, "1f600"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", cache.Len())
	}

	if _, err := cache.Resolve(ctx, "1f600"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt64(&fetcher.calls) != 2 {
		t.Errorf("expected refetch after clear, got %d calls", fetcher.calls)
	}
}
