package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// basicProvider serves the fixed 7x13 bitmap face for every class and size,
// keeping overlay tests independent of font files on disk.
type basicProvider struct{}

func (basicProvider) Face(class FontClass, size float64) (font.Face, error) {
	return basicfont.Face7x13, nil
}

func (basicProvider) Advance(class FontClass, size float64, text string) (float64, error) {
	return fixedToFloat(font.MeasureString(basicfont.Face7x13, text)), nil
}

// facelessProvider has no faces at all, as after a failed font load.
type facelessProvider struct{}

func (facelessProvider) Face(class FontClass, size float64) (font.Face, error) {
	return nil, errors.New("no face registered")
}

func (facelessProvider) Advance(class FontClass, size float64, text string) (float64, error) {
	return 0, errors.New("no face registered")
}

func testRenderer(t *testing.T) *OverlayRenderer {
	t.Helper()
	layout := DefaultLayout("@rankreel")
	if err := layout.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	drawer := &TextDrawer{Fonts: basicProvider{}, Emoji: NewGlyphCache(&countingFetcher{})}
	return NewOverlayRenderer(layout, drawer, DefaultCanvasWidth, DefaultCanvasHeight)
}

func TestRenderOverlayDeterministic(t *testing.T) {
	r := testRenderer(t)
	ctx := context.Background()
	ranks := []string{"Tokyo", "Osaka 😀", "Kyoto"}

	first, err := r.RenderOverlay(ctx, "Top 3 Cities", ranks, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.RenderOverlay(ctx, "Top 3 Cities", ranks, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical inputs produced different pixels")
	}
}

func TestRenderOverlayShowBounds(t *testing.T) {
	r := testRenderer(t)
	ranks := []string{"a", "b"}

	if _, err := r.RenderOverlay(context.Background(), "t", ranks, -1); err == nil {
		t.Error("expected error for negative show count")
	}
	if _, err := r.RenderOverlay(context.Background(), "t", ranks, 3); err == nil {
		t.Error("expected error for show count beyond list length")
	}
}

func TestRenderRankIndexBounds(t *testing.T) {
	r := testRenderer(t)
	ranks := []string{"a", "b"}

	if _, err := r.RenderRank(context.Background(), "t", ranks, -1); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := r.RenderRank(context.Background(), "t", ranks, 2); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestRenderOverlayZeroShowMatchesBase(t *testing.T) {
	r := testRenderer(t)
	ctx := context.Background()

	withNone, err := r.RenderOverlay(ctx, "Quiet Start", []string{"a", "b"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base, err := r.RenderBase(ctx, "Quiet Start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(withNone.Pix, base.Pix) {
		t.Error("overlay with zero revealed ranks should equal the base image")
	}
}

// Layering the base image and every per-rank image must reproduce the full
// overlay exactly: the timed plan depends on rank rows landing at the same
// positions whether they are drawn together or composited as layers.
func TestRenderRankLayersComposeToFullOverlay(t *testing.T) {
	r := testRenderer(t)
	ctx := context.Background()
	title := "Top 3 Ramen Shops"
	ranks := []string{"Ichiran", "Afuri", "Nagi"}

	full, err := r.RenderOverlay(ctx, title, ranks, len(ranks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	composite, err := r.RenderBase(ctx, title)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for index := range ranks {
		layer, err := r.RenderRank(ctx, title, ranks, index)
		if err != nil {
			t.Fatalf("rank %d: unexpected error: %v", index, err)
		}
		draw.Draw(composite, composite.Bounds(), layer, image.Point{}, draw.Over)
	}

	if !bytes.Equal(full.Pix, composite.Pix) {
		t.Error("composited layers differ from the full overlay")
	}
}

// A renderer whose font provider has no usable faces must fail loudly.
// Returning a blank overlay with a nil error would let an empty frame reach
// the compositor and get published.
func TestRenderFailsWithoutFaces(t *testing.T) {
	layout := DefaultLayout("@rankreel")
	drawer := &TextDrawer{Fonts: facelessProvider{}, Emoji: NewGlyphCache(&countingFetcher{})}
	r := NewOverlayRenderer(layout, drawer, DefaultCanvasWidth, DefaultCanvasHeight)
	ctx := context.Background()
	ranks := []string{"a", "b"}

	if _, err := r.RenderOverlay(ctx, "t", ranks, 2); err == nil {
		t.Error("RenderOverlay: expected error without faces, got nil")
	}
	if _, err := r.RenderBase(ctx, "t"); err == nil {
		t.Error("RenderBase: expected error without faces, got nil")
	}
	if _, err := r.RenderRank(ctx, "t", ranks, 0); err == nil {
		t.Error("RenderRank: expected error without faces, got nil")
	}
}

func TestRenderOverlayCanvasSize(t *testing.T) {
	r := testRenderer(t)

	img, err := r.RenderOverlay(context.Background(), "t", []string{"a"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != DefaultCanvasWidth || bounds.Dy() != DefaultCanvasHeight {
		t.Errorf("expected %dx%d canvas, got %dx%d",
			DefaultCanvasWidth, DefaultCanvasHeight, bounds.Dx(), bounds.Dy())
	}
}
