package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// baselineRatio approximates the ascent of a face as a fraction of the font
// size, used to place emoji boxes and title lines against text baselines.
const baselineRatio = 0.8

// TextDrawer draws mixed-class strings onto a raster surface, routing
// non-emoji runs through registered font faces and emoji through the bitmap
// cache. Emoji is optional; with a nil cache emoji glyphs are skipped but the
// cursor still advances.
type TextDrawer struct {
	Fonts FontProvider
	Emoji *GlyphCache
}

// DrawString draws text with its baseline at (x, y) and returns the cursor
// position after the final glyph. If stroke is non-nil each non-emoji run is
// outlined by redrawing it at every integer offset within strokeWidth before
// the fill pass. A failed emoji fetch skips that glyph only; a missing font
// face is fatal to the whole draw.
func (d *TextDrawer) DrawString(ctx context.Context, dst draw.Image, text string, x, y float64, size float64, fill color.Color, stroke color.Color, strokeWidth float64) (float64, error) {
	for _, seg := range SegmentText(text) {
		if seg.Class == ClassEmoji {
			x = d.drawEmojiRun(ctx, dst, seg.Text, x, y, size)
			continue
		}
		var err error
		x, err = d.drawTextRun(dst, seg, x, y, size, fill, stroke, strokeWidth)
		if err != nil {
			return x, err
		}
	}
	return x, nil
}

func (d *TextDrawer) drawTextRun(dst draw.Image, seg Segment, x, y float64, size float64, fill color.Color, stroke color.Color, strokeWidth float64) (float64, error) {
	face, err := d.Fonts.Face(seg.Class, size)
	if err != nil {
		return x, fmt.Errorf("no face for class %s at %.1f: %w", seg.Class, size, err)
	}

	if stroke != nil && strokeWidth > 0 {
		w := int(strokeWidth + 0.5)
		outline := &font.Drawer{Dst: dst, Src: image.NewUniform(stroke), Face: face}
		for dy := -w; dy <= w; dy++ {
			for dx := -w; dx <= w; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if dx*dx+dy*dy > w*w {
					continue
				}
				outline.Dot = fixed2(x+float64(dx), y+float64(dy))
				outline.DrawString(seg.Text)
			}
		}
	}

	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(fill), Face: face}
	drawer.Dot = fixed2(x, y)
	drawer.DrawString(seg.Text)

	return x + fixedToFloat(font.MeasureString(face, seg.Text)), nil
}

func (d *TextDrawer) drawEmojiRun(ctx context.Context, dst draw.Image, text string, x, y float64, size float64) float64 {
	for _, glyph := range SplitEmojiGlyphs(text) {
		if d.Emoji != nil {
			key := EmojiKey(glyph)
			if img, err := d.Emoji.Resolve(ctx, key); err != nil {
				// Non-fatal: the glyph is dropped, the layout is kept.
				log.Printf("[Render] emoji %s unavailable, skipping: %v", key, err)
			} else {
				d.placeEmoji(dst, img, x, y, size)
			}
		}
		x += size
	}
	return x
}

// placeEmoji scales the bitmap into a size×size box sitting on the baseline.
func (d *TextDrawer) placeEmoji(dst draw.Image, src image.Image, x, y, size float64) {
	top := int(y - size*baselineRatio)
	left := int(x)
	box := image.Rect(left, top, left+int(size), top+int(size))
	draw.ApproxBiLinear.Scale(dst, box, src, src.Bounds(), draw.Over, nil)
}

func fixed2(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)}
}
