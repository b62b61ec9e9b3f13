package render

import (
	"fmt"
	"image/color"
)

// Default canvas dimensions: 9:16 portrait.
const (
	DefaultCanvasWidth  = 1080
	DefaultCanvasHeight = 1920
)

// LayoutConfig is the styling value object for overlay rendering. One
// canonical instance is built at startup and never mutated afterwards.
type LayoutConfig struct {
	// Title banner
	TitleFontSize    float64
	TitleLineSpacing float64
	TitleBoxWidth    float64
	TitleMaxLines    int
	TitlePadTop      float64
	TitlePadBottom   float64

	// Rank rows
	RankFontSize   float64
	RankRowTop     float64 // padding between the title band and the first row slot
	RankRowSpacing float64
	RankNumberX    float64
	RankLabelX     float64
	RankBoxWidth   float64
	RankMaxLines   int

	// Tier colors for the first len(TierColors) ranks; others use DefaultTier.
	TierColors  []color.NRGBA
	DefaultTier color.NRGBA

	// Watermark
	Watermark     string
	WatermarkSize float64
	WatermarkPad  float64

	// Outline width for stroked text
	StrokeWidth float64
}

// DefaultLayout returns the canonical deployment layout: gold/silver/bronze
// tiers, bottom-right watermark, stroked rank text.
func DefaultLayout(watermark string) LayoutConfig {
	return LayoutConfig{
		TitleFontSize:    96,
		TitleLineSpacing: 14,
		TitleBoxWidth:    1000,
		TitleMaxLines:    3,
		TitlePadTop:      48,
		TitlePadBottom:   48,

		RankFontSize:   64,
		RankRowTop:     64,
		RankRowSpacing: 150,
		RankNumberX:    60,
		RankLabelX:     210,
		RankBoxWidth:   820,
		RankMaxLines:   2,

		TierColors: []color.NRGBA{
			{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF}, // gold
			{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF}, // silver
			{R: 0xCD, G: 0x7F, B: 0x32, A: 0xFF}, // bronze
		},
		DefaultTier: color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},

		Watermark:     watermark,
		WatermarkSize: 40,
		WatermarkPad:  30,

		StrokeWidth: 4,
	}
}

// Validate rejects non-positive sizes and spacings. The tier color mapping
// may be shorter than the rank list; missing entries fall back to DefaultTier.
func (c LayoutConfig) Validate() error {
	positive := map[string]float64{
		"title font size":  c.TitleFontSize,
		"title box width":  c.TitleBoxWidth,
		"rank font size":   c.RankFontSize,
		"rank row spacing": c.RankRowSpacing,
		"rank box width":   c.RankBoxWidth,
		"watermark size":   c.WatermarkSize,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("layout %s must be positive, got %v", name, v)
		}
	}
	if c.TitleMaxLines < 1 {
		return fmt.Errorf("title max lines must be at least 1, got %d", c.TitleMaxLines)
	}
	if c.RankMaxLines < 1 {
		return fmt.Errorf("rank max lines must be at least 1, got %d", c.RankMaxLines)
	}
	return nil
}

// TierColor returns the display color for a 0-based rank index.
func (c LayoutConfig) TierColor(index int) color.NRGBA {
	if index >= 0 && index < len(c.TierColors) {
		return c.TierColors[index]
	}
	return c.DefaultTier
}
