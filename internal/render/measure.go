package render

import "golang.org/x/image/math/fixed"

// MeasureString returns the rendered width of a mixed-class string at a given
// size. Emoji advance counts displayed glyphs, not code points: a ZWJ sequence
// or a flag pair occupies one square of a font size, matching the drawer's
// per-glyph placement. Every other run is measured through the metrics for its
// class; a metrics failure is fatal for the whole measurement.
func MeasureString(m Metrics, text string, size float64) (float64, error) {
	var width float64
	for _, seg := range SegmentText(text) {
		if seg.Class == ClassEmoji {
			width += size * float64(len(SplitEmojiGlyphs(seg.Text)))
			continue
		}
		adv, err := m.Advance(seg.Class, size, seg.Text)
		if err != nil {
			return 0, err
		}
		width += adv
	}
	return width, nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64.0)
}
