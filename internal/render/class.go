package render

// FontClass determines which glyph source renders a character:
// remote emoji bitmaps, the wide-script (CJK) font, or the default font.
type FontClass int

const (
	ClassDefault FontClass = iota
	ClassWide
	ClassEmoji
)

func (c FontClass) String() string {
	switch c {
	case ClassEmoji:
		return "emoji"
	case ClassWide:
		return "wide"
	default:
		return "default"
	}
}

// ClassifyRune assigns a font class to a single code point. Emoji detection
// wins over script detection so pictographs inside CJK text still resolve to
// bitmap glyphs. Every rune yields a class.
func ClassifyRune(r rune) FontClass {
	if isPictographic(r) {
		return ClassEmoji
	}
	if isWideScript(r) {
		return ClassWide
	}
	return ClassDefault
}

// isPictographic reports whether the rune carries emoji presentation.
// Covers the Extended_Pictographic blocks plus emoji components so that
// modifiers and ZWJ stay inside an emoji run instead of splitting it.
func isPictographic(r rune) bool {
	switch {
	// Emoticons
	case r >= 0x1F600 && r <= 0x1F64F:
		return true
	// Miscellaneous Symbols and Pictographs
	case r >= 0x1F300 && r <= 0x1F5FF:
		return true
	// Transport and Map Symbols
	case r >= 0x1F680 && r <= 0x1F6FF:
		return true
	// Supplemental Symbols and Pictographs
	case r >= 0x1F900 && r <= 0x1F9FF:
		return true
	// Symbols and Pictographs Extended-A/B
	case r >= 0x1FA00 && r <= 0x1FAFF:
		return true
	// Skin tone modifiers
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	// Regional indicators (flag pairs)
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	// Miscellaneous Symbols and Dingbats (text-presentation emoji)
	case r >= 0x2600 && r <= 0x26FF:
		return true
	case r >= 0x2702 && r <= 0x27B0:
		return true
	// Variation selectors and ZWJ keep sequences in one run
	case r == 0xFE0F || r == 0x200D:
		return true
	// Combining enclosing keycap
	case r == 0x20E3:
		return true
	}
	return false
}

// isWideScript reports whether the rune belongs to the CJK, kana, Hangul or
// fullwidth-form ranges served by the wide font.
func isWideScript(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return true
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK Symbols and Punctuation
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // Fullwidth forms
		return true
	}
	return false
}
