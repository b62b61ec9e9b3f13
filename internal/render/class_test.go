package render

import (
	"strings"
	"testing"
)

func TestClassifyRune(t *testing.T) {
	cases := []struct {
		r    rune
		want FontClass
	}{
		{'A', ClassDefault},
		{'7', ClassDefault},
		{' ', ClassDefault},
		{'é', ClassDefault},
		{'漢', ClassWide},
		{'か', ClassWide},
		{'カ', ClassWide},
		{'한', ClassWide},
		{'。', ClassWide},
		{0x1F600, ClassEmoji}, // 😀
		{0x1F3FD, ClassEmoji}, // skin tone modifier
		{0x1F1EF, ClassEmoji}, // regional indicator
		{0x2764, ClassEmoji},  // ❤
		{0xFE0F, ClassEmoji},  // variation selector
		{0x200D, ClassEmoji},  // zero-width joiner
	}

	for _, tc := range cases {
		if got := ClassifyRune(tc.r); got != tc.want {
			t.Errorf("ClassifyRune(%U) = %s, want %s", tc.r, got, tc.want)
		}
	}
}

func TestSegmentText(t *testing.T) {
	segments := SegmentText("Top 5 ラーメン 😀!")

	want := []Segment{
		{Text: "Top 5 ", Class: ClassDefault},
		{Text: "ラーメン", Class: ClassWide},
		{Text: " ", Class: ClassDefault},
		{Text: "😀", Class: ClassEmoji},
		{Text: "!", Class: ClassDefault},
	}

	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %v", len(want), len(segments), segments)
	}
	for i, seg := range segments {
		if seg != want[i] {
			t.Errorf("segment %d: expected %+v, got %+v", i, want[i], seg)
		}
	}
}

func TestSegmentTextEmpty(t *testing.T) {
	if segments := SegmentText(""); segments != nil {
		t.Errorf("expected nil for empty input, got %v", segments)
	}
}

func TestSegmentTextRoundTrip(t *testing.T) {
	inputs := []string{
		"plain ascii only",
		"日本語だけ",
		"mixed 日本語 and ascii",
		"😀🎉 emoji run",
		"❤️ with selector",
		"a漢b😀c",
	}

	for _, input := range inputs {
		var sb strings.Builder
		for _, seg := range SegmentText(input) {
			sb.WriteString(seg.Text)
		}
		if sb.String() != input {
			t.Errorf("round trip of %q produced %q", input, sb.String())
		}
	}
}

func TestSegmentRuneCount(t *testing.T) {
	seg := Segment{Text: "ラーメン", Class: ClassWide}
	if seg.RuneCount() != 4 {
		t.Errorf("expected 4 runes, got %d", seg.RuneCount())
	}
}
