package render

import (
	"errors"
	"math"
	"testing"
)

// runeMetrics is a fixed-width oracle: every rune advances by exactly the
// font size, independent of class.
type runeMetrics struct{}

func (runeMetrics) Advance(class FontClass, size float64, text string) (float64, error) {
	count := 0
	for range text {
		count++
	}
	return size * float64(count), nil
}

// brokenMetrics fails every advance lookup.
type brokenMetrics struct{}

func (brokenMetrics) Advance(class FontClass, size float64, text string) (float64, error) {
	return 0, errors.New("no faces loaded")
}

func TestMeasureStringMixed(t *testing.T) {
	// "hi" measures through the oracle; the flag pair is one emoji glyph at
	// size width, so the total is 2*10 + 1*10.
	got, err := MeasureString(runeMetrics{}, "hi🇯🇵", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-30) > 1e-9 {
		t.Errorf("expected width 30, got %v", got)
	}
}

func TestMeasureStringFailedMetricsIsFatal(t *testing.T) {
	// Broken metrics must surface an error, never a silent zero width.
	if _, err := MeasureString(brokenMetrics{}, "hi", 10); err == nil {
		t.Fatal("expected error from broken metrics, got nil")
	}
}

func TestFitTextShrinksUntilFit(t *testing.T) {
	// At size 40 "aa bb cc" needs three lines in a 100-wide box; the fitter
	// steps down by 2 until the whole text packs onto one line at size 12.
	fit, err := FitText(runeMetrics{}, "aa bb cc", 100, 1, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fit.Size != 12 {
		t.Errorf("expected size 12, got %v", fit.Size)
	}
	if len(fit.Lines) != 1 || fit.Lines[0] != "aa bb cc" {
		t.Errorf("unexpected lines: %v", fit.Lines)
	}
}

func TestFitTextKeepsStartSizeWhenFitting(t *testing.T) {
	fit, err := FitText(runeMetrics{}, "short", 100, 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fit.Size != 20 {
		t.Errorf("expected start size kept, got %v", fit.Size)
	}
	if len(fit.Lines) != 1 || fit.Lines[0] != "short" {
		t.Errorf("unexpected lines: %v", fit.Lines)
	}
}

func TestFitTextWrapsAcrossLines(t *testing.T) {
	// Box fits two words per line at size 10 (49 < 50 <= box width).
	fit, err := FitText(runeMetrics{}, "ab cd ef gh", 50, 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fit.Size != 10 {
		t.Errorf("expected size 10, got %v", fit.Size)
	}
	want := []string{"ab cd", "ef gh"}
	if len(fit.Lines) != 2 || fit.Lines[0] != want[0] || fit.Lines[1] != want[1] {
		t.Errorf("expected %v, got %v", want, fit.Lines)
	}
}

func TestFitTextFallbackSingleLine(t *testing.T) {
	// Three words in a 1-wide box can never pack into one line, so the
	// fitter bottoms out and returns the text unwrapped.
	fit, err := FitText(runeMetrics{}, "a b c", 1, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fit.Size != fitFloor {
		t.Errorf("expected floor size %v, got %v", fitFloor, fit.Size)
	}
	if len(fit.Lines) != 1 || fit.Lines[0] != "a b c" {
		t.Errorf("expected single-line fallback, got %v", fit.Lines)
	}
}

func TestFitTextFailedMetricsIsFatal(t *testing.T) {
	if _, err := FitText(brokenMetrics{}, "a b c", 100, 2, 20); err == nil {
		t.Fatal("expected error from broken metrics, got nil")
	}
}
