package render

import "strings"

// Fitter step-down configuration. Sizes decrease by fitStep from the starting
// size down to a floor of fitFloor before giving up.
const (
	fitStep  = 2.0
	fitFloor = 1.0
)

// FitResult is the outcome of fitting text into a box: the chosen font size
// and the wrapped lines at that size.
type FitResult struct {
	Size  float64
	Lines []string
}

// FitText finds the largest font size, starting at startSize and stepping
// down, at which a greedy word-wrap of text fits within maxLines lines of
// boxWidth. If no attempted size fits, the smallest attempted size is
// returned with the text as a single unwrapped line; callers must tolerate
// overflow in that case. A metrics failure aborts the fit.
func FitText(m Metrics, text string, boxWidth float64, maxLines int, startSize float64) (FitResult, error) {
	size := startSize
	for {
		lines, err := wrapWords(m, text, boxWidth, size)
		if err != nil {
			return FitResult{}, err
		}
		if len(lines) <= maxLines {
			return FitResult{Size: size, Lines: lines}, nil
		}
		if size <= fitFloor {
			break
		}
		size -= fitStep
		if size < fitFloor {
			size = fitFloor
		}
	}

	// Degenerate fallback: nothing fit, keep the text on one line at the
	// smallest attempted size.
	return FitResult{Size: size, Lines: []string{text}}, nil
}

// wrapWords splits text on whitespace and greedily packs words into lines no
// wider than boxWidth. A word that alone exceeds boxWidth still gets its own
// line.
func wrapWords(m Metrics, text string, boxWidth float64, size float64) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, 2)
	current := words[0]

	for _, word := range words[1:] {
		candidate := current + " " + word
		width, err := MeasureString(m, candidate, size)
		if err != nil {
			return nil, err
		}
		if width <= boxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}

	return append(lines, current), nil
}
