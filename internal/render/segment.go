package render

// Segment is a maximal run of characters sharing one font class.
type Segment struct {
	Text  string
	Class FontClass
}

// RuneCount returns the number of code points in the segment.
func (s Segment) RuneCount() int {
	count := 0
	for range s.Text {
		count++
	}
	return count
}

// SegmentText splits text into ordered maximal same-class runs. A class
// change starts a new segment; the empty string yields nil. Concatenating
// the segment texts in order reproduces the input exactly.
func SegmentText(text string) []Segment {
	if text == "" {
		return nil
	}

	segments := make([]Segment, 0, 4)

	var start int
	var current FontClass
	first := true

	for i, r := range text {
		class := ClassifyRune(r)
		if first {
			current = class
			first = false
			continue
		}
		if class == current {
			continue
		}
		segments = append(segments, Segment{Text: text[start:i], Class: current})
		start = i
		current = class
	}

	segments = append(segments, Segment{Text: text[start:], Class: current})
	return segments
}
