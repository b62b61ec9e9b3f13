// Package plan decides when and in what order overlay elements become
// visible across the timeline of a job's source clips. Reveal order is a
// named policy here: rank entries appear in reverse index order, so the
// last-ranked entry shows first and "rank 1" is revealed last, preserving
// countdown suspense.
package plan

import "fmt"

// FadeLead is the margin subtracted from the base overlay's end so the title
// and watermark visually clear before a terminal fade.
const FadeLead = 0.2

// ValidationError marks a plan request rejected before any rendering work.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid plan: " + e.Reason
}

// Window is a half-open visibility interval [Start, End).
type Window struct {
	Start float64
	End   float64
}

// ClipStep is one step of an auto-stitch plan: the overlay for clip ClipIndex
// shows the last RanksToShow entries of the rank list for the clip's full
// duration.
type ClipStep struct {
	ClipIndex   int
	RanksToShow int
}

// FirstRank returns the lowest 0-based rank index visible in this step.
func (s ClipStep) FirstRank(numRanks int) int {
	return numRanks - s.RanksToShow
}

// StitchPlan is the sequential-per-clip reveal: one overlay per clip,
// composited full-duration, clips concatenated in original order.
type StitchPlan struct {
	Steps []ClipStep
}

// BuildStitchPlan produces N steps for N clips; step i (0-based) reveals the
// last i+1 rank entries, capped at the list length once every entry is
// visible.
func BuildStitchPlan(numClips, numRanks int) (*StitchPlan, error) {
	if numClips <= 0 {
		return nil, &ValidationError{Reason: "at least one source clip is required"}
	}
	if numRanks <= 0 {
		return nil, &ValidationError{Reason: "rank list must not be empty"}
	}

	steps := make([]ClipStep, numClips)
	for i := range steps {
		show := i + 1
		if show > numRanks {
			show = numRanks
		}
		steps[i] = ClipStep{ClipIndex: i, RanksToShow: show}
	}

	return &StitchPlan{Steps: steps}, nil
}

// RankStep reveals a single rank entry during Window, layered on top of the
// accumulated composite.
type RankStep struct {
	RankIndex int
	Window    Window
}

// TimedPlan is the single-clip timestamp-gated reveal: one base layer (title
// and watermark), then one layer per rank entry in mark order. The chain is
// strictly linear so a single transcoder invocation performs the whole
// composite, with later (higher-priority) ranks sitting above earlier ones.
type TimedPlan struct {
	Base  Window
	Steps []RankStep
}

// BuildTimedPlan maps ascending timestamp marks to rank reveals in reverse
// index order: the earliest mark reveals the highest-indexed entry, the last
// mark reveals entry 0. Every reveal stays visible until end; the base layer
// is visible during [0, end-FadeLead).
func BuildTimedPlan(marks []float64, end float64, numRanks int) (*TimedPlan, error) {
	if len(marks) == 0 {
		return nil, &ValidationError{Reason: "at least one timestamp mark is required"}
	}
	// The fade lead is subtracted from the base window, so an end time at or
	// below it would leave the base with a negative span.
	if end <= FadeLead {
		return nil, &ValidationError{Reason: fmt.Sprintf("end time must exceed the fade lead (%v), got %v", FadeLead, end)}
	}
	if len(marks) != numRanks {
		return nil, &ValidationError{Reason: fmt.Sprintf("got %d timestamp marks for %d rank entries", len(marks), numRanks)}
	}

	prev := -1.0
	for _, mark := range marks {
		if mark < 0 || mark >= end {
			return nil, &ValidationError{Reason: fmt.Sprintf("timestamp mark %v outside [0, %v)", mark, end)}
		}
		if mark <= prev {
			return nil, &ValidationError{Reason: "timestamp marks must be strictly ascending"}
		}
		prev = mark
	}

	steps := make([]RankStep, len(marks))
	for i, mark := range marks {
		steps[i] = RankStep{
			RankIndex: numRanks - 1 - i,
			Window:    Window{Start: mark, End: end},
		}
	}

	return &TimedPlan{
		Base:  Window{Start: 0, End: end - FadeLead},
		Steps: steps,
	}, nil
}
