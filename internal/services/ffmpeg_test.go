package services

import (
	"errors"
	"strings"
	"testing"
)

func TestTruncateDiagShortPassthrough(t *testing.T) {
	diag := "frame=  120 fps= 30"
	if got := TruncateDiag(diag); got != diag {
		t.Errorf("short diagnostic must pass through unchanged, got %q", got)
	}
}

func TestTruncateDiagKeepsTail(t *testing.T) {
	diag := strings.Repeat("x", maxDiagLen) + "final error line"
	got := TruncateDiag(diag)

	if len(got) != maxDiagLen+3 {
		t.Errorf("expected %d chars, got %d", maxDiagLen+3, len(got))
	}
	if !strings.HasPrefix(got, "...") {
		t.Errorf("truncated diagnostic must be marked, got prefix %q", got[:10])
	}
	if !strings.HasSuffix(got, "final error line") {
		t.Error("truncation must keep the tail of the stream")
	}
}

func TestTranscodeErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &TranscodeError{Op: "compose", Diag: "No such filter", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected to unwrap to the exit error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "compose") || !strings.Contains(msg, "No such filter") {
		t.Errorf("error message missing context: %q", msg)
	}
}
