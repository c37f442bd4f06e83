package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIs_MatchesOnCode(t *testing.T) {
	err := InvalidEstimate("wp-1", "optimistic 5 > likely 2")
	if !errors.Is(err, ErrInvalidEstimate) {
		t.Error("expected InvalidEstimate to match its sentinel")
	}
	if errors.Is(err, ErrCycleDetected) {
		t.Error("expected InvalidEstimate not to match CycleDetected")
	}

	wrapped := fmt.Errorf("load project: %w", err)
	if !errors.Is(wrapped, ErrInvalidEstimate) {
		t.Error("expected wrapped error to match sentinel")
	}
	if CodeOf(wrapped) != CodeInvalidEstimate {
		t.Errorf("expected code %s, got %s", CodeInvalidEstimate, CodeOf(wrapped))
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != "" {
		t.Errorf("expected empty code, got %q", got)
	}
}

func TestError_Message(t *testing.T) {
	err := UnknownDependency("b", "zzz")
	msg := err.Error()
	for _, want := range []string{"UNKNOWN_DEPENDENCY", "[b]", `"zzz"`, "dependency=zzz"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestCycleDetected_Details(t *testing.T) {
	err := CycleDetected([]string{"a", "b"}, []string{"a", "b", "a"})
	nodes, ok := err.Details["nodes"].([]string)
	if !ok || len(nodes) != 2 {
		t.Fatalf("expected 2 nodes in details, got %v", err.Details["nodes"])
	}
	if err.Details["cycle"] != "a -> b -> a" {
		t.Errorf("unexpected cycle detail %v", err.Details["cycle"])
	}
}

func TestWithNode(t *testing.T) {
	base := New(CodeNoAvailableCapacity, "no capacity")
	tagged := WithNode(base, "wp-7")

	var e *Error
	if !errors.As(tagged, &e) || e.NodeID != "wp-7" {
		t.Fatalf("expected node wp-7, got %v", tagged)
	}
	if base.NodeID != "" {
		t.Error("expected original error to be left untouched")
	}

	plain := errors.New("x")
	if WithNode(plain, "wp-7") != plain {
		t.Error("expected plain error to pass through")
	}
}
