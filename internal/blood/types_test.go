package blood_test

import (
	"errors"
	"testing"

	"github.com/RichKitibwa/BloodLink/internal/blood"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"} {
		got, err := blood.ParseType(raw)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", raw, err)
		}
		if string(got) != raw {
			t.Fatalf("ParseType(%q) = %q", raw, got)
		}
	}

	for _, raw := range []string{"", "o-", "AB", "C+"} {
		if _, err := blood.ParseType(raw); !errors.Is(err, blood.ErrValidation) {
			t.Fatalf("ParseType(%q): expected validation error, got %v", raw, err)
		}
	}
}

func TestParseComponent(t *testing.T) {
	t.Parallel()

	if _, err := blood.ParseComponent("Whole Blood"); err != nil {
		t.Fatalf("ParseComponent: %v", err)
	}
	if _, err := blood.ParseComponent("whole blood"); !errors.Is(err, blood.ErrValidation) {
		t.Fatalf("expected validation error for lowercase component")
	}
}

func TestPriorityUrgent(t *testing.T) {
	t.Parallel()

	if blood.PriorityNormal.Urgent() {
		t.Fatalf("normal priority should not be urgent")
	}
	if !blood.PriorityCritical.Urgent() || !blood.PriorityVeryCritical.Urgent() {
		t.Fatalf("critical priorities should be urgent")
	}
}

func TestRequestStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := map[blood.RequestStatus][]blood.RequestStatus{
		blood.StatusPending:  {blood.StatusApproved, blood.StatusRejected, blood.StatusCancelled},
		blood.StatusApproved: {blood.StatusFulfilled, blood.StatusRejected},
	}
	all := []blood.RequestStatus{
		blood.StatusPending, blood.StatusApproved, blood.StatusFulfilled,
		blood.StatusRejected, blood.StatusCancelled,
	}

	for _, from := range all {
		want := map[blood.RequestStatus]bool{}
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != want[to] {
				t.Fatalf("CanTransition(%s -> %s) = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []blood.RequestStatus{blood.StatusFulfilled, blood.StatusRejected, blood.StatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []blood.RequestStatus{blood.StatusPending, blood.StatusApproved} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
