package matter

import (
	"errors"
	"strings"
	"testing"
)

func TestTransitionGraph(t *testing.T) {
	all := []Status{
		StatusDraft, StatusPending, StatusConflictCheck, StatusMatching,
		StatusOpen, StatusInProgress, StatusOnHold, StatusCompleted,
		StatusClosed, StatusCancelled,
	}

	allowed := map[Status][]Status{
		StatusDraft:         {StatusPending, StatusCancelled},
		StatusPending:       {StatusConflictCheck, StatusCancelled},
		StatusConflictCheck: {StatusMatching, StatusCancelled},
		StatusMatching:      {StatusOpen, StatusCancelled},
		StatusOpen:          {StatusInProgress, StatusOnHold, StatusCancelled},
		StatusInProgress:    {StatusOnHold, StatusCompleted, StatusCancelled},
		StatusOnHold:        {StatusInProgress, StatusCancelled},
		StatusCompleted:     {StatusClosed},
		StatusClosed:        {},
		StatusCancelled:     {},
	}

	for _, from := range all {
		want := map[Status]bool{}
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range all {
			if got := CanTransition(from, to); got != want[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusClosed, StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
		if targets := AllowedTargets(s); len(targets) != 0 {
			t.Errorf("expected no targets from %s, got %v", s, targets)
		}
	}
	for _, s := range []Status{StatusDraft, StatusOpen, StatusCompleted} {
		if IsTerminal(s) {
			t.Errorf("did not expect %s to be terminal", s)
		}
	}
}

func TestAllowedTargetsReturnsCopy(t *testing.T) {
	targets := AllowedTargets(StatusDraft)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets from draft, got %v", targets)
	}
	targets[0] = StatusClosed

	if !CanTransition(StatusDraft, StatusPending) {
		t.Fatal("mutating the returned slice must not affect the graph")
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(StatusOnHold) {
		t.Error("hold should be a valid status")
	}
	if ValidStatus(Status("archived")) {
		t.Error("archived is not a lifecycle status")
	}
	if ValidStatus(Status("")) {
		t.Error("empty status must be invalid")
	}
}

func TestTransitionErrorCarriesValidTargets(t *testing.T) {
	err := &TransitionError{
		From:    StatusOpen,
		Target:  StatusClosed,
		Allowed: AllowedTargets(StatusOpen),
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("TransitionError must match ErrInvalidTransition")
	}

	msg := err.Error()
	for _, want := range []string{"open", "closed", "in_progress", "hold", "cancelled"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}

func TestTransitionErrorTerminalState(t *testing.T) {
	err := &TransitionError{From: StatusClosed, Target: StatusOpen}
	if !strings.Contains(err.Error(), "terminal") {
		t.Errorf("expected terminal wording, got %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatal("TransitionError must match ErrInvalidTransition")
	}
}
