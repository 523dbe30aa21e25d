package rvberrors

import (
	"errors"
	"testing"
)

func TestErrorStringIncludesKind(t *testing.T) {
	err := New(CollisionRefinementExceeded, "cell (3,4) exceeded depth 4")
	want := "collision_refinement_exceeded: cell (3,4) exceeded depth 4"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsMatchesByKindNotMessage(t *testing.T) {
	err := New(ManagerKeyMissing, "sensor 7 not found")
	if !errors.Is(err, ErrManagerKeyMissing) {
		t.Error("expected errors.Is to match on Kind regardless of message")
	}
	if errors.Is(err, ErrManagerKeyDup) {
		t.Error("expected no match against a different Kind")
	}
}
