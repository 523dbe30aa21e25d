package rvblog

import "testing"

func TestSetLoggerNilIsNoOp(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(nil)
	Logf("should not panic %d", 1)
}

func TestSetLoggerCustom(t *testing.T) {
	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	defer SetLogger(nil)
	Logf("hello")
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestDebugfGatedBySetDebug(t *testing.T) {
	var calls int
	SetLogger(func(format string, v ...interface{}) { calls++ })
	defer SetLogger(nil)
	defer SetDebug(false)

	SetDebug(false)
	Debugf("quiet")
	if calls != 0 {
		t.Fatalf("expected no calls while debug disabled, got %d", calls)
	}

	SetDebug(true)
	Debugf("loud")
	if calls != 1 {
		t.Fatalf("expected 1 call while debug enabled, got %d", calls)
	}
}
