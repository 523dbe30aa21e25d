package rvbtest

import "testing"

func TestAssertUnitMagnitude(t *testing.T) {
	AssertUnitMagnitude(t, 1, 0, 0)
	AssertUnitMagnitude(t, 0.6, 0.8, 0)
}

func TestAssertBrackets(t *testing.T) {
	AssertBrackets(t, 0, 1, 0.5)
}
