// Package rvbtest provides shared test helpers and numeric fixtures used
// across the engine's property-based tests (spec §8): unit-vector
// magnitude checks, monotonic-axis bracketing checks, and float
// tolerance comparisons.
package rvbtest

import (
	"math"
	"testing"
)

// AssertNear fails the test if got and want differ by more than tol.
func AssertNear(t *testing.T, got, want, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("got %v, want %v (tol %v): %v", got, want, tol, msgAndArgs)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertUnitMagnitude fails unless x,y,z form a unit vector under the
// spec §3/§8 tolerance of 1e-10.
func AssertUnitMagnitude(t *testing.T, x, y, z float64) {
	t.Helper()
	const tol = 1e-10
	mag := math.Sqrt(x*x + y*y + z*z)
	if math.Abs(mag-1.0) > tol {
		t.Errorf("direction magnitude = %v, want 1 (tol %v)", mag, tol)
	}
}

// AssertBrackets fails unless axis[i] <= x < axis[i+1], the contract
// spec §8 requires of MonotonicAxis.FindIndex for interior probes.
func AssertBrackets(t *testing.T, axisLo, axisHi, x float64) {
	t.Helper()
	if !(axisLo <= x && x < axisHi) {
		t.Errorf("x=%v not bracketed by [%v, %v)", x, axisLo, axisHi)
	}
}
