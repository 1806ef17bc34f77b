// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got is not within tol of want. Name labels
// the quantity in the failure message.
func AssertClose(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if !closeEnough(got-want, tol) {
		t.Errorf("%s = %.9g, want %.9g (tolerance %g)", name, got, want, tol)
	}
}

// AssertPhaseClose compares two angles in radians modulo 2*pi.
func AssertPhaseClose(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if !closeEnough(math.Remainder(got-want, 2*math.Pi), tol) {
		t.Errorf("%s = %.9g, want %.9g (mod 2pi, tolerance %g)", name, got, want, tol)
	}
}

// TempPath returns a path named file inside a per-test temporary directory.
func TempPath(t testing.TB, file string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), file)
}

func closeEnough(diff, tol float64) bool {
	return !math.IsNaN(diff) && math.Abs(diff) <= tol
}
