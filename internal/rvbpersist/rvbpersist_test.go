package rvbpersist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/banshee-data/deepreverb/internal/eigenray"
	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/envelope"
	"github.com/banshee-data/deepreverb/internal/geo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deepreverb.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepreverb.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open (re-applying migrations): %v", err)
	}
	defer s2.Close()

	var name string
	row := s2.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='eigenray'`)
	if err := row.Scan(&name); err != nil {
		t.Fatalf("eigenray table missing after migration: %v", err)
	}
}

func TestInsertEigenraysRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := eigenray.NewCollection(1, 1, []float64{1000, 2000})
	c.Add(0, 0, eigenray.Eigenray{
		TravelTime: 1.5,
		Intensity:  []float64{0.1, 0.2},
		Phase:      []float64{0, 0},
		LaunchDE:   0.1, LaunchAZ: 0.2,
		ArrivalDE: -0.1, ArrivalAZ: 3.14,
	})

	if err := s.InsertEigenrays(ctx, "run-1", c); err != nil {
		t.Fatalf("InsertEigenrays: %v", err)
	}

	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM eigenray WHERE run_id = ?`, "run-1").Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows (one per frequency), got %d", n)
	}
}

func TestInsertEigenverbsCoversAllInterfaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := eigenverb.NewCollection(1.5)
	c.Add(eigenverb.InterfaceSurface, &eigenverb.Eigenverb{
		Position: geo.FromGeodetic(36, 16, -10), Length: 10, Width: 10,
		Power: []float64{1}, SoundSpeed: 1500,
	})
	c.Add(eigenverb.InterfaceBottom, &eigenverb.Eigenverb{
		Position: geo.FromGeodetic(36, 16, -90), Length: 10, Width: 10,
		Power: []float64{2}, SoundSpeed: 1500,
	})

	if err := s.InsertEigenverbs(ctx, "run-1", c, []float64{1000}); err != nil {
		t.Fatalf("InsertEigenverbs: %v", err)
	}

	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM eigenverb WHERE run_id = ?`, "run-1").Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 eigenverb rows, got %d", n)
	}
}

func TestInsertEnvelopeSkipsZeroSamples(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := envelope.NewCollection(1, 1, []float64{1000}, []float64{0, 1, 2})
	c.Intensity[0][0][0][1] = 5.0 // only the middle sample is nonzero

	if err := s.InsertEnvelope(ctx, "run-1", c); err != nil {
		t.Fatalf("InsertEnvelope: %v", err)
	}

	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM envelope WHERE run_id = ?`, "run-1").Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 nonzero envelope row, got %d", n)
	}
}
