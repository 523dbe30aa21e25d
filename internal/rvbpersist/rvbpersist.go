// Package rvbpersist implements the persistence layer (spec §6):
// sqlite tables mirroring the engine's netCDF-style variable sets
// (wavefront traces, eigenrays, eigenverbs, envelope samples), with
// schema migrations applied via golang-migrate's embedded-filesystem
// source driver.
//
// Grounded on the teacher's internal/db package: db.go's
// *sql.DB-embedding Store type and migrate.go's
// iofs-source/sqlite-database-driver wiring, both built on
// modernc.org/sqlite (no cgo sqlite3 driver anywhere in the retrieval
// pack).
package rvbpersist

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/deepreverb/internal/eigenray"
	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/envelope"
	"github.com/banshee-data/deepreverb/internal/rvblog"
)

//go:embed migrations
var migrationsFS embed.FS

// Store wraps a sqlite handle holding the engine's persisted
// collections. Safe for concurrent use (spec §6: "results are
// write-once per run_id; readers never race a writer").
type Store struct {
	*sql.DB
}

// Open opens (creating if necessary) a sqlite database at path and
// applies every pending migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &Store{DB: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// newMigrate builds a migrate.Migrate bound to this store's *sql.DB.
// Its driver is never Close()d directly: doing so would close the
// underlying connection, which Store owns and closes itself.
func (s *Store) newMigrate() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("build migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("build sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("build migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { rvblog.Logf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// InsertEigenrays persists every ray accumulated in c under runID.
func (s *Store) InsertEigenrays(ctx context.Context, runID string, c *eigenray.Collection) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO eigenray
		(run_id, target_row, target_col, travel_time, frequency_hz, intensity, phase,
		 launch_de, launch_az, arrival_de, arrival_az, surface_count, bottom_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, cols := c.Dims()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			for _, ray := range c.Rays(row, col) {
				for fi, freq := range c.Frequencies {
					intensity, phase := 0.0, 0.0
					if fi < len(ray.Intensity) {
						intensity = ray.Intensity[fi]
					}
					if fi < len(ray.Phase) {
						phase = ray.Phase[fi]
					}
					_, err := stmt.ExecContext(ctx, runID, row, col, ray.TravelTime, freq, intensity, phase,
						ray.LaunchDE, ray.LaunchAZ, ray.ArrivalDE, ray.ArrivalAZ,
						ray.Counters.Surface, ray.Counters.Bottom)
					if err != nil {
						return err
					}
				}
			}
		}
	}
	return tx.Commit()
}

var interfaceNames = map[eigenverb.Interface]string{
	eigenverb.InterfaceSurface:      "surface",
	eigenverb.InterfaceBottom:       "bottom",
	eigenverb.InterfaceUpperVolume:  "upper_volume",
	eigenverb.InterfaceLowerVolume:  "lower_volume",
}

// InsertEigenverbs persists every eigenverb in c across all four
// interface kinds under runID.
func (s *Store) InsertEigenverbs(ctx context.Context, runID string, c *eigenverb.Collection, frequencies []float64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO eigenverb
		(run_id, interface, travel_time, frequency_hz, power, length, width,
		 rho, theta, phi, direction, grazing, launch_de_idx, launch_az_idx)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for iface, name := range interfaceNames {
		for _, v := range c.List(iface) {
			for fi, freq := range frequencies {
				power := 0.0
				if fi < len(v.Power) {
					power = v.Power[fi]
				}
				_, err := stmt.ExecContext(ctx, runID, name, v.TravelTime, freq, power, v.Length, v.Width,
					v.Position.Rho, v.Position.Theta, v.Position.Phi, v.Direction, v.Grazing,
					v.LaunchDEIdx, v.LaunchAZIdx)
				if err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

// InsertEnvelope persists every (sourceBeam,receiverBeam,frequency,time)
// sample of c under runID.
func (s *Store) InsertEnvelope(ctx context.Context, runID string, c *envelope.Collection) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO envelope
		(run_id, source_beam, receiver_beam, frequency_hz, time_sec, intensity)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for sb := 0; sb < c.SourceBeams; sb++ {
		for rb := 0; rb < c.ReceiverBeams; rb++ {
			for fi, freq := range c.Frequencies {
				for ti, t := range c.TimeAxis {
					intensity := c.Intensity[sb][rb][fi][ti]
					if intensity == 0 {
						continue
					}
					if _, err := stmt.ExecContext(ctx, runID, sb, rb, freq, t, intensity); err != nil {
						return err
					}
				}
			}
		}
	}
	return tx.Commit()
}
