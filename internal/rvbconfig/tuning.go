// Package rvbconfig holds the runtime tuning parameters for the
// propagation and reverberation engine. Fields are pointer-optional so a
// partial JSON document can override just the knobs a caller cares
// about while everything else keeps its compiled-in default.
package rvbconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the canonical tuning defaults file location.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for engine tuning parameters.
type TuningConfig struct {
	// Wave queue / integrator (C6)
	TimeStepSeconds       *float64 `json:"time_step_seconds,omitempty"`
	TimeMaxSeconds        *float64 `json:"time_max_seconds,omitempty"`
	RK3StartupSteps       *int     `json:"rk3_startup_steps,omitempty"`
	ReflectionRecursionCap *int    `json:"reflection_recursion_cap,omitempty"`
	MaxEigenrays          *int     `json:"max_eigenrays,omitempty"`

	// Spreading / Gaussian beam (C7)
	FresnelZoneBeamWidths *float64 `json:"fresnel_zone_beam_widths,omitempty"`

	// Eigenverb collection (C9)
	EigenverbBoundingBoxSigma *float64 `json:"eigenverb_bounding_box_sigma,omitempty"`

	// Biverb generator (C11)
	BiverbDistanceGateMultiple *float64 `json:"biverb_distance_gate_multiple,omitempty"`
	IntensityThresholdDB       *float64 `json:"intensity_threshold_db,omitempty"`

	// Envelope generator (C12)
	EnvelopeWindowSigmas *float64 `json:"envelope_window_sigmas,omitempty"`

	// Scheduler (§5)
	WorkerPoolSize *int `json:"worker_pool_size,omitempty"`

	// Persistence (§6)
	NetCDFConventions *string `json:"netcdf_conventions,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the file
// retain their compiled-in defaults (see the Get* accessors below).
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set configuration values are within sane
// bounds. Unset (nil) fields are always valid since they fall back to
// defaults.
func (c *TuningConfig) Validate() error {
	if c.TimeStepSeconds != nil && *c.TimeStepSeconds <= 0 {
		return fmt.Errorf("time_step_seconds must be positive, got %f", *c.TimeStepSeconds)
	}
	if c.TimeMaxSeconds != nil && *c.TimeMaxSeconds <= 0 {
		return fmt.Errorf("time_max_seconds must be positive, got %f", *c.TimeMaxSeconds)
	}
	if c.RK3StartupSteps != nil && *c.RK3StartupSteps < 3 {
		return fmt.Errorf("rk3_startup_steps must be at least 3 (ring depth), got %d", *c.RK3StartupSteps)
	}
	if c.ReflectionRecursionCap != nil && *c.ReflectionRecursionCap < 1 {
		return fmt.Errorf("reflection_recursion_cap must be at least 1, got %d", *c.ReflectionRecursionCap)
	}
	if c.FresnelZoneBeamWidths != nil && *c.FresnelZoneBeamWidths <= 0 {
		return fmt.Errorf("fresnel_zone_beam_widths must be positive, got %f", *c.FresnelZoneBeamWidths)
	}
	if c.EigenverbBoundingBoxSigma != nil && *c.EigenverbBoundingBoxSigma <= 0 {
		return fmt.Errorf("eigenverb_bounding_box_sigma must be positive, got %f", *c.EigenverbBoundingBoxSigma)
	}
	if c.BiverbDistanceGateMultiple != nil && *c.BiverbDistanceGateMultiple <= 0 {
		return fmt.Errorf("biverb_distance_gate_multiple must be positive, got %f", *c.BiverbDistanceGateMultiple)
	}
	if c.EnvelopeWindowSigmas != nil && *c.EnvelopeWindowSigmas <= 0 {
		return fmt.Errorf("envelope_window_sigmas must be positive, got %f", *c.EnvelopeWindowSigmas)
	}
	if c.WorkerPoolSize != nil && *c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker_pool_size must be at least 1, got %d", *c.WorkerPoolSize)
	}
	return nil
}

// GetTimeStepSeconds returns Δt or the default of 0.1s.
func (c *TuningConfig) GetTimeStepSeconds() float64 {
	if c.TimeStepSeconds == nil {
		return 0.1
	}
	return *c.TimeStepSeconds
}

// GetTimeMaxSeconds returns the propagation time horizon or the default of 90s.
func (c *TuningConfig) GetTimeMaxSeconds() float64 {
	if c.TimeMaxSeconds == nil {
		return 90.0
	}
	return *c.TimeMaxSeconds
}

// GetRK3StartupSteps returns how many RK3 steps seed the AB3 ring, default 3.
func (c *TuningConfig) GetRK3StartupSteps() int {
	if c.RK3StartupSteps == nil {
		return 3
	}
	return *c.RK3StartupSteps
}

// GetReflectionRecursionCap returns the reflection solver's recursion
// depth cap (spec §4.6), default 4.
func (c *TuningConfig) GetReflectionRecursionCap() int {
	if c.ReflectionRecursionCap == nil {
		return 4
	}
	return *c.ReflectionRecursionCap
}

// GetMaxEigenrays returns the eigenray-count termination limit, default
// 0 (disabled: runs until TimeMaxSeconds).
func (c *TuningConfig) GetMaxEigenrays() int {
	if c.MaxEigenrays == nil {
		return 0
	}
	return *c.MaxEigenrays
}

// GetFresnelZoneBeamWidths returns the neighbourhood radius, in beam
// widths, the spreading model sums over (spec §4.7), default 1.0 (the
// first Fresnel zone).
func (c *TuningConfig) GetFresnelZoneBeamWidths() float64 {
	if c.FresnelZoneBeamWidths == nil {
		return 1.0
	}
	return *c.FresnelZoneBeamWidths
}

// GetEigenverbBoundingBoxSigma returns the halo multiple around an
// eigenverb footprint used to build its query bounding box (spec §4.9),
// default 1.5σ.
func (c *TuningConfig) GetEigenverbBoundingBoxSigma() float64 {
	if c.EigenverbBoundingBoxSigma == nil {
		return 1.5
	}
	return *c.EigenverbBoundingBoxSigma
}

// GetBiverbDistanceGateMultiple returns the 6·max(L,W) gate multiple
// used by the biverb generator (spec §4.11), default 6.0.
func (c *TuningConfig) GetBiverbDistanceGateMultiple() float64 {
	if c.BiverbDistanceGateMultiple == nil {
		return 6.0
	}
	return *c.BiverbDistanceGateMultiple
}

// GetIntensityThresholdDB returns the drop threshold for biverb
// contributions, default −300 dB (linear equivalent applied by callers).
func (c *TuningConfig) GetIntensityThresholdDB() float64 {
	if c.IntensityThresholdDB == nil {
		return -300.0
	}
	return *c.IntensityThresholdDB
}

// GetEnvelopeWindowSigmas returns the half-width, in σ, of the envelope
// Gaussian evaluation window (spec §4.12), default 5σ.
func (c *TuningConfig) GetEnvelopeWindowSigmas() float64 {
	if c.EnvelopeWindowSigmas == nil {
		return 5.0
	}
	return *c.EnvelopeWindowSigmas
}

// GetWorkerPoolSize returns the background scheduler's worker count,
// default runtime.NumCPU() resolved by the caller when this is 0.
func (c *TuningConfig) GetWorkerPoolSize() int {
	if c.WorkerPoolSize == nil {
		return 0
	}
	return *c.WorkerPoolSize
}

// GetNetCDFConventions returns the Conventions global attribute value
// used by persisted collections, default "COARDS" (spec §6).
func (c *TuningConfig) GetNetCDFConventions() string {
	if c.NetCDFConventions == nil {
		return "COARDS"
	}
	return *c.NetCDFConventions
}
