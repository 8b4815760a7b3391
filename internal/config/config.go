// Package config loads the caller-side axis and loop configuration used
// by the cmd/ demos from a YAML file, in the style of
// sagostin-goefidash/internal/server/config.go. The core package itself
// never reads a config file — per spec.md, configuration loading is an
// external collaborator's concern — but the demos and any future
// user-facing API built on top of core need somewhere to load one from.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ethercat-csp-core/core"
)

// AxisSpec is one axis's on-disk configuration.
type AxisSpec struct {
	Kind               string  `yaml:"kind"` // "X" or "Z"
	ProfileVelocityRPM float64 `yaml:"profile_velocity_rpm"`
	ProfileAccRPMPerS  float64 `yaml:"profile_acc_rpm_per_s"`
	ProfileDecRPMPerS  float64 `yaml:"profile_dec_rpm_per_s"`
}

// CrossCouplingSpec mirrors core.CrossCouplingConfig for YAML loading.
type CrossCouplingSpec struct {
	Enabled bool    `yaml:"enabled"`
	Gain    float64 `yaml:"gain"`
}

// EmergencyStopSpec mirrors core.EmergencyStopConfig for YAML loading.
type EmergencyStopSpec struct {
	Enabled           bool  `yaml:"enabled"`
	ThresholdPulses   int64 `yaml:"threshold_pulses"`
	ConsecutiveCycles int   `yaml:"consecutive_cycles"`
}

// File is the root document shape: adapter name, cycle period, retry
// budget, per-axis config, and the two optional safety stages.
type File struct {
	Adapter            string            `yaml:"adapter"`
	PeriodMs           int               `yaml:"period_ms"`
	ExpectedSlaveCount int               `yaml:"expected_slave_count"`
	InitRetries        int               `yaml:"init_retries"`
	InitBackoffMs      int               `yaml:"init_backoff_ms"`
	Axes               []AxisSpec        `yaml:"axes"`
	CrossCoupling      CrossCouplingSpec `yaml:"cross_coupling"`
	EmergencyStop      EmergencyStopSpec `yaml:"emergency_stop"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// AxisConfigs converts the loaded axis specs into core.AxisConfig values.
func (f *File) AxisConfigs() []core.AxisConfig {
	out := make([]core.AxisConfig, len(f.Axes))
	for i, a := range f.Axes {
		kind := core.AxisZ
		if a.Kind == "X" {
			kind = core.AxisX
		}
		out[i] = core.AxisConfig{
			Kind:               kind,
			ProfileVelocityRPM: a.ProfileVelocityRPM,
			ProfileAccRPMPerS:  a.ProfileAccRPMPerS,
			ProfileDecRPMPerS:  a.ProfileDecRPMPerS,
		}
	}
	return out
}

// LoopConfig converts the loaded document into a core.LoopConfig.
func (f *File) LoopConfig() core.LoopConfig {
	cfg := core.DefaultLoopConfig(f.ExpectedSlaveCount)
	if f.PeriodMs > 0 {
		cfg.Period = time.Duration(f.PeriodMs) * time.Millisecond
	}
	if f.InitRetries > 0 {
		cfg.InitRetries = f.InitRetries
	}
	if f.InitBackoffMs > 0 {
		cfg.InitBackoff = time.Duration(f.InitBackoffMs) * time.Millisecond
	}
	cfg.CrossCoupling = core.CrossCouplingConfig{
		Enabled: f.CrossCoupling.Enabled,
		Gain:    f.CrossCoupling.Gain,
	}
	cfg.EmergencyStop = core.EmergencyStopConfig{
		Enabled:           f.EmergencyStop.Enabled,
		Threshold:         f.EmergencyStop.ThresholdPulses,
		ConsecutiveCycles: f.EmergencyStop.ConsecutiveCycles,
	}
	return cfg
}
