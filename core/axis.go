package core

import "fmt"

// AxisKind selects the mechanical pitch used to convert between millimeters
// and driver-scale pulses.
type AxisKind int

const (
	AxisX AxisKind = iota
	AxisZ
)

func (k AxisKind) String() string {
	switch k {
	case AxisX:
		return "X"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("AxisKind(%d)", int(k))
	}
}

// mmPerRev returns the lead-screw pitch, in millimeters per motor
// revolution, for the given axis kind.
func (k AxisKind) mmPerRev() float64 {
	switch k {
	case AxisX:
		return mmPerRevX
	case AxisZ:
		return mmPerRevZ
	default:
		return mmPerRevZ
	}
}

const (
	mmPerRevX = 11.9993
	mmPerRevZ = 5.9997

	// PulsesPerRev is the encoder resolution before the position factor.
	PulsesPerRev = 8_388_608
	// PositionFactor is the driver-side multiplier applied to PulsesPerRev.
	PositionFactor = 2
	// PulsesPerRevDriver is the effective driver-scale resolution used in
	// every mm<->pulse conversion.
	PulsesPerRevDriver = PulsesPerRev * PositionFactor

	// FollowingErrorWindowPulses is written to 0x6065 at init.
	FollowingErrorWindowPulses = 200_000_000

	// CompletionThresholdPulses is the |end-actual| band that clears a
	// trajectory (spec.md §4.3).
	CompletionThresholdPulses = 50_000

	// MinSegmentDuration is the floor applied to any installed segment's
	// duration.
	MinSegmentDuration = 0.1 // seconds
)

// AxisConfig is the immutable-while-running configuration for one axis,
// set before the Control Loop starts.
type AxisConfig struct {
	Kind               AxisKind
	ProfileVelocityRPM float64
	ProfileAccRPMPerS  float64
	ProfileDecRPMPerS  float64
}

// DefaultAxisConfig returns the spec-documented defaults for a fresh axis.
func DefaultAxisConfig(kind AxisKind) AxisConfig {
	return AxisConfig{
		Kind:               kind,
		ProfileVelocityRPM: 60,
		ProfileAccRPMPerS:  60,
		ProfileDecRPMPerS:  60,
	}
}

// velocityPulsePerSec converts the configured profile velocity into
// driver-scale pulses per second.
func (c AxisConfig) velocityPulsePerSec() float64 {
	return (c.ProfileVelocityRPM / 60.0) * PulsesPerRevDriver
}

// mmToPulses converts an absolute millimeter value to a relative
// driver-scale pulse count (not yet offset by origin).
func mmToPulses(mm float64, kind AxisKind) int64 {
	rev := mm / kind.mmPerRev()
	return roundToInt64(rev * PulsesPerRevDriver)
}

// pulsesToMM is the inverse of mmToPulses, used for diagnostics and the
// round-trip property test; it is not invoked by the hot loop.
func pulsesToMM(pulses int64, kind AxisKind) float64 {
	rev := float64(pulses) / PulsesPerRevDriver
	return rev * kind.mmPerRev()
}

func roundToInt64(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

// Segment is a half-cosine-smoothed position ramp installed by the
// Synchronizer and evaluated every cycle by the Trajectory Generator.
type Segment struct {
	StartPulse int64
	EndPulse   int64
	DurationS  float64
	StartTime  float64 // seconds, monotonic clock
}

// AxisRuntime is the per-axis state owned exclusively by the Control Loop.
// It is never shared mutably; the Shared-State Publisher copies out of it
// under lock once per cycle.
type AxisRuntime struct {
	Config AxisConfig

	OffsetPulse      int64
	TargetPulse      int64
	Trajectory       *Segment
	LastStatusword   uint16
	LastControlword  uint16
	LastActualPulse  int64
}

// Moving reports the moving_flag invariant: true iff a trajectory is
// currently installed.
func (a *AxisRuntime) Moving() bool {
	return a.Trajectory != nil
}
