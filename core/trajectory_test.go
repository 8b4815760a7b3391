package core

import "testing"

func TestSegmentEvaluateEndpoints(t *testing.T) {
	s := &Segment{StartPulse: 0, EndPulse: 1_000_000, DurationS: 2.0, StartTime: 10.0}

	if got := s.Evaluate(10.0); got != 0 {
		t.Errorf("Evaluate(start) = %d, want 0", got)
	}
	if got := s.Evaluate(12.0); got != 1_000_000 {
		t.Errorf("Evaluate(start+duration) = %d, want 1000000", got)
	}
	if got := s.Evaluate(20.0); got != 1_000_000 {
		t.Errorf("Evaluate(past end) = %d, want clamped to 1000000", got)
	}
	if got := s.Evaluate(0.0); got != 0 {
		t.Errorf("Evaluate(before start) = %d, want clamped to start", got)
	}
}

func TestSegmentEvaluateMidpointIsHalfway(t *testing.T) {
	s := &Segment{StartPulse: 0, EndPulse: 1_000_000, DurationS: 2.0, StartTime: 0}
	mid := s.Evaluate(1.0)
	// Half-cosine s(0.5) = 0.5 exactly, so the midpoint sample should land
	// on the halfway pulse value (within rounding).
	if diff := mid - 500_000; diff < -1 || diff > 1 {
		t.Errorf("Evaluate(midpoint) = %d, want ~500000", mid)
	}
}

func TestSegmentEvaluateMonotonic(t *testing.T) {
	s := &Segment{StartPulse: 0, EndPulse: 1_000_000, DurationS: 5.0, StartTime: 0}
	prev := int64(-1)
	for i := 0; i <= 50; i++ {
		sampleTime := float64(i) * 0.1
		v := s.Evaluate(sampleTime)
		if v < prev {
			t.Fatalf("Evaluate(%v) = %d, want >= previous sample %d", sampleTime, v, prev)
		}
		prev = v
	}
}

func TestSegmentComplete(t *testing.T) {
	s := &Segment{StartPulse: 0, EndPulse: 1_000_000}

	if s.Complete(1_000_000 - CompletionThresholdPulses) {
		t.Error("Complete() at exactly the threshold boundary should be false")
	}
	if !s.Complete(1_000_000 - CompletionThresholdPulses + 1) {
		t.Error("Complete() just inside the threshold should be true")
	}
	if !s.Complete(1_000_000) {
		t.Error("Complete() at the exact target should be true")
	}
}

func TestDurationForMoveClampsToMinimum(t *testing.T) {
	cfg := DefaultAxisConfig(AxisZ)
	d := durationForMove(cfg, 0, 1)
	if d != MinSegmentDuration {
		t.Errorf("durationForMove(tiny move) = %v, want MinSegmentDuration %v", d, MinSegmentDuration)
	}
}

func TestDurationForMoveScalesWithDistance(t *testing.T) {
	cfg := DefaultAxisConfig(AxisZ)
	near := durationForMove(cfg, 0, 1_000_000)
	far := durationForMove(cfg, 0, 10_000_000)
	if far <= near {
		t.Errorf("durationForMove(10x distance) = %v, want > durationForMove(1x distance) = %v", far, near)
	}
}

func TestDurationForMoveZeroVelocityFloors(t *testing.T) {
	cfg := AxisConfig{Kind: AxisZ, ProfileVelocityRPM: 0}
	if d := durationForMove(cfg, 0, 1_000_000); d != MinSegmentDuration {
		t.Errorf("durationForMove(zero velocity) = %v, want MinSegmentDuration", d)
	}
}

func TestMmPulsesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mm   float64
		kind AxisKind
	}{
		{"x axis 10mm", 10.0, AxisX},
		{"z axis 10mm", 10.0, AxisZ},
		{"x axis fractional", 123.456, AxisX},
		{"z axis negative", -50.0, AxisZ},
		{"zero", 0.0, AxisZ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pulses := mmToPulses(tt.mm, tt.kind)
			back := pulsesToMM(pulses, tt.kind)
			diff := back - tt.mm
			if diff < 0 {
				diff = -diff
			}
			// One pulse is ~mmPerRev/PulsesPerRevDriver mm; allow that much
			// rounding slop on the round trip.
			tolerance := tt.kind.mmPerRev() / PulsesPerRevDriver
			if diff > tolerance*2 {
				t.Errorf("round trip mm=%v kind=%v: got %v back, diff %v exceeds tolerance %v", tt.mm, tt.kind, back, diff, tolerance)
			}
		})
	}
}

func TestPulsesPerRevDriverIsDoubledEncoderResolution(t *testing.T) {
	if PulsesPerRevDriver != PulsesPerRev*PositionFactor {
		t.Errorf("PulsesPerRevDriver = %d, want %d", PulsesPerRevDriver, PulsesPerRev*PositionFactor)
	}
	if PulsesPerRevDriver != 16_777_216 {
		t.Errorf("PulsesPerRevDriver = %d, want 16777216", PulsesPerRevDriver)
	}
}
