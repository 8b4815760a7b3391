package core

import "math"

// smoothstep computes the half-cosine S-curve used to interpolate a
// Segment: s(0)=0, s(1)=1, s is C1-continuous with zero velocity at both
// endpoints.
func smoothstep(progress float64) float64 {
	return (1 - math.Cos(math.Pi*progress)) / 2
}

// Evaluate samples a Segment at monotonic time t, returning the
// driver-scale target position for this cycle.
func (s *Segment) Evaluate(t float64) int64 {
	elapsed := t - s.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	progress := elapsed / s.DurationS
	if progress > 1.0 {
		progress = 1.0
	}
	frac := smoothstep(progress)
	delta := float64(s.EndPulse-s.StartPulse) * frac
	return s.StartPulse + roundToInt64(delta)
}

// Complete reports whether the segment's target has been reached to
// within CompletionThresholdPulses of the most recent actual position.
// Completion is position-based, not time-based: accumulated scheduling
// latency would otherwise drift finish times across axes.
func (s *Segment) Complete(actualPulse int64) bool {
	diff := s.EndPulse - actualPulse
	if diff < 0 {
		diff = -diff
	}
	return diff < CompletionThresholdPulses
}

// durationForMove computes the segment duration implied by the distance
// between current and target pulses at the axis's configured profile
// velocity, clamped to MinSegmentDuration.
func durationForMove(cfg AxisConfig, currentPulse, targetPulse int64) float64 {
	vel := cfg.velocityPulsePerSec()
	if vel <= 0 {
		return MinSegmentDuration
	}
	distance := targetPulse - currentPulse
	if distance < 0 {
		distance = -distance
	}
	duration := float64(distance) / vel
	if duration < MinSegmentDuration {
		return MinSegmentDuration
	}
	return duration
}
