package core

// CrossCouplingConfig configures the optional correction stage described
// in spec.md §9: a feedback term subtracted from the interpolated target
// after S-curve evaluation, active only while every axis in the group is
// simultaneously moving and no fault has been raised.
type CrossCouplingConfig struct {
	Enabled bool
	// Gain defaults to 0.10. It is fixed once the Handle is built: no
	// command changes it while the loop runs, and it is not clamped to
	// [0.0, 1.0]. Stability above 0.5 is not guaranteed.
	Gain float64
}

// DefaultCrossCouplingConfig returns the documented default: disabled,
// with the default gain ready to use once enabled.
func DefaultCrossCouplingConfig() CrossCouplingConfig {
	return CrossCouplingConfig{Enabled: false, Gain: 0.10}
}

// applyCrossCoupling corrects each axis's interpolated target toward the
// group's mean actual position. targets holds the just-evaluated,
// pre-correction target pulses for every axis, indexed the same as axes;
// it is modified in place. The stage only activates when every axis has
// an active trajectory and no fault is in effect for the whole group.
func applyCrossCoupling(cfg CrossCouplingConfig, axes []*AxisRuntime, targets []int64, faulted bool) {
	if !cfg.Enabled || faulted || len(axes) < 2 {
		return
	}
	for _, a := range axes {
		if a.Trajectory == nil {
			return
		}
	}

	var sum int64
	for _, a := range axes {
		sum += a.LastActualPulse
	}
	mean := sum / int64(len(axes))

	// correction_i = gain * (actual_i - mean), subtracted from target_i:
	// an axis behind the group's mean gets its target pushed forward, one
	// ahead of it gets its target held back. Positions are compared in raw
	// driver-scale pulses, with no per-axis mm scaling.
	for i, a := range axes {
		errI := a.LastActualPulse - mean
		correction := int64(cfg.Gain * float64(errI))
		targets[i] -= correction
	}
}
