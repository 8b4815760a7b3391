package core

// EmergencyStopConfig configures the ancillary position-difference
// emergency stop: it trips once |pos_i - pos_j| > Threshold has held for
// ConsecutiveCycles consecutive cycles (the ConsecutiveCycles-th such
// cycle trips it). Disabled by default; when disabled,
// emergencyStopMonitor.check is a no-op.
type EmergencyStopConfig struct {
	Enabled           bool
	Threshold         int64
	ConsecutiveCycles int
}

// emergencyStopMonitor tracks, per unordered axis pair, how many
// consecutive cycles the pair's position difference has exceeded the
// configured threshold. It must run before the Fault Supervisor each
// cycle per spec.md §9.
type emergencyStopMonitor struct {
	cfg      EmergencyStopConfig
	counters map[[2]int]int
}

func newEmergencyStopMonitor(cfg EmergencyStopConfig) *emergencyStopMonitor {
	return &emergencyStopMonitor{cfg: cfg, counters: make(map[[2]int]int)}
}

// check scans every axis pair and returns true if any pair has violated
// the threshold for ConsecutiveCycles consecutive calls. A pair's counter
// resets to zero the first cycle it returns within threshold, so a single
// transient spike never trips the stop.
func (m *emergencyStopMonitor) check(axes []*AxisRuntime) bool {
	if !m.cfg.Enabled || len(axes) < 2 {
		return false
	}

	tripped := false
	for i := 0; i < len(axes); i++ {
		for j := i + 1; j < len(axes); j++ {
			key := [2]int{i, j}
			diff := axes[i].LastActualPulse - axes[j].LastActualPulse
			if diff < 0 {
				diff = -diff
			}
			if diff > m.cfg.Threshold {
				m.counters[key]++
			} else {
				m.counters[key] = 0
			}
			if m.counters[key] >= m.cfg.ConsecutiveCycles {
				tripped = true
			}
		}
	}
	return tripped
}
