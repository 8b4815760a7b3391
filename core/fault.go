package core

// scanFaults reports whether any axis's statusword has the Fault bit set.
func scanFaults(axes []*AxisRuntime) bool {
	for _, a := range axes {
		if StatuswordFault(a.LastStatusword) {
			return true
		}
	}
	return false
}

// applyFaultSupervisor implements spec.md §4.5 / §4.6: when any axis
// reports a Fault bit, every axis (not just the faulting one) has its
// trajectory cancelled and its target pinned to its current measured
// position. Partial stops in coordinated motion are more dangerous than a
// full freeze, so this never discriminates between the faulting axis and
// its healthy neighbors.
func applyFaultSupervisor(axes []*AxisRuntime, faulted bool) {
	if !faulted {
		return
	}
	for _, a := range axes {
		a.Trajectory = nil
		a.TargetPulse = a.LastActualPulse
	}
}
