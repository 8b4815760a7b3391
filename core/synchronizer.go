package core

// pendingMove is one collected MoveToMm command, resolved to an absolute
// driver-scale target but not yet installed as a Segment.
type pendingMove struct {
	axis        int
	targetPulse int64
	duration    float64
}

// synchronize batches the MoveToMm commands collected during one cycle's
// channel drain, computes a common start time and common duration (the
// max of the per-axis durations), and installs one Segment per affected
// axis. Called once per cycle, after the command channel is drained, and
// refuses to install anything while the coordinated-motion group has an
// unresolved fault (coordFaulted == true) per spec.md §4.5.
func synchronize(axes []*AxisRuntime, moves map[int]float64, now float64, coordFaulted bool) {
	if len(moves) == 0 || coordFaulted {
		return
	}

	pending := make([]pendingMove, 0, len(moves))
	commonDuration := MinSegmentDuration

	for axisIdx, mm := range moves {
		if axisIdx < 0 || axisIdx >= len(axes) {
			continue
		}
		axis := axes[axisIdx]
		rel := mmToPulses(mm, axis.Config.Kind)
		abs := rel + axis.OffsetPulse
		duration := durationForMove(axis.Config, axis.LastActualPulse, abs)
		pending = append(pending, pendingMove{axis: axisIdx, targetPulse: abs, duration: duration})
		if duration > commonDuration {
			commonDuration = duration
		}
	}

	for _, p := range pending {
		axis := axes[p.axis]
		axis.Trajectory = &Segment{
			StartPulse: axis.LastActualPulse,
			EndPulse:   p.targetPulse,
			DurationS:  commonDuration,
			StartTime:  now,
		}
	}
}
