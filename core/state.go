package core

import "sync"

// AxisSnapshot is the four-tuple published for one axis, per spec.md §3:
// statusword, moving flag, current actual position, and origin offset.
type AxisSnapshot struct {
	Statusword  uint16
	Moving      bool
	ActualPulse int64
	OffsetPulse int64
}

// PositionMM converts the snapshot's actual position to millimeters for
// the given axis kind. This is the "derived helper" spec.md §6 describes
// as current_position_mm; it lives on the snapshot rather than the loop so
// a caller can compute it without touching the lock again.
func (s AxisSnapshot) PositionMM(kind AxisKind) float64 {
	return pulsesToMM(s.ActualPulse-s.OffsetPulse, kind)
}

// IsMoving is the derived helper spec.md §6 calls is_moving.
func (s AxisSnapshot) IsMoving() bool {
	return s.Moving
}

// statePublisher is the lock-guarded memory region external observers
// read from. It is writer-exclusive: the Control Loop is the only writer,
// holding the lock only for the length of the 4N-word copy.
type statePublisher struct {
	mu   sync.RWMutex
	data []AxisSnapshot
}

func newStatePublisher(numAxes int) *statePublisher {
	return &statePublisher{data: make([]AxisSnapshot, numAxes)}
}

// publish copies the current runtime state of every axis into the shared
// region under a single lock acquisition, so readers observe a consistent
// per-axis 4-tuple.
func (p *statePublisher) publish(axes []*AxisRuntime) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range axes {
		p.data[i] = AxisSnapshot{
			Statusword:  a.LastStatusword,
			Moving:      a.Moving(),
			ActualPulse: a.LastActualPulse,
			OffsetPulse: a.OffsetPulse,
		}
	}
}

// snapshot returns axis i's published state under the read lock.
func (p *statePublisher) snapshot(axis int) (AxisSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if axis < 0 || axis >= len(p.data) {
		return AxisSnapshot{}, errAxisOutOfRange(axis, len(p.data))
	}
	return p.data[axis], nil
}
