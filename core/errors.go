package core

import "fmt"

// InitFailureError is fatal: the adapter failed to open, or the slave
// count didn't match after the retry budget was exhausted.
type InitFailureError struct {
	Attempts int
	Err      error
}

func (e *InitFailureError) Error() string {
	return fmt.Sprintf("init failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *InitFailureError) Unwrap() error { return e.Err }

// StateTransitionTimeoutError is fatal: a slave failed to reach the
// requested EtherCAT state (SAFEOP or OP) in time.
type StateTransitionTimeoutError struct {
	Slave int
	Want  SlaveState
}

func (e *StateTransitionTimeoutError) Error() string {
	return fmt.Sprintf("slave %d: timed out waiting for state %s", e.Slave, e.Want)
}

// DriveFaultError is non-fatal: a slave reported its Fault bit. The Fault
// Supervisor and CiA 402 Driver handle it locally; it is logged, not
// returned from the Control Loop.
type DriveFaultError struct {
	Axis       int
	Statusword uint16
}

func (e *DriveFaultError) Error() string {
	return fmt.Sprintf("axis %d: drive fault (statusword=0x%04X)", e.Axis, e.Statusword)
}

// CycleOverrunError is non-fatal: a cycle's wall-clock time exceeded the
// configured period. Logged only; the loop never skips or catches up.
type CycleOverrunError struct {
	Period  float64
	Elapsed float64
}

func (e *CycleOverrunError) Error() string {
	return fmt.Sprintf("cycle overrun: elapsed %.4fs exceeds period %.4fs", e.Elapsed, e.Period)
}

// UnknownCommandError is non-fatal: the channel carried a Command whose
// Kind the loop does not recognize. Logged and ignored.
type UnknownCommandError struct {
	Kind CommandKind
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command kind: %d", e.Kind)
}

type axisRangeError struct {
	axis, numAxes int
}

func (e *axisRangeError) Error() string {
	return fmt.Sprintf("axis %d out of range [0,%d)", e.axis, e.numAxes)
}

func errAxisOutOfRange(axis, numAxes int) error {
	return &axisRangeError{axis: axis, numAxes: numAxes}
}
