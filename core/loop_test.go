package core

import (
	"testing"

	"ethercat-csp-core/internal/simmaster"
)

// newTestHandle builds a Handle and its backing axis runtimes without
// going through Start/lifecycleManager.init, so tests can drive stepCycle
// directly with a synthetic clock instead of sleeping through real
// multi-second trajectories.
func newTestHandle(numAxes int, master *simmaster.Master, cfg LoopConfig) (*Handle, []*AxisRuntime) {
	h := NewHandle(master, "sim0", numAxes, cfg)
	axes := make([]*AxisRuntime, numAxes)
	for i := range axes {
		axes[i] = &AxisRuntime{Config: DefaultAxisConfig(AxisZ)}
	}
	return h, axes
}

// runCycles drives stepCycle forward in Period-sized synthetic steps
// until it reports stop, no axis has a trajectory left after a cycle, or
// maxCycles is exhausted.
func runCycles(h *Handle, axes []*AxisRuntime, estop *emergencyStopMonitor, maxCycles int) (cycles int, stopped bool) {
	now := 0.0
	period := h.cfg.Period.Seconds()
	for i := 0; i < maxCycles; i++ {
		if h.stepCycle(axes, estop, now) {
			return i + 1, true
		}
		now += period
		cycles = i + 1
		settled := true
		for _, a := range axes {
			if a.Moving() {
				settled = false
			}
		}
		if settled {
			return cycles, false
		}
	}
	return cycles, false
}

// S1: a single axis commanded to move settles within its trajectory
// duration and the published snapshot reports Moving=false once complete.
func TestLoopSingleAxisMoveCompletes(t *testing.T) {
	master := simmaster.New(1, 200_000) // keeps pace with the default 60rpm profile velocity
	cfg := DefaultLoopConfig(1)
	h, axes := newTestHandle(1, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(MoveToMm(0, 50)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	cycles, stopped := runCycles(h, axes, estop, 5000)
	if stopped {
		t.Fatal("runCycles() stopped unexpectedly")
	}
	if cycles == 5000 {
		t.Fatal("move never completed within 5000 cycles")
	}

	snap, err := h.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.IsMoving() {
		t.Error("axis still reports Moving=true after the trajectory should have completed")
	}
	wantPulse := mmToPulses(50, AxisZ)
	if diff := snap.ActualPulse - wantPulse; diff < -CompletionThresholdPulses || diff > CompletionThresholdPulses {
		t.Errorf("final ActualPulse = %d, want within threshold of %d", snap.ActualPulse, wantPulse)
	}
}

// S2: two axes commanded in the same cycle finish their moves together —
// the Synchronizer's common duration means neither axis's segment should
// complete many cycles before the other's.
func TestLoopMultiAxisSyncFinishesTogether(t *testing.T) {
	master := simmaster.New(2, 200_000)
	cfg := DefaultLoopConfig(2)
	h, axes := newTestHandle(2, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(SetAxis(0, AxisX)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := h.Enqueue(SetAxis(1, AxisZ)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	// Apply the axis-kind config commands first, as Start would for
	// preStart commands, since drainCycleCommands only runs inside
	// stepCycle.
	h.stepCycle(axes, estop, 0)

	if err := h.Enqueue(MoveToMm(0, 10)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := h.Enqueue(MoveToMm(1, 500)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	completedCycle := map[int]int{}
	now := h.cfg.Period.Seconds()
	for i := 1; i <= 20000; i++ {
		wasMoving0 := axes[0].Moving()
		wasMoving1 := axes[1].Moving()
		h.stepCycle(axes, estop, now)
		now += h.cfg.Period.Seconds()
		if wasMoving0 && !axes[0].Moving() {
			completedCycle[0] = i
		}
		if wasMoving1 && !axes[1].Moving() {
			completedCycle[1] = i
		}
		if len(completedCycle) == 2 {
			break
		}
	}

	if len(completedCycle) != 2 {
		t.Fatalf("both axes did not complete within the cycle budget: %v", completedCycle)
	}
	diff := completedCycle[0] - completedCycle[1]
	if diff < 0 {
		diff = -diff
	}
	if diff > 5 {
		t.Errorf("completion cycles differ by %d cycles (%v), want synchronized completion", diff, completedCycle)
	}
}

// S3: a drive-reported fault freezes every axis's trajectory, not just the
// faulting one.
func TestLoopFaultFreezesAllAxes(t *testing.T) {
	master := simmaster.New(2, 50_000)
	cfg := DefaultLoopConfig(2)
	h, axes := newTestHandle(2, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(MoveToMm(0, 100)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := h.Enqueue(MoveToMm(1, 100)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	now := 0.0
	for i := 0; i < 5; i++ {
		h.stepCycle(axes, estop, now)
		now += h.cfg.Period.Seconds()
	}
	if !axes[0].Moving() || !axes[1].Moving() {
		t.Fatal("axes should still be moving before the injected fault")
	}

	master.InjectFault(0, true)
	h.stepCycle(axes, estop, now)

	if axes[0].Moving() || axes[1].Moving() {
		t.Errorf("axes still moving after a fault on axis 0: axis0.Moving=%v axis1.Moving=%v", axes[0].Moving(), axes[1].Moving())
	}
	if axes[1].TargetPulse != axes[1].LastActualPulse {
		t.Error("healthy axis 1's target was not pinned to its actual position on a neighbor's fault")
	}
}

// S4: the optional position-difference emergency stop trips after
// ConsecutiveCycles cycles of divergence beyond the threshold, and once
// tripped, freezes every axis the same way a drive fault does.
func TestLoopEmergencyStopTripsOnDivergence(t *testing.T) {
	// Fast slew keeps axis 1 on its S-curve, which passes the 1_000_000
	// pulse threshold about 1.4s (140 cycles) into the move.
	master := simmaster.New(2, 2_000_000)
	cfg := DefaultLoopConfig(2)
	cfg.EmergencyStop = EmergencyStopConfig{Enabled: true, Threshold: 1_000_000, ConsecutiveCycles: 3}
	h, axes := newTestHandle(2, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(MoveToMm(1, 500)); err != nil { // only axis 1 moves, axis 0 stays put
		t.Fatalf("Enqueue() error = %v", err)
	}

	now := 0.0
	tripped := false
	for i := 0; i < 300; i++ {
		h.stepCycle(axes, estop, now)
		now += h.cfg.Period.Seconds()
		if !axes[0].Moving() && !axes[1].Moving() && i > 3 {
			tripped = true
			break
		}
	}
	if !tripped {
		t.Fatal("emergency stop never froze the axes despite sustained divergence")
	}
}

// S5: with cross-coupling enabled and every axis moving, two axes
// commanded identically keep identical targets: their actual positions
// agree, so the correction is zero for both.
func TestLoopCrossCouplingKeepsSymmetricMoveInStep(t *testing.T) {
	master := simmaster.New(2, 50_000)
	cfg := DefaultLoopConfig(2)
	cfg.CrossCoupling = CrossCouplingConfig{Enabled: true, Gain: 0.1}
	h, axes := newTestHandle(2, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(MoveToMm(0, 100)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := h.Enqueue(MoveToMm(1, 100)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	now := 0.0
	for i := 0; i < 10; i++ {
		h.stepCycle(axes, estop, now)
		now += h.cfg.Period.Seconds()
	}
	// Both axes were commanded identically and started identically, so
	// cross-coupling shouldn't have introduced any divergence between
	// them even though it's active.
	if diff := axes[0].TargetPulse - axes[1].TargetPulse; diff < -1 || diff > 1 {
		t.Errorf("symmetric move diverged under cross-coupling: target0=%d target1=%d", axes[0].TargetPulse, axes[1].TargetPulse)
	}
}

// S6: StopAll triggers the lifecycle shutdown sequence and the Control
// Loop's real run() (not stepCycle directly) returns cleanly.
func TestLoopStopAllEndsRunLoop(t *testing.T) {
	master := simmaster.New(1, 50_000)
	cfg := DefaultLoopConfig(1)
	cfg.Period = 0 // effectively immediate ticks for this test's shutdown path
	h, axes := newTestHandle(1, master, cfg)
	estop := newEmergencyStopMonitor(cfg.EmergencyStop)

	if err := h.Enqueue(StopAll()); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	stop := h.stepCycle(axes, estop, 0)
	if !stop {
		t.Fatal("stepCycle() did not report stop after a StopAll command")
	}
}
