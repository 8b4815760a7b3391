package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Handle is the surface exposed to the user API collaborator: enqueue
// commands, read published state, and start/stop the bus. It owns the
// command channel's send side and the state publisher's read side; the
// Control Loop owns everything else.
type Handle struct {
	cmdCh   chan Command
	state   *statePublisher
	numAxes int

	master  EtherCATMaster
	cfg     LoopConfig
	log     *logrus.Entry
	adapter string

	loopDone chan error
	cancel   context.CancelFunc
}

// NewHandle constructs a Handle for a fixed number of axes. Axes start
// with DefaultAxisConfig(AxisZ); use SetAxis/SetVelocity/SetAccel commands
// before Start to configure them — those commands are preserved and
// re-applied across init retries per spec.md §3.
func NewHandle(master EtherCATMaster, adapter string, numAxes int, cfg LoopConfig) *Handle {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Handle{
		cmdCh:   make(chan Command, 64),
		state:   newStatePublisher(numAxes),
		numAxes: numAxes,
		master:  master,
		cfg:     cfg,
		log:     newLoopLogger(cfg.Logger),
		adapter: adapter,
	}
}

// Enqueue submits a command to the Control Loop. Non-blocking from the
// caller's perspective except for channel backpressure; commands
// submitted by the same goroutine are consumed in FIFO order.
func (h *Handle) Enqueue(cmd Command) error {
	h.cmdCh <- cmd
	return nil
}

// Snapshot reads axis i's published state under the shared-state lock.
func (h *Handle) Snapshot(axis int) (AxisSnapshot, error) {
	return h.state.snapshot(axis)
}

// Start brings the bus up to Operation Enabled and forks the Control Loop
// on a dedicated goroutine. It blocks until init succeeds or exhausts its
// retry budget.
func (h *Handle) Start(ctx context.Context) error {
	axes := make([]*AxisRuntime, h.numAxes)
	for i := range axes {
		axes[i] = &AxisRuntime{Config: DefaultAxisConfig(AxisZ)}
	}

	preStart := h.drainPreStart()

	lm := newLifecycleManager(h.master, h.cfg, h.log)
	initialActual, err := lm.init(h.adapter, axes)
	if err != nil {
		return err
	}
	for i, a := range axes {
		a.LastActualPulse = initialActual[i]
		a.TargetPulse = initialActual[i]
	}

	for _, cmd := range preStart {
		applyConfigCommand(axes, cmd)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.loopDone = make(chan error, 1)

	go func() {
		h.loopDone <- h.run(loopCtx, axes, lm)
	}()
	return nil
}

// drainPreStart collects any SetAxis/SetVelocity/SetAccel commands
// enqueued before Start was called, so they survive init retries.
func (h *Handle) drainPreStart() []Command {
	var preStart []Command
	for {
		select {
		case cmd := <-h.cmdCh:
			switch cmd.Kind {
			case CmdSetAxis, CmdSetVelocity, CmdSetAccel:
				preStart = append(preStart, cmd)
			default:
				// Anything else arriving before Start is dropped; the
				// bus isn't up yet so MoveToMm/SetOrigin/StopAll have no
				// meaning.
			}
		default:
			return preStart
		}
	}
}

func applyConfigCommand(axes []*AxisRuntime, cmd Command) {
	if cmd.Axis < 0 || cmd.Axis >= len(axes) {
		return
	}
	a := axes[cmd.Axis]
	switch cmd.Kind {
	case CmdSetAxis:
		a.Config.Kind = cmd.AxisKind
	case CmdSetVelocity:
		a.Config.ProfileVelocityRPM = cmd.RPM
	case CmdSetAccel:
		a.Config.ProfileAccRPMPerS = cmd.RPM
		a.Config.ProfileDecRPMPerS = cmd.RPM
	}
}

// Stop pushes StopAll onto the command channel and waits for the loop to
// complete its shutdown sequence and exit.
func (h *Handle) Stop() error {
	h.cmdCh <- StopAll()
	err := <-h.loopDone
	return err
}

// run is the Control Loop: one tick at h.cfg.Period, forever, until a
// StopAll command or context cancellation triggers shutdown. It is the
// sole writer of axis runtime state and the sole PDO caller, per spec.md
// §5. Each iteration delegates to stepCycle, which holds every rule
// spec.md §4.6 lists in an order that doesn't depend on wall-clock time —
// that split is what lets the unit tests drive thousands of cycles
// without sleeping.
func (h *Handle) run(ctx context.Context, axes []*AxisRuntime, lm *lifecycleManager) error {
	estop := newEmergencyStopMonitor(h.cfg.EmergencyStop)
	var monotonic float64
	ticker := time.NewTicker(h.cfg.Period)
	defer ticker.Stop()

	for {
		cycleStart := time.Now()

		ctxDone := false
		select {
		case <-ctx.Done():
			ctxDone = true
		default:
		}

		stop := h.stepCycle(axes, estop, monotonic) || ctxDone
		monotonic += h.cfg.Period.Seconds()

		if stop {
			lm.shutdown(axes)
			return nil
		}

		elapsed := time.Since(cycleStart)
		if elapsed < h.cfg.Period {
			<-ticker.C
		} else {
			h.log.WithError(&CycleOverrunError{
				Period:  h.cfg.Period.Seconds(),
				Elapsed: elapsed.Seconds(),
			}).Warn("cycle overrun")
		}
	}
}

// stepCycle runs exactly one cycle's worth of work: drain commands, run
// the Synchronizer, exchange process data, run the Emergency-Stop Stage
// and Fault Supervisor, evaluate trajectories, run the Cross-Coupling
// Stage, pack and send PDOs, and publish state. now is the cycle's
// monotonic time in seconds, shared by every axis's trajectory
// evaluation per spec.md §4.6's ordering guarantee. Returns true if a
// CmdStopAll was seen this cycle.
func (h *Handle) stepCycle(axes []*AxisRuntime, estop *emergencyStopMonitor, now float64) (stop bool) {
	moves, stop := h.drainCycleCommands(axes)

	coordFaulted := scanFaults(axes)
	synchronize(axes, moves, now, coordFaulted)

	if err := h.master.ReceiveProcessData(); err != nil {
		h.log.WithError(err).Error("receive_processdata failed")
	}
	for i, a := range axes {
		sw, actual := DecodeTxPDO(h.master.Input(i))
		if StatuswordFault(sw) && !StatuswordFault(a.LastStatusword) {
			h.log.WithError(&DriveFaultError{Axis: i, Statusword: sw}).Warn("drive fault")
		}
		a.LastStatusword = sw
		a.LastActualPulse = int64(actual)
	}

	// Re-scan after the decode loop: a Fault bit raised in this cycle's
	// TxPDO must freeze every axis this same cycle, not the next one.
	coordFaulted = coordFaulted || scanFaults(axes)
	if estop.check(axes) {
		coordFaulted = true
	}
	applyFaultSupervisor(axes, coordFaulted)

	targets := make([]int64, len(axes))
	for i, a := range axes {
		if a.Trajectory != nil {
			targets[i] = a.Trajectory.Evaluate(now)
			if a.Trajectory.Complete(a.LastActualPulse) {
				a.Trajectory = nil
			}
		} else {
			targets[i] = a.LastActualPulse
		}
	}

	applyCrossCoupling(h.cfg.CrossCoupling, axes, targets, coordFaulted)

	for i, a := range axes {
		a.TargetPulse = targets[i]
		cw := NextControlword(a.LastStatusword)
		a.LastControlword = cw
		buf := EncodeRxPDO(cw, clampToInt32(a.TargetPulse))
		copy(h.master.Output(i), buf[:])
	}

	if err := h.master.SendProcessData(); err != nil {
		h.log.WithError(err).Error("send_processdata failed")
	}

	h.state.publish(axes)
	return stop
}

// drainCycleCommands non-blockingly drains the command channel,
// collecting MoveToMm targets for the Synchronizer and applying every
// other command directly to axis runtime state. Returns true if StopAll
// was seen.
func (h *Handle) drainCycleCommands(axes []*AxisRuntime) (moves map[int]float64, stop bool) {
	moves = make(map[int]float64)
	for {
		select {
		case cmd := <-h.cmdCh:
			switch cmd.Kind {
			case CmdMoveToMm:
				moves[cmd.Axis] = cmd.MoveMM
				if cmd.Axis >= 0 && cmd.Axis < len(axes) {
					axes[cmd.Axis].Trajectory = nil
				}
			case CmdSetOrigin:
				if cmd.Axis >= 0 && cmd.Axis < len(axes) {
					axes[cmd.Axis].OffsetPulse = axes[cmd.Axis].LastActualPulse
				}
			case CmdSetAxis, CmdSetVelocity, CmdSetAccel:
				applyConfigCommand(axes, cmd)
			case CmdStopAll:
				stop = true
			default:
				h.log.WithError(&UnknownCommandError{Kind: cmd.Kind}).Warn("dropping unrecognized command")
			}
		default:
			return moves, stop
		}
	}
}
