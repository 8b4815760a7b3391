package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LoopConfig controls the Control Loop's timing and the Lifecycle
// Manager's init/shutdown behavior.
type LoopConfig struct {
	Period             time.Duration
	ExpectedSlaveCount int
	InitRetries        int
	InitBackoff        time.Duration
	Logger             *logrus.Logger
	CrossCoupling      CrossCouplingConfig
	EmergencyStop      EmergencyStopConfig
}

// DefaultLoopConfig returns spec.md's documented defaults: a 10ms period,
// 3 init attempts with a 1s backoff, cross-coupling and emergency-stop
// both disabled.
func DefaultLoopConfig(expectedSlaves int) LoopConfig {
	return LoopConfig{
		Period:             10 * time.Millisecond,
		ExpectedSlaveCount: expectedSlaves,
		InitRetries:        3,
		InitBackoff:        time.Second,
		CrossCoupling:      DefaultCrossCouplingConfig(),
	}
}

// lifecycleManager drives the bus from adapter-closed to Operation
// Enabled and, on shutdown, back down again, per spec.md §4.8.
type lifecycleManager struct {
	master EtherCATMaster
	cfg    LoopConfig
	log    *logrus.Entry
}

func newLifecycleManager(master EtherCATMaster, cfg LoopConfig, log *logrus.Entry) *lifecycleManager {
	return &lifecycleManager{master: master, cfg: cfg, log: log}
}

// init brings the bus up to OP, retrying the whole sequence up to
// InitRetries times with InitBackoff between attempts. On success it
// returns the per-axis actual position read back at OP entry, which the
// caller uses to initialize TargetPulse and avoid an initial following
// error.
func (lm *lifecycleManager) init(adapter string, axes []*AxisRuntime) (initialActual []int64, err error) {
	attempts := lm.cfg.InitRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		initialActual, lastErr = lm.attemptInit(adapter, axes)
		if lastErr == nil {
			return initialActual, nil
		}
		lm.log.WithError(lastErr).WithField("attempt", attempt).Warn("init attempt failed")
		if attempt < attempts {
			time.Sleep(lm.cfg.InitBackoff)
		}
	}
	return nil, &InitFailureError{Attempts: attempts, Err: lastErr}
}

func (lm *lifecycleManager) attemptInit(adapter string, axes []*AxisRuntime) ([]int64, error) {
	if err := lm.master.Open(adapter); err != nil {
		return nil, fmt.Errorf("open adapter: %w", err)
	}

	found, err := lm.master.ConfigInit()
	if err != nil {
		return nil, fmt.Errorf("config init: %w", err)
	}
	if found != lm.cfg.ExpectedSlaveCount {
		return nil, fmt.Errorf("slave count mismatch: found %d, expected %d", found, lm.cfg.ExpectedSlaveCount)
	}

	var g errgroup.Group
	for i := range axes {
		i := i
		g.Go(func() error {
			return lm.configureSlave(i, axes[i].Config)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("slave configuration: %w", err)
	}

	if err := lm.master.StateWrite(StatePreOp); err != nil {
		return nil, fmt.Errorf("transition to PREOP: %w", err)
	}
	if err := lm.master.StateWrite(StateSafeOp); err != nil {
		return nil, &StateTransitionTimeoutError{Want: StateSafeOp}
	}
	if err := lm.master.DCSync(true, lm.cfg.Period.Nanoseconds()); err != nil {
		return nil, fmt.Errorf("enable DC sync: %w", err)
	}
	if err := lm.master.StateWrite(StateOp); err != nil {
		return nil, &StateTransitionTimeoutError{Want: StateOp}
	}

	actual := make([]int64, len(axes))
	if err := lm.master.ReceiveProcessData(); err != nil {
		return nil, fmt.Errorf("initial receive_processdata: %w", err)
	}
	for i := range axes {
		_, a := DecodeTxPDO(lm.master.Input(i))
		actual[i] = int64(a)
	}

	return actual, nil
}

// configureSlave performs the per-slave SDO writes spec.md §4.8 lists:
// fault reset, CSP mode, PDO mapping/assignment, Following Error Window,
// Position Window, and the configured Profile
// Velocity/Acceleration/Deceleration.
func (lm *lifecycleManager) configureSlave(slave int, cfg AxisConfig) error {
	if err := lm.master.SDOWrite(slave, odControlword, 0, u16Bytes(CWFaultReset)); err != nil {
		return fmt.Errorf("slave %d: fault reset: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odModesOfOperation, 0, []byte{cspModeOfOperation}); err != nil {
		return fmt.Errorf("slave %d: set CSP mode: %w", slave, err)
	}

	rxMapping := []byte{0x40, 0x60, 0x00, 0x10, 0x7A, 0x60, 0x00, 0x20}
	if err := lm.master.SDOWrite(slave, odRxPDOMapping, 0, rxMapping); err != nil {
		return fmt.Errorf("slave %d: RxPDO mapping: %w", slave, err)
	}
	txMapping := []byte{0x41, 0x60, 0x00, 0x10, 0x64, 0x60, 0x00, 0x20}
	if err := lm.master.SDOWrite(slave, odTxPDOMapping, 0, txMapping); err != nil {
		return fmt.Errorf("slave %d: TxPDO mapping: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odSyncManagerRx, 0, u16Bytes(odRxPDOMapping)); err != nil {
		return fmt.Errorf("slave %d: assign RxPDO: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odSyncManagerTx, 0, u16Bytes(odTxPDOMapping)); err != nil {
		return fmt.Errorf("slave %d: assign TxPDO: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odFollowingErrWindow, 0, u32Bytes(FollowingErrorWindowPulses)); err != nil {
		return fmt.Errorf("slave %d: following error window: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odPositionWindow, 0, u32Bytes(CompletionThresholdPulses)); err != nil {
		return fmt.Errorf("slave %d: position window: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odProfileVelocity, 0, u32Bytes(uint32(cfg.ProfileVelocityRPM))); err != nil {
		return fmt.Errorf("slave %d: profile velocity: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odProfileAcc, 0, u32Bytes(uint32(cfg.ProfileAccRPMPerS))); err != nil {
		return fmt.Errorf("slave %d: profile acceleration: %w", slave, err)
	}
	if err := lm.master.SDOWrite(slave, odProfileDec, 0, u32Bytes(uint32(cfg.ProfileDecRPMPerS))); err != nil {
		return fmt.Errorf("slave %d: profile deceleration: %w", slave, err)
	}
	return nil
}

// shutdown executes the ordered, interruptible-only-by-abort sequence
// from spec.md §4.8: hold position for 5 cycles at 20ms, lower the
// controlword through Disable Operation / Shutdown / Disable Voltage, then
// walk the state machine back down to INIT and close the adapter.
func (lm *lifecycleManager) shutdown(axes []*AxisRuntime) {
	for i := 0; i < 5; i++ {
		for axisIdx, a := range axes {
			a.Trajectory = nil
			a.TargetPulse = a.LastActualPulse
			buf := EncodeRxPDO(CWEnableOperation, clampToInt32(a.TargetPulse))
			copy(lm.master.Output(axisIdx), buf[:])
		}
		if err := lm.master.SendProcessData(); err != nil {
			lm.log.WithError(err).Warn("shutdown: send_processdata failed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	for _, cw := range []uint16{CWDisableOperation, CWShutdown, CWDisableVoltage} {
		for axisIdx, a := range axes {
			buf := EncodeRxPDO(cw, clampToInt32(a.TargetPulse))
			copy(lm.master.Output(axisIdx), buf[:])
		}
		if err := lm.master.SendProcessData(); err != nil {
			lm.log.WithError(err).Warn("shutdown: send_processdata failed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	for _, st := range []SlaveState{StateSafeOp, StatePreOp, StateInit} {
		if err := lm.master.StateWrite(st); err != nil {
			lm.log.WithError(err).WithField("state", st).Warn("shutdown: state transition failed")
		}
	}
	if err := lm.master.Close(); err != nil {
		lm.log.WithError(err).Warn("shutdown: adapter close failed")
	}
}

func u16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
