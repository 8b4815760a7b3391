// Package simmaster is a software-only double for the EtherCATMaster
// collaborator core.EtherCATMaster depends on. It plays the same role the
// teacher's MockSerialPort plays for dxl.Driver: a deterministic stand-in
// for hardware, with just enough first-order motor physics (actual
// position chases commanded target at a bounded slew rate) to exercise
// trajectory completion and multi-axis synchronization without real
// EtherCAT hardware.
package simmaster

import (
	"fmt"
	"sync"

	"ethercat-csp-core/core"
)

// SlaveSim is one simulated slave's physical state.
type SlaveSim struct {
	Actual       int64
	MaxStepPulse int64 // max |actual-target| closed per SendProcessData call
	Fault        bool  // injected Fault bit, latched until faultAcked
	faultAcked   bool
}

// Master is a fake core.EtherCATMaster. Zero value is not usable; build
// one with New.
type Master struct {
	mu sync.Mutex

	slaves  []*SlaveSim
	output  [][]byte
	input   [][]byte
	state   core.SlaveState
	opened  bool
	adapter string
}

// New creates a simulated master for the given number of slaves, each
// starting at actual position 0 with the given max step (pulses/cycle).
func New(numSlaves int, maxStepPulse int64) *Master {
	m := &Master{
		slaves: make([]*SlaveSim, numSlaves),
		output: make([][]byte, numSlaves),
		input:  make([][]byte, numSlaves),
		state:  core.StateInit,
	}
	for i := range m.slaves {
		m.slaves[i] = &SlaveSim{MaxStepPulse: maxStepPulse}
		m.output[i] = make([]byte, core.RxPDOSize)
		m.input[i] = make([]byte, core.TxPDOSize)
	}
	return m
}

// InjectFault sets the Fault bit for a slave; it stays set until a
// Fault Reset controlword (0x0080) is observed on that slave's output.
func (m *Master) InjectFault(slave int, fault bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slaves[slave].Fault = fault
	m.slaves[slave].faultAcked = false
}

// Slave exposes a slave's simulated physical state for test assertions.
func (m *Master) Slave(i int) *SlaveSim {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slaves[i]
}

func (m *Master) Open(adapter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	m.adapter = adapter
	return nil
}

func (m *Master) ConfigInit() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return 0, fmt.Errorf("adapter not open")
	}
	return len(m.slaves), nil
}

func (m *Master) SDORead(slave int, index uint16, sub uint8, length int) ([]byte, error) {
	return make([]byte, length), nil
}

func (m *Master) SDOWrite(slave int, index uint16, sub uint8, data []byte) error {
	return nil
}

func (m *Master) Output(slave int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.output[slave]
}

func (m *Master) Input(slave int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input[slave]
}

func (m *Master) StateWrite(state core.SlaveState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

// SendProcessData applies the just-written RxPDO to the physics model:
// each slave's Actual moves toward the commanded target, bounded by
// MaxStepPulse, and the Fault bit latches/clears based on the injected
// fault and the observed controlword's Fault Reset bit.
func (m *Master) SendProcessData() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slaves {
		cw, target := core.DecodeRxPDO(m.output[i][:core.RxPDOSize])
		if s.Fault && cw == core.CWFaultReset {
			s.faultAcked = true
		}
		if s.faultAcked {
			s.Fault = false
		}
		if !s.Fault {
			delta := int64(target) - s.Actual
			if delta > s.MaxStepPulse {
				delta = s.MaxStepPulse
			} else if delta < -s.MaxStepPulse {
				delta = -s.MaxStepPulse
			}
			s.Actual += delta
		}
	}
	return nil
}

// ReceiveProcessData encodes each slave's current statusword and actual
// position into its TxPDO input buffer.
func (m *Master) ReceiveProcessData() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slaves {
		sw := statusword(s)
		buf := core.EncodeTxPDO(sw, int32(s.Actual))
		copy(m.input[i], buf[:])
	}
	return nil
}

func statusword(s *SlaveSim) uint16 {
	if s.Fault {
		return 0x0008 | 0x0040
	}
	return 0x0027 // Operation Enabled
}

func (m *Master) DCSync(enable bool, periodNs int64) error {
	return nil
}

func (m *Master) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}
