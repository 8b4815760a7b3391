package core

// Controlword commands from the CiA 402 device control state diagram.
const (
	CWShutdown        uint16 = 0x0006
	CWSwitchOn        uint16 = 0x0007
	CWEnableOperation uint16 = 0x000F
	CWDisableVoltage  uint16 = 0x0000
	CWFaultReset      uint16 = 0x0080

	// CWDisableOperation shares SwitchOn's bit pattern (0x0007) but is
	// used during shutdown, coming down from Operation Enabled rather
	// than going up from Switched On.
	CWDisableOperation uint16 = 0x0007
)

// Statusword masks for the power-state machine, per spec.md §4.2.
const (
	maskSwitchOnDisabled = 0x004F
	valSwitchOnDisabled  = 0x0040

	maskReadyToSwitchOn = 0x006F
	valReadyToSwitchOn  = 0x0021

	maskSwitchedOn = 0x006F
	valSwitchedOn  = 0x0023

	maskOperationEnabled = 0x006F
	valOperationEnabled  = 0x0027

	bitFault = 0x0008
)

// StatuswordFault reports whether the Fault bit (bit 3) is set, the
// condition the Fault Supervisor scans for every cycle.
func StatuswordFault(statusword uint16) bool {
	return statusword&bitFault != 0
}

// StatuswordOperationEnabled reports whether the drive has reached
// Operation Enabled, the state in which trajectory updates are permitted.
func StatuswordOperationEnabled(statusword uint16) bool {
	return statusword&maskOperationEnabled == valOperationEnabled
}

// NextControlword drives one slave's CiA 402 state machine forward for one
// cycle, given its most recent statusword. It holds no state of its own:
// every decision is a pure function of the statusword just received.
func NextControlword(statusword uint16) uint16 {
	if StatuswordFault(statusword) {
		return CWFaultReset
	}
	switch {
	case statusword&maskSwitchOnDisabled == valSwitchOnDisabled:
		return CWShutdown
	case statusword&maskReadyToSwitchOn == valReadyToSwitchOn:
		return CWSwitchOn
	case statusword&maskSwitchedOn == valSwitchedOn:
		return CWEnableOperation
	case statusword&maskOperationEnabled == valOperationEnabled:
		return CWEnableOperation
	default:
		return CWShutdown
	}
}
