package core

import "github.com/sirupsen/logrus"

// newLoopLogger returns the base logrus entry the Control Loop, Lifecycle
// Manager, and Fault Supervisor log through, tagged so a multi-axis
// deployment's log stream can be filtered per component the way
// gocanopen tags its PDO/SDO/emergency log lines.
func newLoopLogger(logger *logrus.Logger) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", "control-loop")
}
