package runtime

// PanicPolicy determines how a recovery helper behaves after logging a panic.
type PanicPolicy int

const (
	// KeepRunning recovers the panic and lets the goroutine finish normally.
	KeepRunning PanicPolicy = iota
	// CrashProcess re-panics after logging so the process terminates.
	CrashProcess
)

// String returns the policy name.
func (p PanicPolicy) String() string {
	switch p {
	case KeepRunning:
		return "KeepRunning"
	case CrashProcess:
		return "CrashProcess"
	default:
		return "Unknown"
	}
}
