package proc

// RunState is the execution state of a traced process as last observed
// by the debugger.
type RunState uint8

const (
	// Running means the target is executing and its memory and registers
	// can not be accessed.
	Running RunState = iota
	// Stopped means the target is in a trace stop and can be inspected.
	Stopped
	// Exited means the target ran to completion, or reported a status we
	// do not model. No transition leaves this state.
	Exited
	// Terminated means waiting on the target failed and its state is
	// unknown. No transition leaves this state.
	Terminated
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Exited:
		return "exited"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Final returns true if no transition can leave s.
func (s RunState) Final() bool {
	return s == Exited || s == Terminated
}
