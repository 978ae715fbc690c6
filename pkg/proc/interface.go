package proc

import "syscall"

// Process represents the target of the debugger.
type Process interface {
	Pid() int
	State() RunState

	// Resume lets the target continue executing.
	Resume() error
	// Wait blocks until the target changes state and returns the signal
	// that stopped it.
	Wait() (syscall.Signal, error)
	// Close releases the target, see native.Process.Close.
	Close() error
}
