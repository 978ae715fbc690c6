package proc

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOS is returned by the native backend on operating
// systems that do not provide ptrace.
var ErrUnsupportedOS = errors.New("native backend is not supported on this operating system")

// ErrProcessExited indicates that the process has exited and contains both
// process id and exit status.
type ErrProcessExited struct {
	Pid    int
	Status int
}

func (pe ErrProcessExited) Error() string {
	return fmt.Sprintf("Process %d has exited with status %d", pe.Pid, pe.Status)
}

// InvalidIdentifierError is returned when the text passed to Attach is not
// a positive process id. No process is touched when this error is
// returned.
type InvalidIdentifierError struct {
	Text string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid pid %q: must be a positive integer", e.Text)
}

// AttachError is returned when the OS refuses to let us trace Pid, e.g.
// because the process does not exist, is already traced, or we lack
// the privilege to trace it.
type AttachError struct {
	Pid int
	Err error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("could not attach to pid %d: %v", e.Pid, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }

// ForkError is returned when the debugger could not create a new process.
type ForkError struct {
	Err error
}

func (e *ForkError) Error() string {
	return fmt.Sprintf("fork failed: %v", e.Err)
}

func (e *ForkError) Unwrap() error { return e.Err }

// LaunchError is returned when the child process was created but could
// not be traced or could not execute Path. Msg is the diagnostic reported
// by the child before it exited.
type LaunchError struct {
	Path string
	Msg  string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not launch process: %s", e.Msg)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ResumeError is returned when the target could not be resumed. Once a
// target can not be resumed it can not be controlled any more.
type ResumeError struct {
	Pid int
	Err error
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("could not continue process %d: %v", e.Pid, e.Err)
}

func (e *ResumeError) Unwrap() error { return e.Err }

// UnexpectedWaitStatusError is returned when waiting on the target
// reports anything other than a signal-delivery stop, for example the
// target exiting or being killed.
type UnexpectedWaitStatusError struct {
	Pid    int
	Status string
}

func (e *UnexpectedWaitStatusError) Error() string {
	return fmt.Sprintf("unexpected status for process %d: %s", e.Pid, e.Status)
}

// WaitError is returned when the wait system call itself fails.
type WaitError struct {
	Pid int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("waiting on process %d failed: %v", e.Pid, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }
