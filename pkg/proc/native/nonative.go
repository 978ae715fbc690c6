//go:build !linux

package native

import (
	"syscall"

	"github.com/rdbg/rdb/pkg/proc"
)

// Launch returns proc.ErrUnsupportedOS.
func Launch(_ string) (*Process, error) {
	return nil, proc.ErrUnsupportedOS
}

// Attach returns proc.ErrUnsupportedOS.
func Attach(_ string) (*Process, error) {
	return nil, proc.ErrUnsupportedOS
}

func (dbp *Process) Resume() error {
	return &proc.ResumeError{Pid: dbp.pid, Err: proc.ErrUnsupportedOS}
}

func (dbp *Process) Wait() (syscall.Signal, error) {
	return 0, &proc.WaitError{Pid: dbp.pid, Err: proc.ErrUnsupportedOS}
}

func (dbp *Process) Status() (rune, error) {
	return 0, proc.ErrUnsupportedOS
}

func (dbp *Process) release() error {
	return nil
}
