package native

import (
	"runtime"
	"sync"

	"github.com/rdbg/rdb/pkg/proc"
)

// Process represents all of the information the debugger
// is holding onto regarding the process we are debugging.
//
// A Process holds trace authority over its target until Close is
// called. Callers must defer Close as soon as Launch or Attach return.
type Process struct {
	pid          int  // Process Pid
	childProcess bool // this process was launched, not attached to
	state        proc.RunState

	// reaped is set once wait4 has collected the exit status of pid, after
	// which the pid may be reused by an unrelated process.
	reaped     bool
	exitStatus int

	ptraceChan     chan func()
	ptraceDoneChan chan interface{}

	closeOnce sync.Once
	closeErr  error
}

var _ proc.Process = (*Process)(nil)

// newProcess returns an initialized Process struct. Before returning,
// it will also launch a goroutine in order to handle ptrace(2)
// functions. For more information, see the documentation on
// `handlePtraceFuncs`.
func newProcess(pid int) *Process {
	dbp := &Process{
		pid:            pid,
		state:          proc.Running,
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan interface{}),
	}
	go dbp.handlePtraceFuncs()
	return dbp
}

// Pid returns the process ID.
func (dbp *Process) Pid() int {
	return dbp.pid
}

// State returns the last observed run state of the process.
func (dbp *Process) State() proc.RunState {
	return dbp.state
}

// ChildProcess returns true if the process was created by Launch, in
// which case Close will kill it.
func (dbp *Process) ChildProcess() bool {
	return dbp.childProcess
}

// Close stops tracing the process. If the process was launched by us it
// is killed and reaped, otherwise it is left running.
//
// The release protocol runs exactly once, subsequent calls return the
// result of the first one.
func (dbp *Process) Close() error {
	dbp.closeOnce.Do(func() {
		dbp.closeErr = dbp.release()
		dbp.stopPtraceThread()
	})
	return dbp.closeErr
}

func (dbp *Process) handlePtraceFuncs() {
	// We must ensure here that we are running on the same thread during
	// while invoking the ptrace(2) syscall. This is due to the fact that ptrace(2) expects
	// all commands after PTRACE_ATTACH to come from the same thread.
	runtime.LockOSThread()

	for fn := range dbp.ptraceChan {
		fn()
		dbp.ptraceDoneChan <- nil
	}
}

func (dbp *Process) execPtraceFunc(fn func()) {
	dbp.ptraceChan <- fn
	<-dbp.ptraceDoneChan
}

// stopPtraceThread terminates the goroutine started by newProcess. The
// thread it is locked to exits with it.
func (dbp *Process) stopPtraceThread() {
	close(dbp.ptraceChan)
}
