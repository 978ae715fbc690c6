package native

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/rdbg/rdb/pkg/logflags"
	"github.com/rdbg/rdb/pkg/proc"
)

// Launch creates and begins debugging a new process running programPath,
// with no arguments other than its own name.
//
// The child requests to be traced and then executes programPath. If
// either step fails the child reports the failure on a close-on-exec
// pipe and exits; os/exec blocks reading that pipe until it is either
// closed by a successful exec or carries the error, so no polling is
// needed to detect early failures of the child. The failed child is
// reaped before Launch returns.
//
// The returned process is in the Running state: the caller should Wait
// for the stop that follows the exec.
func Launch(programPath string) (*Process, error) {
	log := logflags.DebuggerLogger()

	path, err := findExecutable(programPath)
	if err != nil {
		return nil, &proc.LaunchError{Path: programPath, Msg: err.Error(), Err: err}
	}

	var process *exec.Cmd
	dbp := newProcess(0)
	dbp.execPtraceFunc(func() {
		process = &exec.Cmd{
			Path:   path,
			Args:   []string{programPath},
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
			SysProcAttr: &syscall.SysProcAttr{
				Ptrace: true,
			},
		}
		err = process.Start()
	})
	if err != nil {
		dbp.stopPtraceThread()
		return nil, launchError(programPath, err)
	}
	dbp.pid = process.Process.Pid
	dbp.childProcess = true
	// We wait on the pid ourselves.
	process.Process.Release()

	log.WithField("pid", dbp.pid).Debugf("launched %s", path)
	return dbp, nil
}

// findExecutable resolves programPath the way execvp(3) does: names
// without a slash are searched in $PATH.
func findExecutable(programPath string) (string, error) {
	if programPath == "" {
		return "", errors.New("exec: no program specified")
	}
	if strings.Contains(programPath, "/") {
		return programPath, nil
	}
	return exec.LookPath(programPath)
}

// launchError sorts a failure to start the child into a failure to create
// the process and a failure reported by the child itself.
func launchError(programPath string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EAGAIN || errno == syscall.ENOMEM) {
		return &proc.ForkError{Err: err}
	}
	return &proc.LaunchError{Path: programPath, Msg: err.Error(), Err: err}
}

// Attach to an existing process with the given PID.
//
// PTRACE_ATTACH sends SIGSTOP to the target, but the target is not
// guaranteed to have stopped when Attach returns: the returned process is
// in the Running state and the caller must Wait for the stop before
// treating it as Stopped.
func Attach(pidText string) (*Process, error) {
	pid, err := strconv.Atoi(pidText)
	if err != nil || pid <= 0 {
		return nil, &proc.InvalidIdentifierError{Text: pidText}
	}

	dbp := newProcess(pid)
	dbp.execPtraceFunc(func() { err = ptraceAttach(dbp.pid) })
	if err != nil {
		dbp.stopPtraceThread()
		return nil, &proc.AttachError{Pid: pid, Err: err}
	}

	logflags.DebuggerLogger().WithField("pid", pid).Debugf("attached")
	return dbp, nil
}

// Resume lets the target continue executing.
func (dbp *Process) Resume() (err error) {
	if dbp.state.Final() {
		return &proc.ResumeError{Pid: dbp.pid, Err: proc.ErrProcessExited{Pid: dbp.pid, Status: dbp.exitStatus}}
	}
	dbp.execPtraceFunc(func() { err = ptraceCont(dbp.pid, 0) })
	if err != nil {
		return &proc.ResumeError{Pid: dbp.pid, Err: err}
	}
	dbp.setState(proc.Running)
	return nil
}

// Wait blocks until the target changes state. If the target was stopped
// by a signal the signal is returned and the process is Stopped. Any
// other status is returned as an *proc.UnexpectedWaitStatusError and
// leaves the process Exited. If the wait itself fails the process is
// Terminated.
func (dbp *Process) Wait() (syscall.Signal, error) {
	if dbp.reaped {
		return 0, &proc.WaitError{Pid: dbp.pid, Err: proc.ErrProcessExited{Pid: dbp.pid, Status: dbp.exitStatus}}
	}
	_, status, err := wait4(dbp.pid, 0)
	if err != nil {
		dbp.setState(proc.Terminated)
		return 0, &proc.WaitError{Pid: dbp.pid, Err: err}
	}
	if status.Stopped() {
		dbp.setState(proc.Stopped)
		return status.StopSignal(), nil
	}
	dbp.collect(status)
	dbp.setState(proc.Exited)
	return 0, &proc.UnexpectedWaitStatusError{Pid: dbp.pid, Status: describeStatus(status)}
}

// Status returns the scheduler state of the target as reported by the
// kernel.
func (dbp *Process) Status() (rune, error) {
	return proc.ReadStatus(dbp.pid)
}

func (dbp *Process) setState(s proc.RunState) {
	if dbp.state != s {
		logflags.DebuggerLogger().WithField("pid", dbp.pid).Debugf("%v -> %v", dbp.state, s)
	}
	dbp.state = s
}

// collect records that status is the final status of the target.
func (dbp *Process) collect(status sys.WaitStatus) {
	switch {
	case status.Exited():
		dbp.reaped = true
		dbp.exitStatus = status.ExitStatus()
	case status.Signaled():
		dbp.reaped = true
		dbp.exitStatus = -int(status.Signal())
	}
}

func describeStatus(status sys.WaitStatus) string {
	switch {
	case status.Exited():
		return fmt.Sprintf("exited with status %d", status.ExitStatus())
	case status.Signaled():
		return fmt.Sprintf("killed by signal %v", status.Signal())
	case status.Continued():
		return "continued"
	case status.Stopped():
		return fmt.Sprintf("stopped by signal %v", status.StopSignal())
	}
	return fmt.Sprintf("wait status %#x", uint32(status))
}

// release gives up control of the target:
//  1. if the target may be running it is stopped, so that the detach
//     below happens while it is in a trace stop;
//  2. trace authority is released;
//  3. the target is sent SIGCONT, otherwise a stop that was pending when
//     we detached would leave it stopped forever;
//  4. if we launched the target it is killed and reaped.
//
// A target that died behind our back (ESRCH from any step) is not an
// error: the remaining signals are skipped and a launched target is
// still reaped.
//
// A failing step is logged and does not prevent the following ones. The
// first error encountered is returned.
func (dbp *Process) release() error {
	log := logflags.DebuggerLogger().WithField("pid", dbp.pid)
	if dbp.reaped || dbp.collectExit() {
		log.Debugf("process already exited with status %d, nothing to release", dbp.exitStatus)
		return nil
	}

	var (
		firstErr error
		gone     bool
	)
	fail := func(step string, err error) {
		if errors.Is(err, sys.ESRCH) {
			log.Debugf("could not %s process: already gone", step)
			gone = true
			return
		}
		log.WithError(err).Errorf("could not %s process %d", step, dbp.pid)
		if firstErr == nil {
			firstErr = fmt.Errorf("could not %s process %d: %w", step, dbp.pid, err)
		}
	}

	if dbp.state == proc.Running {
		if err := dbp.stop(); err != nil {
			fail("stop", err)
		}
		if dbp.reaped {
			return firstErr
		}
	}

	if !gone {
		var err error
		dbp.execPtraceFunc(func() { err = ptraceDetach(dbp.pid, 0) })
		if err != nil {
			fail("detach from", err)
		}
	}

	if !gone {
		if err := kill(dbp.pid, sys.SIGCONT); err != nil {
			fail("continue", err)
		}
	}

	if !dbp.childProcess {
		log.Debugf("detached, leaving process running")
		return firstErr
	}

	if !gone {
		log.Debugf("killing process")
		if err := kill(dbp.pid, sys.SIGKILL); err != nil {
			fail("kill", err)
			if !gone {
				return firstErr
			}
		}
	}
	for {
		_, status, err := wait4(dbp.pid, 0)
		if err != nil {
			fail("reap", err)
			break
		}
		if status.Exited() || status.Signaled() {
			dbp.collect(status)
			dbp.setState(proc.Exited)
			break
		}
	}
	return firstErr
}

// collectExit checks, without blocking, whether the target has reported
// a status change we have not waited for yet. It returns true if the
// target has terminated.
func (dbp *Process) collectExit() bool {
	wpid, status, err := wait4(dbp.pid, sys.WNOHANG)
	if err != nil || wpid != dbp.pid {
		return false
	}
	switch {
	case status.Exited() || status.Signaled():
		dbp.collect(status)
		dbp.setState(proc.Exited)
		return true
	case status.Stopped():
		dbp.setState(proc.Stopped)
	}
	return false
}

// stop sends SIGSTOP to the target and waits for the resulting trace
// stop. Any other stop the target reports first serves just as well.
func (dbp *Process) stop() error {
	if err := kill(dbp.pid, sys.SIGSTOP); err != nil {
		return err
	}
	_, status, err := wait4(dbp.pid, 0)
	if err != nil {
		dbp.setState(proc.Terminated)
		return err
	}
	if !status.Stopped() {
		dbp.collect(status)
		dbp.setState(proc.Exited)
		return nil
	}
	dbp.setState(proc.Stopped)
	return nil
}
