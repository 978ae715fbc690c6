package native

import (
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/rdbg/rdb/pkg/logflags"
)

// ptraceAttach executes the sys.PtraceAttach call.
func ptraceAttach(pid int) error {
	err := sys.PtraceAttach(pid)
	logflags.PtraceLogger().Debugf("PTRACE_ATTACH pid=%d err=%v", pid, err)
	return err
}

// ptraceDetach calls ptrace(PTRACE_DETACH).
func ptraceDetach(tid, sig int) error {
	var err error
	_, _, e1 := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
	if e1 != syscall.Errno(0) {
		err = e1
	}
	logflags.PtraceLogger().Debugf("PTRACE_DETACH pid=%d sig=%d err=%v", tid, sig, err)
	return err
}

// ptraceCont executes ptrace PTRACE_CONT
func ptraceCont(tid, sig int) error {
	err := sys.PtraceCont(tid, sig)
	logflags.PtraceLogger().Debugf("PTRACE_CONT pid=%d sig=%d err=%v", tid, sig, err)
	return err
}

// kill sends sig to pid.
func kill(pid int, sig syscall.Signal) error {
	err := sys.Kill(pid, sig)
	logflags.PtraceLogger().Debugf("kill pid=%d sig=%v err=%v", pid, sig, err)
	return err
}

// wait4 calls wait4(2) on pid, restarting it if interrupted.
func wait4(pid, options int) (int, sys.WaitStatus, error) {
	var s sys.WaitStatus
	for {
		wpid, err := sys.Wait4(pid, &s, sys.WALL|options, nil)
		if err == sys.EINTR {
			continue
		}
		logflags.PtraceLogger().Debugf("wait4 pid=%d wpid=%d status=%#x err=%v", pid, wpid, uint32(s), err)
		return wpid, s, err
	}
}
