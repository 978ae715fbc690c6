package proc

import (
	"bytes"
	"fmt"
	"os"
)

// Process statuses as reported by the third field of /proc/<pid>/stat.
const (
	StatusSleeping  = 'S'
	StatusRunning   = 'R'
	StatusDiskSleep = 'D'
	StatusTraceStop = 't'
	StatusZombie    = 'Z'
	StatusDead      = 'X'

	// Kernel 2.6 has TraceStop as T. On modern kernels 'T' is a job
	// control stop, which is what a detached process stopped by SIGSTOP
	// reports.
	StatusStoppedT = 'T'
)

// ReadStatus returns the scheduler state of pid as reported by procfs.
func ReadStatus(pid int) (rune, error) {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	return parseStat(pid, stat)
}

// parseStat extracts the state from the contents of /proc/<pid>/stat.
// The second field is the name of the task in parentheses, which can
// itself contain both parentheses and spaces, so the state is located
// after the last closing parenthesis.
func parseStat(pid int, stat []byte) (rune, error) {
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return 0, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	return rune(stat[i+2]), nil
}
