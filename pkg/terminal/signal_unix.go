//go:build unix

package terminal

import (
	"syscall"

	sys "golang.org/x/sys/unix"
)

func signalName(sig syscall.Signal) string {
	if name := sys.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
