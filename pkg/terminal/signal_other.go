//go:build !unix

package terminal

import "syscall"

func signalName(sig syscall.Signal) string {
	return sig.String()
}
