// Package proc is a low-level package that provides the types shared by
// the backends that manipulate the process we are debugging.
//
// The native subpackage implements:
// * creating / attaching to a process
// * process manipulation (continue, wait for stop)
// * releasing the process when the debug session ends
package proc
