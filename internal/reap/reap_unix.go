//go:build unix

package reap

import (
	"os"
	"syscall"
)

// signalFromState extracts the terminating signal number from a
// *os.ProcessState that did not exit normally, the same
// ws.Signaled()/int(ws.Signal()) pattern used in the daemon-container
// init example this package is grounded on.
func signalFromState(ps *os.ProcessState) int {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0
	}
	return int(ws.Signal())
}
