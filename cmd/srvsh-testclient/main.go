// Command srvsh-testclient is a test fixture: it writes one frame on
// its SRV_FILENO (opcode and payload given as argv) and exits 0. Used
// by pkg/launch's fixture test to exercise a real child process
// instead of only a socketpair created in-process.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/TheMadman/srvsh/pkg/frame"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: srvsh-testclient <opcode> <payload>")
		os.Exit(2)
	}

	opcode, err := strconv.ParseInt(os.Args[1], 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad opcode:", err)
		os.Exit(2)
	}

	if !frame.HasServer() {
		fmt.Fprintln(os.Stderr, "srvsh-testclient: no server fd")
		os.Exit(1)
	}

	if err := frame.WriteFrame(frame.SrvFileno, int32(opcode), []byte(os.Args[2])); err != nil {
		fmt.Fprintln(os.Stderr, "write frame:", err)
		os.Exit(1)
	}
}
