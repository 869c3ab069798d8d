// Command srvsh-testserver is a test fixture: it polls its client fd
// range and prints one line per frame received, until every client has
// hung up. Used by pkg/launch's fixture test to exercise a real spawned
// server process.
package main

import (
	"fmt"

	"github.com/TheMadman/srvsh/pkg/dispatch"
	"github.com/TheMadman/srvsh/pkg/frame"
)

func main() {
	tree := dispatch.NewTree()

	if tree.Live() == 0 {
		return
	}

	for tree.Live() > 0 {
		_, err := tree.All(report, nil, 1000)
		if err != nil {
			fmt.Println("poll error:", err)
			break
		}
	}
}

func report(fd int, f frame.Frame, _ any) {
	fmt.Printf("fd=%d opcode=%d payload=%q\n", fd, f.Opcode, f.Payload)
}
