// Package procinfo supports the -ps diagnostic: a dump of the process
// tree srvsh spawned, read from /proc. Grounded on minimega's proc.go,
// which uses the same github.com/c9s/goprocinfo/linux reader for its
// "vm top" command. Nothing in here affects exit-code aggregation or fd
// topology; it is skipped entirely unless -ps is passed.
package procinfo

import (
	"fmt"

	proc "github.com/c9s/goprocinfo/linux"
)

// Node is one process in the spawned tree: its stat snapshot plus the
// argv srvsh launched it with.
type Node struct {
	Pid   int
	Argv  []string
	State string
	Comm  string
}

// Snapshot reads /proc/<pid>/stat for each of the given pids. Pids that
// have already exited by the time Snapshot runs are silently skipped —
// this is best-effort diagnostics, not something the interpreter's exit
// code depends on.
func Snapshot(pids []int, argv map[int][]string) []Node {
	var nodes []Node
	for _, pid := range pids {
		stat, err := proc.ReadProcessStat(fmt.Sprintf("/proc/%d/stat", pid))
		if err != nil {
			continue
		}
		nodes = append(nodes, Node{
			Pid:   pid,
			Argv:  argv[pid],
			State: stat.State,
			Comm:  stat.Comm,
		})
	}
	return nodes
}

// Dump writes a human-readable process tree to w-like output via the
// provided print function, one line per node. Kept separate from
// Snapshot so tests can assert on Node values without capturing output.
func Dump(nodes []Node, printf func(format string, args ...any)) {
	for _, n := range nodes {
		printf("pid=%d state=%s comm=%s argv=%v\n", n.Pid, n.State, n.Comm, n.Argv)
	}
}
