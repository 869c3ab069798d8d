package procinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReadsLiveProcess(t *testing.T) {
	pid := os.Getpid()
	nodes := Snapshot([]int{pid}, map[int][]string{pid: {"go", "test"}})
	require.Len(t, nodes, 1)
	assert.Equal(t, pid, nodes[0].Pid)
	assert.Equal(t, []string{"go", "test"}, nodes[0].Argv)
	assert.NotEmpty(t, nodes[0].State)
}

func TestSnapshotSkipsDeadPids(t *testing.T) {
	nodes := Snapshot([]int{1 << 30}, nil)
	assert.Empty(t, nodes)
}

func TestDumpFormatsEachNode(t *testing.T) {
	var lines []string
	Dump([]Node{{Pid: 1, State: "R", Comm: "init"}}, func(format string, args ...any) {
		lines = append(lines, format)
	})
	require.Len(t, lines, 1)
}
