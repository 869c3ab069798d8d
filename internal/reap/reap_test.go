package reap

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupWaitAggregatesWorstExit(t *testing.T) {
	g := &Group{}

	ok := exec.Command("true")
	require.NoError(t, ok.Start())
	g.Add([]string{"true"}, ok)

	fail := exec.Command("sh", "-c", "exit 3")
	require.NoError(t, fail.Start())
	g.Add([]string{"sh", "-c", "exit 3"}, fail)

	results, worst := g.Wait()
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Code)
	assert.Equal(t, 3, results[1].Code)
	assert.Equal(t, 3, worst)
}

func TestGroupWaitSignaled(t *testing.T) {
	g := &Group{}

	cmd := exec.Command("sh", "-c", "kill -TERM $$")
	require.NoError(t, cmd.Start())
	g.Add([]string{"sh", "-c", "kill -TERM $$"}, cmd)

	results, worst := g.Wait()
	require.Len(t, results, 1)
	assert.True(t, results[0].Signaled)
	assert.Equal(t, 128+15, results[0].Code)
	assert.Equal(t, 128+15, worst)
}

func TestGroupWaitCommandNotFound(t *testing.T) {
	g := &Group{}

	cmd := exec.Command("/no/such/binary-srvsh-test")
	err := cmd.Start()
	require.Error(t, err)
	g.AddWaiter([]string{"/no/such/binary-srvsh-test"}, -1, func() error { return err })

	results, worst := g.Wait()
	require.Len(t, results, 1)
	assert.Equal(t, 127, results[0].Code)
	assert.Equal(t, 127, worst)
}
