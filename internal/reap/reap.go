// Package reap waits for every command srvsh spawned and aggregates
// their exit statuses into the single code the interpreter itself
// exits with, mirroring wait_all()/SIGNAL_RETURN_VALUE in
// original_source/src/parse.c and the WaitStatus/ExitStatus/Signaled
// handling retrieved from the daemon-container init example.
package reap

import (
	"os/exec"
	"sync"
)

// Result is one spawned command's outcome.
type Result struct {
	Argv     []string
	Pid      int
	Code     int
	Signaled bool
	Signal   int
}

// Group collects commands as they're launched and waits for all of
// them, computing the worst (maximum) exit code across the group —
// the same aggregation rule as the original's wait_all(0) loop.
type Group struct {
	mu      sync.Mutex
	waiters []func() Result
}

// Add registers cmd (already Start()ed) to be waited on by Wait. argv is
// recorded for diagnostics only.
func (g *Group) Add(argv []string, cmd *exec.Cmd) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.waiters = append(g.waiters, func() Result {
		err := cmd.Wait()
		return resultFor(argv, cmd, err)
	})
}

// AddWaiter registers an arbitrary wait function, for callers (like
// pkg/launch.Handle) that have already wrapped cmd.Wait with their own
// cleanup.
func (g *Group) AddWaiter(argv []string, pid int, wait func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.waiters = append(g.waiters, func() Result {
		err := wait()
		return resultFromError(argv, pid, err)
	})
}

// Wait blocks until every registered command has exited, then returns
// one Result per command (in registration order) and the aggregate
// worst exit code across all of them.
func (g *Group) Wait() ([]Result, int) {
	g.mu.Lock()
	waiters := g.waiters
	g.mu.Unlock()

	results := make([]Result, len(waiters))
	worst := 0
	for i, w := range waiters {
		r := w()
		results[i] = r
		if r.Code > worst {
			worst = r.Code
		}
	}
	return results, worst
}

func resultFor(argv []string, cmd *exec.Cmd, err error) Result {
	pid := -1
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	return resultFromError(argv, pid, err)
}

func resultFromError(argv []string, pid int, err error) Result {
	r := Result{Argv: argv, Pid: pid}

	if err == nil {
		r.Code = 0
		return r
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		// LookPath/Start-time failure surfaced through Wait: treat as
		// "command not found", matching the original's ENOENT handling
		// in exec_command().
		r.Code = 127
		return r
	}

	ws := exitErr.ProcessState
	if ws.Exited() {
		r.Code = ws.ExitCode()
		return r
	}

	// Signaled: exit code is 128+signal, per SIGNAL_RETURN_VALUE in
	// original_source/src/srvsh/srvsh.h (and srvsh.c's wait loop).
	sig := signalFromState(ws)
	r.Signaled = true
	r.Signal = sig
	r.Code = 128 + sig
	return r
}
