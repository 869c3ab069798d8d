package parser

import (
	"os"

	"github.com/TheMadman/srvsh/internal/reap"
	"github.com/TheMadman/srvsh/pkg/frame"
	"github.com/TheMadman/srvsh/pkg/launch"
)

// Execute launches every statement in body. Top-level statements get no
// server socket at all — there is no enclosing block at the top of a
// script. A statement that heads a nested block gets its own server
// process launched with one client socket per statement enclosed in its
// body, recursively.
//
// Every launched command is registered with group so the caller can
// Wait() once, after Execute returns, to reap the whole tree and
// compute the worst exit code. If Execute returns an error partway
// through, everything launched up to that point is still registered
// with group and should still be waited on.
func Execute(body *Body, group *reap.Group) error {
	for _, stmt := range body.Statements {
		if stmt.Nested == nil {
			if err := launchLeaf(stmt.Argv, nil, 0, group); err != nil {
				return err
			}
			continue
		}
		if err := runBlock(stmt.Argv, stmt.Nested, nil, 0, group); err != nil {
			return err
		}
	}
	return nil
}

// runBlock launches headArgv as the server for nested's enclosed
// statements. outerServerEnd, if non-nil, is the SRV_FILENO connection
// this server itself holds to whatever outer block it is a client of —
// set only when this block header is itself nested inside another
// block.
func runBlock(headArgv []string, nested *Body, outerServerEnd *os.File, depth int, group *reap.Group) error {
	n := len(nested.Statements)
	childEnds := make([]*os.File, n) // handed to the head process as its CLI_BEGIN.. range
	peerEnds := make([]*os.File, n)  // handed to each enclosed statement as its SRV_FILENO

	for i := range nested.Statements {
		a, b, err := frame.NewSocketpair()
		if err != nil {
			return err
		}
		peerEnds[i] = a
		childEnds[i] = b
	}

	cmd, err := launch.LaunchWired(launch.Wiring{
		Argv:       headArgv,
		ServerEnd:  outerServerEnd,
		ClientEnds: childEnds,
		Depth:      depth,
	})
	if err != nil {
		closeFiles(peerEnds)
		return err
	}
	group.AddWaiter(headArgv, cmd.Process.Pid, cmd.Wait)

	for i, s := range nested.Statements {
		if s.Nested == nil {
			if err := launchLeaf(s.Argv, peerEnds[i], depth+1, group); err != nil {
				return err
			}
			continue
		}
		if err := runBlock(s.Argv, s.Nested, peerEnds[i], depth+1, group); err != nil {
			return err
		}
	}
	return nil
}

// launchLeaf launches a simple (non-block-heading) statement, wiring
// serverEnd onto its SRV_FILENO if non-nil.
func launchLeaf(argv []string, serverEnd *os.File, depth int, group *reap.Group) error {
	cmd, err := launch.LaunchWired(launch.Wiring{
		Argv:      argv,
		ServerEnd: serverEnd,
		Depth:     depth,
	})
	if err != nil {
		return err
	}
	group.AddWaiter(argv, cmd.Process.Pid, cmd.Wait)
	return nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
