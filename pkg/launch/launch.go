// Package launch spawns a script-named command as a child process with
// its server and client sockets wired onto fixed file descriptors,
// generalizing container.go's "build an exec.Cmd with ExtraFiles,
// Start it, reap it in a goroutine" pattern from "launch a jailed VM
// process" to "launch an srvsh command".
//
// Go can't safely fork(2) without an immediate exec(2) once a process
// has more than one OS thread running, so there is no equivalent here
// to the original's raw fork/exec pair — exec.Cmd.ExtraFiles does the
// fd placement (ExtraFiles[0] lands on fd 3, ExtraFiles[1] on fd 4, and
// so on) that srvsh.h's SRV_FILENO/CLI_BEGIN convention expects.
package launch

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/TheMadman/srvsh/pkg/frame"
)

// Handle is a launched command: its process and the parent-side ends of
// whatever sockets it was wired to.
type Handle struct {
	Cmd     *exec.Cmd
	Pid     int
	Server  *os.File   // parent's end of the command's server socket, nil if none
	Clients []*os.File // parent's ends of the command's client sockets
}

// Spec describes how to launch a command: its argv, whether it should
// get a server socket, and how many client sockets it should be handed.
type Spec struct {
	Argv        []string
	WithServer  bool
	ClientCount int
}

// Launch starts the command described by spec. It allocates one
// socketpair per requested endpoint, keeps the parent end, and hands the
// child end to the child on the fd the srvsh wire convention expects:
// fd 3 for the server (if requested), fd 4.. for clients in order.
func Launch(spec Spec) (*Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("launch: empty argv")
	}

	path, err := exec.LookPath(spec.Argv[0])
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}

	h := &Handle{}
	var extraFiles []*os.File
	var toClose []*os.File
	defer func() {
		for _, f := range toClose {
			f.Close()
		}
	}()

	if spec.WithServer {
		parent, child, err := frame.NewSocketpair()
		if err != nil {
			return nil, err
		}
		h.Server = parent
		extraFiles = append(extraFiles, child)
		toClose = append(toClose, child)
	} else if spec.ClientCount > 0 {
		// fd 3 (SRV_FILENO) is reserved for the server slot even when
		// this command has none, so ExtraFiles[0] doesn't shift a
		// client onto it — see placeholderFd.
		ph, err := placeholderFd()
		if err != nil {
			return nil, err
		}
		extraFiles = append(extraFiles, ph)
		toClose = append(toClose, ph)
	}

	for i := 0; i < spec.ClientCount; i++ {
		parent, child, err := frame.NewSocketpair()
		if err != nil {
			return nil, err
		}
		h.Clients = append(h.Clients, parent)
		extraFiles = append(extraFiles, child)
		toClose = append(toClose, child)
	}

	cmd := &exec.Cmd{
		Path:       path,
		Args:       spec.Argv,
		Env:        append(os.Environ(), frame.EnvFor(spec.ClientCount, spec.WithServer)...),
		ExtraFiles: extraFiles,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}

	if err := cmd.Start(); err != nil {
		closeAll(h.Server, h.Clients)
		return nil, fmt.Errorf("launch: starting %s: %w", spec.Argv[0], err)
	}

	h.Cmd = cmd
	h.Pid = cmd.Process.Pid
	return h, nil
}

// Wait blocks until the launched command exits and closes the parent's
// socket ends. Pass h.Wait to reap.Group.AddWaiter to fold the returned
// error into the aggregate exit status.
func (h *Handle) Wait() error {
	err := h.Cmd.Wait()
	closeAll(h.Server, h.Clients)
	return err
}

func closeAll(server *os.File, clients []*os.File) {
	if server != nil {
		server.Close()
	}
	for _, c := range clients {
		c.Close()
	}
}

// placeholderFd opens /dev/null to occupy fd 3 (SRV_FILENO) in a child
// that has client sockets but no server socket. exec.Cmd.ExtraFiles maps
// entry i to fd 3+i with no way to leave a gap, so without this a
// client end at ExtraFiles[0] would land on fd 3 instead of fd 4
// (CLI_BEGIN), and every subsequent client would follow it off by one.
// A child with no server is expected to consult frame.HasServer (which
// correctly reports false) rather than assume fd 3 is unreadable, so an
// open-but-unused /dev/null there is harmless.
func placeholderFd() (*os.File, error) {
	f, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("launch: opening SRV_FILENO placeholder: %w", err)
	}
	return f, nil
}

// Wiring is the direct analog of launch_with_preopened(): the caller has
// already decided which socket ends a command's SRV_FILENO and
// CLI_BEGIN.. range should be, typically because the other end of each
// socket was handed to a different sibling or to that command's own
// server. Depth sets SRVSH_DEPTH in the child's environment.
type Wiring struct {
	Argv       []string
	ServerEnd  *os.File // nil if this command has no server
	ClientEnds []*os.File
	Depth      int
	// Stdout, if non-nil, replaces the child's inherited os.Stdout.
	// Test fixtures use this to capture a fixture binary's output
	// instead of letting it reach the test binary's own stdout.
	Stdout io.Writer
}

// LaunchWired starts the command described by w. Unlike Launch, it does
// not create any sockets itself — ServerEnd and ClientEnds are placed
// directly onto fd 3 and 4.. via ExtraFiles, then closed in the parent,
// since ownership of each end has already passed to this child.
func LaunchWired(w Wiring) (*exec.Cmd, error) {
	if len(w.Argv) == 0 {
		return nil, fmt.Errorf("launch: empty argv")
	}

	path, err := exec.LookPath(w.Argv[0])
	if err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}

	var extraFiles []*os.File
	var placeholder *os.File
	if w.ServerEnd != nil {
		extraFiles = append(extraFiles, w.ServerEnd)
	} else if len(w.ClientEnds) > 0 {
		// See placeholderFd: keep fd 3 reserved so ClientEnds[0]
		// lands on fd 4, not fd 3.
		placeholder, err = placeholderFd()
		if err != nil {
			return nil, err
		}
		extraFiles = append(extraFiles, placeholder)
	}
	extraFiles = append(extraFiles, w.ClientEnds...)

	env := append(os.Environ(), frame.EnvFor(len(w.ClientEnds), w.ServerEnd != nil)...)
	env = append(env, fmt.Sprintf("SRVSH_DEPTH=%d", w.Depth))

	var stdout io.Writer = os.Stdout
	if w.Stdout != nil {
		stdout = w.Stdout
	}

	cmd := &exec.Cmd{
		Path:       path,
		Args:       w.Argv,
		Env:        env,
		ExtraFiles: extraFiles,
		Stdin:      os.Stdin,
		Stdout:     stdout,
		Stderr:     os.Stderr,
	}

	err = cmd.Start()

	// The parent's copies of these fds were only needed to describe the
	// wiring to exec.Cmd; ownership moved to the child at Start. Close
	// them regardless of success so a failed Start doesn't leak fds.
	if w.ServerEnd != nil {
		w.ServerEnd.Close()
	}
	if placeholder != nil {
		placeholder.Close()
	}
	for _, f := range w.ClientEnds {
		f.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("launch: starting %s: %w", w.Argv[0], err)
	}
	return cmd, nil
}
