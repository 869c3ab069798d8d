// Package dispatch polls the server and client file descriptors of a
// running srvsh command and delivers each arriving frame to a callback.
// It is the Go counterpart of srvsh.h's pollop family, built directly on
// golang.org/x/sys/unix's Poll the way dispatchrun-wasi-go's
// systems/unix package polls its own fd set.
package dispatch

import (
	"errors"

	"github.com/TheMadman/srvsh/pkg/frame"
	"golang.org/x/sys/unix"
)

// Callback is invoked once per frame successfully read off a polled file
// descriptor. f.Ancillary carries any ancillary data that arrived with
// the frame; the callback does not own it past return unless it copies it.
type Callback func(fd int, f frame.Frame, context any)

// ErrPollFailed wraps a poll(2) failure distinct from ordinary read
// errors on an individual fd.
var ErrPollFailed = errors.New("dispatch: poll failed")

// Fd polls a single file descriptor for a read event and, if one of data
// arrives, reads a frame and invokes callback. Mirrors pollopfd(): the
// returned unix.PollFd carries Revents so the caller can inspect why
// polling stopped (hang-up, error, or plain timeout with no events).
func Fd(fd int, callback Callback, context any, timeoutMillis int) (unix.PollFd, error) {
	pollfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	n, err := unix.Poll(pollfds, timeoutMillis)
	if err != nil {
		return unix.PollFd{Fd: -1}, ErrPollFailed
	}
	if n == 0 {
		return unix.PollFd{}, nil
	}

	pfd := pollfds[0]
	out := unix.PollFd{Fd: int32(fd), Revents: pfd.Revents}

	if pfd.Revents&unix.POLLIN == 0 {
		// POLLHUP, POLLERR or POLLNVAL with no data to read.
		return out, nil
	}

	f, err := frame.ReadFrame(fd)
	if err != nil {
		return out, nil
	}
	callback(fd, f, context)
	return out, nil
}

// Fds polls every fd in fds for read events, processing them in order:
// for each ready fd a frame is read and callback is invoked, then the
// next fd is processed. Mirrors pollopfds().
func Fds(fds []int, callback Callback, context any, timeoutMillis int) (unix.PollFd, error) {
	if len(fds) == 0 {
		return unix.PollFd{}, nil
	}

	pollfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(pollfds, timeoutMillis)
	if err != nil {
		return unix.PollFd{Fd: -1}, ErrPollFailed
	}
	if n == 0 {
		return unix.PollFd{}, nil
	}

	var last unix.PollFd
	for i, pfd := range pollfds {
		if pfd.Revents == 0 {
			continue
		}
		last = unix.PollFd{Fd: pfd.Fd, Revents: pfd.Revents}
		if pfd.Revents&unix.POLLIN == 0 {
			continue
		}
		f, err := frame.ReadFrame(fds[i])
		if err != nil {
			continue
		}
		callback(fds[i], f, context)
	}
	return last, nil
}

// Tree tracks the sticky set of file descriptors All/Server operate
// over: the server fd (if any) plus every client fd in
// [frame.CliBegin, frame.CliEnd()). Once a fd hangs up or errors it is
// retired from the set and never polled again, matching pollop()'s
// "will not be processed again" contract.
type Tree struct {
	srv     int
	hasSrv  bool
	clients []int
	retired map[int]bool
}

// NewTree builds a Tree from this process's own launch-time fd layout,
// as reported by frame.HasServer/frame.CliEnd.
func NewTree() *Tree {
	t := &Tree{retired: make(map[int]bool)}
	if frame.HasServer() {
		t.srv = frame.SrvFileno
		t.hasSrv = true
	}
	for fd := frame.CliBegin; fd < frame.CliEnd(); fd++ {
		t.clients = append(t.clients, fd)
	}
	return t
}

// Server polls only the server fd. Mirrors pollopsrv(). Returns a zero
// PollFd if this process has no server.
func (t *Tree) Server(callback Callback, context any, timeoutMillis int) (unix.PollFd, error) {
	if !t.hasSrv || t.retired[t.srv] {
		return unix.PollFd{}, nil
	}
	pfd, err := Fd(t.srv, callback, context, timeoutMillis)
	if err != nil {
		return pfd, err
	}
	if pfd.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		t.retired[t.srv] = true
	}
	return pfd, nil
}

// All polls the server (if any) and every live client fd in one pass,
// reading at most one frame per ready fd and retiring any fd that hangs
// up or errors once no frame is left to read on it. Mirrors pollop().
func (t *Tree) All(callback Callback, context any, timeoutMillis int) (unix.PollFd, error) {
	fds := t.liveFds()
	if len(fds) == 0 {
		return unix.PollFd{}, nil
	}

	pollfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(pollfds, timeoutMillis)
	if err != nil {
		return unix.PollFd{Fd: -1}, ErrPollFailed
	}
	if n == 0 {
		return unix.PollFd{}, nil
	}

	var last unix.PollFd
	for i, pfd := range pollfds {
		if pfd.Revents == 0 {
			continue
		}
		last = unix.PollFd{Fd: pfd.Fd, Revents: pfd.Revents}

		if pfd.Revents&unix.POLLIN != 0 {
			// Data still queued ahead of a hang-up is read first; the
			// zero-length read that follows it retires the fd.
			f, err := frame.ReadFrame(fds[i])
			if err != nil {
				t.retired[fds[i]] = true
				continue
			}
			callback(fds[i], f, context)
			continue
		}
		if pfd.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			t.retired[fds[i]] = true
		}
	}
	return last, nil
}

// Live reports how many fds in the tree have not been retired.
func (t *Tree) Live() int {
	return len(t.liveFds())
}

func (t *Tree) liveFds() []int {
	var fds []int
	if t.hasSrv && !t.retired[t.srv] {
		fds = append(fds, t.srv)
	}
	for _, fd := range t.clients {
		if !t.retired[fd] {
			fds = append(fds, fd)
		}
	}
	return fds
}
