// Package frame implements the srvsh wire protocol: an
// {opcode:i32, size:i32} header followed by size bytes of payload,
// optionally accompanied by ancillary data (chiefly SCM_RIGHTS-passed file
// descriptors) on the same unix-domain socket.
//
// Grounded on golang.org/x/sys/unix's Sendmsg/Recvmsg/UnixRights, the same
// primitives dispatchrun-wasi-go's systems/unix package uses to shuttle
// WASI fds across a socket, and on the SCM_RIGHTS handling in the
// rootlesskit and uffd fd-passing code retrieved alongside this spec.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// SrvFileno is the file descriptor a spawned command's server
	// socket is placed on, if it has a server.
	SrvFileno = 3
	// CliBegin is the first file descriptor a spawned server's client
	// sockets occupy, contiguous upward from here.
	CliBegin = 4

	headerSize = 8

	// DefaultAncillaryBufSize is used by ReadFrame. The wire format
	// doesn't bound how much SCM_RIGHTS data a frame may carry, so
	// callers expecting larger fd bundles should use ReadFrameSize.
	DefaultAncillaryBufSize = 1024
)

// ErrPeerClosed is returned by ReadFrame when the peer closed its end of
// the socket (a zero-length read on the header), distinct from a genuine
// I/O error.
var ErrPeerClosed = errors.New("frame: peer closed connection")

// Frame is a decoded message: an opcode, its payload, and any ancillary
// (out-of-band) data that arrived with the header.
type Frame struct {
	Opcode    int32
	Payload   []byte
	Ancillary []byte
}

// NewSocketpair creates a connected pair of unix-domain stream sockets,
// returned as *os.File so they can be passed to exec.Cmd.ExtraFiles or
// dup'd directly. Per the spec's ServerEndpoint invariant, callers keep
// one end and move the other into a child process.
func NewSocketpair() (a, b *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("frame: socketpair: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "srvsh-socket"), os.NewFile(uintptr(fds[1]), "srvsh-socket"), nil
}

// WriteFrame sends opcode and payload as a single frame on fd. The header
// and payload are combined into one buffer and sent with one call; a
// short write is reported as an error.
func WriteFrame(fd int, opcode int32, payload []byte) error {
	return WriteFrameAncillary(fd, opcode, payload, nil)
}

// WriteFrameAncillary is WriteFrame plus a raw ancillary (control
// message) buffer, e.g. built with unix.UnixRights to pass file
// descriptors. The frame layer is agnostic about ancillary contents; it
// only forwards them.
func WriteFrameAncillary(fd int, opcode int32, payload []byte, oob []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.NativeEndian.PutUint32(buf[0:4], uint32(opcode))
	binary.NativeEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[headerSize:], payload)

	n, _, err := unixSendmsg(fd, buf, oob)
	if err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("frame: short write: wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

// ReadFrame reads one frame from fd, using DefaultAncillaryBufSize for
// the ancillary-data buffer attached to the header read.
func ReadFrame(fd int) (Frame, error) {
	return ReadFrameSize(fd, DefaultAncillaryBufSize)
}

// ReadFrameSize is ReadFrame with an explicit ancillary buffer size, for
// callers that know they may receive more control data than the default.
func ReadFrameSize(fd int, ancillaryBufSize int) (Frame, error) {
	hdr := make([]byte, headerSize)
	oob := make([]byte, ancillaryBufSize)

	n, oobn, _, _, err := unix.Recvmsg(fd, hdr, oob, 0)
	if err != nil {
		return Frame{}, fmt.Errorf("frame: read header: %w", err)
	}
	if n == 0 {
		return Frame{}, ErrPeerClosed
	}
	if n != headerSize {
		return Frame{}, fmt.Errorf("frame: short header read: got %d of %d bytes", n, headerSize)
	}

	f := Frame{
		Opcode:    int32(binary.NativeEndian.Uint32(hdr[0:4])),
		Ancillary: append([]byte(nil), oob[:oobn]...),
	}

	size := int32(binary.NativeEndian.Uint32(hdr[4:8]))
	if size < 0 {
		return Frame{}, fmt.Errorf("frame: negative payload size in header")
	}
	if size == 0 {
		f.Payload = []byte{}
		return f, nil
	}

	payload := make([]byte, size)
	read := 0
	for read < int(size) {
		m, err := unix.Read(fd, payload[read:])
		if err != nil {
			return Frame{}, fmt.Errorf("frame: read payload: %w", err)
		}
		if m == 0 {
			return Frame{}, ErrPeerClosed
		}
		read += m
	}
	f.Payload = payload

	return f, nil
}

// CloseAncillaryFds closes every file descriptor carried by oob's
// SCM_RIGHTS messages. Helper for receivers that don't intend to accept
// passed fds but must still avoid leaking them.
func CloseAncillaryFds(oob []byte) error {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("frame: parsing control message: %w", err)
	}

	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue // not an SCM_RIGHTS message
		}
		for _, fd := range fds {
			unix.Close(fd)
		}
	}
	return nil
}

// ParseRightsFds extracts the file descriptors carried by oob's
// SCM_RIGHTS messages without closing them.
func ParseRightsFds(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("frame: parsing control message: %w", err)
	}

	var fds []int
	for _, m := range msgs {
		rights, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func unixSendmsg(fd int, p []byte, oob []byte) (n int, oobn int, err error) {
	n, err = unix.SendmsgN(fd, p, oob, nil, 0)
	if err != nil {
		return 0, 0, err
	}
	return n, len(oob), nil
}
