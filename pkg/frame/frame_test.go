package frame

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	a, b, err := NewSocketpair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	payload := []byte("hello srvsh")
	require.NoError(t, WriteFrame(int(a.Fd()), 7, payload))

	f, err := ReadFrame(int(b.Fd()))
	require.NoError(t, err)
	assert.EqualValues(t, 7, f.Opcode)
	assert.Equal(t, payload, f.Payload)
	assert.Empty(t, f.Ancillary)
}

func TestWriteReadFrameEmptyPayload(t *testing.T) {
	a, b, err := NewSocketpair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	require.NoError(t, WriteFrame(int(a.Fd()), 1, nil))

	f, err := ReadFrame(int(b.Fd()))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.Opcode)
	assert.Empty(t, f.Payload)
}

func TestReadFramePeerClosed(t *testing.T) {
	a, b, err := NewSocketpair()
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Close())

	_, err = ReadFrame(int(b.Fd()))
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestAncillaryFdPassthrough(t *testing.T) {
	a, b, err := NewSocketpair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	rights := unix.UnixRights(int(w.Fd()))
	require.NoError(t, WriteFrameAncillary(int(a.Fd()), 3, []byte("fds"), rights))

	f, err := ReadFrame(int(b.Fd()))
	require.NoError(t, err)
	assert.EqualValues(t, 3, f.Opcode)
	assert.NotEmpty(t, f.Ancillary)

	fds, err := ParseRightsFds(f.Ancillary)
	require.NoError(t, err)
	require.Len(t, fds, 1)
	defer unix.Close(fds[0])

	// the passed fd refers to the same pipe write-end: writing through
	// it should be observable on the original read end.
	require.NoError(t, unix.Write(fds[0], []byte("ping")))
	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestCliEndDefaultsToCliBegin(t *testing.T) {
	os.Unsetenv(clientsEndEnv)
	assert.Equal(t, CliBegin, CliEnd())
	assert.Equal(t, 0, CliCount())
	assert.False(t, IsCli(CliBegin))
}

func TestEnvForAndCliHelpers(t *testing.T) {
	env := EnvFor(3, true)
	require.Len(t, env, 2)

	os.Setenv(clientsEndEnv, "7")
	defer os.Unsetenv(clientsEndEnv)

	assert.Equal(t, 7, CliEnd())
	assert.Equal(t, 3, CliCount())
	assert.True(t, IsCli(4))
	assert.True(t, IsCli(6))
	assert.False(t, IsCli(7))
}
