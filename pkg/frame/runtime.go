package frame

import (
	"os"
	"strconv"
)

// clientsEndEnv is set by the interpreter in every spawned command's
// environment to one past the last client file descriptor that command
// was launched with, per the SrvFileno/CliBegin fd-numbering scheme. A
// command with no clients still gets the variable, set to CliBegin.
const clientsEndEnv = "SRVSH_CLIENTS_END"

// CliEnd returns one past the last client file descriptor this process
// was launched with. Clients spawned later via pkg/launch from inside
// this process are not reflected here, mirroring the original cli_end()
// contract: it describes the process's own fd layout at exec time, not
// its current one.
func CliEnd() int {
	v := os.Getenv(clientsEndEnv)
	if v == "" {
		return CliBegin
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < CliBegin {
		return CliBegin
	}
	return n
}

// CliCount returns how many client file descriptors this process was
// launched with.
func CliCount() int {
	return CliEnd() - CliBegin
}

// IsCli reports whether fd falls in this process's client fd range.
func IsCli(fd int) bool {
	return fd >= CliBegin && fd < CliEnd()
}

// HasServer reports whether this process was launched with a server
// socket on SrvFileno.
func HasServer() bool {
	return os.Getenv(hasServerEnv) == "1"
}

const hasServerEnv = "SRVSH_HAS_SERVER"

// EnvFor builds the environment additions pkg/launch must set on a
// spawned command: the client-count and has-server markers that CliEnd,
// CliCount, IsCli and HasServer read back in the child.
func EnvFor(cliCount int, hasServer bool) []string {
	end := CliBegin + cliCount
	srv := "0"
	if hasServer {
		srv = "1"
	}
	return []string{
		clientsEndEnv + "=" + strconv.Itoa(end),
		hasServerEnv + "=" + srv,
	}
}
