package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T, args []string) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	FlagLevel = flag.String("level", "warn", "set log level: [debug, info, warn, error, fatal]")
	FlagVerbose = flag.Bool("v", true, "log on stderr")
	FlagLogfile = flag.String("logfile", "", "also log to file")
	FlagOpcodes = flag.String("opcodes", "", "path to the opcode database")
	FlagConfig = flag.String("config", "/etc/srvsh/srvsh.ini", "path to an optional INI config file")
	FlagPs = flag.Bool("ps", false, "dump the spawned process tree after the script finishes")
	require.NoError(t, flag.CommandLine.Parse(args))
}

func TestLoadRequiresExactlyOneScriptArg(t *testing.T) {
	resetFlags(t, []string{})
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadResolvesScriptPath(t *testing.T) {
	resetFlags(t, []string{"-config", "/does/not/exist.ini", "script.srvsh"})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "script.srvsh", cfg.ScriptPath)
}

func TestLoadReadsIniOpcodesKey(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "srvsh.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte("[srvsh]\nopcodes = /opt/opcodes.db\n"), 0644))

	os.Unsetenv("OPCODE_DATABASE")
	os.Unsetenv("SRVSH_DATABASE")

	resetFlags(t, []string{"-config", iniPath, "script.srvsh"})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/opcodes.db", cfg.OpcodePath)
}

func TestLoadFlagOverridesIni(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "srvsh.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte("[srvsh]\nopcodes = /opt/opcodes.db\n"), 0644))

	resetFlags(t, []string{"-config", iniPath, "-opcodes", "/explicit.db", "script.srvsh"})
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/explicit.db", cfg.OpcodePath)
}
