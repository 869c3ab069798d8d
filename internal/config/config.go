// Package config resolves srvsh's runtime configuration: flags (in the
// style of minimega/main.go's package-level flag.* vars), an optional
// INI file parsed with gopkg.in/ini.v1 (the library gocanopen's EDS
// parser uses for its own config file), and the opcode-database
// environment-variable fallback chain from spec.md §6.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/TheMadman/srvsh/internal/opcode"
	"gopkg.in/ini.v1"
)

var (
	FlagLevel   = flag.String("level", "warn", "set log level: [debug, info, warn, error, fatal]")
	FlagVerbose = flag.Bool("v", true, "log on stderr")
	FlagLogfile = flag.String("logfile", "", "also log to file")
	FlagOpcodes = flag.String("opcodes", "", "path to the opcode database")
	FlagConfig  = flag.String("config", "/etc/srvsh/srvsh.ini", "path to an optional INI config file")
	FlagPs      = flag.Bool("ps", false, "dump the spawned process tree after the script finishes")
)

// Config is the fully-resolved configuration for one srvsh invocation.
type Config struct {
	LogLevel   string
	Verbose    bool
	Logfile    string
	OpcodePath string
	DumpProcs  bool
	ScriptPath string
}

// Load resolves a Config from flags, an optional INI file, and the
// environment, in the precedence order documented in SPEC_FULL.md §3.3:
// explicit flag > environment > INI file > default.
func Load() (*Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}

	c := &Config{
		LogLevel:  *FlagLevel,
		Verbose:   *FlagVerbose,
		Logfile:   *FlagLogfile,
		DumpProcs: *FlagPs,
	}

	var iniOpcodes string
	if path := *FlagConfig; path != "" {
		if _, err := os.Stat(path); err == nil {
			f, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("config: loading %s: %w", path, err)
			}
			section := f.Section("srvsh")
			if k := section.Key("opcodes"); k.String() != "" {
				iniOpcodes = k.String()
			}
			if k := section.Key("loglevel"); k.String() != "" && *FlagLevel == "warn" {
				c.LogLevel = k.String()
			}
		}
	}

	switch {
	case *FlagOpcodes != "":
		c.OpcodePath = *FlagOpcodes
	default:
		if p, ok := opcode.Path(); ok {
			c.OpcodePath = p
		} else {
			c.OpcodePath = iniOpcodes
		}
	}

	args := flag.Args()
	if len(args) != 1 {
		return nil, fmt.Errorf("config: expected exactly one script path argument, got %d", len(args))
	}
	c.ScriptPath = args[0]

	return c, nil
}
