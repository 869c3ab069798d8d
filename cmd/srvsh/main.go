// Command srvsh interprets a script of server/client IPC commands:
// memory-map the script, parse-and-spawn its statements, then wait for
// every spawned process and exit with the worst status among them.
package main

import (
	"fmt"
	"os"

	"github.com/TheMadman/srvsh/internal/config"
	"github.com/TheMadman/srvsh/internal/parser"
	"github.com/TheMadman/srvsh/internal/procinfo"
	"github.com/TheMadman/srvsh/internal/reap"
	"github.com/TheMadman/srvsh/internal/srvlog"
	"github.com/TheMadman/srvsh/internal/token"
	"golang.org/x/sys/unix"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: srvsh [options] <script-path>")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		usage()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := srvlog.Init(cfg.LogLevel, cfg.Verbose, cfg.Logfile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	src, closeSrc, err := mapScript(cfg.ScriptPath)
	if err != nil {
		srvlog.Error("loading script: %v", err)
		return 1
	}
	defer closeSrc()

	lex := token.New(src)
	body, term, err := parser.ParseBody(lex)
	parseStatus := 0
	if err != nil {
		srvlog.Error("parse: %v", err)
		parseStatus = 1
	} else if term.Type != token.End {
		srvlog.Error("parse: unexpected %s at byte offset %d", term.Type, term.Pos)
		parseStatus = 1
	}

	group := &reap.Group{}
	if body != nil {
		if err := parser.Execute(body, group); err != nil {
			srvlog.Error("execute: %v", err)
			parseStatus = 1
		}
	}

	results, worst := group.Wait()
	if parseStatus > worst {
		worst = parseStatus
	}

	if cfg.DumpProcs {
		dumpProcs(results)
	}

	return worst
}

func dumpProcs(results []reap.Result) {
	pids := make([]int, 0, len(results))
	argv := make(map[int][]string, len(results))
	for _, r := range results {
		pids = append(pids, r.Pid)
		argv[r.Pid] = r.Argv
	}
	nodes := procinfo.Snapshot(pids, argv)
	procinfo.Dump(nodes, func(format string, args ...any) {
		fmt.Printf(format, args...)
	})
}

// mapScript memory-maps path read-only, grounded on the original's
// lseek+mmap(PROT_READ, MAP_PRIVATE) script load and on the unix.Mmap
// usage retrieved from the uffd example code.
func mapScript(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return []byte{}, func() {}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return data, func() {
		unix.Munmap(data)
		f.Close()
	}, nil
}

