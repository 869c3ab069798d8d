// Package srvlog extends the standard logging functionality to allow for
// multiple loggers, each with its own level. Call AddLogger to register a
// logger, then use the package-level functions to fan a message out to
// every registered logger whose level admits it.
package srvlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	golog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels, lowest to highest severity.
const (
	DEBUG = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	loggers = make(map[string]*logger)
	mu      sync.RWMutex
)

type logger struct {
	*golog.Logger
	level int
}

// AddLogger registers a named logger that only emits events at level or
// higher severity.
func AddLogger(name string, output io.Writer, level int) {
	mu.Lock()
	defer mu.Unlock()

	loggers[name] = &logger{golog.New(output, "", golog.LstdFlags), level}
}

// DelLogger removes a logger previously registered with AddLogger.
func DelLogger(name string) {
	mu.Lock()
	defer mu.Unlock()

	delete(loggers, name)
}

// SetLevel changes the level of a named logger.
func SetLevel(name string, level int) error {
	mu.Lock()
	defer mu.Unlock()

	if loggers[name] == nil {
		return errors.New("srvlog: no such logger")
	}
	loggers[name].level = level
	return nil
}

// WillLog reports whether logging at level would reach any registered
// logger. Useful when the message itself is expensive to build.
func WillLog(level int) bool {
	mu.RLock()
	defer mu.RUnlock()

	for _, l := range loggers {
		if l.level <= level {
			return true
		}
	}
	return false
}

// LogAll copies lines from r into the named logger at level until EOF.
// Starts a goroutine and returns immediately; used to pipe a child
// process's log fd into the interpreter's own loggers.
func LogAll(r io.Reader, level int, name string) {
	go func() {
		s := bufio.NewReader(r)
		for {
			line, err := s.ReadString('\n')
			if t := strings.TrimSpace(line); t != "" {
				logf(level, name, "%s", t)
			}
			if err != nil {
				return
			}
		}
	}()
}

// Init wires up the stderr logger and, if logfile is non-empty, a file
// logger, both at the given level. Levels/verbosity/logfile path are
// resolved by internal/config from flags and the optional INI file;
// this package only consumes the resolved values, so it doesn't also
// register its own -level/-v/-logfile flags alongside config's.
func Init(level string, verbose bool, logfile string) error {
	lvl, err := LevelInt(level)
	if err != nil {
		return err
	}

	if verbose {
		AddLogger("stderr", os.Stderr, lvl)
	}

	if logfile != "" {
		if err := os.MkdirAll(filepath.Dir(logfile), 0755); err != nil {
			return fmt.Errorf("srvlog: creating log directory: %w", err)
		}
		f, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			return fmt.Errorf("srvlog: opening log file: %w", err)
		}
		AddLogger("file", f, lvl)
	}

	return nil
}

// LevelInt parses a level name as accepted by -level.
func LevelInt(l string) (int, error) {
	switch l {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return -1, fmt.Errorf("srvlog: invalid log level %q", l)
}

func logf(level int, name, format string, arg ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	prefix := levelPrefix(level)
	for n, l := range loggers {
		if name != "" && n != name {
			continue
		}
		if l.level <= level {
			l.Printf(prefix+format, arg...)
		}
	}
}

func levelPrefix(level int) string {
	switch level {
	case DEBUG:
		return "DEBUG "
	case INFO:
		return "INFO "
	case WARN:
		return "WARN "
	case ERROR:
		return "ERROR "
	case FATAL:
		return "FATAL "
	}
	return ""
}

func Debug(format string, arg ...interface{}) { logf(DEBUG, "", format, arg...) }
func Info(format string, arg ...interface{})  { logf(INFO, "", format, arg...) }
func Warn(format string, arg ...interface{})  { logf(WARN, "", format, arg...) }
func Error(format string, arg ...interface{}) { logf(ERROR, "", format, arg...) }

// Fatal logs at FATAL to every logger and exits the process with status 1.
func Fatal(format string, arg ...interface{}) {
	logf(FATAL, "", format, arg...)
	os.Exit(1)
}

func logln(level int, name string, arg ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	prefix := levelPrefix(level)
	for _, l := range loggers {
		if l.level <= level {
			l.Print(prefix + fmt.Sprintln(arg...))
		}
	}
}

// Debugln, Infoln, Warnln, Errorln and Fatalln are the space-separated,
// newline-terminated counterparts of Debug/Info/Warn/Error/Fatal, for
// callers with values to log rather than a format string.
func Debugln(arg ...interface{}) { logln(DEBUG, "", arg...) }
func Infoln(arg ...interface{})  { logln(INFO, "", arg...) }
func Warnln(arg ...interface{})  { logln(WARN, "", arg...) }
func Errorln(arg ...interface{}) { logln(ERROR, "", arg...) }

// Fatalln is Fatal's logln counterpart.
func Fatalln(arg ...interface{}) {
	logln(FATAL, "", arg...)
	os.Exit(1)
}
