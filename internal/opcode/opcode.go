// Package opcode loads the opcode database: a UTF-8 text file mapping
// symbolic names to small nonnegative 32-bit integers.
//
// This is an "external collaborator" per the spec (component B) — srvsh
// itself never resolves an opcode name, only the client/server commands
// on either end of a frame do. The loader still lives in this module
// because no real ecosystem library parses this exact grammar (NAME,
// arbitrary whitespace, a decimal NUMBER, then ignored trailing text, `#`
// full-line comments); gopkg.in/ini.v1 (wired in internal/config for the
// srvsh.ini file) expects `=`-delimited key/value pairs and section
// headers, which is a different grammar than "two whitespace-separated
// fields, nothing else required." A bufio.Scanner line reader is the
// closest fit and needs no justification beyond that mismatch.
package opcode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrUnknown is returned by Table.Lookup for a name with no entry.
var ErrUnknown = fmt.Errorf("opcode: unknown name")

// Table is a loaded opcode database.
type Table struct {
	byName map[string]int32
}

// Load reads an opcode database from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opcode: opening database: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads an opcode database from r.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{byName: make(map[string]int32)}

	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("opcode: line %d: expected NAME NUMBER", line)
		}

		n, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("opcode: line %d: invalid opcode number %q", line, fields[1])
		}

		t.byName[fields[0]] = int32(n)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("opcode: reading database: %w", err)
	}

	return t, nil
}

// Lookup resolves name to its opcode number, or ErrUnknown if absent.
func (t *Table) Lookup(name string) (int32, error) {
	n, ok := t.byName[name]
	if !ok {
		return -1, ErrUnknown
	}
	return n, nil
}

// Path resolves the opcode database path from the environment, per
// spec.md §6: OPCODE_DATABASE first, then SRVSH_DATABASE.
func Path() (string, bool) {
	if p := os.Getenv("OPCODE_DATABASE"); p != "" {
		return p, true
	}
	if p := os.Getenv("SRVSH_DATABASE"); p != "" {
		return p, true
	}
	return "", false
}
