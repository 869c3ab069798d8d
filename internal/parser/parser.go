// Package parser walks a token stream and builds the block structure
// the executor spawns processes from. Per the redesign note this spec
// carries forward from original_source/src/parse.c: instead of a
// recursive word-list threaded through call-stack frames, each
// statement's words accumulate in an owned, growable slice, and the
// collecting/idle states are an explicit switch rather than recursive
// control flow re-entering on every token.
//
// ParseBody only discovers structure; Execute (in this package's
// exec.go) decides when to actually launch anything. Splitting
// discovery from execution is what lets the executor launch a block's
// server with its full client-fd set in one exec.Cmd.Start call, instead
// of replicating the original's fork-a-continuation-process trick, which
// Go's runtime doesn't support safely once more than one OS thread is
// running.
package parser

import (
	"fmt"

	"github.com/TheMadman/srvsh/internal/token"
)

// Statement is one parsed command: its decoded argv, and — if its
// terminator was a curly_open — the body of the block it heads.
type Statement struct {
	Argv   []string
	Nested *Body // non-nil if this statement is a block header
}

// Body is an ordered list of statements sharing one server (or, at top
// level, no server at all).
type Body struct {
	Statements []Statement
}

// ParseError reports an unexpected token or unbalanced structure found
// while parsing. Type kinds of statement_separator/curly_open and the
// like can't appear here since they're consumed silently; only a token
// with no grammar production at its point in the state machine does.
type ParseError struct {
	Tok token.Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: unexpected %s at byte offset %d", e.Tok.Type, e.Tok.Pos)
}

type accumState int

const (
	stateIdle accumState = iota
	stateCollecting
)

// ParseBody consumes tokens from lex until a curly_close or end token is
// produced, returning the statements seen in source order and the
// terminator token (so the caller can tell a clean end-of-script apart
// from a dangling, unmatched curly_close).
func ParseBody(lex *token.Lexer) (*Body, token.Token, error) {
	body := &Body{}
	state := stateIdle
	var argv []string

	for {
		tok := lex.Next()

		switch tok.Type {
		case token.WordSeparator:
			// stays in whichever state it was in, per the §4.F table
			continue

		case token.Word:
			decoded, err := tok.Normalize()
			if err != nil {
				return nil, token.Token{}, fmt.Errorf("parser: %w", err)
			}
			argv = append(argv, string(decoded))
			state = stateCollecting
			continue

		case token.StatementSeparator:
			if state == stateCollecting {
				body.Statements = append(body.Statements, Statement{Argv: argv})
				argv = nil
				state = stateIdle
			}
			// idle on statement_separator: stays idle (blank line)
			continue

		case token.CurlyOpen:
			nested, term, err := ParseBody(lex)
			if err != nil {
				return nil, token.Token{}, err
			}
			if term.Type != token.CurlyClose {
				return nil, token.Token{}, &ParseError{Tok: term}
			}

			if state == stateCollecting {
				// statement terminated by '{': this is a block header.
				body.Statements = append(body.Statements, Statement{Argv: argv, Nested: nested})
				argv = nil
				state = stateIdle
			} else {
				// bare braces at idle: flatten the nested body into this
				// one, per the bare-brace-equivalence rule.
				body.Statements = append(body.Statements, nested.Statements...)
			}
			continue

		case token.CurlyClose, token.End:
			if state == stateCollecting {
				// a statement not terminated by ';' or '{' is a parse error
				return nil, token.Token{}, &ParseError{Tok: tok}
			}
			return body, tok, nil

		default:
			// square_open/square_close/unexpected: no grammar production
			// is assigned to these tokens at either state.
			return nil, token.Token{}, &ParseError{Tok: tok}
		}
	}
}
