package parser

import (
	"testing"

	"github.com/TheMadman/srvsh/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBodySimpleStatements(t *testing.T) {
	lex := token.New([]byte("echo hi; true;"))
	body, term, err := ParseBody(lex)
	require.NoError(t, err)
	assert.Equal(t, token.End, term.Type)
	require.Len(t, body.Statements, 2)
	assert.Equal(t, []string{"echo", "hi"}, body.Statements[0].Argv)
	assert.Nil(t, body.Statements[0].Nested)
	assert.Equal(t, []string{"true"}, body.Statements[1].Argv)
}

func TestParseBodyBlockHeader(t *testing.T) {
	lex := token.New([]byte("server { clientA; clientB; }"))
	body, term, err := ParseBody(lex)
	require.NoError(t, err)
	assert.Equal(t, token.End, term.Type)
	require.Len(t, body.Statements, 1)

	s := body.Statements[0]
	assert.Equal(t, []string{"server"}, s.Argv)
	require.NotNil(t, s.Nested)
	require.Len(t, s.Nested.Statements, 2)
	assert.Equal(t, []string{"clientA"}, s.Nested.Statements[0].Argv)
	assert.Equal(t, []string{"clientB"}, s.Nested.Statements[1].Argv)
}

func TestParseBodyBareBracesFlatten(t *testing.T) {
	lex := token.New([]byte("{ echo a; echo b; }"))
	body, term, err := ParseBody(lex)
	require.NoError(t, err)
	assert.Equal(t, token.End, term.Type)

	require.Len(t, body.Statements, 2)
	assert.Nil(t, body.Statements[0].Nested)
	assert.Equal(t, []string{"echo", "a"}, body.Statements[0].Argv)
	assert.Equal(t, []string{"echo", "b"}, body.Statements[1].Argv)
}

func TestParseBodyNestedBlocks(t *testing.T) {
	lex := token.New([]byte("outer { inner { leaf; } }"))
	body, _, err := ParseBody(lex)
	require.NoError(t, err)
	require.Len(t, body.Statements, 1)

	outer := body.Statements[0]
	assert.Equal(t, []string{"outer"}, outer.Argv)
	require.NotNil(t, outer.Nested)
	require.Len(t, outer.Nested.Statements, 1)

	inner := outer.Nested.Statements[0]
	assert.Equal(t, []string{"inner"}, inner.Argv)
	require.NotNil(t, inner.Nested)
	require.Len(t, inner.Nested.Statements, 1)
	assert.Equal(t, []string{"leaf"}, inner.Nested.Statements[0].Argv)
}

func TestParseBodyUnterminatedStatementIsError(t *testing.T) {
	lex := token.New([]byte("echo hi"))
	_, _, err := ParseBody(lex)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseBodySquareBracketIsParseError(t *testing.T) {
	lex := token.New([]byte("[ echo hi; ]"))
	_, _, err := ParseBody(lex)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseBodyQuotedWordDecoded(t *testing.T) {
	lex := token.New([]byte(`echo "hello world";`))
	body, _, err := ParseBody(lex)
	require.NoError(t, err)
	require.Len(t, body.Statements, 1)
	assert.Equal(t, []string{"echo", "hello world"}, body.Statements[0].Argv)
}
