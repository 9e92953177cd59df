package eos

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// cliLexer tokenizes ASCII CLI files. Section markers get their own token so
// that a command list stops at them.
var cliLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Section", Pattern: `\$\$(?:HEADERSTART|HEADEREND|GEOMETRYSTART|GEOMETRYEND)\b`},
	{Name: "Command", Pattern: `\$\$[A-Z]+`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `[-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?`},
	{Name: "Word", Pattern: `[A-Za-z_][A-Za-z0-9_.\-]*`},
	{Name: "Punct", Pattern: `[/,]`},
})

// cliFile is the syntax tree of a whole file. Commands are interpreted
// afterwards, so the grammar only knows their shape.
type cliFile struct {
	Header   []*command `"$$HEADERSTART" @@* "$$HEADEREND"`
	Geometry []*command `"$$GEOMETRYSTART" @@* "$$GEOMETRYEND"`
}

// command is one $$NAME/arg,arg,... line.
type command struct {
	Pos  lexer.Position
	Name string      `@Command`
	Args []*argument `( "/" @@ ( "," @@ )* )?`
}

type argument struct {
	Pos    lexer.Position
	Number *string `  @Number`
	Text   *string `| @(String | Word)`
}

// value returns the argument as written, with quotes removed from strings.
func (a *argument) value() string {
	if a.Number != nil {
		return *a.Number
	}
	return *a.Text
}

var cliParser = participle.MustBuild[cliFile](
	participle.Lexer(cliLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)
