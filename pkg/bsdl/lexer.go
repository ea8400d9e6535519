package bsdl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes BSDL source. Only the keywords that frame entity and
// attribute statements are distinguished; every other word is an Ident.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	// VHDL style comments (-- to end of line)
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},

	{Name: "KwEntity", Pattern: `(?i)\bENTITY\b`},
	{Name: "KwIs", Pattern: `(?i)\bIS\b`},
	{Name: "KwEnd", Pattern: `(?i)\bEND\b`},
	{Name: "KwAttribute", Pattern: `(?i)\bATTRIBUTE\b`},
	{Name: "KwOf", Pattern: `(?i)\bOF\b`},

	{Name: "Assign", Pattern: `:=`},
	{Name: "Arrow", Pattern: `=>`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Concat", Pattern: `&`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Asterisk", Pattern: `\*`},

	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Real", Pattern: `[-+]?[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`},
	{Name: "Integer", Pattern: `[-+]?[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_]*`},
})
