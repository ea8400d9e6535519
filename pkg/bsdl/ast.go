package bsdl

import "strings"

// File is a parsed BSDL source holding one entity.
type File struct {
	Entity *Entity `@@`
}

// Entity is the top-level declaration:
//
//	entity CHIP is ... end CHIP;
//
// Generic, port, use and constant statements are kept as opaque token
// groups; attributes are decoded.
type Entity struct {
	Name       string       `KwEntity @Ident KwIs`
	Statements []*Statement `@@*`
	EndName    string       `KwEnd KwEntity? @Ident? Semicolon`
}

// Statement is one semicolon-terminated declaration inside an entity.
type Statement struct {
	Attribute *Attribute `  @@`
	Other     *Other     `| @@`
}

// Attribute is an attribute specification.
// Example: attribute INSTRUCTION_LENGTH of CHIP: entity is 5;
type Attribute struct {
	Name   string      `KwAttribute @Ident`
	Of     string      `KwOf @Ident`
	Target string      `Colon @( Ident | KwEntity ) KwIs`
	Value  *Expression `@@ Semicolon`
}

// Other is any non-attribute statement.
type Other struct {
	Items []*Item `@@+ Semicolon`
}

// Item is a token or a parenthesized group within Other.
type Item struct {
	Group *Group `  @@`
	Token string `| @( Ident | String | Integer | Real | Colon | Assign | Arrow | Comma | Dot | Concat | Asterisk | KwIs | KwOf | KwEntity )`
}

// Group is a parenthesized token run, which may contain semicolons.
type Group struct {
	Items []*GroupItem `LParen @@* RParen`
}

type GroupItem struct {
	Group *Group `  @@`
	Token string `| @( Ident | String | Integer | Real | Colon | Semicolon | Assign | Arrow | Comma | Dot | Concat | Asterisk | KwIs | KwOf | KwEntity )`
}

// Expression is a value, possibly a concatenation of string literals.
type Expression struct {
	Terms []*Term `@@ ( Concat @@ )*`
}

// Term is a single expression operand.
type Term struct {
	String  *string  `  @String`
	Real    *float64 `| @Real`
	Integer *int     `| @Integer`
	Ident   *string  `| @Ident`
	Tuple   *Tuple   `| @@`
}

// Tuple is a parenthesized value list. Example: (35.0e6, BOTH)
type Tuple struct {
	Values []*Expression `LParen @@ ( Comma @@ )* RParen`
}

// Attribute returns the named attribute, matched case-insensitively.
func (e *Entity) Attribute(name string) *Attribute {
	for _, st := range e.Statements {
		if st.Attribute != nil && strings.EqualFold(st.Attribute.Name, name) {
			return st.Attribute
		}
	}
	return nil
}

// String concatenates the string literals of e without their quotes.
func (e *Expression) String() string {
	var b strings.Builder
	for _, t := range e.Terms {
		if t.String != nil {
			b.WriteString(strings.Trim(*t.String, `"`))
		}
	}
	return b.String()
}

// Integer returns the value of a lone integer expression.
func (e *Expression) Integer() (int, bool) {
	if len(e.Terms) == 1 && e.Terms[0].Integer != nil {
		return *e.Terms[0].Integer, true
	}
	return 0, false
}
