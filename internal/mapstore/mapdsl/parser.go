// Package mapdsl parses the binding statements used in mapping files,
// e.g. `onPress(reload, hold=200ms, turbo=100ms)` or `axis(lean_x)`.
package mapdsl

import (
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleIdent      = lexer.SimpleRule{Name: "Ident", Pattern: `[a-zA-Z_][\w]*`}
	ruleDuration   = lexer.SimpleRule{Name: "Duration", Pattern: `\d+(ns|us|µs|ms|s|m|h)`}
	ruleNumber     = lexer.SimpleRule{Name: "Number", Pattern: `[-+]?(\d*\.)?\d+`}
	ruleString     = lexer.SimpleRule{Name: "String", Pattern: `"(\\"|[^"])*"`}
	rulePunct      = lexer.SimpleRule{Name: "Punct", Pattern: `[(),=]`}
	ruleWhitespace = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
)

var statementLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleDuration,
	ruleNumber,
	ruleString,
	ruleIdent,
	rulePunct,
})

var statementParser = participle.MustBuild[Statement](
	participle.Lexer(statementLexer),
	participle.Elide(ruleWhitespace.Name),
	participle.Unquote("String"),
)

// Statement is a single binding statement: a mode identifier, the preset
// name, and optional named options.
type Statement struct {
	Mode    string   `parser:"@Ident"`
	Preset  string   `parser:"'(' @Ident"`
	Options []Option `parser:"(',' @@)* ')'"`
}

type Option struct {
	Name  string `parser:"@Ident '='"`
	Value Value  `parser:"@@"`
}

type Value struct {
	Duration *Duration `parser:"@Duration |"`
	Number   *float64  `parser:"@Number |"`
	String   *string   `parser:"@String |"`
	Boolean  *Boolean  `parser:"@('true'|'false')"`
}

type Duration time.Duration

func (d *Duration) Capture(values []string) error {
	dur, err := time.ParseDuration(values[0])
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

type Boolean bool

func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

func Parse(stmt string) (Statement, error) {
	result, err := statementParser.ParseString("", stmt)
	if err != nil {
		return Statement{}, err
	}
	return *result, nil
}
