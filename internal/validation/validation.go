// Package validation evaluates declarative form schemas. A schema is a list
// of rules, each an expr-lang boolean expression over the submitted fields.
package validation

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule passes when Expr evaluates to true. Message is reported for Field otherwise.
type Rule struct {
	Field   string
	Expr    string
	Message string
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Fields map[string]any

type compiledRule struct {
	Rule
	program *vm.Program
}

type Schema struct {
	name  string
	rules []compiledRule
}

// NewSchema compiles every rule up front so a bad expression fails at startup.
func NewSchema(name string, rules ...Rule) (*Schema, error) {
	s := &Schema{name: name, rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		program, err := expr.Compile(r.Expr,
			expr.AsBool(),
			expr.AllowUndefinedVariables(),
			expr.Function("compact", compact, new(func(string) string)),
		)
		if err != nil {
			return nil, fmt.Errorf("schema %s: rule for %q: %w", name, r.Field, err)
		}
		s.rules = append(s.rules, compiledRule{Rule: r, program: program})
	}
	return s, nil
}

// MustSchema is NewSchema for package-level schemas.
func MustSchema(name string, rules ...Rule) *Schema {
	s, err := NewSchema(name, rules...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	return s.name
}

// Validate reports the first failing rule of every field, in rule order.
// A rule whose evaluation errors (missing or mistyped field) counts as failed.
func (s *Schema) Validate(fields Fields) []FieldError {
	env := map[string]any(fields)
	if env == nil {
		env = map[string]any{}
	}

	var errs []FieldError
	failed := make(map[string]bool)
	for _, r := range s.rules {
		if failed[r.Field] {
			continue
		}
		out, err := expr.Run(r.program, env)
		if ok, _ := out.(bool); err == nil && ok {
			continue
		}
		failed[r.Field] = true
		errs = append(errs, FieldError{Field: r.Field, Message: r.Message})
	}
	return errs
}

func Validate(s *Schema, fields Fields) []FieldError {
	return s.Validate(fields)
}

// compact drops every whitespace rune.
func compact(params ...any) (any, error) {
	s, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("compact: expected string, got %T", params[0])
	}
	return strings.Join(strings.Fields(s), ""), nil
}
