// Package policy evaluates per-deployment admission rules written in CEL
// against a prediction request before it reaches the encoder.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrViolation is wrapped by every *Violation.
var ErrViolation = errors.New("admission rule violated")

// Violation names the first rule an input failed.
type Violation struct {
	Rule string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("admission rule violated: %s", v.Rule)
}

func (v *Violation) Unwrap() error {
	return ErrViolation
}

type rule struct {
	expr string
	prog cel.Program
}

// Policy is a compiled, immutable rule set. Safe for concurrent use.
type Policy struct {
	rules []rule
}

// Compile builds a Policy. Each rule sees the request as the map variable
// `input` and must evaluate to a bool.
func Compile(exprs []string) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	p := &Policy{rules: make([]rule, 0, len(exprs))}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: compile error: %w", expr, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %q: must evaluate to bool, got %s", expr, ast.OutputType())
		}
		prog, err := env.Program(ast, cel.CostLimit(100000))
		if err != nil {
			return nil, fmt.Errorf("rule %q: program creation error: %w", expr, err)
		}
		p.rules = append(p.rules, rule{expr: expr, prog: prog})
	}
	return p, nil
}

// Len returns the number of compiled rules.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Rules returns the rule sources in evaluation order.
func (p *Policy) Rules() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.expr
	}
	return out
}

// Check returns nil when every rule holds for input.
func (p *Policy) Check(input map[string]any) error {
	if p == nil {
		return nil
	}
	vars := map[string]any{"input": input}
	for _, r := range p.rules {
		out, _, err := r.prog.Eval(vars)
		if err != nil {
			return fmt.Errorf("rule %q: evaluation error: %w", r.expr, err)
		}
		ok, isBool := out.Value().(bool)
		if !isBool {
			return fmt.Errorf("rule %q: non-bool result %v", r.expr, out.Value())
		}
		if !ok {
			return &Violation{Rule: r.expr}
		}
	}
	return nil
}
