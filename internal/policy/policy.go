// Package policy is an optional prefilter over token issuance: expression
// rules evaluated against the verified principal and the requested
// resource/scope, before the RBAC lookup runs. An empty rule set allows
// everything; RBAC grants remain the source of truth for what a token
// contains.
package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Rule is a single issuance rule as it appears in the config file. The
// expression has `principal`, `resource` and `scope` in scope and must
// evaluate to a boolean.
type Rule struct {
	Name   string `yaml:"name"`
	Effect Effect `yaml:"effect"`
	Expr   string `yaml:"expr"`

	compiled *vm.Program
}

// Engine evaluates rules in order. The first matching deny rejects; if any
// allow rule exists, at least one must match.
type Engine struct {
	rules     []Rule
	hasAllows bool
}

func New(rules []Rule) (*Engine, error) {
	e := &Engine{rules: make([]Rule, 0, len(rules))}
	seen := make(map[string]struct{}, len(rules))

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("issuance rule #%d missing name", i)
		}
		if _, dup := seen[rule.Name]; dup {
			return nil, fmt.Errorf("issuance rule name %q is not unique", rule.Name)
		}
		seen[rule.Name] = struct{}{}

		switch rule.Effect {
		case EffectAllow:
			e.hasAllows = true
		case EffectDeny:
		default:
			return nil, fmt.Errorf("issuance rule %q has unknown effect %q", rule.Name, rule.Effect)
		}

		if rule.Expr == "" {
			return nil, fmt.Errorf("issuance rule %q missing expr", rule.Name)
		}
		program, err := expr.Compile(rule.Expr, expr.AsBool(), expr.Env(Input{}))
		if err != nil {
			return nil, fmt.Errorf("compiling expr for issuance rule %q: %w", rule.Name, err)
		}
		rule.compiled = program
		e.rules = append(e.rules, rule)
	}
	return e, nil
}

// Input is the expression environment.
type Input struct {
	Principal string `expr:"principal"`
	Resource  string `expr:"resource"`
	Scope     string `expr:"scope"`
}

// Decision names the rule that settled the evaluation, for audit logs.
type Decision struct {
	Allowed bool
	Rule    string
}

func (e *Engine) Evaluate(in Input) (Decision, error) {
	matchedAllow := ""
	for _, rule := range e.rules {
		out, err := expr.Run(rule.compiled, in)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluating issuance rule %q: %w", rule.Name, err)
		}
		if !out.(bool) {
			continue
		}
		if rule.Effect == EffectDeny {
			return Decision{Allowed: false, Rule: rule.Name}, nil
		}
		if matchedAllow == "" {
			matchedAllow = rule.Name
		}
	}

	if e.hasAllows && matchedAllow == "" {
		return Decision{Allowed: false}, nil
	}
	return Decision{Allowed: true, Rule: matchedAllow}, nil
}
