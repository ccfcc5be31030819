package planner

import (
	"fmt"

	"anibridge/internal/capability"
	"anibridge/internal/querylang"
)

// Strategy names how a plan is executed.
type Strategy string

const (
	// StrategyLocal runs entirely against the mapping store.
	StrategyLocal Strategy = "local"
	// StrategyRemote delegates entirely to AniList search.
	StrategyRemote Strategy = "remote"
	// StrategyPushdown intersects independent local and remote candidates.
	StrategyPushdown Strategy = "pushdown"
	// StrategySuperset evaluates the full tree over a local superset.
	StrategySuperset Strategy = "superset"
)

// Plan is an immutable compiled query. Local and Remote share the skeleton of
// Root with leaves of the other domain relaxed to constants; either may be
// querylang.True when that domain does not constrain the result.
type Plan struct {
	Query    string         `json:"query"`
	Strategy Strategy       `json:"strategy"`
	Root     querylang.Node `json:"-"`
	Local    querylang.Node `json:"-"`
	Remote   querylang.Node `json:"-"`
	Titles   []string       `json:"titles,omitempty"`
}

// Explain returns a short description of the plan for logs and the CLI.
func (p *Plan) Explain() string {
	root := "TRUE"
	if p.Root != nil {
		root = p.Root.String()
	}
	return fmt.Sprintf("strategy=%s root=%s local=%s remote=%s", p.Strategy, root, p.Local, p.Remote)
}

// CompileError reports a field used with an operator it does not support.
type CompileError struct {
	Field    string
	Operator capability.Operator
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("field %q does not support operator %q", e.Field, e.Operator)
}

// Compile validates root against reg and chooses an execution strategy. A
// nil root compiles to a local plan matching every row.
func Compile(query string, root querylang.Node, reg *capability.Registry) (*Plan, error) {
	if reg == nil {
		reg = capability.Static()
	}
	if err := validate(root, reg); err != nil {
		return nil, err
	}
	plan := &Plan{Query: query, Root: root, Titles: querylang.Titles(root)}
	if root == nil {
		plan.Strategy = StrategyLocal
		plan.Local = querylang.True
		plan.Remote = querylang.True
		return plan, nil
	}

	local, remote := domains(root)
	switch {
	case !remote:
		plan.Strategy = StrategyLocal
	case !local:
		plan.Strategy = StrategyRemote
	case crossesDomains(root):
		plan.Strategy = StrategySuperset
	default:
		plan.Strategy = StrategyPushdown
	}
	plan.Local = Relax(root, capability.DomainLocal)
	plan.Remote = Relax(root, capability.DomainRemote)
	return plan, nil
}

// ParseAndCompile parses query with reg and compiles the result.
func ParseAndCompile(query string, reg *capability.Registry) (*Plan, error) {
	root, err := querylang.Parse(query, reg)
	if err != nil {
		return nil, err
	}
	return Compile(query, root, reg)
}

func validate(root querylang.Node, reg *capability.Registry) error {
	var err error
	querylang.Walk(root, func(n querylang.Node) bool {
		if err != nil {
			return false
		}
		switch v := n.(type) {
		case *querylang.Predicate:
			c, ok := reg.Field(v.Field)
			if !ok {
				err = &CompileError{Field: v.Field.String(), Operator: v.Op}
				return false
			}
			if !c.Supports(v.Op) {
				err = &CompileError{Field: c.Key, Operator: v.Op}
			}
		case *querylang.Title:
			c, ok := reg.Field(capability.FieldTitle)
			if !ok || !c.Supports(capability.OpEq) {
				err = &CompileError{Field: capability.FieldTitle.Key(), Operator: capability.OpEq}
			}
		}
		return true
	})
	return err
}
