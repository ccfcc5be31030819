package planner

import (
	"anibridge/internal/capability"
	"anibridge/internal/querylang"
)

// leafDomain reports the domain of a leaf node. Title searches are remote.
func leafDomain(n querylang.Node) (capability.Domain, bool) {
	switch v := n.(type) {
	case *querylang.Predicate:
		return v.Field.Domain(), true
	case *querylang.Title:
		return capability.DomainRemote, true
	}
	return "", false
}

// domains reports which domains have leaves under n.
func domains(n querylang.Node) (local, remote bool) {
	querylang.Walk(n, func(node querylang.Node) bool {
		if d, ok := leafDomain(node); ok {
			switch d {
			case capability.DomainLocal:
				local = true
			case capability.DomainRemote:
				remote = true
			}
		}
		return true
	})
	return local, remote
}

// crossesDomains reports whether any OR or NOT node has leaves from both
// domains beneath it.
func crossesDomains(n querylang.Node) bool {
	crosses := false
	querylang.Walk(n, func(node querylang.Node) bool {
		if crosses {
			return false
		}
		switch node.(type) {
		case *querylang.Or, *querylang.Not:
			if l, r := domains(node); l && r {
				crosses = true
				return false
			}
		}
		return true
	})
	return crosses
}

// Relax rewrites n so that only leaves of keep remain. Other leaves become
// TRUE under an even number of negations and FALSE under an odd number, so
// the relaxed tree matches a superset of the rows n matches. The result is
// simplified and never nil.
func Relax(n querylang.Node, keep capability.Domain) querylang.Node {
	if n == nil {
		return querylang.True
	}
	return Simplify(relax(n, keep, false))
}

func relax(n querylang.Node, keep capability.Domain, negated bool) querylang.Node {
	if d, ok := leafDomain(n); ok {
		if d == keep {
			return n
		}
		if negated {
			return querylang.False
		}
		return querylang.True
	}
	switch v := n.(type) {
	case *querylang.And:
		children := make([]querylang.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = relax(c, keep, negated)
		}
		return &querylang.And{Children: children}
	case *querylang.Or:
		children := make([]querylang.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = relax(c, keep, negated)
		}
		return &querylang.Or{Children: children}
	case *querylang.Not:
		return &querylang.Not{Child: relax(v.Child, keep, !negated)}
	}
	return n
}

// Simplify folds constants, flattens nested AND/OR nodes, unwraps
// single-child groups, and removes double negation.
func Simplify(n querylang.Node) querylang.Node {
	switch v := n.(type) {
	case *querylang.And:
		var children []querylang.Node
		for _, c := range v.Children {
			c = Simplify(c)
			switch cv := c.(type) {
			case querylang.Const:
				if !cv.Value {
					return querylang.False
				}
				continue
			case *querylang.And:
				children = append(children, cv.Children...)
				continue
			}
			children = append(children, c)
		}
		switch len(children) {
		case 0:
			return querylang.True
		case 1:
			return children[0]
		}
		return &querylang.And{Children: children}
	case *querylang.Or:
		var children []querylang.Node
		for _, c := range v.Children {
			c = Simplify(c)
			switch cv := c.(type) {
			case querylang.Const:
				if cv.Value {
					return querylang.True
				}
				continue
			case *querylang.Or:
				children = append(children, cv.Children...)
				continue
			}
			children = append(children, c)
		}
		switch len(children) {
		case 0:
			return querylang.False
		case 1:
			return children[0]
		}
		return &querylang.Or{Children: children}
	case *querylang.Not:
		child := Simplify(v.Child)
		switch cv := child.(type) {
		case querylang.Const:
			return querylang.Const{Value: !cv.Value}
		case *querylang.Not:
			return cv.Child
		}
		return &querylang.Not{Child: child}
	}
	return n
}

// IsTrue reports whether n is the TRUE constant.
func IsTrue(n querylang.Node) bool {
	c, ok := n.(querylang.Const)
	return ok && c.Value
}

// IsFalse reports whether n is the FALSE constant.
func IsFalse(n querylang.Node) bool {
	c, ok := n.(querylang.Const)
	return ok && !c.Value
}
