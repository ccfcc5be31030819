package search

import (
	"anibridge/internal/querylang"
)

// maxConjunctions bounds DNF expansion. Larger trees are not pushed to AniList.
const maxConjunctions = 16

// conjunction is a list of literals: leaves or negated leaves.
type conjunction []querylang.Node

// toDNF rewrites n into a disjunction of conjunctions. ok is false when the
// expansion exceeds maxConjunctions. An empty result means FALSE; a result
// holding one empty conjunction means TRUE.
func toDNF(n querylang.Node) (out []conjunction, ok bool) {
	return dnf(n, false)
}

func dnf(n querylang.Node, negated bool) ([]conjunction, bool) {
	switch v := n.(type) {
	case nil:
		if negated {
			return nil, true
		}
		return []conjunction{{}}, true
	case querylang.Const:
		if v.Value != negated {
			return []conjunction{{}}, true
		}
		return nil, true
	case *querylang.Not:
		return dnf(v.Child, !negated)
	case *querylang.And:
		if negated {
			return union(v.Children, true)
		}
		return product(v.Children, false)
	case *querylang.Or:
		if negated {
			return product(v.Children, true)
		}
		return union(v.Children, false)
	}
	if negated {
		return []conjunction{{&querylang.Not{Child: n}}}, true
	}
	return []conjunction{{n}}, true
}

func union(children []querylang.Node, negated bool) ([]conjunction, bool) {
	var out []conjunction
	for _, c := range children {
		part, ok := dnf(c, negated)
		if !ok {
			return nil, false
		}
		out = append(out, part...)
		if len(out) > maxConjunctions {
			return nil, false
		}
	}
	return out, true
}

func product(children []querylang.Node, negated bool) ([]conjunction, bool) {
	out := []conjunction{{}}
	for _, c := range children {
		part, ok := dnf(c, negated)
		if !ok {
			return nil, false
		}
		next := make([]conjunction, 0, len(out)*len(part))
		for _, left := range out {
			for _, right := range part {
				joined := make(conjunction, 0, len(left)+len(right))
				joined = append(append(joined, left...), right...)
				next = append(next, joined)
			}
		}
		if len(next) > maxConjunctions {
			return nil, false
		}
		out = next
	}
	return out, true
}

func (c conjunction) node() querylang.Node {
	switch len(c) {
	case 0:
		return querylang.True
	case 1:
		return c[0]
	}
	return &querylang.And{Children: append([]querylang.Node(nil), c...)}
}
