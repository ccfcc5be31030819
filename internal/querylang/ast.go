package querylang

import (
	"strconv"
	"strings"

	"anibridge/internal/capability"
)

// Node is a boolean expression over predicates. The concrete types are And,
// Or, Not, Predicate, Title, and Const.
type Node interface {
	String() string
	node()
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

// Not inverts its child.
type Not struct {
	Child Node
}

// Predicate is a typed field test. Values hold the literal operands as
// written (canonicalised for enums); Ints holds the parsed operands for
// integer fields and for ranges ([lo, hi]).
type Predicate struct {
	Field  capability.FieldID
	Op     capability.Operator
	Values []string
	Ints   []int64
	Pos    int
}

// Title is a free-text AniList title search.
type Title struct {
	Text string
	Pos  int
}

// Const is a literal truth value. The parser never emits it; the planner uses
// it when splitting trees by domain.
type Const struct {
	Value bool
}

var (
	True  Node = Const{Value: true}
	False Node = Const{Value: false}
)

func (*And) node()       {}
func (*Or) node()        {}
func (*Not) node()       {}
func (*Predicate) node() {}
func (*Title) node()     {}
func (Const) node()      {}

func (n *And) String() string { return "And(" + joinNodes(n.Children) + ")" }

func (n *Or) String() string { return "Or(" + joinNodes(n.Children) + ")" }

func (n *Not) String() string { return "Not(" + n.Child.String() + ")" }

func (n *Title) String() string { return strconv.Quote(n.Text) }

func (c Const) String() string {
	if c.Value {
		return "TRUE"
	}
	return "FALSE"
}

func (n *Predicate) String() string {
	key := n.Field.String()
	switch n.Op {
	case capability.OpHas:
		return "has:" + key
	case capability.OpRange:
		if len(n.Ints) != 2 {
			return key + ":" + quoteValue(n.Values[0]) + ".." + quoteValue(n.Values[1])
		}
		return key + ":" + strconv.FormatInt(n.Ints[0], 10) + ".." + strconv.FormatInt(n.Ints[1], 10)
	case capability.OpLt:
		return key + ":<" + quoteValue(n.Values[0])
	case capability.OpLte:
		return key + ":<=" + quoteValue(n.Values[0])
	case capability.OpGt:
		return key + ":>" + quoteValue(n.Values[0])
	case capability.OpGte:
		return key + ":>=" + quoteValue(n.Values[0])
	case capability.OpWildcard:
		return key + ":" + n.Values[0]
	}
	parts := make([]string, len(n.Values))
	for i, v := range n.Values {
		parts[i] = quoteValue(v)
	}
	return key + ":" + strings.Join(parts, ",")
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ",")
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\"(),:|*?<>") || strings.HasPrefix(v, "-") || strings.HasPrefix(v, "~") || strings.Contains(v, "..") {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
	}
	return v
}

// Walk visits n depth-first, stopping descent when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *And:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *Or:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *Not:
		Walk(v.Child, fn)
	}
}

// Titles returns the text of every title search in n.
func Titles(n Node) []string {
	var out []string
	Walk(n, func(node Node) bool {
		switch v := node.(type) {
		case *Title:
			out = append(out, v.Text)
		case *Predicate:
			if v.Field == capability.FieldTitle && len(v.Values) > 0 {
				out = append(out, v.Values...)
			}
		}
		return true
	})
	return out
}
