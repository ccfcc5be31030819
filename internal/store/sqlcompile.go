package store

import (
	"fmt"
	"strings"

	"anibridge/internal/capability"
	"anibridge/internal/querylang"
)

type columnKind uint8

const (
	kindInt columnKind = iota
	kindIntList
	kindStringList
	kindDict
	kindFlag
)

type column struct {
	name string
	kind columnKind
}

func columnFor(f capability.FieldID) (column, error) {
	switch f {
	case capability.FieldAniList:
		return column{"anilist_id", kindInt}, nil
	case capability.FieldAniDB:
		return column{"anidb_id", kindInt}, nil
	case capability.FieldTVDB:
		return column{"tvdb_id", kindInt}, nil
	case capability.FieldTMDBShow:
		return column{"tmdb_show_id", kindInt}, nil
	case capability.FieldTMDBMovie:
		return column{"tmdb_movie_ids", kindIntList}, nil
	case capability.FieldMAL:
		return column{"mal_ids", kindIntList}, nil
	case capability.FieldIMDb:
		return column{"imdb_ids", kindStringList}, nil
	case capability.FieldSource:
		return column{"sources", kindStringList}, nil
	case capability.FieldTMDBMappings:
		return column{"tmdb_mappings", kindDict}, nil
	case capability.FieldTVDBMappings:
		return column{"tvdb_mappings", kindDict}, nil
	case capability.FieldCustom:
		return column{"custom", kindFlag}, nil
	}
	return column{}, fmt.Errorf("field %s is not stored locally", f)
}

// CompileWhere turns a local predicate tree into a parameterised WHERE
// expression over the mappings table. Every leaf is wrapped in COALESCE so
// a NULL column is false and its negation true. A nil tree matches every row.
// Title searches and remote fields cannot be compiled.
func CompileWhere(tree querylang.Node) (string, []any, error) {
	if tree == nil {
		return "1", nil, nil
	}
	var args []any
	where, err := compileNode(tree, &args)
	if err != nil {
		return "", nil, fmt.Errorf("compile local filter: %w", err)
	}
	return where, args, nil
}

func compileNode(n querylang.Node, args *[]any) (string, error) {
	switch v := n.(type) {
	case querylang.Const:
		if v.Value {
			return "1", nil
		}
		return "0", nil
	case *querylang.And:
		return compileGroup(v.Children, " AND ", args)
	case *querylang.Or:
		return compileGroup(v.Children, " OR ", args)
	case *querylang.Not:
		inner, err := compileNode(v.Child, args)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	case *querylang.Predicate:
		leaf, err := compilePredicate(v, args)
		if err != nil {
			return "", err
		}
		return "COALESCE((" + leaf + "), 0)", nil
	case *querylang.Title:
		return "", fmt.Errorf("title search %q cannot run locally", v.Text)
	}
	return "", fmt.Errorf("unsupported node %T", n)
}

func compileGroup(children []querylang.Node, sep string, args *[]any) (string, error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		part, err := compileNode(c, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func compilePredicate(p *querylang.Predicate, args *[]any) (string, error) {
	if p.Field.Domain() != capability.DomainLocal {
		return "", fmt.Errorf("field %s is answered by AniList", p.Field)
	}
	col, err := columnFor(p.Field)
	if err != nil {
		return "", err
	}
	if p.Op == capability.OpHas {
		return col.name + " IS NOT NULL", nil
	}
	switch col.kind {
	case kindInt:
		return intCondition(col.name, p, args)
	case kindIntList:
		cond, err := intCondition("value", p, args)
		if err != nil {
			return "", err
		}
		return eachExists(col.name, cond), nil
	case kindStringList:
		cond, err := stringCondition("value", p.Op, p.Values, args)
		if err != nil {
			return "", err
		}
		return eachExists(col.name, cond), nil
	case kindDict:
		cond, err := dictCondition(p, args)
		if err != nil {
			return "", err
		}
		return eachExists(col.name, cond), nil
	case kindFlag:
		if len(p.Values) != 1 {
			return "", fmt.Errorf("field %s takes one value", p.Field)
		}
		*args = append(*args, boolToInt(p.Values[0] == "true"))
		return col.name + " = ?", nil
	}
	return "", fmt.Errorf("field %s has no SQL form", p.Field)
}

func eachExists(columnName, cond string) string {
	return "EXISTS (SELECT 1 FROM json_each(mappings." + columnName + ") WHERE " + cond + ")"
}

func intCondition(expr string, p *querylang.Predicate, args *[]any) (string, error) {
	switch p.Op {
	case capability.OpEq, capability.OpIn:
		for _, v := range p.Ints {
			*args = append(*args, v)
		}
		return expr + " IN (" + placeholders(len(p.Ints)) + ")", nil
	case capability.OpRange:
		*args = append(*args, p.Ints[0], p.Ints[1])
		return expr + " BETWEEN ? AND ?", nil
	case capability.OpLt, capability.OpLte, capability.OpGt, capability.OpGte:
		*args = append(*args, p.Ints[0])
		return expr + " " + comparison(p.Op) + " ?", nil
	}
	return "", fmt.Errorf("operator %s is not supported on %s", p.Op, p.Field)
}

func comparison(op capability.Operator) string {
	switch op {
	case capability.OpLt:
		return "<"
	case capability.OpLte:
		return "<="
	case capability.OpGt:
		return ">"
	}
	return ">="
}

func stringCondition(expr string, op capability.Operator, values []string, args *[]any) (string, error) {
	switch op {
	case capability.OpEq, capability.OpIn:
		for _, v := range values {
			*args = append(*args, v)
		}
		parts := make([]string, len(values))
		for i := range values {
			parts[i] = "lower(?)"
		}
		return "lower(" + expr + ") IN (" + strings.Join(parts, ", ") + ")", nil
	case capability.OpWildcard:
		if len(values) != 1 {
			return "", fmt.Errorf("wildcard takes one pattern")
		}
		*args = append(*args, likePattern(values[0]))
		return expr + ` LIKE ? ESCAPE '\'`, nil
	}
	return "", fmt.Errorf("operator %s is not supported on text", op)
}

// dictCondition matches season dictionaries: "s1" tests a key and "s1=e1-e12"
// tests a key with its pattern.
func dictCondition(p *querylang.Predicate, args *[]any) (string, error) {
	op := p.Op
	if op == capability.OpIn {
		op = capability.OpEq
	}
	parts := make([]string, 0, len(p.Values))
	for _, want := range p.Values {
		key, value, hasValue := strings.Cut(want, "=")
		cond, err := stringCondition("key", op, []string{key}, args)
		if err != nil {
			return "", err
		}
		if hasValue {
			valueCond, err := stringCondition("value", op, []string{value}, args)
			if err != nil {
				return "", err
			}
			cond = "(" + cond + " AND " + valueCond + ")"
		}
		parts = append(parts, cond)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// likePattern converts a '*' and '?' wildcard into a LIKE pattern with
// backslash escapes.
func likePattern(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
