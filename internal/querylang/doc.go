// Package querylang turns booru-style mapping queries into a typed boolean
// expression tree.
//
// Tokenize splits raw text into words, quoted literals, and operator tokens.
// Parse runs a recursive-descent parser over those tokens and resolves every
// field name through a capability.Registry, so the returned tree only holds
// known fields with values already checked against the field's type.
//
// Grammar summary:
//
//	Query   := OrExpr
//	OrExpr  := AndRun ( '|' AndRun )*
//	AndRun  := Term+           ~terms form one OR group inside the run
//	Term    := ['-'] ['~'] Atom
//	Atom    := field:value | has:field | "quoted title" | bare words | ( OrExpr )
//
// Nodes are immutable after parsing and safe to share between goroutines.
package querylang
