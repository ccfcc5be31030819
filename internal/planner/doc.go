// Package planner compiles parsed queries into execution plans.
//
// Compile validates every predicate against the capability registry and
// classifies the tree by where its leaves can be answered: the local mapping
// store, AniList, or both. Mixed trees whose OR and NOT nodes never span both
// domains are pushed down as two independent candidate sets that are
// intersected. Otherwise the plan asks for a local superset, fetches AniList
// metadata for it, and evaluates the whole tree per row with a three-valued
// evaluator so that missing remote facts exclude a row instead of guessing.
package planner
