// Package textutil normalizes anime titles and scores how closely a search
// phrase matches them.
//
// Normalization decomposes text (NFKD), drops combining marks, case folds,
// and collapses punctuation to single spaces so "Dororo to Hyakkimaru" and
// "DORORO: to Hyakkimaru" compare equal. Similarity combines an edit-distance
// ratio over the whole title with token cosine similarity so that both typos
// and reordered words score well.
package textutil
