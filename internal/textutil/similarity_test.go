package textutil

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Dororo", "dororo"},
		{"DORORO: to Hyakkimaru!", "dororo to hyakkimaru"},
		{"  Pokémon  ", "pokemon"},
		{"Ｆｕｌｌ　Ｍｅｔａｌ", "full metal"},
		{"Re:Zero - Starting Life", "re zero starting life"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCosineSimilarityNil(t *testing.T) {
	if got := CosineSimilarity(nil, NewFingerprint("hello world")); got != 0 {
		t.Errorf("CosineSimilarity(nil) = %v, want 0", got)
	}
	if NewFingerprint("  ") != nil {
		t.Error("expected nil fingerprint for blank text")
	}
}

func TestCosineSimilarityReorderedWords(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("attack on titan"), NewFingerprint("titan attack on"))
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("CosineSimilarity(reordered) = %v, want 1", got)
	}
}

func TestSimilarityOrdering(t *testing.T) {
	exact := Similarity("Dororo", "DORORO")
	contains := Similarity("Dororo", "Dororo to Hyakkimaru")
	typo := Similarity("Dororo", "Dorora")
	unrelated := Similarity("Dororo", "Cowboy Bebop")

	if exact != 1 {
		t.Errorf("exact match = %v, want 1", exact)
	}
	if !(contains < exact && contains >= 0.9) {
		t.Errorf("containing title = %v, want in [0.9, 1)", contains)
	}
	if !(typo < contains && typo > unrelated) {
		t.Errorf("typo = %v, contains = %v, unrelated = %v", typo, contains, unrelated)
	}
	if Matches("Dororo", []string{"Cowboy Bebop"}) {
		t.Error("unrelated title should not match")
	}
	if !Matches("dororo", []string{"Cowboy Bebop", "Dororo"}) {
		t.Error("expected any-title match")
	}
}
