package domain

import "testing"

func TestSameClub(t *testing.T) {
	resolver := NewEquivalenceResolver(nil, 0)

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "exact", a: "CB Rinconada", b: "CB Rinconada", want: true},
		{name: "case insensitive", a: "cb rinconada", b: "CB RINCONADA", want: true},
		{name: "accents collapse", a: "CB Xàtiva", b: "CB Xativa", want: true},
		{name: "noise words dropped", a: "Club Badminton Rinconada", b: "Rinconada", want: true},
		{name: "punctuated prefix", a: "C.D. Badminton Soria", b: "Soria", want: true},
		{name: "typo within threshold", a: "CB Rinconada", b: "CB Rinconadas", want: true},
		{name: "different clubs", a: "CB Rinconada", b: "CB Granada", want: false},
		{name: "empty side", a: "", b: "CB Granada", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.SameClub(tt.a, tt.b); got != tt.want {
				t.Fatalf("SameClub(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	if got := NameSimilarity("CB Rinconada", "Club Badminton Rinconada"); got != 1 {
		t.Fatalf("containment should score 1, got %v", got)
	}
	if got := NameSimilarity("CB Rinconada", "CB Granada"); got >= DefaultFuzzyThreshold {
		t.Fatalf("distinct clubs should score below threshold, got %v", got)
	}
	if got := NameSimilarity("", "CB Granada"); got != 0 {
		t.Fatalf("empty name should score 0, got %v", got)
	}
}

func TestIsAffiliate(t *testing.T) {
	resolver := NewEquivalenceResolver(EquivalenceMap{
		"CB Rinconada": {"Rinconada B", "Rinconada Promesas"},
	}, 0)

	if !resolver.IsAffiliate("CB Rinconada", "Rinconada Promesas") {
		t.Fatal("expected affiliate to be recognized")
	}
	// Symmetric: either argument order answers the same question.
	if !resolver.IsAffiliate("Rinconada Promesas", "CB Rinconada") {
		t.Fatal("expected affiliate check to be symmetric")
	}
	if resolver.IsAffiliate("CB Rinconada", "CB Granada") {
		t.Fatal("unrelated club must not be an affiliate")
	}
}

func TestCanonicalizeIsStable(t *testing.T) {
	resolver := NewEquivalenceResolver(EquivalenceMap{
		"Club Badminton Rinconada": {"Rinconada B"},
	}, 0)

	first := resolver.Canonicalize("club badminton rinconada")
	second := resolver.Canonicalize("club badminton rinconada")
	if first != second {
		t.Fatalf("canonicalization not stable: %q vs %q", first, second)
	}
	if first != "Club Badminton Rinconada" {
		t.Fatalf("expected registered display name, got %q", first)
	}

	// Unknown names canonicalize to their trimmed selves.
	if got := resolver.Canonicalize("  CB Granada "); got != "CB Granada" {
		t.Fatalf("unknown club should map to itself, got %q", got)
	}
}
