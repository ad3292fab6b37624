package fingerprint

import (
	"testing"

	"github.com/samas-it-services/smart-search/pkg/backend"
)

func TestFingerprintStableAcrossWhitespaceAndCase(t *testing.T) {
	a := Fingerprint(Input{Query: "  Heart   Disease "})
	b := Fingerprint(Input{Query: "heart disease"})
	if a != b {
		t.Fatalf("expected equal fingerprints, got %q and %q", a, b)
	}
}

func TestFingerprintStableAcrossFilterSetReordering(t *testing.T) {
	// Scenario S5 from spec.md §8.
	a := Fingerprint(Input{
		Query:   "q",
		Filters: map[string]backend.Filter{"category": {Values: []string{"b", "a"}}},
	})
	b := Fingerprint(Input{
		Query:   "q",
		Filters: map[string]backend.Filter{"category": {Values: []string{"a", "b"}}},
	})
	if a != b {
		t.Fatalf("expected equal fingerprints regardless of filter ordering, got %q and %q", a, b)
	}
}

func TestFingerprintDistinctForMaterialDifference(t *testing.T) {
	a := Fingerprint(Input{Query: "heart disease"})
	b := Fingerprint(Input{Query: "heart disease", Limit: 5})
	if a == b {
		t.Fatalf("expected distinct fingerprints when limit differs")
	}
}

func TestFingerprintBoundedLength(t *testing.T) {
	huge := make([]byte, 10000)
	for i := range huge {
		huge[i] = 'a'
	}
	fp := Fingerprint(Input{Query: string(huge), ResultType: string(huge)})
	if len(fp) > 250 {
		t.Fatalf("fingerprint exceeded bound: %d chars", len(fp))
	}
}

func TestFingerprintASCIIAndSanitized(t *testing.T) {
	fp := Fingerprint(Input{Query: "weird chars !@#$%^&*()", ResultType: "a/b c"})
	for _, r := range fp {
		if r > 127 {
			t.Fatalf("fingerprint must be ASCII, got rune %q", r)
		}
	}
	if sanitizePattern.MatchString(fp) {
		t.Fatalf("fingerprint contains characters outside the sanitized set: %q", fp)
	}
}
