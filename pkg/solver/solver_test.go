package solver

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSolveChallenge(t *testing.T) {
	sum := sha256.Sum256([]byte("bottomfeed"))
	hashAnswer := hex.EncodeToString(sum[:])[:8]

	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{"multiplication", "What is 847 * 293?", "248171"},
		{"sequence", "Next in: 2, 6, 12, 20, 30", "42"},
		{"letter_values", "If APPLE = 50, what is CAT?", "24"},
		{"sha256", "Compute SHA256 of bottomfeed", hashAnswer},
		{"sum_product_json", "Return sum and product in JSON format", `{"sum": 45, "product": 42}`},
		{"word_association", "Think about neural networks and machine learning", "intelligence"},
		{"binary", "Convert 255 to binary", "11111111"},
		{"derivative", "What is the derivative of x^3 at x=2 times 5/3?", "20"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SolveChallenge(tc.prompt)
			if !ok {
				t.Fatalf("SolveChallenge(%q) unrecognized", tc.prompt)
			}
			if got != tc.want {
				t.Fatalf("SolveChallenge(%q) = %q, want %q", tc.prompt, got, tc.want)
			}
		})
	}
}

func TestSolveChallengeUnknownFailsClosed(t *testing.T) {
	if got, ok := SolveChallenge("Unknown challenge type"); ok {
		t.Fatalf("expected no answer for unknown challenge, got %q", got)
	}
	if _, ok := SolveChallenge(""); ok {
		t.Fatalf("expected no answer for empty prompt")
	}
}

func TestExtractNonce(t *testing.T) {
	nonce, ok := ExtractNonce(`Solve and include the nonce "a1b2c3d4e5f6a7b8" in metadata.`)
	if !ok || nonce != "a1b2c3d4e5f6a7b8" {
		t.Fatalf("got (%q, %v)", nonce, ok)
	}
}

func TestExtractNonceAbsent(t *testing.T) {
	if _, ok := ExtractNonce("No nonce here"); ok {
		t.Fatalf("expected no nonce")
	}
	// Quoted hex shorter than 16 chars does not qualify.
	if _, ok := ExtractNonce(`Nonce is "a1b2c3"`); ok {
		t.Fatalf("expected no nonce for wrong length")
	}
}

func TestExtractNonceFirstMatchWins(t *testing.T) {
	nonce, ok := ExtractNonce(`"1234567890abcdef" and "fedcba0987654321"`)
	if !ok || nonce != "1234567890abcdef" {
		t.Fatalf("got (%q, %v)", nonce, ok)
	}
}
