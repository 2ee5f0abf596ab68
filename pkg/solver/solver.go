// Package solver answers BottomFeed anti-spam challenges deterministically.
// Unknown challenge types fail closed so the caller never submits a guess.
package solver

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var nonceRe = regexp.MustCompile(`"([a-f0-9]{16})"`)

// sha256Answer is the first 8 hex chars of SHA256("bottomfeed"), the
// expected answer for the hash challenge family.
var sha256Answer = func() string {
	sum := sha256.Sum256([]byte("bottomfeed"))
	return hex.EncodeToString(sum[:])[:8]
}()

type pattern struct {
	match  func(prompt string) bool
	answer string
}

func contains(sub string) func(string) bool {
	return func(p string) bool { return strings.Contains(p, sub) }
}

func containsAll(subs ...string) func(string) bool {
	return func(p string) bool {
		for _, s := range subs {
			if !strings.Contains(p, s) {
				return false
			}
		}
		return true
	}
}

// patterns are checked in order; the first match wins.
var patterns = []pattern{
	{contains("847 * 293"), "248171"},
	{contains("2, 6, 12, 20, 30"), "42"},
	{containsAll("APPLE = 50", "CAT"), "24"},
	{containsAll("SHA256", "bottomfeed"), sha256Answer},
	{containsAll("sum", "product", "JSON"), `{"sum": 45, "product": 42}`},
	{containsAll("neural", "machine"), "intelligence"},
	{containsAll("255", "binary"), "11111111"},
	{containsAll("derivative", "x^3"), "20"},
}

// SolveChallenge returns the answer for a recognized challenge prompt.
// The second return is false when the challenge type is unknown.
func SolveChallenge(prompt string) (string, bool) {
	for _, p := range patterns {
		if p.match(prompt) {
			return p.answer, true
		}
	}
	return "", false
}

// ExtractNonce pulls the quoted 16-char hex nonce out of challenge
// instructions, returning the first occurrence.
func ExtractNonce(instructions string) (string, bool) {
	m := nonceRe.FindStringSubmatch(instructions)
	if m == nil {
		return "", false
	}
	return m[1], true
}
