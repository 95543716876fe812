// Package merchant provides merchant-name normalization and similarity
// scoring used to cluster raw bank descriptions into recurring groups.
// The similarity strategy is an interface so grouping logic can be tested
// and swapped independently of the matching heuristics.
package merchant

import (
	"regexp"
	"strings"
)

var (
	// Trailing store/reference numbers: "STARBUCKS #1234", "NETFLIX 4029357733".
	trailingRefPattern = regexp.MustCompile(`[\s#*-]+\d{3,}$`)
	// Card-processor noise: "SQ *", "TST* ", "PAYPAL *".
	processorPattern = regexp.MustCompile(`^(SQ|TST|PYPL|PAYPAL|POS)\s*\*\s*`)
	multiSpace       = regexp.MustCompile(`\s+`)
	nonAlnum         = regexp.MustCompile(`[^A-Z0-9 ]`)
)

// Normalize reduces a raw description to a canonical merchant key:
// uppercase, processor prefixes and trailing reference numbers stripped,
// punctuation removed, whitespace collapsed.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = processorPattern.ReplaceAllString(s, "")
	s = trailingRefPattern.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity scores how likely two descriptions refer to the same merchant.
type Similarity interface {
	// Score returns a value in [0,1]; 1 means same merchant.
	Score(a, b string) float64
}

// NormalizedPrefix is the default Similarity: exact match on normalized
// keys, or one normalized key being a word-boundary prefix of the other
// ("NETFLIX" vs "NETFLIX COM"). Anything else scores by shared leading
// words.
type NormalizedPrefix struct{}

// Score implements Similarity.
func (NormalizedPrefix) Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if isWordPrefix(na, nb) || isWordPrefix(nb, na) {
		return 0.9
	}

	wa, wb := strings.Fields(na), strings.Fields(nb)
	shared := 0
	for shared < len(wa) && shared < len(wb) && wa[shared] == wb[shared] {
		shared++
	}
	if shared == 0 {
		return 0
	}
	longest := len(wa)
	if len(wb) > longest {
		longest = len(wb)
	}
	return float64(shared) / float64(longest)
}

func isWordPrefix(prefix, full string) bool {
	if !strings.HasPrefix(full, prefix) {
		return false
	}
	return len(full) == len(prefix) || full[len(prefix)] == ' '
}

// CleanName produces a display-friendly merchant name from a raw
// description. It is the deterministic fallback used when the external
// cleaning hint is unavailable.
func CleanName(raw string) string {
	key := Normalize(raw)
	if key == "" {
		return strings.TrimSpace(raw)
	}
	words := strings.Fields(strings.ToLower(key))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
