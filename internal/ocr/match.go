package ocr

import (
	"sort"
	"strings"

	"github.com/arbovm/levenshtein"
)

// FuzzyThreshold is the minimum normalized similarity for the fuzzy tier.
// High enough that short labels ("OK", "No") don't match unrelated words,
// low enough that a one-character OCR misread on a 4+ letter label still
// resolves. Tunable; documented default.
const FuzzyThreshold = 0.75

// Find matches query against spans in two tiers. The substring tier is
// case-insensitive containment, which handles the common case of OCR
// picking up surrounding punctuation or truncating whitespace. Only when
// it yields nothing does the fuzzy tier run, because similarity scoring
// alone produces too many false positives on short labels. Fuzzy matches
// come back ordered by descending similarity.
func Find(spans []TextSpan, query string) []TextSpan {
	if query == "" {
		return nil
	}

	q := strings.ToLower(query)
	var exact []TextSpan
	for _, s := range spans {
		if strings.Contains(strings.ToLower(s.Text), q) {
			exact = append(exact, s)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	type scored struct {
		span TextSpan
		sim  float64
	}
	var fuzzy []scored
	for _, s := range spans {
		sim := Similarity(s.Text, query)
		if sim >= FuzzyThreshold {
			fuzzy = append(fuzzy, scored{span: s, sim: sim})
		}
	}
	sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].sim > fuzzy[j].sim })

	out := make([]TextSpan, 0, len(fuzzy))
	for _, f := range fuzzy {
		out = append(out, f.span)
	}
	return out
}

// Verify reports whether Find would return anything.
func Verify(spans []TextSpan, query string) bool {
	return len(Find(spans, query)) > 0
}

// Similarity is the normalized edit-distance ratio of the two strings
// after folding case and trimming surrounding punctuation and space:
// 1.0 is identical, 0.0 shares nothing.
func Similarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	dist := levenshtein.Distance(na, nb)
	return 1 - float64(dist)/float64(longest)
}

func normalize(s string) string {
	return strings.Trim(strings.ToLower(s), " \t\n.,:;!?…'\"()[]")
}
