// Package textutil holds the string helpers shared by the model adapters and
// the heuristics: accent folding, sentence splitting and rune-safe clipping.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const Ellipsis = "..."

// Fold lowercases s and strips combining marks, so "Dúvida" and "duvida"
// compare equal.
func Fold(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitSentences splits on whitespace that follows '.', '!' or '?'.
func SplitSentences(t string) []string {
	var out []string
	start := 0
	prev := rune(0)
	for i, r := range t {
		if unicode.IsSpace(r) && (prev == '.' || prev == '!' || prev == '?') {
			if sent := strings.TrimSpace(t[start:i]); sent != "" {
				out = append(out, sent)
			}
			start = i
		}
		prev = r
	}
	if sent := strings.TrimSpace(t[start:]); sent != "" {
		out = append(out, sent)
	}
	return out
}

// Clip shortens t to at most maxRunes runes, cutting at a word boundary and
// ending with "..." when something was removed.
func Clip(t string, maxRunes int) string {
	r := []rune(t)
	if maxRunes <= 0 || len(r) <= maxRunes {
		return t
	}
	cut := maxRunes - len(Ellipsis)
	if cut <= 0 {
		return string(r[:maxRunes])
	}
	head := r[:cut]
	if i := lastSpace(head); i > 0 {
		head = head[:i]
	}
	return strings.TrimRight(string(head), " ,;:") + Ellipsis
}

// Truncate cuts t to maxRunes runes with no marker. Model inputs are clipped
// this way.
func Truncate(t string, maxRunes int) string {
	if maxRunes <= 0 {
		return t
	}
	count := 0
	for i := range t {
		if count == maxRunes {
			return t[:i]
		}
		count++
	}
	return t
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}
