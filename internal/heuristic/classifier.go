package heuristic

import (
	"math"
	"slices"
	"strings"

	"triagem/internal/textutil"
)

const (
	keywordWeight = 0.2
	defaultScore  = 0.01
)

// Classifier scores candidate labels by keyword presence. It has no state
// besides its rules and is safe for concurrent use.
type Classifier struct {
	rules        compiledRules
	unclassified string
}

func NewClassifier(rules Rules, unclassified string) *Classifier {
	return &Classifier{rules: compile(rules), unclassified: unclassified}
}

// Classify returns the selected label and a score for every entry in labels.
// Each matching keyword adds 0.2 to its label, capped at 1. When nothing
// matches, the unclassified label (if it is a candidate) or the first label
// gets 0.01. Ties go to the label that appears first in labels.
func (c *Classifier) Classify(text string, labels []string) (string, map[string]float64) {
	scores := make(map[string]float64, len(labels))
	if len(labels) == 0 {
		return "", scores
	}
	words := wordPattern.FindAllString(textutil.Fold(text), -1)
	matched := false
	for _, label := range labels {
		var score float64
		for _, kw := range c.rules[textutil.Fold(strings.TrimSpace(label))] {
			if containsPhrase(words, kw) {
				score += keywordWeight
			}
		}
		score = math.Min(round(score), 1)
		if score > 0 {
			matched = true
		}
		scores[label] = score
	}
	if !matched {
		fallback := labels[0]
		for _, label := range labels {
			if c.unclassified != "" && label == c.unclassified {
				fallback = label
				break
			}
		}
		scores[fallback] = defaultScore
		return fallback, scores
	}
	return Argmax(labels, scores), scores
}

// containsPhrase reports whether phrase occurs as a contiguous run of words.
func containsPhrase(words, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(words); i++ {
		if slices.Equal(words[i:i+len(phrase)], phrase) {
			return true
		}
	}
	return false
}

// Argmax picks the highest-scoring label, preferring earlier labels on ties.
func Argmax(labels []string, scores map[string]float64) string {
	best := ""
	bestScore := math.Inf(-1)
	for _, label := range labels {
		if s := scores[label]; s > bestScore {
			best, bestScore = label, s
		}
	}
	return best
}

// round drops the float noise accumulated by repeated 0.2 additions.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
