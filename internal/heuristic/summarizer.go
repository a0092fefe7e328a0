package heuristic

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"triagem/internal/textutil"
)

var (
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	requestPattern = regexp.MustCompile(`(?i)^(solicito|gostaria de|quero|preciso)\s+(.*)$`)
)

type SummarizerConfig struct {
	MaxLength           int
	MaxSentences        int
	ShortWordsThreshold int
}

// Summarizer builds an extractive summary from the leading sentences of a
// text. Output depends only on the input and the configured bounds.
type Summarizer struct {
	cfg SummarizerConfig
}

func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	if cfg.MaxLength <= len(textutil.Ellipsis) {
		cfg.MaxLength = 280
	}
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = 3
	}
	if cfg.ShortWordsThreshold < 0 {
		cfg.ShortWordsThreshold = 0
	}
	return &Summarizer{cfg: cfg}
}

func (s *Summarizer) MaxLength() int { return s.cfg.MaxLength }

// Summarize returns a non-empty summary of at most MaxLength runes for any
// text with at least one non-space character.
func (s *Summarizer) Summarize(text string) string {
	t := textutil.CollapseSpace(text)
	if t == "" {
		return ""
	}
	if len(wordPattern.FindAllString(t, -1)) <= s.cfg.ShortWordsThreshold {
		if out := rewriteRequest(t); out != "" {
			return textutil.Clip(out, s.cfg.MaxLength)
		}
		return textutil.Clip(t, s.cfg.MaxLength)
	}
	sents := textutil.SplitSentences(t)
	summary := strings.Join(limit(sents, s.cfg.MaxSentences), " ")
	if len(sents) > s.cfg.MaxSentences {
		summary += " " + textutil.Ellipsis
	}
	return textutil.Clip(summary, s.cfg.MaxLength)
}

// rewriteRequest turns a short first-person request ("preciso de acesso")
// into a third-person line ("Solicita de acesso.").
func rewriteRequest(t string) string {
	t = strings.TrimRight(t, ".")
	if m := requestPattern.FindStringSubmatch(t); m != nil && strings.TrimSpace(m[2]) != "" {
		t = "Solicita " + m[2]
	}
	if t == "" {
		return t
	}
	r, size := utf8.DecodeRuneInString(t)
	t = string(unicode.ToUpper(r)) + t[size:]
	if !strings.HasSuffix(t, ".") && !strings.HasSuffix(t, "!") && !strings.HasSuffix(t, "?") {
		t += "."
	}
	return t
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
