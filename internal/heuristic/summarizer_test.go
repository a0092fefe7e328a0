package heuristic

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func newTestSummarizer(maxLength int) *Summarizer {
	return NewSummarizer(SummarizerConfig{MaxLength: maxLength, MaxSentences: 3, ShortWordsThreshold: 6})
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLength int
		want      string
	}{
		{
			name:      "single long sentence",
			text:      "Meu sistema caiu e não consigo acessar o financeiro, preciso de suporte urgente",
			maxLength: 280,
			want:      "Meu sistema caiu e não consigo acessar o financeiro, preciso de suporte urgente",
		},
		{
			name:      "short request rewritten",
			text:      "Quero trocar minha senha.",
			maxLength: 280,
			want:      "Solicita trocar minha senha.",
		},
		{
			name:      "short text capitalized",
			text:      "obrigado pela ajuda",
			maxLength: 280,
			want:      "Obrigado pela ajuda.",
		},
		{
			name:      "keeps first sentences",
			text:      "Primeira frase aqui.  Segunda frase aqui! Terceira frase? Quarta frase final.",
			maxLength: 280,
			want:      "Primeira frase aqui. Segunda frase aqui! Terceira frase? ...",
		},
		{
			name:      "clipped at word boundary",
			text:      "abcde fghij klmno pqrst uvwxy zz foo bar baz",
			maxLength: 20,
			want:      "abcde fghij...",
		},
		{
			name:      "punctuation only",
			text:      "...",
			maxLength: 280,
			want:      "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestSummarizer(tt.maxLength).Summarize(tt.text)
			if got != tt.want {
				t.Fatalf("Summarize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSummarizeRespectsMaxLength(t *testing.T) {
	s := newTestSummarizer(40)
	text := strings.Repeat("Ação crítica no módulo de cobrança sem resposta ", 10)
	got := s.Summarize(text)
	if got == "" {
		t.Fatalf("expected non-empty summary")
	}
	if n := utf8.RuneCountInString(got); n > 40 {
		t.Fatalf("summary has %d runes, max 40: %q", n, got)
	}
	if got != s.Summarize(text) {
		t.Fatalf("summary is not deterministic")
	}
}
