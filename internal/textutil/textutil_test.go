package textutil

import (
	"strings"
	"testing"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Dúvida":            "duvida",
		"SOLICITAÇÃO":       "solicitacao",
		"não funciona":      "nao funciona",
		"Suporte Técnico 2": "suporte tecnico 2",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Olá. Tudo bem? Sim! v1.2 está ok")
	want := []string{"Olá.", "Tudo bem?", "Sim!", "v1.2 está ok"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestClip(t *testing.T) {
	if got := Clip("curto", 10); got != "curto" {
		t.Fatalf("unexpected clip of short text: %q", got)
	}
	if got := Clip("abcdefghij", 3); got != "abc" {
		t.Fatalf("expected hard cut when no room for ellipsis, got %q", got)
	}
	if got := Clip("ééééé ééééé", 8); got != "ééééé..." {
		t.Fatalf("expected rune-aware clip, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	in := "ação rápida"
	if got := Truncate(in, 4); got != "ação" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate(in, 100); got != in {
		t.Fatalf("expected untouched input, got %q", got)
	}
	if got := Truncate(in, 0); got != in {
		t.Fatalf("expected no limit for 0, got %q", got)
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  a \n\t b  "); got != "a b" {
		t.Fatalf("CollapseSpace = %q", got)
	}
}
