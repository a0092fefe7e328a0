package llm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNormalizeScores(t *testing.T) {
	labels := []string{"a", "b"}
	got, err := NormalizeScores(labels, map[string]float64{"a": 3, "b": 1, "extra": 9})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if math.Abs(got["a"]-0.75) > 1e-9 || math.Abs(got["b"]-0.25) > 1e-9 {
		t.Fatalf("unexpected scores: %v", got)
	}
	if _, ok := got["extra"]; ok {
		t.Fatalf("unexpected label kept: %v", got)
	}
	if _, err := NormalizeScores(labels, map[string]float64{"a": 1}); err == nil {
		t.Fatalf("expected missing label error")
	}
	if _, err := NormalizeScores(labels, map[string]float64{"a": -1, "b": 2}); err == nil {
		t.Fatalf("expected negative score error")
	}
	if _, err := NormalizeScores(labels, map[string]float64{"a": 0, "b": 0}); err == nil {
		t.Fatalf("expected zero sum error")
	}
	if _, err := NormalizeScores(nil, nil); !errors.Is(err, ErrNoLabels) {
		t.Fatalf("expected ErrNoLabels, got %v", err)
	}
}

func TestSoftmax(t *testing.T) {
	got := Softmax([]string{"x", "y", "z"}, []float64{0.9, 0.1, 0.1}, 0.05)
	var sum float64
	for _, v := range got {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("scores should sum to 1, got %v", sum)
	}
	if got["x"] < 0.99 {
		t.Fatalf("expected x to dominate, got %v", got)
	}
	if math.Abs(got["y"]-got["z"]) > 1e-12 {
		t.Fatalf("equal logits should give equal scores: %v", got)
	}
}

func TestHypothesis(t *testing.T) {
	if got := hypothesis("Este texto é sobre {}.", "Dúvida"); got != "Este texto é sobre Dúvida." {
		t.Fatalf("unexpected hypothesis %q", got)
	}
	if got := hypothesis("Categoria:", "Feedback"); got != "Categoria: Feedback" {
		t.Fatalf("unexpected hypothesis %q", got)
	}
}

func TestPostprocessSummary(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"header", "Resumo: Cliente relata falha no login.", 3, "Cliente relata falha no login."},
		{"quotes", `"Cliente pede acesso ao sistema."`, 3, "Cliente pede acesso ao sistema."},
		{"dedup", "Cliente sem acesso. Cliente sem acesso! Pede ajuda.", 3, "Cliente sem acesso. Pede ajuda."},
		{"limit", "Um fato. Dois fatos. Tres fatos.", 2, "Um fato. Dois fatos. ..."},
		{"short sentences dropped", "A. Cliente reclama da demora.", 3, "Cliente reclama da demora."},
		{"empty", "   ", 3, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PostprocessSummary(tc.in, tc.max); got != tc.want {
				t.Fatalf("PostprocessSummary(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFinishSummaryBounds(t *testing.T) {
	got, err := finishSummary(strings.Repeat("palavra ", 100)+".", 3, 50, 5)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if n := len([]rune(got)); n > 50 {
		t.Fatalf("summary too long: %d", n)
	}
	if _, err := finishSummary("Resumo:", 3, 50, 5); err == nil {
		t.Fatalf("expected error for empty summary")
	}
	if _, err := finishSummary("Curto.", 3, 50, 20); err == nil {
		t.Fatalf("expected error for summary under minimum")
	}
}

func TestMaxNewTokens(t *testing.T) {
	if got := maxNewTokens(10); got != 16 {
		t.Fatalf("expected floor 16, got %d", got)
	}
	if got := maxNewTokens(280); got != 94 {
		t.Fatalf("expected 94, got %d", got)
	}
	if got := maxNewTokens(10000); got != 256 {
		t.Fatalf("expected cap 256, got %d", got)
	}
}

func TestDisabled(t *testing.T) {
	d := NewDisabled("")
	if err := d.Load(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if _, err := d.Summarize(context.Background(), "x", 10, 1); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if _, err := d.Classify(context.Background(), "x", []string{"a"}); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	var _ Summarizer = d
	var _ Classifier = d
}
