package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"triagem/internal/heuristic"
	"triagem/internal/llm"
)

var defaultLabels = []string{"Feedback", "Reclamação", "Suporte técnico", "Dúvida", "Solicitação de serviço"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHeuristicSummarizer() *heuristic.Summarizer {
	return heuristic.NewSummarizer(heuristic.SummarizerConfig{MaxLength: 280, MaxSentences: 3, ShortWordsThreshold: 6})
}

func newHeuristicClassifier() *heuristic.Classifier {
	return heuristic.NewClassifier(heuristic.DefaultRules(), "")
}

type fakeSummarizer struct {
	loadErr   error
	callErrs  []error
	output    string
	loads     atomic.Int32
	calls     atomic.Int32
	panicText string
}

func (f *fakeSummarizer) Name() string  { return "fake" }
func (f *fakeSummarizer) Model() string { return "fake-summarizer" }

func (f *fakeSummarizer) Load(context.Context) error {
	f.loads.Add(1)
	if f.loadErr != nil {
		return fmt.Errorf("%w: %v", llm.ErrModelUnavailable, f.loadErr)
	}
	return nil
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	n := int(f.calls.Add(1))
	if f.panicText != "" && text == f.panicText {
		panic("boom")
	}
	if n <= len(f.callErrs) && f.callErrs[n-1] != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrInferenceError, f.callErrs[n-1])
	}
	return f.output, nil
}

type fakeClassifier struct {
	loadErr  error
	callErrs []error
	scores   func(labels []string) map[string]float64
	loads    atomic.Int32
	calls    atomic.Int32
}

func (f *fakeClassifier) Name() string  { return "fake" }
func (f *fakeClassifier) Model() string { return "fake-classifier" }

func (f *fakeClassifier) Load(context.Context) error {
	f.loads.Add(1)
	if f.loadErr != nil {
		return fmt.Errorf("%w: %v", llm.ErrModelUnavailable, f.loadErr)
	}
	return nil
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, llm.ErrNoLabels
	}
	n := int(f.calls.Add(1))
	if n <= len(f.callErrs) && f.callErrs[n-1] != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInferenceError, f.callErrs[n-1])
	}
	return f.scores(labels), nil
}

// lastLabelWins puts 0.7 on the last label and spreads the rest evenly.
func lastLabelWins(labels []string) map[string]float64 {
	out := make(map[string]float64, len(labels))
	if len(labels) == 1 {
		out[labels[0]] = 1
		return out
	}
	rest := 0.3 / float64(len(labels)-1)
	for _, label := range labels {
		out[label] = rest
	}
	out[labels[len(labels)-1]] = 0.7
	return out
}

var errTransient = errors.New("transient")
