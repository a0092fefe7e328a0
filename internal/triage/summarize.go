package triage

import (
	"context"
	"log/slog"
	"strings"

	"triagem/internal/heuristic"
	"triagem/internal/llm"
	"triagem/internal/textutil"
)

type SummaryBounds struct {
	MaxLength int
	MinLength int
}

type SummarizationService struct {
	model    llm.Summarizer
	fallback *heuristic.Summarizer
	bounds   SummaryBounds
	logger   *slog.Logger
	probe    probe
}

// NewSummarizationService returns a service that prefers model and falls back
// to the heuristic summarizer. A nil model means models are disabled.
func NewSummarizationService(model llm.Summarizer, fallback *heuristic.Summarizer, bounds SummaryBounds, logger *slog.Logger) *SummarizationService {
	if logger == nil {
		logger = slog.Default()
	}
	if bounds.MaxLength <= 0 {
		bounds.MaxLength = fallback.MaxLength()
	}
	s := &SummarizationService{model: model, fallback: fallback, bounds: bounds, logger: logger}
	if model == nil {
		s.probe.set(StateUnavailable)
	}
	return s
}

// WithState overrides the cached readiness, skipping the probe.
func (s *SummarizationService) WithState(state State) *SummarizationService {
	s.probe.set(state)
	return s
}

func (s *SummarizationService) State() State { return s.probe.current() }

// Probe loads the model now instead of on the first call.
func (s *SummarizationService) Probe(ctx context.Context) State {
	if s.model == nil {
		return s.probe.current()
	}
	return s.probe.ensure(ctx, s.logger, "summarizer", s.model.Model(), s.model.Load)
}

func (s *SummarizationService) Summarize(ctx context.Context, text string) (SummaryResult, error) {
	if strings.TrimSpace(text) == "" {
		return SummaryResult{}, &ConfigurationError{Field: "text", Msg: "must not be empty"}
	}
	if s.model != nil && s.probe.ensure(ctx, s.logger, "summarizer", s.model.Model(), s.model.Load) == StateReady {
		out, err := s.model.Summarize(ctx, text, s.bounds.MaxLength, s.bounds.MinLength)
		out = textutil.Clip(strings.TrimSpace(out), s.bounds.MaxLength)
		if err == nil && out != "" {
			return SummaryResult{Text: out, Source: SourceModel}, nil
		}
		s.logger.Warn("summarization failed, using heuristic for this call", "model", s.model.Model(), "err", err)
	}
	return SummaryResult{Text: s.fallback.Summarize(text), Source: SourceHeuristic}, nil
}
