package triage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"triagem/internal/heuristic"
	"triagem/internal/llm"
)

const scoreTolerance = 1e-6

type ClassificationService struct {
	model    llm.Classifier
	fallback *heuristic.Classifier
	logger   *slog.Logger
	probe    probe
}

// NewClassificationService returns a service that prefers model and falls
// back to keyword rules. A nil model means models are disabled.
func NewClassificationService(model llm.Classifier, fallback *heuristic.Classifier, logger *slog.Logger) *ClassificationService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ClassificationService{model: model, fallback: fallback, logger: logger}
	if model == nil {
		s.probe.set(StateUnavailable)
	}
	return s
}

// WithState overrides the cached readiness, skipping the probe.
func (s *ClassificationService) WithState(state State) *ClassificationService {
	s.probe.set(state)
	return s
}

func (s *ClassificationService) State() State { return s.probe.current() }

// Probe loads the model now instead of on the first call.
func (s *ClassificationService) Probe(ctx context.Context) State {
	if s.model == nil {
		return s.probe.current()
	}
	return s.probe.ensure(ctx, s.logger, "classifier", s.model.Model(), s.model.Load)
}

func (s *ClassificationService) Classify(ctx context.Context, text string, labels []string) (ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ClassificationResult{}, &ConfigurationError{Field: "text", Msg: "must not be empty"}
	}
	set, err := NewLabelSet(labels)
	if err != nil {
		return ClassificationResult{}, err
	}
	if s.model != nil && s.probe.ensure(ctx, s.logger, "classifier", s.model.Model(), s.model.Load) == StateReady {
		scores, err := s.model.Classify(ctx, text, set)
		if err == nil {
			err = checkScores(set, scores)
		}
		if err == nil {
			return ClassificationResult{Label: heuristic.Argmax(set, scores), Scores: scores, Source: SourceModel}, nil
		}
		s.logger.Warn("classification failed, using heuristic for this call", "model", s.model.Model(), "err", err)
	}
	label, scores := s.fallback.Classify(text, set)
	return ClassificationResult{Label: label, Scores: scores, Source: SourceHeuristic}, nil
}

// checkScores requires one score in [0,1] per label, no extra keys, and a
// total of 1.
func checkScores(labels LabelSet, scores map[string]float64) error {
	if len(scores) != len(labels) {
		return fmt.Errorf("%w: got %d scores for %d labels", llm.ErrInferenceError, len(scores), len(labels))
	}
	var sum float64
	for _, label := range labels {
		v, ok := scores[label]
		if !ok {
			return fmt.Errorf("%w: no score for %q", llm.ErrInferenceError, label)
		}
		if math.IsNaN(v) || v < 0 || v > 1+scoreTolerance {
			return fmt.Errorf("%w: score %v for %q out of range", llm.ErrInferenceError, v, label)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-3 {
		return fmt.Errorf("%w: scores sum to %v", llm.ErrInferenceError, sum)
	}
	return nil
}
