package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"triagem/internal/textutil"
)

const (
	defaultHFURL           = "http://localhost:8080"
	defaultHFSummaryModel  = "HuggingFaceTB/SmolLM3-3B"
	defaultHFZeroShotModel = "joeddav/xlm-roberta-large-xnli"
	defaultHypothesis      = "This text is about {}."
)

// HFSummarizer talks to a Hugging Face inference endpoint running a
// text-generation model.
type HFSummarizer struct {
	*endpoint
	maxSentences int
}

func NewHFSummarizer(opts Options, maxSentences int) *HFSummarizer {
	return &HFSummarizer{
		endpoint:     newEndpoint(opts, defaultHFURL, defaultHFSummaryModel),
		maxSentences: maxSentences,
	}
}

func (s *HFSummarizer) Name() string { return "huggingface" }

func (s *HFSummarizer) Load(ctx context.Context) error {
	if _, err := s.generate(ctx, probeSummaryPrompt, 24); err != nil {
		return unavailable(s.modelID, err)
	}
	s.ready.Store(true)
	return nil
}

func (s *HFSummarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	if err := s.checkReady(); err != nil {
		return "", err
	}
	prompt := summaryPrompt(textutil.Truncate(text, s.maxInputChars))
	raw, err := s.generate(ctx, prompt, maxNewTokens(maxLength))
	if err != nil {
		return "", inferenceFailed(s.modelID, err)
	}
	summary, err := finishSummary(raw, s.maxSentences, maxLength, minLength)
	if err != nil {
		return "", inferenceFailed(s.modelID, err)
	}
	return summary, nil
}

func (s *HFSummarizer) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens":       maxTokens,
			"do_sample":            false,
			"num_beams":            2,
			"repetition_penalty":   1.25,
			"no_repeat_ngram_size": 3,
			"return_full_text":     false,
		},
		"options": map[string]any{"wait_for_model": true},
	}
	data, err := s.postJSON(ctx, "/models/"+s.modelID, payload)
	if err != nil {
		return "", err
	}
	return decodeGenerated(data)
}

// decodeGenerated accepts both the list form of the inference API and the
// single-object form returned by text-generation-inference.
func decodeGenerated(data []byte) (string, error) {
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 || list[0].GeneratedText == "" {
			return "", errors.New("empty generation")
		}
		return list[0].GeneratedText, nil
	}
	var single struct {
		GeneratedText string `json:"generated_text"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return "", fmt.Errorf("decode generation: %w", err)
	}
	if single.Error != "" {
		return "", errors.New(single.Error)
	}
	if single.GeneratedText == "" {
		return "", errors.New("empty generation")
	}
	return single.GeneratedText, nil
}

// HFZeroShot talks to a Hugging Face inference endpoint running an NLI model
// through the zero-shot-classification task.
type HFZeroShot struct {
	*endpoint
	hypothesisTemplate string
}

func NewHFZeroShot(opts Options, hypothesisTemplate string) *HFZeroShot {
	if hypothesisTemplate == "" {
		hypothesisTemplate = defaultHypothesis
	}
	return &HFZeroShot{
		endpoint:           newEndpoint(opts, defaultHFURL, defaultHFZeroShotModel),
		hypothesisTemplate: hypothesisTemplate,
	}
}

func (c *HFZeroShot) Name() string { return "huggingface" }

func (c *HFZeroShot) Load(ctx context.Context) error {
	if _, err := c.zeroShot(ctx, "Teste", ProbeLabels); err != nil {
		return unavailable(c.modelID, err)
	}
	c.ready.Store(true)
	return nil
}

func (c *HFZeroShot) Classify(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	raw, err := c.zeroShot(ctx, textutil.Truncate(text, c.maxInputChars), labels)
	if err != nil {
		return nil, inferenceFailed(c.modelID, err)
	}
	scores, err := NormalizeScores(labels, raw)
	if err != nil {
		return nil, inferenceFailed(c.modelID, err)
	}
	return scores, nil
}

func (c *HFZeroShot) zeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels":    labels,
			"hypothesis_template": c.hypothesisTemplate,
			"multi_label":         false,
		},
		"options": map[string]any{"wait_for_model": true},
	}
	data, err := c.postJSON(ctx, "/models/"+c.modelID, payload)
	if err != nil {
		return nil, err
	}
	return decodeZeroShot(data)
}

// decodeZeroShot accepts {"labels": [...], "scores": [...]} as well as a list
// of {"label", "score"} pairs.
func decodeZeroShot(data []byte) (map[string]float64, error) {
	var pairs []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &pairs); err == nil {
		out := make(map[string]float64, len(pairs))
		for _, p := range pairs {
			out[p.Label] = p.Score
		}
		return out, nil
	}
	var parallel struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
		Error  string    `json:"error"`
	}
	if err := json.Unmarshal(data, &parallel); err != nil {
		return nil, fmt.Errorf("decode zero-shot: %w", err)
	}
	if parallel.Error != "" {
		return nil, errors.New(parallel.Error)
	}
	if len(parallel.Labels) != len(parallel.Scores) {
		return nil, fmt.Errorf("zero-shot returned %d labels and %d scores", len(parallel.Labels), len(parallel.Scores))
	}
	out := make(map[string]float64, len(parallel.Labels))
	for i, label := range parallel.Labels {
		out[label] = parallel.Scores[i]
	}
	return out, nil
}
