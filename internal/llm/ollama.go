package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"triagem/internal/textutil"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
)

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func ollamaGenerate(ctx context.Context, e *endpoint, prompt string, numPredict int, format string) (string, error) {
	payload := map[string]any{
		"model":  e.modelID,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": numPredict,
			"temperature": 0,
		},
	}
	if format != "" {
		payload["format"] = format
	}
	data, err := e.postJSON(ctx, "/api/generate", payload)
	if err != nil {
		return "", err
	}
	var decoded ollamaGenerateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	if decoded.Response == "" {
		return "", errors.New("empty response")
	}
	return decoded.Response, nil
}

type OllamaSummarizer struct {
	*endpoint
	maxSentences int
}

func NewOllamaSummarizer(opts Options, maxSentences int) *OllamaSummarizer {
	return &OllamaSummarizer{
		endpoint:     newEndpoint(opts, defaultOllamaURL, defaultOllamaModel),
		maxSentences: maxSentences,
	}
}

func (s *OllamaSummarizer) Name() string { return "ollama" }

func (s *OllamaSummarizer) Load(ctx context.Context) error {
	if _, err := ollamaGenerate(ctx, s.endpoint, probeSummaryPrompt, 24, ""); err != nil {
		return unavailable(s.modelID, err)
	}
	s.ready.Store(true)
	return nil
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	if err := s.checkReady(); err != nil {
		return "", err
	}
	prompt := summaryPrompt(textutil.Truncate(text, s.maxInputChars))
	raw, err := ollamaGenerate(ctx, s.endpoint, prompt, maxNewTokens(maxLength), "")
	if err != nil {
		return "", inferenceFailed(s.modelID, err)
	}
	summary, err := finishSummary(raw, s.maxSentences, maxLength, minLength)
	if err != nil {
		return "", inferenceFailed(s.modelID, err)
	}
	return summary, nil
}

// OllamaClassifier asks a chat model for a JSON score per label. The reply is
// validated against a schema built from the label set before it is trusted.
type OllamaClassifier struct {
	*endpoint
}

func NewOllamaClassifier(opts Options) *OllamaClassifier {
	return &OllamaClassifier{endpoint: newEndpoint(opts, defaultOllamaURL, defaultOllamaModel)}
}

func (c *OllamaClassifier) Name() string { return "ollama" }

func (c *OllamaClassifier) Load(ctx context.Context) error {
	if _, err := c.scores(ctx, "Teste", ProbeLabels); err != nil {
		return unavailable(c.modelID, err)
	}
	c.ready.Store(true)
	return nil
}

func (c *OllamaClassifier) Classify(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if err := c.checkReady(); err != nil {
		return nil, err
	}
	raw, err := c.scores(ctx, textutil.Truncate(text, c.maxInputChars), labels)
	if err != nil {
		return nil, inferenceFailed(c.modelID, err)
	}
	scores, err := NormalizeScores(labels, raw)
	if err != nil {
		return nil, inferenceFailed(c.modelID, err)
	}
	return scores, nil
}

func (c *OllamaClassifier) scores(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	out, err := ollamaGenerate(ctx, c.endpoint, classifyPrompt(text, labels), 256, "json")
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		return nil, fmt.Errorf("model reply is not JSON: %w", err)
	}
	schema, err := scoreSchema(labels)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, fmt.Errorf("model reply does not match score schema: %w", err)
	}
	var reply struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		return nil, err
	}
	return reply.Scores, nil
}

func scoreSchema(labels []string) (*jsonschema.Schema, error) {
	doc := map[string]any{
		"type":     "object",
		"required": []string{"scores"},
		"properties": map[string]any{
			"scores": map[string]any{
				"type":                 "object",
				"required":             labels,
				"additionalProperties": map[string]any{"type": "number", "minimum": 0},
			},
		},
	}
	schemaBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("scores.json", bytes.NewReader(schemaBytes)); err != nil {
		return nil, err
	}
	return compiler.Compile("scores.json")
}
