package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrModelUnavailable means the model never finished loading.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInferenceError means a loaded model failed on one call.
	ErrInferenceError = errors.New("inference error")
	ErrNoLabels       = errors.New("no candidate labels")
)

// ProbeLabels are the labels used for the zero-shot warm-up call.
var ProbeLabels = []string{"Feedback", "Reclamação", "Suporte técnico", "Dúvida", "Solicitação de serviço"}

const probeSummaryPrompt = "Resuma em 1 frase: teste."

type Summarizer interface {
	Load(ctx context.Context) error
	Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error)
	Name() string
	Model() string
}

type Classifier interface {
	Load(ctx context.Context) error
	// Classify returns one score per label, summing to 1.
	Classify(ctx context.Context, text string, labels []string) (map[string]float64, error)
	Name() string
	Model() string
}

type Options struct {
	BaseURL       string
	ModelID       string
	APIKey        string
	Timeout       time.Duration
	MaxInputChars int
}

// endpoint is the HTTP plumbing shared by the remote adapters.
type endpoint struct {
	baseURL       string
	modelID       string
	apiKey        string
	maxInputChars int
	client        *http.Client
	ready         atomic.Bool
}

func newEndpoint(opts Options, defaultURL, defaultModel string) *endpoint {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultURL
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &endpoint{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		modelID:       opts.ModelID,
		apiKey:        opts.APIKey,
		maxInputChars: opts.MaxInputChars,
		client:        &http.Client{Timeout: opts.Timeout},
	}
}

func (e *endpoint) Model() string { return e.modelID }

func (e *endpoint) checkReady() error {
	if !e.ready.Load() {
		return fmt.Errorf("%w: %s was not loaded", ErrModelUnavailable, e.modelID)
	}
	return nil
}

func (e *endpoint) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, snippet(string(data)))
	}
	return data, nil
}

func unavailable(model string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
}

func inferenceFailed(model string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInferenceError, model, err)
}

// NormalizeScores rescales raw scores so that they sum to 1 over exactly the
// given labels.
func NormalizeScores(labels []string, raw map[string]float64) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	var sum float64
	for _, label := range labels {
		v, ok := raw[label]
		if !ok {
			return nil, fmt.Errorf("missing score for label %q", label)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("invalid score %v for label %q", v, label)
		}
		sum += v
	}
	if sum <= 0 {
		return nil, errors.New("scores sum to zero")
	}
	out := make(map[string]float64, len(labels))
	for _, label := range labels {
		out[label] = raw[label] / sum
	}
	return out, nil
}

// Softmax maps logits to probabilities, keyed by the label at the same index.
func Softmax(labels []string, logits []float64, temperature float64) map[string]float64 {
	if temperature <= 0 {
		temperature = 1
	}
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, v)
	}
	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		exps[i] = math.Exp((v - maxLogit) / temperature)
		sum += exps[i]
	}
	out := make(map[string]float64, len(labels))
	for i, label := range labels {
		out[label] = exps[i] / sum
	}
	return out
}

func hypothesis(template, label string) string {
	if strings.Contains(template, "{}") {
		return strings.ReplaceAll(template, "{}", label)
	}
	return strings.TrimSpace(template + " " + label)
}

func snippet(text string) string {
	if len(text) <= 200 {
		return text
	}
	return text[:200] + "..."
}
