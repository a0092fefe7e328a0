package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"triagem/internal/embed"
	"triagem/internal/textutil"
)

const (
	defaultEmbeddingHypothesis  = "Este texto é sobre {}."
	defaultEmbeddingTemperature = 0.05
)

// EmbeddingClassifier does zero-shot classification by comparing the text
// embedding with one embedding per label hypothesis. Similarities go through a
// softmax so the scores sum to 1.
type EmbeddingClassifier struct {
	embedder           embed.Provider
	modelID            string
	hypothesisTemplate string
	temperature        float64
	maxInputChars      int
	ready              atomic.Bool
}

func NewEmbeddingClassifier(embedder embed.Provider, modelID, hypothesisTemplate string, maxInputChars int) *EmbeddingClassifier {
	if hypothesisTemplate == "" {
		hypothesisTemplate = defaultEmbeddingHypothesis
	}
	return &EmbeddingClassifier{
		embedder:           embedder,
		modelID:            modelID,
		hypothesisTemplate: hypothesisTemplate,
		temperature:        defaultEmbeddingTemperature,
		maxInputChars:      maxInputChars,
	}
}

func (c *EmbeddingClassifier) Name() string  { return "embedding" }
func (c *EmbeddingClassifier) Model() string { return c.modelID }

func (c *EmbeddingClassifier) Load(ctx context.Context) error {
	if c.embedder == nil {
		return unavailable(c.modelID, errors.New("no embedding provider configured"))
	}
	vecs, err := c.embedder.Embed(ctx, []string{"Teste"})
	if err != nil {
		return unavailable(c.modelID, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return unavailable(c.modelID, errors.New("probe returned no embedding"))
	}
	c.ready.Store(true)
	return nil
}

func (c *EmbeddingClassifier) Classify(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if !c.ready.Load() {
		return nil, fmt.Errorf("%w: %s was not loaded", ErrModelUnavailable, c.modelID)
	}
	inputs := make([]string, 0, len(labels)+1)
	inputs = append(inputs, textutil.Truncate(text, c.maxInputChars))
	for _, label := range labels {
		inputs = append(inputs, hypothesis(c.hypothesisTemplate, label))
	}
	vecs, err := c.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, inferenceFailed(c.modelID, err)
	}
	if len(vecs) != len(inputs) {
		return nil, inferenceFailed(c.modelID, fmt.Errorf("got %d embeddings for %d inputs", len(vecs), len(inputs)))
	}
	sims := make([]float64, len(labels))
	for i := range labels {
		sim, err := embed.Cosine(vecs[0], vecs[i+1])
		if err != nil {
			return nil, inferenceFailed(c.modelID, err)
		}
		sims[i] = sim
	}
	return Softmax(labels, sims, c.temperature), nil
}
