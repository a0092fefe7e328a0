package triage

import (
	"errors"
	"fmt"
)

// Source tags which strategy produced a result.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
)

type SummaryResult struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

type ClassificationResult struct {
	Label  string             `json:"label"`
	Scores map[string]float64 `json:"scores"`
	Source Source             `json:"source"`
}

type Record struct {
	Summary        SummaryResult        `json:"summary"`
	Classification ClassificationResult `json:"classification"`
}

// ConfigurationError reports invalid caller input. It is never absorbed by a
// fallback.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// RowProcessingError isolates the failure of one batch row.
type RowProcessingError struct {
	Index int
	Err   error
}

func (e *RowProcessingError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowProcessingError) Unwrap() error { return e.Err }

var errEmptyText = errors.New("text column is empty")

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
