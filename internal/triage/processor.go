package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"triagem/internal/dataset"
)

const (
	SummaryColumn = "resumo"
	LabelColumn   = "categoria_llm"
)

// SingleItemProcessor triages one text.
type SingleItemProcessor struct {
	Summaries       *SummarizationService
	Classifications *ClassificationService
}

func (p *SingleItemProcessor) Process(ctx context.Context, text string, labels []string) (Record, error) {
	if strings.TrimSpace(text) == "" {
		return Record{}, &ConfigurationError{Field: "text", Msg: "must not be empty"}
	}
	set, err := NewLabelSet(labels)
	if err != nil {
		return Record{}, err
	}
	return triageOne(ctx, p.Summaries, p.Classifications, text, set)
}

func triageOne(ctx context.Context, summaries *SummarizationService, classifications *ClassificationService, text string, labels LabelSet) (Record, error) {
	summary, err := summaries.Summarize(ctx, text)
	if err != nil {
		return Record{}, err
	}
	classification, err := classifications.Classify(ctx, text, labels)
	if err != nil {
		return Record{}, err
	}
	return Record{Summary: summary, Classification: classification}, nil
}

// RowResult holds either a record or the failure of one row.
type RowResult struct {
	Index  int
	Record Record
	Err    *RowProcessingError
}

func (r RowResult) OK() bool { return r.Err == nil }

// BatchOutcome has exactly one result per input row, in input order.
type BatchOutcome struct {
	Rows []RowResult
}

func (o BatchOutcome) Succeeded() int {
	n := 0
	for _, row := range o.Rows {
		if row.OK() {
			n++
		}
	}
	return n
}

func (o BatchOutcome) Failed() int { return len(o.Rows) - o.Succeeded() }

// Failures returns the failed rows only.
func (o BatchOutcome) Failures() []*RowProcessingError {
	var out []*RowProcessingError
	for _, row := range o.Rows {
		if row.Err != nil {
			out = append(out, row.Err)
		}
	}
	return out
}

// BatchProcessor triages every row of a dataset sequentially. A failing row
// is recorded and never stops the batch.
type BatchProcessor struct {
	Summaries       *SummarizationService
	Classifications *ClassificationService
	Logger          *slog.Logger
}

func (p *BatchProcessor) Run(ctx context.Context, ds dataset.Dataset, textColumn string, labels []string) (dataset.Dataset, BatchOutcome, error) {
	col := ds.ColumnIndex(textColumn)
	if col < 0 {
		return dataset.Dataset{}, BatchOutcome{}, &ConfigurationError{
			Field: "column",
			Msg:   fmt.Sprintf("%q not found, available columns: %s", textColumn, strings.Join(ds.Columns, ", ")),
		}
	}
	set, err := NewLabelSet(labels)
	if err != nil {
		return dataset.Dataset{}, BatchOutcome{}, err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outcome := BatchOutcome{Rows: make([]RowResult, 0, ds.Len())}
	summaries := make([]string, ds.Len())
	categories := make([]string, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		result := p.runRow(ctx, i, ds.Value(i, col), set)
		if result.OK() {
			summaries[i] = result.Record.Summary.Text
			categories[i] = result.Record.Classification.Label
		} else {
			logger.Warn("row failed", "row", i, "err", result.Err.Err)
		}
		outcome.Rows = append(outcome.Rows, result)
	}

	out, err := ds.WithColumn(SummaryColumn, summaries)
	if err != nil {
		return dataset.Dataset{}, outcome, err
	}
	out, err = out.WithColumn(LabelColumn, categories)
	if err != nil {
		return dataset.Dataset{}, outcome, err
	}
	logger.Info("batch finished", "rows", ds.Len(), "succeeded", outcome.Succeeded(), "failed", outcome.Failed())
	return out, outcome, nil
}

func (p *BatchProcessor) runRow(ctx context.Context, index int, text string, labels LabelSet) (result RowResult) {
	result.Index = index
	defer func() {
		if r := recover(); r != nil {
			result.Record = Record{}
			result.Err = &RowProcessingError{Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		result.Err = &RowProcessingError{Index: index, Err: err}
		return result
	}
	if strings.TrimSpace(text) == "" {
		result.Err = &RowProcessingError{Index: index, Err: errEmptyText}
		return result
	}
	record, err := triageOne(ctx, p.Summaries, p.Classifications, text, labels)
	if err != nil {
		result.Err = &RowProcessingError{Index: index, Err: err}
		return result
	}
	result.Record = record
	return result
}
