package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"triagem/internal/dataset"
)

func heuristicServices() (*SummarizationService, *ClassificationService) {
	return NewSummarizationService(nil, newHeuristicSummarizer(), SummaryBounds{}, discardLogger()),
		NewClassificationService(nil, newHeuristicClassifier(), discardLogger())
}

func TestSingleItemProcessorExample(t *testing.T) {
	sums, classes := heuristicServices()
	p := &SingleItemProcessor{Summaries: sums, Classifications: classes}

	text := "Meu sistema caiu e não consigo acessar o financeiro, preciso de suporte urgente"
	got, err := p.Process(context.Background(), text, defaultLabels)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Classification.Label != "Suporte técnico" || got.Classification.Source != SourceHeuristic {
		t.Fatalf("unexpected classification %+v", got.Classification)
	}
	if got.Summary.Text == "" || len([]rune(got.Summary.Text)) > 280 || got.Summary.Source != SourceHeuristic {
		t.Fatalf("unexpected summary %+v", got.Summary)
	}
}

func TestSingleItemProcessorRejectsEmptyText(t *testing.T) {
	sm := &fakeSummarizer{output: "x"}
	cm := &fakeClassifier{scores: lastLabelWins}
	p := &SingleItemProcessor{
		Summaries:       NewSummarizationService(sm, newHeuristicSummarizer(), SummaryBounds{}, discardLogger()),
		Classifications: NewClassificationService(cm, newHeuristicClassifier(), discardLogger()),
	}
	_, err := p.Process(context.Background(), "", defaultLabels)
	if !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if _, err := p.Process(context.Background(), "texto", nil); !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError for empty labels, got %v", err)
	}
	if sm.loads.Load()+sm.calls.Load()+cm.loads.Load()+cm.calls.Load() != 0 {
		t.Fatalf("no service should be invoked")
	}
}

func ticketDataset() dataset.Dataset {
	return dataset.Dataset{
		Columns: []string{"id", "descricao"},
		Rows: [][]string{
			{"1", "Meu sistema caiu, preciso de suporte"},
			{"2", "Como faço para emitir a segunda via?"},
			{"3", "   "},
			{"4", "Gostei do atendimento, parabéns"},
			{"5"},
		},
	}
}

func TestBatchProcessorIsolatesFailedRows(t *testing.T) {
	sums, classes := heuristicServices()
	p := &BatchProcessor{Summaries: sums, Classifications: classes, Logger: discardLogger()}

	out, outcome, err := p.Run(context.Background(), ticketDataset(), "descricao", defaultLabels)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 5 || len(outcome.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d / %d", out.Len(), len(outcome.Rows))
	}
	if strings.Join(out.Columns, ",") != "id,descricao,resumo,categoria_llm" {
		t.Fatalf("unexpected columns %q", out.Columns)
	}
	for i, row := range outcome.Rows {
		if row.Index != i {
			t.Fatalf("row %d has index %d", i, row.Index)
		}
		if out.Value(i, 0) != ticketDataset().Value(i, 0) {
			t.Fatalf("row order changed at %d", i)
		}
	}
	if outcome.Rows[2].OK() || outcome.Rows[4].OK() {
		t.Fatalf("rows with empty text must fail")
	}
	if outcome.Rows[2].Err.Index != 2 || !errors.Is(outcome.Rows[2].Err, errEmptyText) {
		t.Fatalf("unexpected failure %+v", outcome.Rows[2].Err)
	}
	if outcome.Succeeded() != 3 || outcome.Failed() != 2 || len(outcome.Failures()) != 2 {
		t.Fatalf("unexpected counts: %d ok, %d failed", outcome.Succeeded(), outcome.Failed())
	}
	if out.Value(0, 3) != "Suporte técnico" || out.Value(1, 3) != "Dúvida" || out.Value(3, 3) != "Feedback" {
		t.Fatalf("unexpected labels %q", out.Rows)
	}
	if out.Value(2, 2) != "" || out.Value(2, 3) != "" {
		t.Fatalf("failed row should have empty output cells")
	}
	if out.Value(0, 2) == "" {
		t.Fatalf("successful row should have a summary")
	}
}

func TestBatchProcessorRecoversPanics(t *testing.T) {
	sm := &fakeSummarizer{output: "Resumo do modelo.", panicText: "Como faço para emitir a segunda via?"}
	p := &BatchProcessor{
		Summaries:       NewSummarizationService(sm, newHeuristicSummarizer(), SummaryBounds{MaxLength: 280}, discardLogger()),
		Classifications: NewClassificationService(nil, newHeuristicClassifier(), discardLogger()),
		Logger:          discardLogger(),
	}
	out, outcome, err := p.Run(context.Background(), ticketDataset(), "descricao", defaultLabels)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 5 || outcome.Rows[1].OK() {
		t.Fatalf("expected row 1 to fail, got %+v", outcome.Rows[1])
	}
	if !strings.Contains(outcome.Rows[1].Err.Error(), "panic") {
		t.Fatalf("unexpected error %v", outcome.Rows[1].Err)
	}
	if !outcome.Rows[3].OK() || outcome.Rows[3].Record.Summary.Source != SourceModel {
		t.Fatalf("rows after the panic must still be processed: %+v", outcome.Rows[3])
	}
}

func TestBatchProcessorMissingColumn(t *testing.T) {
	sm := &fakeSummarizer{output: "x"}
	p := &BatchProcessor{
		Summaries:       NewSummarizationService(sm, newHeuristicSummarizer(), SummaryBounds{}, discardLogger()),
		Classifications: NewClassificationService(nil, newHeuristicClassifier(), discardLogger()),
	}
	_, _, err := p.Run(context.Background(), ticketDataset(), "texto", defaultLabels)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "column" {
		t.Fatalf("expected column ConfigurationError, got %v", err)
	}
	if sm.loads.Load() != 0 {
		t.Fatalf("no row should be processed")
	}
}

func TestBatchProcessorOverwritesExistingOutputColumns(t *testing.T) {
	sums, classes := heuristicServices()
	p := &BatchProcessor{Summaries: sums, Classifications: classes, Logger: discardLogger()}
	ds := dataset.Dataset{
		Columns: []string{"descricao", "resumo", "categoria_llm"},
		Rows:    [][]string{{"Sistema caiu", "antigo", "antiga"}},
	}
	out, _, err := p.Run(context.Background(), ds, "descricao", defaultLabels)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.Columns) != 3 || out.Value(0, 2) != "Suporte técnico" || out.Value(0, 1) == "antigo" {
		t.Fatalf("unexpected output %q / %q", out.Columns, out.Rows)
	}
}

func TestBatchProcessorCanceledContext(t *testing.T) {
	sums, classes := heuristicServices()
	p := &BatchProcessor{Summaries: sums, Classifications: classes, Logger: discardLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, outcome, err := p.Run(ctx, ticketDataset(), "descricao", defaultLabels)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 5 || outcome.Failed() != 5 {
		t.Fatalf("expected every row marked failed, got %d failed", outcome.Failed())
	}
	if !errors.Is(outcome.Rows[0].Err, context.Canceled) {
		t.Fatalf("unexpected error %v", outcome.Rows[0].Err)
	}
}
