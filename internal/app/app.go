package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"triagem/internal/config"
	"triagem/internal/dataset"
	"triagem/internal/embed"
	"triagem/internal/heuristic"
	"triagem/internal/llm"
	"triagem/internal/queue"
	"triagem/internal/triage"
)

type App struct {
	Config          config.Config
	Logger          *slog.Logger
	Labels          triage.LabelSet
	Summaries       *triage.SummarizationService
	Classifications *triage.ClassificationService
	Single          *triage.SingleItemProcessor
	Batch           *triage.BatchProcessor
	// Queue is nil when no redis URL is configured.
	Queue *queue.Queue
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	labels, err := triage.NewLabelSet(cfg.Labels.Defaults)
	if err != nil {
		return nil, err
	}

	rules := heuristic.DefaultRules()
	if cfg.Rules.Path != "" {
		custom, err := heuristic.LoadRules(cfg.Rules.Path)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		rules = rules.Merge(custom)
	}
	fallbackSummarizer := heuristic.NewSummarizer(heuristic.SummarizerConfig{
		MaxLength:           cfg.Summary.MaxLength,
		MaxSentences:        cfg.Summary.MaxSentences,
		ShortWordsThreshold: cfg.Summary.ShortWordsThreshold,
	})
	fallbackClassifier := heuristic.NewClassifier(rules, cfg.Labels.Unclassified)

	summaries := triage.NewSummarizationService(
		selectSummarizer(cfg),
		fallbackSummarizer,
		triage.SummaryBounds{MaxLength: cfg.Summary.MaxLength, MinLength: cfg.Summary.MinLength},
		logger,
	)
	classifications := triage.NewClassificationService(selectClassifier(cfg), fallbackClassifier, logger)

	var q *queue.Queue
	if cfg.Redis.URL != "" {
		q, err = queue.New(cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Labels:          labels,
		Summaries:       summaries,
		Classifications: classifications,
		Single:          &triage.SingleItemProcessor{Summaries: summaries, Classifications: classifications},
		Batch:           &triage.BatchProcessor{Summaries: summaries, Classifications: classifications, Logger: logger},
		Queue:           q,
	}, nil
}

func (a *App) Close() error {
	if a.Queue != nil {
		return a.Queue.Close()
	}
	return nil
}

// ParseLabels resolves user labels against the configured defaults.
func (a *App) ParseLabels(input string) (triage.LabelSet, error) {
	return triage.ParseLabels(input, a.Labels)
}

type BatchRequest struct {
	Input      string
	Output     string
	TextColumn string
	Labels     string
	Separator  string
}

type BatchReport struct {
	Output  string
	Rows    int
	Outcome triage.BatchOutcome
	Preview dataset.Dataset
}

// ProcessFile triages a CSV file and writes the result. An empty Output
// picks a fresh file under the configured output directory.
func (a *App) ProcessFile(ctx context.Context, req BatchRequest) (BatchReport, error) {
	sepText := req.Separator
	if sepText == "" {
		sepText = a.Config.Batch.Separator
	}
	sep, err := dataset.ParseSeparator(sepText)
	if err != nil {
		return BatchReport{}, &triage.ConfigurationError{Field: "separator", Msg: err.Error()}
	}
	column := req.TextColumn
	if column == "" {
		column = a.Config.Batch.TextColumn
	}
	labels, err := a.ParseLabels(req.Labels)
	if err != nil {
		return BatchReport{}, err
	}

	in, err := dataset.ReadFile(req.Input, sep)
	if err != nil {
		return BatchReport{}, err
	}
	out, outcome, err := a.Batch.Run(ctx, in, column, labels)
	if err != nil {
		return BatchReport{}, err
	}

	output := req.Output
	if output == "" {
		output, err = dataset.OutputPath(a.Config.Batch.OutputDir)
		if err != nil {
			return BatchReport{}, err
		}
	}
	if err := dataset.WriteFile(output, out, sep); err != nil {
		return BatchReport{}, err
	}
	return BatchReport{
		Output:  output,
		Rows:    out.Len(),
		Outcome: outcome,
		Preview: out.Preview(a.Config.Batch.PreviewRows),
	}, nil
}

// Enqueue hands a batch to the worker.
func (a *App) Enqueue(ctx context.Context, req BatchRequest) (queue.Job, error) {
	if a.Queue == nil {
		return queue.Job{}, errors.New("redis.url is not configured")
	}
	job := queue.Job{
		Input:      req.Input,
		Output:     req.Output,
		TextColumn: req.TextColumn,
		Separator:  req.Separator,
	}
	// The worker may run from another directory.
	for _, path := range []*string{&job.Input, &job.Output} {
		if *path == "" {
			continue
		}
		if abs, err := filepath.Abs(*path); err == nil {
			*path = abs
		}
	}
	if strings.TrimSpace(req.Labels) != "" {
		labels, err := a.ParseLabels(req.Labels)
		if err != nil {
			return queue.Job{}, err
		}
		job.Labels = labels
	}
	return a.Queue.Push(ctx, job)
}

// RunWorker pops batch jobs until ctx is done. A failing job is logged and
// the worker moves on.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Queue == nil {
		return errors.New("redis.url is not configured")
	}
	a.Logger.Info("worker started")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		job, err := a.Queue.Pop(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			a.Logger.Warn("queue pop failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		a.runJob(ctx, job)
	}
}

func (a *App) runJob(ctx context.Context, job queue.Job) {
	logger := a.Logger.With("job_id", job.ID, "input", job.Input)
	report, err := a.ProcessFile(ctx, BatchRequest{
		Input:      job.Input,
		Output:     job.Output,
		TextColumn: job.TextColumn,
		Labels:     strings.Join(job.Labels, ","),
		Separator:  job.Separator,
	})
	if err != nil {
		logger.Error("batch job failed", "err", err)
		return
	}
	logger.Info("batch job done", "output", report.Output, "rows", report.Rows, "failed", report.Outcome.Failed())
}

func selectSummarizer(cfg config.Config) llm.Summarizer {
	if !cfg.Models.Enabled {
		return nil
	}
	ep := cfg.Models.Summarizer
	opts := modelOptions(cfg, ep)
	switch strings.ToLower(ep.Provider) {
	case "huggingface", "hf":
		return llm.NewHFSummarizer(opts, cfg.Summary.MaxSentences)
	case "ollama":
		return llm.NewOllamaSummarizer(opts, cfg.Summary.MaxSentences)
	case "", "none", "disabled":
		return nil
	}
	return llm.NewDisabled(fmt.Sprintf("unknown summarizer provider %q", ep.Provider))
}

func selectClassifier(cfg config.Config) llm.Classifier {
	if !cfg.Models.Enabled {
		return nil
	}
	cc := cfg.Models.Classifier
	opts := modelOptions(cfg, cc.ModelEndpoint)
	switch strings.ToLower(cc.Provider) {
	case "huggingface", "hf":
		return llm.NewHFZeroShot(opts, cc.HypothesisTemplate)
	case "ollama":
		return llm.NewOllamaClassifier(opts)
	case "embedding":
		embedder := embed.NewOllama(cc.BaseURL, cc.EmbedModel, cfg.Models.Timeout)
		return llm.NewEmbeddingClassifier(embedder, cc.EmbedModel, cc.HypothesisTemplate, cfg.Models.MaxInputChars)
	case "", "none", "disabled":
		return nil
	}
	return llm.NewDisabled(fmt.Sprintf("unknown classifier provider %q", cc.Provider))
}

func modelOptions(cfg config.Config, ep config.ModelEndpoint) llm.Options {
	return llm.Options{
		BaseURL:       ep.BaseURL,
		ModelID:       ep.Model,
		APIKey:        ep.APIKey,
		Timeout:       cfg.Models.Timeout,
		MaxInputChars: cfg.Models.MaxInputChars,
	}
}
