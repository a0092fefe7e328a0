package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"triagem/internal/app"
	"triagem/internal/config"
	"triagem/internal/dataset"
	"triagem/internal/triage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("TRIAGEM_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "classify":
		classify(ctx, cfg, os.Args[2:])
	case "batch":
		batch(ctx, cfg, os.Args[2:])
	case "enqueue":
		enqueue(ctx, cfg, os.Args[2:])
	case "doctor":
		doctor(cfg)
	default:
		usage()
	}
}

func newApp(cfg config.Config) *app.App {
	a, err := app.New(cfg, config.NewLogger(cfg, os.Stderr))
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	return a
}

func classify(ctx context.Context, cfg config.Config, args []string) {
	flags := flag.NewFlagSet("classify", flag.ExitOnError)
	labels := flags.String("labels", "", "labels separated by , or ;")
	asJSON := flags.Bool("json", false, "print the record as JSON")
	_ = flags.Parse(args)

	a := newApp(cfg)
	defer a.Close()

	set, err := a.ParseLabels(*labels)
	if err != nil {
		log.Fatalf("labels: %v", err)
	}
	record, err := a.Single.Process(ctx, strings.Join(flags.Args(), " "), set)
	if err != nil {
		log.Fatalf("classify: %v", err)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(record)
		return
	}
	fmt.Printf("resumo (%s): %s\n", record.Summary.Source, record.Summary.Text)
	fmt.Printf("categoria (%s): %s\n", record.Classification.Source, record.Classification.Label)
	for _, label := range set {
		fmt.Printf("  %-24s %.3f\n", label, record.Classification.Scores[label])
	}
}

func batch(ctx context.Context, cfg config.Config, args []string) {
	flags := flag.NewFlagSet("batch", flag.ExitOnError)
	column := flags.String("column", cfg.Batch.TextColumn, "column holding the ticket text")
	labels := flags.String("labels", "", "labels separated by , or ;")
	sep := flags.String("sep", cfg.Batch.Separator, "csv separator")
	_ = flags.Parse(args)
	if flags.NArg() < 1 {
		log.Fatalf("usage: triagem batch [flags] <in.csv> [out.csv]")
	}

	a := newApp(cfg)
	defer a.Close()

	report, err := a.ProcessFile(ctx, app.BatchRequest{
		Input:      flags.Arg(0),
		Output:     flags.Arg(1),
		TextColumn: *column,
		Labels:     *labels,
		Separator:  *sep,
	})
	if err != nil {
		log.Fatalf("batch: %v", err)
	}
	printPreview(report.Preview)
	for _, failure := range report.Outcome.Failures() {
		fmt.Printf("row %d: FAIL (%v)\n", failure.Index, failure.Err)
	}
	fmt.Printf("%d rows, %d failed, written to %s\n", report.Rows, report.Outcome.Failed(), report.Output)
}

func enqueue(ctx context.Context, cfg config.Config, args []string) {
	flags := flag.NewFlagSet("enqueue", flag.ExitOnError)
	column := flags.String("column", "", "column holding the ticket text")
	labels := flags.String("labels", "", "labels separated by , or ;")
	sep := flags.String("sep", "", "csv separator")
	_ = flags.Parse(args)
	if flags.NArg() < 2 {
		log.Fatalf("usage: triagem enqueue [flags] <in.csv> <out.csv>")
	}

	a := newApp(cfg)
	defer a.Close()

	job, err := a.Enqueue(ctx, app.BatchRequest{
		Input:      flags.Arg(0),
		Output:     flags.Arg(1),
		TextColumn: *column,
		Labels:     *labels,
		Separator:  *sep,
	})
	if err != nil {
		log.Fatalf("enqueue: %v", err)
	}
	fmt.Printf("queued job %s\n", job.ID)
}

func doctor(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Models.Timeout+5*time.Second)
	defer cancel()

	a := newApp(cfg)
	defer a.Close()

	checks := []struct {
		Name string
		Fn   func() error
	}{
		{"summarizer", func() error { return stateErr(a.Summaries.Probe(ctx)) }},
		{"classifier", func() error { return stateErr(a.Classifications.Probe(ctx)) }},
		{"redis", func() error {
			if a.Queue == nil {
				return fmt.Errorf("not configured")
			}
			return a.Queue.Ping(ctx)
		}},
	}
	for _, check := range checks {
		if err := check.Fn(); err != nil {
			fmt.Printf("%s: FAIL (%v)\n", check.Name, err)
			continue
		}
		fmt.Printf("%s: OK\n", check.Name)
	}
}

func stateErr(state triage.State) error {
	if state != triage.StateReady {
		return fmt.Errorf("%s, heuristics will be used", state)
	}
	return nil
}

func printPreview(ds dataset.Dataset) {
	if ds.Len() == 0 {
		return
	}
	fmt.Println(strings.Join(ds.Columns, " | "))
	for i := 0; i < ds.Len(); i++ {
		cells := make([]string, len(ds.Columns))
		for j := range ds.Columns {
			cells[j] = ds.Value(i, j)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
}

func usage() {
	fmt.Println("Usage: triagem <classify|batch|enqueue|doctor>")
	fmt.Println("Default labels: " + strings.Join(config.DefaultLabels, ", "))
}
