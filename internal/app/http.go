package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"triagem/internal/dataset"
	"triagem/internal/triage"
)

const maxBatchBody = 32 << 20

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", a.handleReady)
	mux.HandleFunc("/v1/labels", a.handleLabels)
	mux.HandleFunc("/v1/triage", a.handleTriage)
	mux.HandleFunc("/v1/batch", a.handleBatch)
	return a.withRequestID(mux)
}

func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		a.Logger.Debug("http request", "request_id", id, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"summarizer": a.Summaries.State().String(),
		"classifier": a.Classifications.State().String(),
	}
	if a.Queue != nil {
		if err := a.Queue.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["redis"] = err.Error()
		} else {
			body["redis"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

func (a *App) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": a.Labels})
}

type triageRequest struct {
	Text   string `json:"text"`
	Labels any    `json:"labels"`
}

type triageResponse struct {
	Summary       string             `json:"summary"`
	SummarySource triage.Source      `json:"summary_source"`
	Label         string             `json:"label"`
	LabelSource   triage.Source      `json:"label_source"`
	Scores        map[string]float64 `json:"scores"`
}

func (a *App) handleTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	labels, err := a.requestLabels(req.Labels)
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := a.Single.Process(r.Context(), req.Text, labels)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, triageResponse{
		Summary:       record.Summary.Text,
		SummarySource: record.Summary.Source,
		Label:         record.Classification.Label,
		LabelSource:   record.Classification.Source,
		Scores:        record.Classification.Scores,
	})
}

// requestLabels accepts labels as "A, B; C" or as a JSON list. Missing or
// empty labels mean the defaults.
func (a *App) requestLabels(v any) (triage.LabelSet, error) {
	switch labels := v.(type) {
	case nil:
		return a.Labels, nil
	case string:
		return a.ParseLabels(labels)
	case []any:
		parts := make([]string, 0, len(labels))
		for _, item := range labels {
			s, ok := item.(string)
			if !ok {
				return nil, &triage.ConfigurationError{Field: "labels", Msg: "labels must be strings"}
			}
			parts = append(parts, s)
		}
		if set, err := triage.NewLabelSet(parts); err == nil {
			return set, nil
		}
		return a.Labels, nil
	default:
		return nil, &triage.ConfigurationError{Field: "labels", Msg: "must be a string or a list of strings"}
	}
}

func (a *App) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	sepText := q.Get("sep")
	if sepText == "" {
		sepText = a.Config.Batch.Separator
	}
	sep, err := dataset.ParseSeparator(sepText)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	column := q.Get("column")
	if column == "" {
		column = a.Config.Batch.TextColumn
	}
	labels, err := a.ParseLabels(q.Get("labels"))
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := dataset.Read(http.MaxBytesReader(w, r.Body, maxBatchBody), sep)
	if err != nil {
		http.Error(w, "invalid csv: "+err.Error(), http.StatusBadRequest)
		return
	}
	out, outcome, err := a.Batch.Run(r.Context(), in, column, labels)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tickets_processados.csv"`)
	w.Header().Set("X-Triagem-Rows", strconv.Itoa(out.Len()))
	w.Header().Set("X-Triagem-Failed-Rows", strconv.Itoa(outcome.Failed()))
	if failures := outcome.Failures(); len(failures) > 0 {
		// Zero-based data row indexes; reasons stay in the logs.
		indexes := make([]string, len(failures))
		for i, f := range failures {
			indexes[i] = strconv.Itoa(f.Index)
		}
		w.Header().Set("X-Triagem-Failed-Row-Indexes", strings.Join(indexes, ","))
	}
	w.WriteHeader(http.StatusOK)
	if err := dataset.Write(w, out, sep); err != nil {
		a.Logger.Warn("write batch response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if triage.IsConfigurationError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
