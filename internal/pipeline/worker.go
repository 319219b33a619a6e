package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/freelink/internal/filter"
	"github.com/dgallion1/freelink/internal/metrics"
	"github.com/dgallion1/freelink/internal/pathstore"
)

// DefaultPublishPrefix is the pathstore prefix rendered documents are
// written under.
const DefaultPublishPrefix = "freelink/rendered"

// Renderer converts and freelinks one document.
type Renderer interface {
	Document(ctx context.Context, r io.Reader, filename, langcode string) (*filter.DocumentResult, error)
}

// Publisher stores rendered documents. *pathstore.Client satisfies it.
type Publisher interface {
	Put(ctx context.Context, key string, req pathstore.PutRequest) error
}

// Worker processes a single document job.
type Worker struct {
	renderer  Renderer
	publisher Publisher
	prefix    string
	metrics   *metrics.Recorder
	log       *slog.Logger
}

// NewWorker creates a worker. A nil publisher skips publishing.
func NewWorker(renderer Renderer, pub Publisher, prefix string, rec *metrics.Recorder, log *slog.Logger) *Worker {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Worker{
		renderer:  renderer,
		publisher: pub,
		prefix:    prefix,
		metrics:   rec,
		log:       log,
	}
}

// Process renders a job and publishes the result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	status := w.process(ctx, job, log)
	w.metrics.IncJob(string(status))
}

func (w *Worker) process(ctx context.Context, job *Job, log *slog.Logger) JobStatus {
	// Phase 1: Render
	job.SetStatus(StatusRendering, "rendering")
	start := time.Now()
	res, err := w.renderer.Document(ctx, bytes.NewReader(job.FileData()), job.Filename, job.Langcode)
	job.releaseFileData()
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
		job.SetStatus(StatusFailed, "rendering")
		return StatusFailed
	}
	for _, e := range res.Errors {
		job.AddError(e)
	}
	job.SetResult(res.Title, res.HTML, res.Occurrences)
	log.Info("rendered document",
		"occurrences", res.Occurrences,
		"errors", len(res.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if w.publisher == nil {
		job.SetStatus(StatusCompleted, "done")
		return StatusCompleted
	}

	// Phase 2: Publish
	job.SetStatus(StatusPublishing, "publishing")
	key := fmt.Sprintf("%s/%s", w.prefix, job.ContentHash)
	err = w.publisher.Put(ctx, key, pathstore.PutRequest{
		Value: map[string]any{
			"job_id":      job.ID,
			"filename":    job.Filename,
			"title":       res.Title,
			"langcode":    job.Langcode,
			"html":        res.HTML,
			"occurrences": res.Occurrences,
			"created_at":  job.CreatedAt.Format(time.RFC3339),
		},
		Source: "freelink:" + job.ID,
	})
	if err != nil {
		// The render itself succeeded; keep its output.
		log.Error("publish failed", "key", key, "error", err)
		job.AddError(fmt.Sprintf("publish: %s", err))
		job.SetStatus(StatusPartial, "done")
		return StatusPartial
	}

	job.SetStatus(StatusCompleted, "done")
	return StatusCompleted
}
