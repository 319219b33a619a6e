package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/filter"
	"github.com/dgallion1/freelink/internal/pathstore"
)

type fakeRenderer struct {
	err   error
	block chan struct{}
}

func (r *fakeRenderer) Document(ctx context.Context, rd io.Reader, filename, langcode string) (*filter.DocumentResult, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	data, _ := io.ReadAll(rd)
	return &filter.DocumentResult{
		Title:       strings.TrimSuffix(filename, ".txt"),
		HTML:        "<p>" + string(data) + "</p>",
		Occurrences: 2,
		Errors:      []string{"nid: Node 9 not found"},
	}, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	puts map[string]pathstore.PutRequest
}

func (p *fakePublisher) Put(_ context.Context, key string, req pathstore.PutRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.puts == nil {
		p.puts = make(map[string]pathstore.PutRequest)
	}
	p.puts[key] = req
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_CompletedWithoutPublisher(t *testing.T) {
	w := NewWorker(&fakeRenderer{}, nil, "", nil, discard())
	job := NewJob("doc.txt", "en", []byte("body"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.HTML != "<p>body</p>" {
		t.Errorf("unexpected html %q", snap.HTML)
	}
	if snap.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", snap.Title)
	}
	if snap.Progress.Occurrences != 2 || len(snap.Progress.Errors) != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if job.FileData() != nil {
		t.Error("expected file data released after render")
	}
}

func TestWorker_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	w := NewWorker(&fakeRenderer{}, pub, "site/rendered", nil, discard())
	job := NewJob("doc.txt", "en", []byte("body"))
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", job.Snapshot().Status)
	}
	req, ok := pub.puts["site/rendered/"+job.ContentHash]
	if !ok {
		t.Fatalf("expected publish under content hash, got %v", pub.puts)
	}
	value := req.Value.(map[string]any)
	if value["html"] != "<p>body</p>" {
		t.Errorf("unexpected published html %v", value["html"])
	}
	if req.Source != "freelink:"+job.ID {
		t.Errorf("unexpected source %q", req.Source)
	}
}

func TestWorker_PublishFailureIsPartial(t *testing.T) {
	pub := &fakePublisher{err: errors.New("boom")}
	w := NewWorker(&fakeRenderer{}, pub, "", nil, discard())
	job := NewJob("doc.txt", "en", []byte("body"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected status %q, got %q", StatusPartial, snap.Status)
	}
	if snap.HTML == "" {
		t.Error("expected rendered html to be kept")
	}
	last := snap.Progress.Errors[len(snap.Progress.Errors)-1]
	if !strings.HasPrefix(last, "publish: ") {
		t.Errorf("expected publish error, got %q", last)
	}
}

func TestWorker_RenderFailure(t *testing.T) {
	w := NewWorker(&fakeRenderer{err: errors.New("unsupported file extension")}, nil, "", nil, discard())
	job := NewJob("doc.exe", "", []byte("x"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "rendering" {
		t.Errorf("expected failed in rendering, got %q/%q", snap.Status, snap.Phase)
	}
}

func testConfig(workers, queue int) config.Config {
	return config.Config{WorkerCount: workers, MaxQueueSize: queue, JobTTL: time.Hour}
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := job.Snapshot(); snap.Status.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	o := NewOrchestrator(testConfig(2, 10), &fakeRenderer{}, nil, nil, discard())
	o.Start(context.Background())
	defer o.Stop()

	var jobs []*Job
	for range 5 {
		job := NewJob("doc.txt", "en", []byte("body"))
		if err := o.Submit(job); err != nil {
			t.Fatalf("submit: %v", err)
		}
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		if snap := waitDone(t, job); snap.Status != StatusCompleted {
			t.Errorf("expected completed, got %q", snap.Status)
		}
		if o.GetJob(job.ID) != job {
			t.Errorf("expected job %s to be tracked", job.ID)
		}
	}
	if o.JobCount() != 5 {
		t.Errorf("expected 5 tracked jobs, got %d", o.JobCount())
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	block := make(chan struct{})
	o := NewOrchestrator(testConfig(1, 1), &fakeRenderer{block: block}, nil, nil, discard())
	// Workers are not started, so the queue only drains on Start.
	if err := o.Submit(NewJob("a.txt", "", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	full := NewJob("b.txt", "", nil)
	if err := o.Submit(full); err == nil {
		t.Fatal("expected queue full error")
	}
	if full.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", full.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	close(block)
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := NewOrchestrator(testConfig(1, 1), &fakeRenderer{}, nil, nil, discard())
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	if err := o.Submit(NewJob("a.txt", "", nil)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Hour, 15 * time.Minute},
		{2 * time.Minute, time.Minute},
		{0, time.Minute},
	}
	for _, tt := range tests {
		if got := cleanupInterval(tt.ttl); got != tt.want {
			t.Errorf("cleanupInterval(%v): expected %v, got %v", tt.ttl, tt.want, got)
		}
	}
}
