package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/notegraph/notegraph/internal/core"
	"github.com/notegraph/notegraph/internal/vault"
)

// ErrNotConfigured is returned when Run is invoked without an extractor.
var ErrNotConfigured = errors.New("extraction pipeline not configured")

// Extractor writes graph facts for one document's text into the store.
// Implementations may fail per document; the orchestrator isolates that.
type Extractor interface {
	Extract(ctx context.Context, text string) error
}

// SourceGraph is the note-side graph surface the orchestrator needs.
type SourceGraph interface {
	UpsertSource(ctx context.Context, doc vault.Document) error
	LinkExtractedToSource(ctx context.Context, title string) error
}

// DocumentSource produces the ordered documents to ingest.
type DocumentSource interface {
	ReadAll() ([]vault.Document, error)
}

// DocumentResult is the settled outcome of one document's task.
type DocumentResult struct {
	Title string
	Path  string
	Err   error
}

// Report summarizes a full ingestion run.
type Report struct {
	Batches      int
	Processed    int
	Succeeded    int
	Failed       int
	FailedTitles []string
	Results      []DocumentResult
}

// Orchestrator drives the batch loop: documents within a batch run
// concurrently, batches run strictly one after another.
type Orchestrator struct {
	Reader    DocumentSource
	Graph     SourceGraph
	Extractor Extractor
	BatchSize int
	Logger    *slog.Logger
}

func NewOrchestrator(reader DocumentSource, graph SourceGraph, extractor Extractor, batchSize int) *Orchestrator {
	return &Orchestrator{
		Reader:    reader,
		Graph:     graph,
		Extractor: extractor,
		BatchSize: batchSize,
		Logger:    slog.Default(),
	}
}

// Run reads the vault and processes every document. Per-document failures
// are collected in the report, never propagated; only fatal setup errors
// (missing vault, missing store, bad batch size) abort the run.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	if o.Graph == nil {
		return Report{}, core.ErrNotConnected
	}
	if o.Extractor == nil {
		return Report{}, ErrNotConfigured
	}
	if o.BatchSize < 1 {
		// Rejected before any file or store access.
		return Report{}, ErrInvalidBatchSize
	}

	batches, err := o.read()
	if err != nil {
		return Report{}, err
	}
	if len(batches) == 0 {
		o.Logger.Info("no documents found, nothing to do")
		return Report{}, nil
	}

	// The pool is both the grouping unit and the concurrency limit: at most
	// BatchSize documents are in flight at once.
	pool, err := ants.NewPool(o.BatchSize)
	if err != nil {
		return Report{}, err
	}
	defer pool.Release()

	report := Report{Batches: len(batches)}
	for i, batch := range batches {
		o.Logger.Info("processing batch",
			"batch", i+1, "batches", len(batches), "documents", len(batch))

		results := o.runBatch(ctx, pool, batch)

		for _, res := range results {
			report.Processed++
			if res.Err != nil {
				report.Failed++
				report.FailedTitles = append(report.FailedTitles, res.Title)
				o.Logger.Error("document failed", "title", res.Title, "error", res.Err)
			} else {
				report.Succeeded++
			}
		}
		report.Results = append(report.Results, results...)

		o.Logger.Info("batch complete",
			"batch", i+1, "batches", len(batches),
			"processed", report.Processed, "failed", report.Failed)
	}

	return report, nil
}

func (o *Orchestrator) read() ([][]vault.Document, error) {
	docs, err := o.Reader.ReadAll()
	if err != nil {
		return nil, err
	}
	o.Logger.Info("vault read", "documents", len(docs))
	return Batch(docs, o.BatchSize)
}

// runBatch fans the batch out on the pool and waits for every task to
// settle. A failing task never cancels its siblings.
func (o *Orchestrator) runBatch(ctx context.Context, pool *ants.Pool, batch []vault.Document) []DocumentResult {
	results := make([]DocumentResult, len(batch))
	var wg sync.WaitGroup

	for i, doc := range batch {
		i, doc := i, doc
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = o.processDocument(ctx, doc)
		}); err != nil {
			wg.Done()
			results[i] = DocumentResult{Title: doc.Title, Path: doc.Path, Err: err}
		}
	}

	wg.Wait()
	return results
}

// processDocument runs one document start to finish: extraction first, so
// linking only ever sees this document's entities already committed.
func (o *Orchestrator) processDocument(ctx context.Context, doc vault.Document) DocumentResult {
	res := DocumentResult{Title: doc.Title, Path: doc.Path}

	if err := o.Extractor.Extract(ctx, doc.Content); err != nil {
		res.Err = err
		return res
	}
	if err := o.Graph.UpsertSource(ctx, doc); err != nil {
		res.Err = err
		return res
	}
	if err := o.Graph.LinkExtractedToSource(ctx, doc.Title); err != nil {
		res.Err = err
		return res
	}
	return res
}
