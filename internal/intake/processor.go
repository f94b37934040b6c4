package intake

import (
	"context"
	"os"
	"time"

	"github.com/luckystars0612/SecGram/internal/archive"
	"github.com/luckystars0612/SecGram/internal/observability"
	"github.com/luckystars0612/SecGram/internal/repository"
	"github.com/luckystars0612/SecGram/internal/taskqueue"
)

// Extractor unpacks one archive beneath an output root
type Extractor interface {
	Extract(ctx context.Context, archivePath, outputRoot string) error
}

// Processor executes a single job to completion: stat the source, classify
// it, dispatch to extraction or relocation, log and record the outcome.
// Every error is local to the job; nothing propagates to the caller.
type Processor struct {
	extractor  Extractor
	store      repository.Store // nil when persistence is disabled
	outputRoot string
	logger     observability.Logger
	metrics    observability.Metrics
}

// NewProcessor creates a Processor. store may be nil.
func NewProcessor(extractor Extractor, store repository.Store, outputRoot string,
	logger observability.Logger, metrics observability.Metrics) *Processor {
	return &Processor{
		extractor:  extractor,
		store:      store,
		outputRoot: outputRoot,
		logger:     logger.WithFields(map[string]interface{}{"component": "processor"}),
		metrics:    metrics,
	}
}

// Process handles one job. It never returns an error: per-job failures are
// logged and recorded so the worker immediately moves on to the next job.
func (p *Processor) Process(ctx context.Context, job taskqueue.Job) {
	startTime := time.Now()
	logger := p.logger.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"path":   job.SourcePath,
	})

	logger.Info("processing file")

	if _, err := os.Stat(job.SourcePath); err != nil {
		logger.Error("source file does not exist", "error", err)
		p.finish(job, repository.KindUnknown, err, startTime)
		return
	}

	if archive.IsArchive(job.SourcePath) {
		logger.Info("file is an archive, starting extraction")
		err := p.extractor.Extract(ctx, job.SourcePath, p.outputRoot)
		if err != nil {
			logger.Error("extraction failed", "error", err)
		} else {
			logger.Info("extraction completed", "output_root", p.outputRoot)
		}
		p.finish(job, repository.KindArchive, err, startTime)
		return
	}

	logger.Warn("file is not an archive, relocating")
	err := Relocate(job.SourcePath, p.outputRoot)
	if err != nil {
		logger.Error("relocation failed", "error", err)
	} else {
		logger.Info("relocated file", "output_root", p.outputRoot)
	}
	p.finish(job, repository.KindFile, err, startTime)
}

// finish records metrics and the optional database outcome for one attempt
func (p *Processor) finish(job taskqueue.Job, kind repository.Kind, jobErr error, startTime time.Time) {
	status := repository.StatusDone
	detail := ""
	if jobErr != nil {
		status = repository.StatusFailed
		detail = jobErr.Error()
	}

	tags := map[string]string{"kind": string(kind), "status": string(status)}
	p.metrics.IncrementCounter("jobs.processed", tags)
	p.metrics.RecordHistogram("jobs.duration_seconds", time.Since(startTime).Seconds(), tags)

	if p.store == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := repository.JobRecord{
		ID:          job.ID,
		SourcePath:  job.SourcePath,
		Kind:        kind,
		Status:      status,
		Detail:      detail,
		ProcessedAt: time.Now().UTC(),
	}
	if err := p.store.SaveOutcome(saveCtx, rec); err != nil {
		// The record is advisory; the job outcome stands either way.
		p.logger.Error("failed to persist job outcome", "error", err, "job_id", job.ID)
	}
}
