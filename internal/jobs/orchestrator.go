// Package jobs runs batches of cases as supervised background jobs.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"citizenship-adjudicator/internal/adjudication/casework"
	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/metrics"
	"citizenship-adjudicator/internal/models"
)

const DefaultLogTail = 50

// CaseProcessor adjudicates one raw case ID and persists its row.
type CaseProcessor interface {
	Process(ctx context.Context, rawCaseID string) models.CaseResult
}

// ProcessorFactory binds a processor to the job's logger.
type ProcessorFactory func(log logger.Logger) CaseProcessor

// Reporter writes the consolidated report when a job ends.
type Reporter interface {
	WriteReport(ctx context.Context, path string) (int, error)
}

// Notifier announces terminal jobs.
type Notifier interface {
	Notify(ctx context.Context, n models.JobNotification) error
}

type Config struct {
	LogTail    int
	ReportPath string
}

type Orchestrator struct {
	mu   sync.Mutex
	jobs map[string]*Job
	seq  int64

	config       *Config
	newProcessor ProcessorFactory
	reporter     Reporter
	notifier     Notifier
	logger       logger.Logger
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator. reporter and notifier may be nil.
func NewOrchestrator(config *Config, factory ProcessorFactory, reporter Reporter, notifier Notifier, log logger.Logger) *Orchestrator {
	if config.LogTail <= 0 {
		config.LogTail = DefaultLogTail
	}
	return &Orchestrator{
		jobs:         make(map[string]*Job),
		config:       config,
		newProcessor: factory,
		reporter:     reporter,
		notifier:     notifier,
		logger:       log.WithFields(map[string]interface{}{"component": "jobs"}),
		now:          time.Now,
	}
}

// Enqueue registers a job for the case IDs and starts it in the background.
// Blank entries are dropped; a list with nothing left is rejected.
func (o *Orchestrator) Enqueue(ctx context.Context, caseIDs []string) (string, error) {
	ids := make([]string, 0, len(caseIDs))
	for _, raw := range caseIDs {
		if strings.TrimSpace(raw) != "" {
			ids = append(ids, raw)
		}
	}
	if len(ids) == 0 {
		return "", apperrors.NewInvalidCaseListError("no case ids")
	}

	o.mu.Lock()
	o.seq++
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusStarting,
		Message:   "Iniciando...",
		CaseIDs:   ids,
		StartedAt: o.now().UTC(),
		Summary:   Summary{Total: len(ids), Decisions: map[string]int{}},
		seq:       o.seq,
		done:      make(chan struct{}),
	}
	o.jobs[job.ID] = job
	o.mu.Unlock()

	metrics.JobsActive.Inc()
	o.logger.Info("job enqueued", map[string]interface{}{"jobId": job.ID, "cases": len(ids)})

	go o.run(context.WithoutCancel(ctx), job)
	return job.ID, nil
}

// Status returns a snapshot of the job with the most recent log lines.
func (o *Orchestrator) Status(jobID string) (JobView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return JobView{}, apperrors.NewJobNotFoundError(jobID)
	}
	return job.view(o.config.LogTail), nil
}

// Stop asks the job to end after the case in flight.
func (o *Orchestrator) Stop(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return apperrors.NewJobNotFoundError(jobID)
	}
	if job.Status.Terminal() {
		return nil
	}
	job.StopRequested = true
	if job.Status == StatusRunning {
		job.Status = StatusStopping
	}
	return nil
}

// Log appends a line to the job log. The full log is kept.
func (o *Orchestrator) Log(jobID, level, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[jobID]
	if !ok {
		return apperrors.NewJobNotFoundError(jobID)
	}
	job.Logs = append(job.Logs, LogEntry{Time: o.now().UTC(), Level: level, Message: message})
	return nil
}

// List returns every job, newest first.
func (o *Orchestrator) List() []JobView {
	o.mu.Lock()
	all := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(a, b int) bool { return all[a].seq > all[b].seq })
	views := make([]JobView, 0, len(all))
	for _, j := range all {
		views = append(views, j.view(o.config.LogTail))
	}
	o.mu.Unlock()
	return views
}

// Wait blocks until the job is terminal or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context, jobID string) (JobView, error) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return JobView{}, apperrors.NewJobNotFoundError(jobID)
	}

	select {
	case <-job.done:
		return o.Status(jobID)
	case <-ctx.Done():
		return JobView{}, ctx.Err()
	}
}

// Shutdown requests a stop on every active job and waits for them to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	var pending []string
	for id, j := range o.jobs {
		if !j.Status.Terminal() {
			pending = append(pending, id)
		}
	}
	o.mu.Unlock()

	for _, id := range pending {
		_ = o.Stop(id)
	}
	for _, id := range pending {
		if _, err := o.Wait(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job *Job) {
	jobLog := logger.Tee(
		o.logger.WithFields(map[string]interface{}{"jobId": job.ID}),
		func(level, message string) { _ = o.Log(job.ID, level, message) },
	)

	defer func() {
		if r := recover(); r != nil {
			se := apperrors.Recover(apperrors.ErrCodeJobFailed, r).WithMetadata("jobId", job.ID)
			jobLog.Error("job failed", map[string]interface{}{"error": se.Error()})
			o.finish(ctx, job, StatusError, se.Error(), jobLog)
		}
	}()

	o.update(job, func(j *Job) {
		if j.Status == StatusStarting {
			j.Status = StatusRunning
		}
		if j.StopRequested {
			j.Status = StatusStopping
		}
	})

	proc := o.newProcessor(jobLog)
	ctx = casework.WithJobID(ctx, job.ID)
	total := len(job.CaseIDs)
	jobLog.Info("job started", map[string]interface{}{"cases": total})

	for i, raw := range job.CaseIDs {
		if o.stopRequested(job) {
			jobLog.Warn("stop requested", map[string]interface{}{"processed": i})
			o.finish(ctx, job, StatusStopped, "", jobLog)
			return
		}

		o.update(job, func(j *Job) {
			j.Message = fmt.Sprintf("Processando %d/%d...", i+1, total)
			j.Detail = "Código: " + models.NormalizeCaseID(raw)
		})

		res := proc.Process(ctx, raw)

		o.update(job, func(j *Job) {
			j.Summary.record(res)
			j.Progress = (i + 1) * 100 / total
		})
	}

	o.finish(ctx, job, StatusCompleted, "", jobLog)
}

func (o *Orchestrator) finish(ctx context.Context, job *Job, status Status, errMsg string, log logger.Logger) {
	if o.reporter != nil && o.config.ReportPath != "" {
		n, err := o.reporter.WriteReport(ctx, o.config.ReportPath)
		if err != nil {
			log.Error("failed to write report", map[string]interface{}{"error": err.Error(), "path": o.config.ReportPath})
		} else {
			log.Info("report written", map[string]interface{}{"rows": n, "path": o.config.ReportPath})
		}
	}

	var view JobView
	o.update(job, func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.EndedAt = o.now().UTC()
		switch status {
		case StatusCompleted:
			j.Progress = 100
			j.Message = fmt.Sprintf("Concluído: %d casos processados", j.Summary.Processed)
		case StatusStopped:
			j.Message = fmt.Sprintf("Interrompido: %d de %d casos processados", j.Summary.Processed, j.Summary.Total)
		case StatusError:
			j.Message = "Erro no processamento"
		}
		j.Detail = ""
		view = j.view(o.config.LogTail)
	})

	metrics.JobsActive.Dec()
	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	log.Info("job finished", map[string]interface{}{
		"status":    string(status),
		"processed": view.Summary.Processed,
		"failed":    view.Summary.Failed,
	})

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, view.Notification(o.config.ReportPath)); err != nil {
			log.Warn("failed to send job notification", map[string]interface{}{"error": err.Error()})
		}
	}
	close(job.done)
}

func (o *Orchestrator) update(job *Job, fn func(*Job)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(job)
}

func (o *Orchestrator) stopRequested(job *Job) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return job.StopRequested
}
