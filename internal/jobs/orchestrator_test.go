package jobs

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/models"
)

// ==========================
// Test helpers
// ==========================

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	started chan string
	release chan struct{}
	panicOn string
	log     logger.Logger
}

func (f *fakeProcessor) Process(_ context.Context, raw string) models.CaseResult {
	if f.started != nil {
		f.started <- raw
	}
	if f.release != nil {
		<-f.release
	}
	if raw == f.panicOn {
		panic("boom")
	}

	f.mu.Lock()
	f.seen = append(f.seen, raw)
	f.mu.Unlock()

	f.log.Info("case processed", map[string]interface{}{"case": raw})
	return models.CaseResult{
		CaseID:    models.NormalizeCaseID(raw),
		Status:    models.CaseStatusOK,
		Persisted: true,
		Decision:  models.Decision{Kind: models.DecisionDeferred, Completeness: 100},
	}
}

func (f *fakeProcessor) factory() ProcessorFactory {
	return func(log logger.Logger) CaseProcessor {
		f.log = log
		return f
	}
}

type fakeReporter struct {
	mu    sync.Mutex
	paths []string
}

func (r *fakeReporter) WriteReport(_ context.Context, path string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return 1, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.JobNotification
}

func (n *fakeNotifier) Notify(_ context.Context, msg models.JobNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func setupOrchestrator(t *testing.T, proc *fakeProcessor, cfg *Config) (*Orchestrator, *fakeReporter, *fakeNotifier) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{ReportPath: "report.csv"}
	}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}
	o := NewOrchestrator(cfg, proc.factory(), reporter, notifier, logger.NewTestLogger(t))
	return o, reporter, notifier
}

func waitJob(t *testing.T, o *Orchestrator, id string) JobView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	view, err := o.Wait(ctx, id)
	require.NoError(t, err)
	return view
}

// ==========================
// Enqueue
// ==========================

func TestEnqueue_RejectsEmptyList(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, nil)

	for _, ids := range [][]string{nil, {}, {"  ", ""}} {
		_, err := o.Enqueue(context.Background(), ids)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidCaseList, apperrors.CodeOf(err))
	}
	assert.Empty(t, o.List())
}

func TestEnqueue_RunsToCompletion(t *testing.T) {
	proc := &fakeProcessor{}
	o, reporter, notifier := setupOrchestrator(t, proc, nil)

	id, err := o.Enqueue(context.Background(), []string{"1.001", "", "1002", "1003"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	view := waitJob(t, o, id)
	assert.Equal(t, StatusCompleted, view.Status)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, "Concluído: 3 casos processados", view.Message)
	assert.Equal(t, 3, view.Summary.Total)
	assert.Equal(t, 3, view.Summary.Processed)
	assert.Equal(t, 3, view.Summary.Succeeded)
	assert.Equal(t, 3, view.Summary.Decisions[string(models.DecisionDeferred)])
	assert.NotNil(t, view.EndedAt)

	assert.Equal(t, []string{"1.001", "1002", "1003"}, proc.seen)
	assert.Equal(t, []string{"report.csv"}, reporter.paths)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, id, notifier.sent[0].JobID)
	assert.Equal(t, "completed", notifier.sent[0].Status)
	assert.Equal(t, "report.csv", notifier.sent[0].ReportPath)
}

func TestEnqueue_ProcessorLogsReachJobLog(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, nil)

	id, err := o.Enqueue(context.Background(), []string{"7"})
	require.NoError(t, err)
	view := waitJob(t, o, id)

	var messages []string
	for _, l := range view.Logs {
		messages = append(messages, l.Message)
	}
	assert.Contains(t, messages, "case processed case=7")
	assert.True(t, strings.HasPrefix(messages[len(messages)-1], "job finished"))
}

// ==========================
// Progress and stop
// ==========================

func TestStatus_ReportsCaseInFlight(t *testing.T) {
	proc := &fakeProcessor{started: make(chan string, 2), release: make(chan struct{})}
	o, _, _ := setupOrchestrator(t, proc, nil)

	id, err := o.Enqueue(context.Background(), []string{"1.001", "1002"})
	require.NoError(t, err)
	<-proc.started

	view, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, view.Status)
	assert.Equal(t, "Processando 1/2...", view.Message)
	assert.Equal(t, "Código: 1001", view.Detail)
	assert.Equal(t, 0, view.Progress)

	close(proc.release)
	assert.Equal(t, StatusCompleted, waitJob(t, o, id).Status)
}

func TestStop_AfterFirstOfThree(t *testing.T) {
	proc := &fakeProcessor{started: make(chan string, 3), release: make(chan struct{})}
	o, reporter, notifier := setupOrchestrator(t, proc, nil)

	id, err := o.Enqueue(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	<-proc.started

	require.NoError(t, o.Stop(id))
	view, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusStopping, view.Status)
	assert.True(t, view.StopRequested)

	close(proc.release)
	view = waitJob(t, o, id)

	assert.Equal(t, StatusStopped, view.Status)
	assert.Equal(t, 1, view.Summary.Processed)
	assert.Equal(t, 33, view.Progress)
	assert.Equal(t, []string{"1"}, proc.seen)
	assert.Len(t, reporter.paths, 1)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "stopped", notifier.sent[0].Status)
}

// routedProcessor hands each case to the fake registered for its first
// character, so concurrent jobs can be held independently.
type routedProcessor map[string]*fakeProcessor

func (r routedProcessor) Process(ctx context.Context, raw string) models.CaseResult {
	return r[raw[:1]].Process(ctx, raw)
}

func receiveCase(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case raw := <-ch:
		return raw
	case <-time.After(5 * time.Second):
		t.Fatal("case never started")
		return ""
	}
}

func TestConcurrentJobs_RunIndependently(t *testing.T) {
	log := logger.NewTestLogger(t)
	a := &fakeProcessor{started: make(chan string, 3), release: make(chan struct{}), log: log}
	b := &fakeProcessor{started: make(chan string, 3), release: make(chan struct{}), log: log}

	var mu sync.Mutex
	built := 0
	factory := func(logger.Logger) CaseProcessor {
		mu.Lock()
		built++
		mu.Unlock()
		return routedProcessor{"A": a, "B": b}
	}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}
	o := NewOrchestrator(&Config{ReportPath: "report.csv"}, factory, reporter, notifier, log)

	idA, err := o.Enqueue(context.Background(), []string{"A1", "A2", "A3"})
	require.NoError(t, err)
	idB, err := o.Enqueue(context.Background(), []string{"B1", "B2", "B3"})
	require.NoError(t, err)

	assert.Equal(t, "A1", receiveCase(t, a.started))
	assert.Equal(t, "B1", receiveCase(t, b.started))

	// readers poll while both jobs hold a case in flight
	pollDone := make(chan struct{})
	var polls sync.WaitGroup
	polls.Add(1)
	go func() {
		defer polls.Done()
		for {
			select {
			case <-pollDone:
				return
			default:
				_, _ = o.Status(idA)
				_ = o.List()
			}
		}
	}()

	for _, id := range []string{idA, idB} {
		view, err := o.Status(id)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, view.Status)
		assert.Equal(t, "Processando 1/3...", view.Message)
	}

	require.NoError(t, o.Stop(idA))
	close(a.release)
	viewA := waitJob(t, o, idA)
	assert.Equal(t, StatusStopped, viewA.Status)
	assert.Equal(t, 1, viewA.Summary.Processed)
	assert.Equal(t, "Interrompido: 1 de 3 casos processados", viewA.Message)

	viewB, err := o.Status(idB)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, viewB.Status)
	assert.False(t, viewB.StopRequested)

	close(b.release)
	viewB = waitJob(t, o, idB)
	close(pollDone)
	polls.Wait()

	assert.Equal(t, StatusCompleted, viewB.Status)
	assert.Equal(t, 3, viewB.Summary.Processed)
	assert.Equal(t, "Concluído: 3 casos processados", viewB.Message)

	assert.Equal(t, []string{"A1"}, a.seen)
	assert.Equal(t, []string{"B1", "B2", "B3"}, b.seen)
	mu.Lock()
	assert.Equal(t, 2, built)
	mu.Unlock()
	assert.Len(t, reporter.paths, 2)
	assert.Len(t, notifier.sent, 2)
}

func TestStop_TerminalJobIsNoop(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, nil)

	id, err := o.Enqueue(context.Background(), []string{"1"})
	require.NoError(t, err)
	waitJob(t, o, id)

	require.NoError(t, o.Stop(id))
	view, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, view.Status)
	assert.False(t, view.StopRequested)
}

// ==========================
// Failures
// ==========================

func TestRun_PanicEndsJobInError(t *testing.T) {
	proc := &fakeProcessor{panicOn: "2"}
	o, _, notifier := setupOrchestrator(t, proc, nil)

	id, err := o.Enqueue(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)

	view := waitJob(t, o, id)
	assert.Equal(t, StatusError, view.Status)
	assert.Contains(t, view.Error, string(apperrors.ErrCodeJobFailed))
	assert.Contains(t, view.Error, "boom")
	assert.Equal(t, 1, view.Summary.Processed)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "error", notifier.sent[0].Status)
	assert.Contains(t, notifier.sent[0].Message, "boom")
}

func TestUnknownJob(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, nil)

	_, err := o.Status("missing")
	assert.Equal(t, apperrors.ErrCodeJobNotFound, apperrors.CodeOf(err))

	assert.Equal(t, apperrors.ErrCodeJobNotFound, apperrors.CodeOf(o.Stop("missing")))
	assert.Equal(t, apperrors.ErrCodeJobNotFound, apperrors.CodeOf(o.Log("missing", "info", "x")))

	_, err = o.Wait(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrCodeJobNotFound, apperrors.CodeOf(err))
}

// ==========================
// Views
// ==========================

func TestStatus_LogTail(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, &Config{LogTail: 2})

	id, err := o.Enqueue(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	waitJob(t, o, id)

	view, err := o.Status(id)
	require.NoError(t, err)
	require.Len(t, view.Logs, 2)
	assert.True(t, strings.HasPrefix(view.Logs[1].Message, "job finished"))

	o.mu.Lock()
	full := len(o.jobs[id].Logs)
	o.mu.Unlock()
	assert.Greater(t, full, 2)
}

func TestList_NewestFirst(t *testing.T) {
	o, _, _ := setupOrchestrator(t, &fakeProcessor{}, nil)

	first, err := o.Enqueue(context.Background(), []string{"1"})
	require.NoError(t, err)
	waitJob(t, o, first)
	second, err := o.Enqueue(context.Background(), []string{"2"})
	require.NoError(t, err)
	waitJob(t, o, second)

	views := o.List()
	require.Len(t, views, 2)
	assert.Equal(t, second, views[0].ID)
	assert.Equal(t, first, views[1].ID)
}

func TestShutdown_StopsActiveJobs(t *testing.T) {
	proc := &fakeProcessor{started: make(chan string, 2), release: make(chan struct{})}
	o, _, _ := setupOrchestrator(t, proc, nil)

	id, err := o.Enqueue(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	<-proc.started

	done := make(chan error, 1)
	go func() { done <- o.Shutdown(context.Background()) }()

	require.Eventually(t, func() bool {
		v, _ := o.Status(id)
		return v.StopRequested
	}, time.Second, 5*time.Millisecond)
	close(proc.release)

	require.NoError(t, <-done)
	view, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, view.Status)
}
