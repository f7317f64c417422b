package jobs

import (
	"time"

	"citizenship-adjudicator/internal/models"
)

type Status string

const (
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusStopping  Status = "stopping"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusError
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Summary counts what a job has processed so far.
type Summary struct {
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Decisions map[string]int `json:"decisions"`
}

func (s *Summary) record(res models.CaseResult) {
	s.Processed++
	if res.Status == models.CaseStatusOK && res.Persisted {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Decisions[string(res.Decision.Kind)]++
}

func (s Summary) clone() Summary {
	cp := s
	cp.Decisions = make(map[string]int, len(s.Decisions))
	for k, v := range s.Decisions {
		cp.Decisions[k] = v
	}
	return cp
}

// Job is the in-memory state of one batch run. It lives only as long as the
// process.
type Job struct {
	ID            string
	Status        Status
	Progress      int
	Message       string
	Detail        string
	Error         string
	StopRequested bool
	Summary       Summary
	Logs          []LogEntry
	CaseIDs       []string
	StartedAt     time.Time
	EndedAt       time.Time

	seq  int64
	done chan struct{}
}

// JobView is the status payload returned to callers.
type JobView struct {
	ID            string     `json:"id"`
	Status        Status     `json:"status"`
	Progress      int        `json:"progress"`
	Message       string     `json:"message"`
	Detail        string     `json:"detail"`
	Error         string     `json:"error,omitempty"`
	Logs          []LogEntry `json:"logs"`
	Summary       Summary    `json:"summary"`
	StopRequested bool       `json:"stopRequested"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

func (j *Job) view(logTail int) JobView {
	logs := j.Logs
	if logTail > 0 && len(logs) > logTail {
		logs = logs[len(logs)-logTail:]
	}
	v := JobView{
		ID:            j.ID,
		Status:        j.Status,
		Progress:      j.Progress,
		Message:       j.Message,
		Detail:        j.Detail,
		Error:         j.Error,
		Logs:          append([]LogEntry(nil), logs...),
		Summary:       j.Summary.clone(),
		StopRequested: j.StopRequested,
		StartedAt:     j.StartedAt,
	}
	if !j.EndedAt.IsZero() {
		ended := j.EndedAt
		v.EndedAt = &ended
	}
	return v
}

func (v JobView) Notification(reportPath string) models.JobNotification {
	n := models.JobNotification{
		JobID:      v.ID,
		Status:     string(v.Status),
		Message:    v.Message,
		Total:      v.Summary.Total,
		Processed:  v.Summary.Processed,
		Succeeded:  v.Summary.Succeeded,
		Failed:     v.Summary.Failed,
		Decisions:  v.Summary.Decisions,
		ReportPath: reportPath,
		StartedAt:  v.StartedAt,
	}
	if v.Error != "" {
		n.Message = v.Error
	}
	if v.EndedAt != nil {
		n.EndedAt = *v.EndedAt
	}
	return n
}
