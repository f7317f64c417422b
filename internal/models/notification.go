// internal/models/notification.go
package models

import "time"

// JobNotification is published when a batch job reaches a terminal state.
type JobNotification struct {
	JobID      string         `json:"jobId"`
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Decisions  map[string]int `json:"decisions,omitempty"`
	ReportPath string         `json:"reportPath,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
}
