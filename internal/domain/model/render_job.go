package model

import "time"

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// RenderJob tracks one video-generation task for an uploaded problem. The
// job document is persisted in the KV store and its ID queued in Redis, so
// a process restart resumes pending renders instead of stranding problems
// in the processing state.
type RenderJob struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError *string   `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *RenderJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempts++
	j.UpdatedAt = time.Now().UTC()
}

func (j *RenderJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.LastError = nil
	j.UpdatedAt = time.Now().UTC()
}

func (j *RenderJob) MarkQueued(errMsg string) {
	j.Status = JobStatusQueued
	j.LastError = &errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *RenderJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.LastError = &errMsg
	j.UpdatedAt = time.Now().UTC()
}
