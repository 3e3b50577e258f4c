package model

import (
	"time"

	"manion_server/internal/common"
)

type ProblemStatus string

const (
	ProblemProcessing ProblemStatus = "processing"
	ProblemCompleted  ProblemStatus = "completed"
	ProblemFailed     ProblemStatus = "failed"
)

// Problem is an uploaded math problem and the lifecycle of its generated
// solution video. VideoURL is non-nil exactly when Status is completed;
// the transition methods are the only mutation path, so the invariant holds
// by construction.
type Problem struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	FileName   string        `json:"fileName"`
	Status     ProblemStatus `json:"status"`
	UploadTime time.Time     `json:"uploadTime"`
	VideoURL   *string       `json:"videoUrl"`
	UserID     *string       `json:"userId,omitempty"`
	UserEmail  *string       `json:"userEmail,omitempty"`
	UserName   *string       `json:"userName,omitempty"`

	// ImageURL is a freshly pre-signed read URL, minted per response and
	// never persisted.
	ImageURL string `json:"imageUrl,omitempty"`
}

// NewProblem builds a processing-state problem for an upload. uploader may
// be nil for anonymous uploads.
func NewProblem(title, fileName string, uploader *User) *Problem {
	if title == "" {
		title = "Untitled Problem"
	}
	p := &Problem{
		ID:         NewProblemID(),
		Title:      title,
		FileName:   fileName,
		Status:     ProblemProcessing,
		UploadTime: time.Now().UTC(),
	}
	if uploader != nil {
		p.UserID = &uploader.ID
		p.UserEmail = &uploader.Email
		p.UserName = &uploader.Name
	}
	return p
}

// MarkCompleted transitions processing -> completed. Completed problems
// never revert.
func (p *Problem) MarkCompleted(videoURL string) error {
	if p.Status != ProblemProcessing {
		return common.Errorf("problem %s is %s, not processing: %w", p.ID, p.Status, common.ErrConflict)
	}
	if videoURL == "" {
		return common.Errorf("completed problem requires a video URL: %w", common.ErrValidation)
	}
	p.Status = ProblemCompleted
	p.VideoURL = &videoURL
	return nil
}

// MarkFailed transitions processing -> failed.
func (p *Problem) MarkFailed() error {
	if p.Status != ProblemProcessing {
		return common.Errorf("problem %s is %s, not processing: %w", p.ID, p.Status, common.ErrConflict)
	}
	p.Status = ProblemFailed
	p.VideoURL = nil
	return nil
}
