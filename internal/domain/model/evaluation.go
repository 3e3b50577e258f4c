package model

import (
	"time"

	"manion_server/internal/common"
)

// Evaluation is a one-shot star rating of a generated video. Evaluations
// are written once and never mutated; a user may submit any number of them
// for the same video.
type Evaluation struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback"`
	VideoURL  string    `json:"videoUrl"`
	UserID    *string   `json:"userId,omitempty"`
	UserEmail *string   `json:"userEmail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewEvaluation(rating int, feedback, videoURL string, createdAt time.Time, user *User) (*Evaluation, error) {
	if rating < 1 || rating > 5 {
		return nil, common.Errorf("rating must be between 1 and 5: %w", common.ErrValidation)
	}
	if len([]rune(feedback)) > MaxContentLength {
		return nil, common.Errorf("feedback exceeds %d characters: %w", MaxContentLength, common.ErrValidation)
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	e := &Evaluation{
		ID:        NewEvaluationID(),
		Rating:    rating,
		Feedback:  feedback,
		VideoURL:  videoURL,
		CreatedAt: createdAt,
	}
	if user != nil {
		e.UserID = &user.ID
		e.UserEmail = &user.Email
	}
	return e, nil
}
