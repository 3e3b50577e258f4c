package model

import "time"

// UserHistory is a denormalized per-user activity log kept alongside the
// primary documents. It is read and rewritten wholesale on every mutation,
// so callers must hold the per-key lock while updating it.
type UserHistory struct {
	Problems    []HistoryProblem    `json:"problems"`
	Comments    []HistoryComment    `json:"comments"`
	Evaluations []HistoryEvaluation `json:"evaluations"`
}

type HistoryProblem struct {
	ProblemID string        `json:"problemId"`
	Title     string        `json:"title"`
	Status    ProblemStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	VideoURL  *string       `json:"videoUrl,omitempty"`
}

type HistoryComment struct {
	Type      string    `json:"type"` // "post" or "reply"
	PostID    string    `json:"postId"`
	ReplyID   *string   `json:"replyId,omitempty"`
	Content   string    `json:"content"`
	BoardType BoardType `json:"boardType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryEvaluation struct {
	EvaluationID string    `json:"evaluationId"`
	Rating       int       `json:"rating"`
	Feedback     string    `json:"feedback"`
	VideoURL     string    `json:"videoUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

type HistoryStats struct {
	TotalProblems     int `json:"totalProblems"`
	CompletedProblems int `json:"completedProblems"`
	TotalComments     int `json:"totalComments"`
	TotalEvaluations  int `json:"totalEvaluations"`
}

// NewUserHistory returns an empty log with non-nil slices so JSON encodes
// arrays, not nulls.
func NewUserHistory() *UserHistory {
	return &UserHistory{
		Problems:    []HistoryProblem{},
		Comments:    []HistoryComment{},
		Evaluations: []HistoryEvaluation{},
	}
}

func (h *UserHistory) AppendProblem(p *Problem) {
	h.Problems = append(h.Problems, HistoryProblem{
		ProblemID: p.ID,
		Title:     p.Title,
		Status:    p.Status,
		CreatedAt: time.Now().UTC(),
	})
}

// SetProblemStatus patches the matching entry in place by linear search,
// reporting whether it was found.
func (h *UserHistory) SetProblemStatus(problemID string, status ProblemStatus, videoURL *string) bool {
	for i := range h.Problems {
		if h.Problems[i].ProblemID == problemID {
			h.Problems[i].Status = status
			h.Problems[i].VideoURL = videoURL
			return true
		}
	}
	return false
}

func (h *UserHistory) RemoveProblem(problemID string) {
	filtered := h.Problems[:0]
	for _, p := range h.Problems {
		if p.ProblemID != problemID {
			filtered = append(filtered, p)
		}
	}
	h.Problems = filtered
}

func (h *UserHistory) RenameProblem(problemID, title string) bool {
	for i := range h.Problems {
		if h.Problems[i].ProblemID == problemID {
			h.Problems[i].Title = title
			return true
		}
	}
	return false
}

func (h *UserHistory) AppendPostComment(p *Post) {
	h.Comments = append(h.Comments, HistoryComment{
		Type:      "post",
		PostID:    p.ID,
		Content:   p.Content,
		BoardType: p.BoardType,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *UserHistory) AppendReplyComment(postID string, r *Reply) {
	h.Comments = append(h.Comments, HistoryComment{
		Type:      "reply",
		PostID:    postID,
		ReplyID:   &r.ID,
		Content:   r.Content,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *UserHistory) AppendEvaluation(e *Evaluation) {
	h.Evaluations = append(h.Evaluations, HistoryEvaluation{
		EvaluationID: e.ID,
		Rating:       e.Rating,
		Feedback:     e.Feedback,
		VideoURL:     e.VideoURL,
		CreatedAt:    e.CreatedAt,
	})
}

func (h *UserHistory) Stats() HistoryStats {
	completed := 0
	for _, p := range h.Problems {
		if p.Status == ProblemCompleted {
			completed++
		}
	}
	return HistoryStats{
		TotalProblems:     len(h.Problems),
		CompletedProblems: completed,
		TotalComments:     len(h.Comments),
		TotalEvaluations:  len(h.Evaluations),
	}
}
