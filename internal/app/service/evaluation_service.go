package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

type EvaluationService struct {
	kv     repository.KVStore
	locker KeyLocker
}

func NewEvaluationService(kv repository.KVStore, locker KeyLocker) *EvaluationService {
	return &EvaluationService{kv: kv, locker: locker}
}

type CreateEvaluationRequest struct {
	Rating    int    `json:"rating"`
	Feedback  string `json:"feedback"`
	VideoURL  string `json:"videoUrl"`
	Timestamp string `json:"timestamp"`
}

// Create stores a new evaluation. Evaluations are write-once; nothing
// stops a user from rating the same video more than once.
func (s *EvaluationService) Create(ctx context.Context, user *model.User, req CreateEvaluationRequest) (*model.Evaluation, error) {
	var createdAt time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return nil, common.Errorf("invalid timestamp: %w", common.ErrValidation)
		}
		createdAt = parsed
	}

	eval, err := model.NewEvaluation(req.Rating, req.Feedback, req.VideoURL, createdAt, user)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, eval.ID, eval); err != nil {
		return nil, common.Errorf("failed to store evaluation: %w", err)
	}

	if user != nil {
		if err := s.trackEvaluation(ctx, user.ID, eval); err != nil {
			slog.Error("failed to record evaluation in user history", "user_id", user.ID, "evaluation_id", eval.ID, "error", err)
		}
	}
	return eval, nil
}

func (s *EvaluationService) trackEvaluation(ctx context.Context, userID string, eval *model.Evaluation) error {
	historyKey := model.UserHistoryKey(userID)
	unlock, err := s.locker.Acquire(ctx, historyKey)
	if err != nil {
		return err
	}
	defer unlock()

	history, err := repository.GetDoc[model.UserHistory](ctx, s.kv, historyKey)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		history = model.NewUserHistory()
	}
	history.AppendEvaluation(eval)
	return s.kv.Set(ctx, historyKey, history)
}
