package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
	"manion_server/internal/platform/config"
	"manion_server/internal/platform/storage"
)

type HistoryService struct {
	kv     repository.KVStore
	store  storage.ObjectStore
	locker KeyLocker
}

func NewHistoryService(kv repository.KVStore, store storage.ObjectStore, locker KeyLocker) *HistoryService {
	return &HistoryService{kv: kv, store: store, locker: locker}
}

// ProblemDetail merges a history entry with the primary problem document
// and a freshly signed image URL.
type ProblemDetail struct {
	model.HistoryProblem
	FileName   string     `json:"fileName,omitempty"`
	UploadTime *time.Time `json:"uploadTime,omitempty"`
	ImageURL   string     `json:"imageUrl,omitempty"`
}

type HistoryResponse struct {
	Problems    []ProblemDetail           `json:"problems"`
	Comments    []model.HistoryComment    `json:"comments"`
	Evaluations []model.HistoryEvaluation `json:"evaluations"`
	Stats       model.HistoryStats        `json:"stats"`
}

// Get loads the caller's history and re-fetches each referenced problem
// for fresh status and a signed URL. One lookup per historical problem;
// histories are expected to stay small.
func (s *HistoryService) Get(ctx context.Context, user *model.User) (*HistoryResponse, error) {
	history, err := s.loadHistory(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	details := make([]ProblemDetail, 0, len(history.Problems))
	for _, entry := range history.Problems {
		detail := ProblemDetail{HistoryProblem: entry}
		problem, err := repository.GetDoc[model.Problem](ctx, s.kv, entry.ProblemID)
		if err == nil {
			detail.Title = problem.Title
			detail.Status = problem.Status
			detail.VideoURL = problem.VideoURL
			detail.FileName = problem.FileName
			uploadTime := problem.UploadTime
			detail.UploadTime = &uploadTime
			if problem.FileName != "" {
				url, presignErr := s.store.PresignGet(ctx, problem.FileName, config.AppConfig.SignedURLExpiry)
				if presignErr != nil {
					slog.Error("failed to presign history image", "problem_id", entry.ProblemID, "error", presignErr)
				} else {
					detail.ImageURL = url
				}
			}
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		details = append(details, detail)
	}

	// Stats follow the merged problem state, not the stale history copies,
	// so a problem never reads completed in problems while still counting
	// as processing here.
	stats := model.HistoryStats{
		TotalProblems:    len(details),
		TotalComments:    len(history.Comments),
		TotalEvaluations: len(history.Evaluations),
	}
	for _, d := range details {
		if d.Status == model.ProblemCompleted {
			stats.CompletedProblems++
		}
	}

	return &HistoryResponse{
		Problems:    reverse(details),
		Comments:    reverse(history.Comments),
		Evaluations: reverse(history.Evaluations),
		Stats:       stats,
	}, nil
}

// DeleteProblem removes a problem reference from the caller's history.
// The primary problem document is untouched.
func (s *HistoryService) DeleteProblem(ctx context.Context, user *model.User, problemID string) error {
	historyKey := model.UserHistoryKey(user.ID)
	unlock, err := s.locker.Acquire(ctx, historyKey)
	if err != nil {
		return err
	}
	defer unlock()

	history, err := s.loadHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	history.RemoveProblem(problemID)
	return s.kv.Set(ctx, historyKey, history)
}

// RenameProblem updates a problem's title in the caller's history and, when
// the caller owns the primary document, there as well.
func (s *HistoryService) RenameProblem(ctx context.Context, user *model.User, problemID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return common.Errorf("valid title is required: %w", common.ErrValidation)
	}
	if runes := []rune(title); len(runes) > model.MaxContentLength {
		title = string(runes[:model.MaxContentLength])
	}

	if err := s.renamePrimary(ctx, user, problemID, title); err != nil {
		return err
	}

	historyKey := model.UserHistoryKey(user.ID)
	unlock, err := s.locker.Acquire(ctx, historyKey)
	if err != nil {
		return err
	}
	defer unlock()

	history, err := s.loadHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	history.RenameProblem(problemID, title)
	return s.kv.Set(ctx, historyKey, history)
}

func (s *HistoryService) renamePrimary(ctx context.Context, user *model.User, problemID, title string) error {
	unlock, err := s.locker.Acquire(ctx, problemID)
	if err != nil {
		return err
	}
	defer unlock()

	problem, err := repository.GetDoc[model.Problem](ctx, s.kv, problemID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil // History-only entry; nothing to rename
		}
		return err
	}
	if problem.UserID == nil || *problem.UserID != user.ID {
		return nil // Ownership check; silently skip, matching the history-only path
	}
	problem.Title = title
	return s.kv.Set(ctx, problemID, problem)
}

func (s *HistoryService) loadHistory(ctx context.Context, userID string) (*model.UserHistory, error) {
	history, err := repository.GetDoc[model.UserHistory](ctx, s.kv, model.UserHistoryKey(userID))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return model.NewUserHistory(), nil
		}
		return nil, err
	}
	return history, nil
}

// reverse returns a copy in reverse order (latest first).
func reverse[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}
