package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
	"manion_server/internal/platform/config"
	"manion_server/internal/platform/storage"

	"github.com/gosimple/slug"
)

// RenderEnqueuer schedules the asynchronous video generation for an
// uploaded problem.
type RenderEnqueuer interface {
	Enqueue(ctx context.Context, problemID string) (*model.RenderJob, error)
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

type ProblemService struct {
	kv     repository.KVStore
	store  storage.ObjectStore
	locker KeyLocker
	jobs   RenderEnqueuer
}

func NewProblemService(kv repository.KVStore, store storage.ObjectStore, locker KeyLocker, jobs RenderEnqueuer) *ProblemService {
	return &ProblemService{kv: kv, store: store, locker: locker, jobs: jobs}
}

type UploadInput struct {
	File        io.Reader
	Size        int64
	Filename    string
	ContentType string
	Title       string
}

// Upload stores the image, writes the problem document in the processing
// state, records it in the uploader's history, and enqueues the render job.
// It returns as soon as the job is queued; completion is observed by
// polling GetProblem.
func (s *ProblemService) Upload(ctx context.Context, user *model.User, in UploadInput) (*model.Problem, error) {
	if in.File == nil {
		return nil, common.Errorf("no image file provided: %w", common.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		return nil, common.Errorf("unsupported image type %q: %w", ext, common.ErrValidation)
	}
	if in.ContentType != "" {
		if _, ok := allowedImageTypes[strings.ToLower(in.ContentType)]; !ok {
			return nil, common.Errorf("unsupported content type %q: %w", in.ContentType, common.ErrValidation)
		}
	}
	if max := config.AppConfig.MaxUploadBytes; max > 0 && in.Size > max {
		return nil, common.Errorf("image exceeds %d bytes: %w", max, common.ErrValidation)
	}

	fileName := objectKey(in.Filename, ext)
	if err := s.store.Put(ctx, fileName, in.File, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	problem := model.NewProblem(strings.TrimSpace(in.Title), fileName, user)
	if err := s.kv.Set(ctx, problem.ID, problem); err != nil {
		return nil, fmt.Errorf("failed to store problem: %w", err)
	}

	if user != nil {
		if err := s.appendToHistory(ctx, user.ID, problem); err != nil {
			// History is a denormalized mirror; the upload itself succeeded.
			slog.Error("failed to record upload in user history", "user_id", user.ID, "problem_id", problem.ID, "error", err)
		}
	}

	if _, err := s.jobs.Enqueue(ctx, problem.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue render job: %w", err)
	}
	slog.Info("problem uploaded", "problem_id", problem.ID, "file", fileName)
	return problem, nil
}

// GetProblem returns the problem document plus a freshly signed image URL.
// Safe to poll; re-reads always reflect the latest status.
func (s *ProblemService) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	problem, err := repository.GetDoc[model.Problem](ctx, s.kv, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("problem not found: %w", common.ErrNotFound)
		}
		return nil, err
	}
	if problem.FileName != "" {
		url, err := s.store.PresignGet(ctx, problem.FileName, config.AppConfig.SignedURLExpiry)
		if err != nil {
			slog.Error("failed to presign problem image", "problem_id", id, "error", err)
		} else {
			problem.ImageURL = url
		}
	}
	return problem, nil
}

func (s *ProblemService) appendToHistory(ctx context.Context, userID string, problem *model.Problem) error {
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
	history.AppendProblem(problem)
	return s.kv.Set(ctx, historyKey, history)
}

// objectKey derives a storage key from the uploaded filename. The slug
// keeps user-supplied names out of the bucket namespace.
func objectKey(filename, ext string) string {
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("math-problem-%d-%s%s", time.Now().UnixMilli(), base, ext)
}
