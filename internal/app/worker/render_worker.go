package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"manion_server/internal/app/service"
	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

// RenderWorker consumes render job ids from a redis list and drives the
// problem through its processing -> completed (or failed) lifecycle. Several
// workers may run against the same queue; each BRPop delivers a job id to
// exactly one of them.
type RenderWorker struct {
	rdb         *redis.Client
	kv          repository.KVStore
	locker      service.KeyLocker
	queueName   string
	renderDelay time.Duration
	maxAttempts int
}

func NewRenderWorker(rdb *redis.Client, kv repository.KVStore, locker service.KeyLocker, queueName string, renderDelay time.Duration, maxAttempts int) *RenderWorker {
	return &RenderWorker{
		rdb:         rdb,
		kv:          kv,
		locker:      locker,
		queueName:   queueName,
		renderDelay: renderDelay,
		maxAttempts: maxAttempts,
	}
}

// Start blocks until ctx is cancelled, popping one job at a time.
func (w *RenderWorker) Start(ctx context.Context) {
	slog.Info("render worker started", "queue", w.queueName)
	for {
		select {
		case <-ctx.Done():
			slog.Info("render worker stopping")
			return
		default:
		}

		result, err := w.rdb.BRPop(ctx, 1*time.Second, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				slog.Info("render worker stopping")
				return
			}
			slog.Error("failed to pop render job", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		w.processJob(ctx, result[1])
	}
}

func (w *RenderWorker) processJob(ctx context.Context, jobID string) {
	jobKey := model.RenderJobKey(jobID)
	job, err := repository.GetDoc[model.RenderJob](ctx, w.kv, jobKey)
	if err != nil {
		slog.Error("failed to load render job", "job_id", jobID, "error", err)
		return
	}
	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		slog.Warn("skipping already finished render job", "job_id", jobID, "status", job.Status)
		return
	}

	job.MarkProcessing()
	if err := w.kv.Set(ctx, jobKey, job); err != nil {
		slog.Error("failed to persist render job state", "job_id", jobID, "error", err)
		return
	}
	slog.Info("rendering solution video", "job_id", jobID, "problem_id", job.ProblemID, "attempt", job.Attempts)

	// Simulated render. On shutdown the job goes back on the queue so a
	// restarted worker picks it up.
	select {
	case <-ctx.Done():
		job.MarkQueued("interrupted by shutdown")
		if err := w.kv.Set(context.Background(), jobKey, job); err != nil {
			slog.Error("failed to requeue render job state", "job_id", jobID, "error", err)
		}
		if err := w.rdb.RPush(context.Background(), w.queueName, jobID).Err(); err != nil {
			slog.Error("failed to requeue render job", "job_id", jobID, "error", err)
		}
		return
	case <-time.After(w.renderDelay):
	}

	if err := w.completeJob(ctx, job); err != nil {
		w.handleFailure(ctx, job, err)
		return
	}

	job.MarkCompleted()
	if err := w.kv.Set(ctx, jobKey, job); err != nil {
		slog.Error("failed to persist completed render job", "job_id", jobID, "error", err)
	}
	slog.Info("render job completed", "job_id", jobID, "problem_id", job.ProblemID)
}

func (w *RenderWorker) completeJob(ctx context.Context, job *model.RenderJob) error {
	unlock, err := w.locker.Acquire(ctx, job.ProblemID)
	if err != nil {
		return err
	}
	problem, err := repository.GetDoc[model.Problem](ctx, w.kv, job.ProblemID)
	if err != nil {
		unlock()
		return fmt.Errorf("load problem %s: %w", job.ProblemID, err)
	}

	videoURL := fmt.Sprintf("https://example.com/generated-video-%s.mp4", job.ProblemID)
	if err := problem.MarkCompleted(videoURL); err != nil {
		// Already completed or failed out of band; nothing to do.
		unlock()
		slog.Warn("problem not in processing state", "problem_id", job.ProblemID, "status", problem.Status)
		return nil
	}
	if err := w.kv.Set(ctx, job.ProblemID, problem); err != nil {
		unlock()
		return fmt.Errorf("persist problem %s: %w", job.ProblemID, err)
	}
	unlock()

	w.updateHistory(ctx, problem, model.ProblemCompleted, &videoURL)
	return nil
}

func (w *RenderWorker) handleFailure(ctx context.Context, job *model.RenderJob, cause error) {
	jobKey := model.RenderJobKey(job.ID)
	if job.Attempts >= w.maxAttempts {
		slog.Error("render job exhausted retries", "job_id", job.ID, "problem_id", job.ProblemID, "attempts", job.Attempts, "error", cause)
		job.MarkFailed(cause.Error())
		if err := w.kv.Set(ctx, jobKey, job); err != nil {
			slog.Error("failed to persist failed render job", "job_id", job.ID, "error", err)
		}
		w.failProblem(ctx, job.ProblemID)
		return
	}

	slog.Warn("render job failed, requeueing", "job_id", job.ID, "attempt", job.Attempts, "error", cause)
	job.MarkQueued(cause.Error())
	if err := w.kv.Set(ctx, jobKey, job); err != nil {
		slog.Error("failed to persist render job state", "job_id", job.ID, "error", err)
	}
	if err := w.rdb.RPush(ctx, w.queueName, job.ID).Err(); err != nil {
		slog.Error("failed to requeue render job", "job_id", job.ID, "error", err)
	}
}

func (w *RenderWorker) failProblem(ctx context.Context, problemID string) {
	unlock, err := w.locker.Acquire(ctx, problemID)
	if err != nil {
		slog.Error("failed to lock problem for failure", "problem_id", problemID, "error", err)
		return
	}
	problem, err := repository.GetDoc[model.Problem](ctx, w.kv, problemID)
	if err != nil {
		unlock()
		slog.Error("failed to load problem for failure", "problem_id", problemID, "error", err)
		return
	}
	if err := problem.MarkFailed(); err != nil {
		unlock()
		return
	}
	if err := w.kv.Set(ctx, problemID, problem); err != nil {
		unlock()
		slog.Error("failed to persist failed problem", "problem_id", problemID, "error", err)
		return
	}
	unlock()

	w.updateHistory(ctx, problem, model.ProblemFailed, nil)
}

// updateHistory mirrors the status change into the uploader's denormalized
// history document, best effort.
func (w *RenderWorker) updateHistory(ctx context.Context, problem *model.Problem, status model.ProblemStatus, videoURL *string) {
	if problem.UserID == nil {
		return
	}
	historyKey := model.UserHistoryKey(*problem.UserID)

	unlock, err := w.locker.Acquire(ctx, historyKey)
	if err != nil {
		slog.Error("failed to lock user history", "user_id", *problem.UserID, "error", err)
		return
	}
	defer unlock()

	history, err := repository.GetDoc[model.UserHistory](ctx, w.kv, historyKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return
		}
		slog.Error("failed to load user history", "user_id", *problem.UserID, "error", err)
		return
	}
	if !history.SetProblemStatus(problem.ID, status, videoURL) {
		return
	}
	if err := w.kv.Set(ctx, historyKey, history); err != nil {
		slog.Error("failed to persist user history", "user_id", *problem.UserID, "error", err)
	}
}
