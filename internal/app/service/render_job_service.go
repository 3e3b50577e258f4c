package service

import (
	"context"
	"log/slog"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RenderJobService creates durable render job records and pushes their IDs
// to the Redis queue the worker consumes. The job document lives in the KV
// store so pending work survives a process restart.
type RenderJobService struct {
	kv        repository.KVStore
	rdb       *redis.Client
	queueName string
}

func NewRenderJobService(kv repository.KVStore, rdb *redis.Client, queueName string) *RenderJobService {
	return &RenderJobService{kv: kv, rdb: rdb, queueName: queueName}
}

func (s *RenderJobService) Enqueue(ctx context.Context, problemID string) (*model.RenderJob, error) {
	now := time.Now().UTC()
	job := &model.RenderJob{
		ID:        uuid.NewString(),
		ProblemID: problemID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.kv.Set(ctx, model.RenderJobKey(job.ID), job); err != nil {
		return nil, common.Errorf("failed to store render job: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.queueName, job.ID).Err(); err != nil {
		return nil, common.Errorf("failed to push render job to queue: %w", err)
	}
	slog.Info("render job enqueued", "job_id", job.ID, "problem_id", problemID)
	return job, nil
}
