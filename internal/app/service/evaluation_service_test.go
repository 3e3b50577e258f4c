package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

func TestCreateEvaluation(t *testing.T) {
	testConfig(t)
	kv := repository.NewMemoryKVStore()
	svc := NewEvaluationService(kv, noopLocker{})
	ctx := context.Background()
	user := testUser("u1")

	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	eval, err := svc.Create(ctx, user, CreateEvaluationRequest{
		Rating:    5,
		Feedback:  "clear explanation",
		VideoURL:  "https://example.com/generated-video-problem_1.mp4",
		Timestamp: ts.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !eval.CreatedAt.Equal(ts) {
		t.Errorf("createdAt = %v, want client timestamp", eval.CreatedAt)
	}

	stored, err := repository.GetDoc[model.Evaluation](ctx, kv, eval.ID)
	if err != nil {
		t.Fatalf("evaluation not persisted: %v", err)
	}
	if stored.Rating != 5 || stored.Feedback != "clear explanation" {
		t.Errorf("stored = %+v", stored)
	}

	history, err := repository.GetDoc[model.UserHistory](ctx, kv, model.UserHistoryKey(user.ID))
	if err != nil {
		t.Fatalf("history not created: %v", err)
	}
	if len(history.Evaluations) != 1 || history.Evaluations[0].EvaluationID != eval.ID {
		t.Errorf("history evaluations = %+v", history.Evaluations)
	}
}

func TestCreateEvaluationValidation(t *testing.T) {
	testConfig(t)
	svc := NewEvaluationService(repository.NewMemoryKVStore(), noopLocker{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, nil, CreateEvaluationRequest{Rating: 0, VideoURL: "https://v"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("rating 0: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(ctx, nil, CreateEvaluationRequest{Rating: 3, Timestamp: "yesterday"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("bad timestamp: err = %v, want ErrValidation", err)
	}
}

func TestCreateEvaluationAnonymous(t *testing.T) {
	testConfig(t)
	kv := repository.NewMemoryKVStore()
	svc := NewEvaluationService(kv, noopLocker{})
	ctx := context.Background()

	eval, err := svc.Create(ctx, nil, CreateEvaluationRequest{Rating: 3, VideoURL: "https://v"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if eval.UserID != nil {
		t.Error("anonymous evaluation carries a user id")
	}
	docs, err := kv.GetByPrefix(ctx, model.UserHistoryPrefix)
	if err != nil {
		t.Fatalf("GetByPrefix: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("anonymous evaluation created %d history docs", len(docs))
	}
}
