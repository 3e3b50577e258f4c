package model

import (
	"errors"
	"testing"
	"time"

	"manion_server/internal/common"
)

func TestNewEvaluationRatingBounds(t *testing.T) {
	for _, rating := range []int{0, -1, 6} {
		if _, err := NewEvaluation(rating, "", "https://v", time.Time{}, nil); !errors.Is(err, common.ErrValidation) {
			t.Errorf("rating %d: err = %v, want ErrValidation", rating, err)
		}
	}
	for _, rating := range []int{1, 5} {
		if _, err := NewEvaluation(rating, "", "https://v", time.Time{}, nil); err != nil {
			t.Errorf("rating %d rejected: %v", rating, err)
		}
	}
}

func TestNewEvaluationTimestamp(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e, err := NewEvaluation(4, "great", "https://v", fixed, nil)
	if err != nil {
		t.Fatalf("NewEvaluation: %v", err)
	}
	if !e.CreatedAt.Equal(fixed) {
		t.Errorf("createdAt = %v, want client timestamp %v", e.CreatedAt, fixed)
	}

	e, err = NewEvaluation(4, "", "https://v", time.Time{}, nil)
	if err != nil {
		t.Fatalf("NewEvaluation: %v", err)
	}
	if e.CreatedAt.IsZero() {
		t.Error("zero timestamp not defaulted to now")
	}
}
