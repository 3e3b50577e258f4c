package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"manion_server/internal/domain/model"
	"manion_server/internal/platform/config"
)

func testConfig(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey:          []byte("test-secret"),
		JWTExp:          time.Hour,
		SignedURLExpiry: time.Hour,
		MaxUploadBytes:  1 << 20,
		GoogleAuthURL:   "https://accounts.google.com/o/oauth2/auth?client_id=test",
	}
}

// noopLocker satisfies KeyLocker for single-goroutine tests.
type noopLocker struct{}

func (noopLocker) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

// fakeObjectStore records puts and deletes and signs URLs deterministically.
type fakeObjectStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key + "?signed", nil
}

func (s *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeEnqueuer records enqueued problem ids without touching redis.
type fakeEnqueuer struct {
	enqueued []string
	fail     bool
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, problemID string) (*model.RenderJob, error) {
	if f.fail {
		return nil, fmt.Errorf("queue unavailable")
	}
	f.enqueued = append(f.enqueued, problemID)
	return &model.RenderJob{ID: "job-test", ProblemID: problemID, Status: model.JobStatusQueued}, nil
}

func testUser(id string) *model.User {
	return &model.User{ID: id, Email: id + "@example.com", Name: "User " + id, Role: model.RoleUser}
}

func testAdmin() *model.User {
	return &model.User{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin}
}
