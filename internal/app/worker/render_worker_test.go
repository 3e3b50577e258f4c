package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

type noopLocker struct{}

func (noopLocker) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

type workerFixture struct {
	worker *RenderWorker
	kv     *repository.MemoryKVStore
	rdb    *redis.Client
	mr     *miniredis.Miniredis
}

func newWorkerFixture(t *testing.T, maxAttempts int) *workerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	kv := repository.NewMemoryKVStore()
	return &workerFixture{
		worker: NewRenderWorker(rdb, kv, noopLocker{}, "render_jobs_queue", 10*time.Millisecond, maxAttempts),
		kv:     kv,
		rdb:    rdb,
		mr:     mr,
	}
}

// seedJob writes a processing problem, its owner's history entry, and a
// queued render job, as the upload path does.
func (f *workerFixture) seedJob(t *testing.T, user *model.User) (*model.Problem, *model.RenderJob) {
	t.Helper()
	ctx := context.Background()

	problem := model.NewProblem("t", "f.png", user)
	if err := f.kv.Set(ctx, problem.ID, problem); err != nil {
		t.Fatalf("Set problem: %v", err)
	}
	if user != nil {
		history := model.NewUserHistory()
		history.AppendProblem(problem)
		if err := f.kv.Set(ctx, model.UserHistoryKey(user.ID), history); err != nil {
			t.Fatalf("Set history: %v", err)
		}
	}

	job := &model.RenderJob{
		ID:        "job-1",
		ProblemID: problem.ID,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.kv.Set(ctx, model.RenderJobKey(job.ID), job); err != nil {
		t.Fatalf("Set job: %v", err)
	}
	return problem, job
}

func TestProcessJobCompletesProblem(t *testing.T) {
	f := newWorkerFixture(t, 3)
	ctx := context.Background()
	user := &model.User{ID: "u1", Email: "u@e.c", Name: "U"}
	problem, job := f.seedJob(t, user)

	f.worker.processJob(ctx, job.ID)

	got, err := repository.GetDoc[model.Problem](ctx, f.kv, problem.ID)
	if err != nil {
		t.Fatalf("GetDoc problem: %v", err)
	}
	if got.Status != model.ProblemCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	wantURL := "https://example.com/generated-video-" + problem.ID + ".mp4"
	if got.VideoURL == nil || *got.VideoURL != wantURL {
		t.Errorf("videoUrl = %v, want %q", got.VideoURL, wantURL)
	}

	gotJob, err := repository.GetDoc[model.RenderJob](ctx, f.kv, model.RenderJobKey(job.ID))
	if err != nil {
		t.Fatalf("GetDoc job: %v", err)
	}
	if gotJob.Status != model.JobStatusCompleted || gotJob.Attempts != 1 {
		t.Errorf("job = %+v", gotJob)
	}

	history, err := repository.GetDoc[model.UserHistory](ctx, f.kv, model.UserHistoryKey(user.ID))
	if err != nil {
		t.Fatalf("GetDoc history: %v", err)
	}
	if history.Problems[0].Status != model.ProblemCompleted || history.Problems[0].VideoURL == nil {
		t.Errorf("history entry not mirrored: %+v", history.Problems[0])
	}
}

func TestProcessJobSkipsFinishedJob(t *testing.T) {
	f := newWorkerFixture(t, 3)
	ctx := context.Background()
	problem, job := f.seedJob(t, nil)

	job.Status = model.JobStatusCompleted
	if err := f.kv.Set(ctx, model.RenderJobKey(job.ID), job); err != nil {
		t.Fatalf("Set: %v", err)
	}

	f.worker.processJob(ctx, job.ID)

	got, err := repository.GetDoc[model.Problem](ctx, f.kv, problem.ID)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if got.Status != model.ProblemProcessing {
		t.Errorf("finished job re-ran: problem status %q", got.Status)
	}
}

func TestProcessJobRequeuesOnFailure(t *testing.T) {
	f := newWorkerFixture(t, 3)
	ctx := context.Background()

	// A job whose problem document is missing cannot complete.
	job := &model.RenderJob{ID: "job-orphan", ProblemID: "problem_gone", Status: model.JobStatusQueued}
	if err := f.kv.Set(ctx, model.RenderJobKey(job.ID), job); err != nil {
		t.Fatalf("Set: %v", err)
	}

	f.worker.processJob(ctx, job.ID)

	gotJob, err := repository.GetDoc[model.RenderJob](ctx, f.kv, model.RenderJobKey(job.ID))
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if gotJob.Status != model.JobStatusQueued || gotJob.Attempts != 1 {
		t.Errorf("job = %+v, want requeued after first failure", gotJob)
	}
	if gotJob.LastError == nil || !strings.Contains(*gotJob.LastError, "problem_gone") {
		t.Errorf("lastError = %v", gotJob.LastError)
	}

	queued, err := f.rdb.LRange(ctx, "render_jobs_queue", 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange: %v", err)
	}
	if len(queued) != 1 || queued[0] != job.ID {
		t.Errorf("queue = %v, want [%s]", queued, job.ID)
	}
}

func TestProcessJobFailsAfterMaxAttempts(t *testing.T) {
	f := newWorkerFixture(t, 2)
	ctx := context.Background()

	job := &model.RenderJob{ID: "job-orphan", ProblemID: "problem_gone", Status: model.JobStatusQueued}
	if err := f.kv.Set(ctx, model.RenderJobKey(job.ID), job); err != nil {
		t.Fatalf("Set: %v", err)
	}

	f.worker.processJob(ctx, job.ID)
	f.worker.processJob(ctx, job.ID)

	gotJob, err := repository.GetDoc[model.RenderJob](ctx, f.kv, model.RenderJobKey(job.ID))
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if gotJob.Status != model.JobStatusFailed || gotJob.Attempts != 2 {
		t.Errorf("job = %+v, want failed after %d attempts", gotJob, 2)
	}
}

func TestStartConsumesQueue(t *testing.T) {
	f := newWorkerFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	user := &model.User{ID: "u1", Email: "u@e.c", Name: "U"}
	problem, job := f.seedJob(t, user)

	if err := f.rdb.LPush(ctx, "render_jobs_queue", job.ID).Err(); err != nil {
		t.Fatalf("LPush: %v", err)
	}

	done := make(chan struct{})
	go func() {
		f.worker.Start(ctx)
		close(done)
	}()

	deadline := time.After(3 * time.Second)
	for {
		got, err := repository.GetDoc[model.Problem](context.Background(), f.kv, problem.ID)
		if err != nil {
			t.Fatalf("GetDoc: %v", err)
		}
		if got.Status == model.ProblemCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("problem never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
