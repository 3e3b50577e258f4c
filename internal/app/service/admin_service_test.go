package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

type adminFixture struct {
	admin     *AdminService
	problems  *ProblemService
	community *CommunityService
	evals     *EvaluationService
	kv        *repository.MemoryKVStore
	store     *fakeObjectStore
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	testConfig(t)
	kv := repository.NewMemoryKVStore()
	store := newFakeObjectStore()
	return &adminFixture{
		admin:     NewAdminService(kv, store, noopLocker{}),
		problems:  NewProblemService(kv, store, noopLocker{}, &fakeEnqueuer{}),
		community: NewCommunityService(kv, noopLocker{}),
		evals:     NewEvaluationService(kv, noopLocker{}),
		kv:        kv,
		store:     store,
	}
}

func (f *adminFixture) completeProblem(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	doc, err := repository.GetDoc[model.Problem](ctx, f.kv, id)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if err := doc.MarkCompleted("https://example.com/generated-video-" + id + ".mp4"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := f.kv.Set(ctx, id, doc); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestAdminStats(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	alice := testUser("alice")
	bob := testUser("bob")

	// 3 problems, 2 completed.
	p1 := uploadFor(t, f.problems, alice, "p1")
	p2 := uploadFor(t, f.problems, nil, "p2")
	uploadFor(t, f.problems, bob, "p3")
	f.completeProblem(t, p1.ID)
	f.completeProblem(t, p2.ID)

	// 2 general posts by alice, 1 anonymous by bob; one reply; 2 likes, 1 dislike.
	post1, err := f.community.CreatePost(ctx, alice, CreatePostRequest{Content: "a", Author: "alice", BoardType: "general"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := f.community.CreatePost(ctx, alice, CreatePostRequest{Content: "b", Author: "alice", BoardType: "general"}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := f.community.CreatePost(ctx, bob, CreatePostRequest{Content: "c", Author: "anon", BoardType: "anonymous"}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := f.community.Reply(ctx, bob, post1.ID, ReplyRequest{Content: "re", Author: "bob"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	for _, action := range []string{"like", "like", "dislike"} {
		if _, err := f.community.Vote(ctx, post1.ID, VoteRequest{Action: action}); err != nil {
			t.Fatalf("Vote: %v", err)
		}
	}

	// 3 evaluations: ratings 5, 4, 4. Only two count as having feedback;
	// whitespace-only feedback does not.
	for _, e := range []CreateEvaluationRequest{
		{Rating: 5, Feedback: "great", VideoURL: "https://v"},
		{Rating: 4, Feedback: "good", VideoURL: "https://v"},
		{Rating: 4, Feedback: "   ", VideoURL: "https://v"},
	} {
		if _, err := f.evals.Create(ctx, nil, e); err != nil {
			t.Fatalf("Create evaluation: %v", err)
		}
	}

	stats, err := f.admin.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Problems.Total != 3 || stats.Problems.Completed != 2 || stats.Problems.Processing != 1 {
		t.Errorf("problem stats = %+v", stats.Problems)
	}
	if stats.Problems.SuccessRate != 67 {
		t.Errorf("successRate = %d, want 67", stats.Problems.SuccessRate)
	}

	c := stats.Community
	if c.TotalPosts != 3 || c.GeneralPosts != 2 || c.AnonymousPosts != 1 {
		t.Errorf("post counts = %+v", c)
	}
	if c.TotalReplies != 1 || c.TotalLikes != 2 || c.TotalDislikes != 1 {
		t.Errorf("interaction counts = %+v", c)
	}
	if c.AverageRepliesPerPost != 0.3 {
		t.Errorf("averageRepliesPerPost = %v, want 0.3", c.AverageRepliesPerPost)
	}

	e := stats.Evaluations
	if e.Total != 3 || e.WithFeedback != 2 {
		t.Errorf("evaluation stats = %+v", e)
	}
	if e.AverageRating != 4.3 {
		t.Errorf("averageRating = %v, want 4.3", e.AverageRating)
	}
	if e.RatingDistribution["4"] != 2 || e.RatingDistribution["5"] != 1 || e.RatingDistribution["1"] != 0 {
		t.Errorf("ratingDistribution = %+v", e.RatingDistribution)
	}

	if stats.Recent.ProblemsLast30Days != 3 || stats.Recent.PostsLast30Days != 3 || stats.Recent.EvaluationsLast30Days != 3 {
		t.Errorf("recent stats = %+v", stats.Recent)
	}

	// alice and bob posted; the anonymous upload contributes no user.
	if stats.Overview.TotalUsers != 2 {
		t.Errorf("totalUsers = %d, want 2", stats.Overview.TotalUsers)
	}
	// 3 problems + 3 posts + 1 reply + 3 evaluations.
	if stats.Overview.TotalActivity != 10 {
		t.Errorf("totalActivity = %d, want 10", stats.Overview.TotalActivity)
	}
}

func TestAdminStatsEmpty(t *testing.T) {
	f := newAdminFixture(t)

	stats, err := f.admin.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Problems.SuccessRate != 0 || stats.Community.AverageRepliesPerPost != 0 || stats.Evaluations.AverageRating != 0 {
		t.Errorf("empty store produced nonzero averages: %+v", stats)
	}
	if stats.Evaluations.RatingDistribution["3"] != 0 {
		t.Error("rating distribution missing fixed buckets")
	}
}

func TestAdminStatsRecentWindow(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	old := model.NewProblem("old", "a.png", nil)
	old.UploadTime = time.Now().UTC().AddDate(0, 0, -31)
	recent := model.NewProblem("recent", "b.png", nil)
	recent.UploadTime = time.Now().UTC().AddDate(0, 0, -29)
	for _, p := range []*model.Problem{old, recent} {
		if err := f.kv.Set(ctx, p.ID, p); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	stats, err := f.admin.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Problems.Total != 2 {
		t.Fatalf("total = %d, want 2", stats.Problems.Total)
	}
	if stats.Recent.ProblemsLast30Days != 1 {
		t.Errorf("problemsLast30Days = %d, want 1", stats.Recent.ProblemsLast30Days)
	}
}

func TestAdminDeleteProblemRemovesImage(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	problem := uploadFor(t, f.problems, testUser("u1"), "t")

	if err := f.admin.DeleteProblem(ctx, problem.ID); err != nil {
		t.Fatalf("DeleteProblem: %v", err)
	}
	if _, err := repository.GetDoc[model.Problem](ctx, f.kv, problem.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("problem doc still present: %v", err)
	}
	if len(f.store.deleted) != 1 || f.store.deleted[0] != problem.FileName {
		t.Errorf("deleted objects = %v", f.store.deleted)
	}

	if err := f.admin.DeleteProblem(ctx, problem.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}

func TestAdminDeleteReply(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	post, err := f.community.CreatePost(ctx, nil, CreatePostRequest{Content: "x", Author: "a", BoardType: "general"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	reply, err := f.community.Reply(ctx, nil, post.ID, ReplyRequest{Content: "spam", Author: "bot"})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	if err := f.admin.DeleteReply(ctx, post.ID, reply.ID); err != nil {
		t.Fatalf("DeleteReply: %v", err)
	}
	stored, err := repository.GetDoc[model.Post](ctx, f.kv, post.ID)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if len(stored.Replies) != 0 {
		t.Errorf("replies = %+v", stored.Replies)
	}

	if err := f.admin.DeleteReply(ctx, post.ID, reply.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("deleting absent reply: err = %v, want ErrNotFound", err)
	}
}

func TestAdminDeletesDoNotCascadeIntoHistory(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	user := testUser("u1")
	problem := uploadFor(t, f.problems, user, "t")

	if err := f.admin.DeleteProblem(ctx, problem.ID); err != nil {
		t.Fatalf("DeleteProblem: %v", err)
	}

	history, err := repository.GetDoc[model.UserHistory](ctx, f.kv, model.UserHistoryKey(user.ID))
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if len(history.Problems) != 1 {
		t.Errorf("history problems = %+v, want orphaned reference kept", history.Problems)
	}
}

func TestAdminListProblemsSortsAndSigns(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	uploadFor(t, f.problems, nil, "first")
	uploadFor(t, f.problems, nil, "second")

	problems, err := f.admin.ListProblems(ctx)
	if err != nil {
		t.Fatalf("ListProblems: %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("got %d problems, want 2", len(problems))
	}
	if problems[0].UploadTime.Before(problems[1].UploadTime) {
		t.Error("problems not sorted newest first")
	}
	for _, p := range problems {
		if !strings.HasPrefix(p.ImageURL, "https://storage.test/") {
			t.Errorf("problem %s missing signed URL: %q", p.ID, p.ImageURL)
		}
	}
}
