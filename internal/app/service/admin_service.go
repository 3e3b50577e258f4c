package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
	"manion_server/internal/platform/config"
	"manion_server/internal/platform/storage"
)

type AdminService struct {
	kv     repository.KVStore
	store  storage.ObjectStore
	locker KeyLocker
}

func NewAdminService(kv repository.KVStore, store storage.ObjectStore, locker KeyLocker) *AdminService {
	return &AdminService{kv: kv, store: store, locker: locker}
}

type ProblemStats struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Processing  int `json:"processing"`
	Failed      int `json:"failed"`
	SuccessRate int `json:"successRate"`
}

type CommunityStats struct {
	TotalPosts            int     `json:"totalPosts"`
	GeneralPosts          int     `json:"generalPosts"`
	AnonymousPosts        int     `json:"anonymousPosts"`
	TotalReplies          int     `json:"totalReplies"`
	AverageRepliesPerPost float64 `json:"averageRepliesPerPost"`
	TotalLikes            int     `json:"totalLikes"`
	TotalDislikes         int     `json:"totalDislikes"`
}

type EvaluationStats struct {
	Total              int            `json:"total"`
	AverageRating      float64        `json:"averageRating"`
	RatingDistribution map[string]int `json:"ratingDistribution"`
	WithFeedback       int            `json:"withFeedback"`
}

type RecentStats struct {
	ProblemsLast30Days    int `json:"problemsLast30Days"`
	PostsLast30Days       int `json:"postsLast30Days"`
	EvaluationsLast30Days int `json:"evaluationsLast30Days"`
}

type OverviewStats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalActivity int `json:"totalActivity"`
}

type StatsResponse struct {
	Problems    ProblemStats    `json:"problems"`
	Community   CommunityStats  `json:"community"`
	Evaluations EvaluationStats `json:"evaluations"`
	Recent      RecentStats     `json:"recent"`
	Overview    OverviewStats   `json:"overview"`
}

// Stats recomputes every aggregate from full prefix scans on each call.
// O(total documents) per request; acceptable at this service's volume.
func (s *AdminService) Stats(ctx context.Context) (*StatsResponse, error) {
	problems, err := repository.ListDocs[model.Problem](ctx, s.kv, model.ProblemKeyPrefix)
	if err != nil {
		return nil, err
	}
	generalPosts, err := repository.ListDocs[model.Post](ctx, s.kv, model.BoardPostPrefix(model.BoardGeneral))
	if err != nil {
		return nil, err
	}
	anonymousPosts, err := repository.ListDocs[model.Post](ctx, s.kv, model.BoardPostPrefix(model.BoardAnonymous))
	if err != nil {
		return nil, err
	}
	noticePosts, err := repository.ListDocs[model.Post](ctx, s.kv, model.BoardPostPrefix(model.BoardNotice))
	if err != nil {
		return nil, err
	}
	evaluations, err := repository.ListDocs[model.Evaluation](ctx, s.kv, model.EvaluationKeyPrefix)
	if err != nil {
		return nil, err
	}

	allPosts := make([]model.Post, 0, len(generalPosts)+len(anonymousPosts)+len(noticePosts))
	allPosts = append(allPosts, generalPosts...)
	allPosts = append(allPosts, anonymousPosts...)
	allPosts = append(allPosts, noticePosts...)

	stats := &StatsResponse{}

	completed, processing, failed := 0, 0, 0
	for _, p := range problems {
		switch p.Status {
		case model.ProblemCompleted:
			completed++
		case model.ProblemProcessing:
			processing++
		case model.ProblemFailed:
			failed++
		}
	}
	stats.Problems = ProblemStats{
		Total:      len(problems),
		Completed:  completed,
		Processing: processing,
		Failed:     failed,
	}
	if len(problems) > 0 {
		stats.Problems.SuccessRate = int(math.Round(float64(completed) / float64(len(problems)) * 100))
	}

	totalReplies, totalLikes, totalDislikes := 0, 0, 0
	users := make(map[string]struct{})
	for _, p := range allPosts {
		totalReplies += len(p.Replies)
		totalLikes += p.Likes
		totalDislikes += p.Dislikes
		if p.UserID != nil {
			users[*p.UserID] = struct{}{}
		}
	}
	stats.Community = CommunityStats{
		TotalPosts:     len(allPosts),
		GeneralPosts:   len(generalPosts),
		AnonymousPosts: len(anonymousPosts),
		TotalReplies:   totalReplies,
		TotalLikes:     totalLikes,
		TotalDislikes:  totalDislikes,
	}
	if len(allPosts) > 0 {
		stats.Community.AverageRepliesPerPost = roundToTenth(float64(totalReplies) / float64(len(allPosts)))
	}

	distribution := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	totalRating, withFeedback := 0, 0
	for _, e := range evaluations {
		totalRating += e.Rating
		if e.Rating >= 1 && e.Rating <= 5 {
			distribution[strconv.Itoa(e.Rating)]++
		}
		if strings.TrimSpace(e.Feedback) != "" {
			withFeedback++
		}
	}
	stats.Evaluations = EvaluationStats{
		Total:              len(evaluations),
		RatingDistribution: distribution,
		WithFeedback:       withFeedback,
	}
	if len(evaluations) > 0 {
		stats.Evaluations.AverageRating = roundToTenth(float64(totalRating) / float64(len(evaluations)))
	}

	// Window is inclusive: a document timestamped exactly 30 days ago counts.
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	for _, p := range problems {
		if !p.UploadTime.Before(thirtyDaysAgo) {
			stats.Recent.ProblemsLast30Days++
		}
	}
	for _, p := range allPosts {
		if !p.CreatedAt.Before(thirtyDaysAgo) {
			stats.Recent.PostsLast30Days++
		}
	}
	for _, e := range evaluations {
		if !e.CreatedAt.Before(thirtyDaysAgo) {
			stats.Recent.EvaluationsLast30Days++
		}
	}

	stats.Overview = OverviewStats{
		TotalUsers:    len(users),
		TotalActivity: len(problems) + len(allPosts) + totalReplies + len(evaluations),
	}
	return stats, nil
}

// ListProblems returns every problem sorted newest first, with signed
// image URLs.
func (s *AdminService) ListProblems(ctx context.Context) ([]model.Problem, error) {
	problems, err := repository.ListDocs[model.Problem](ctx, s.kv, model.ProblemKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].UploadTime.After(problems[j].UploadTime)
	})
	for i := range problems {
		if problems[i].FileName == "" {
			continue
		}
		url, err := s.store.PresignGet(ctx, problems[i].FileName, config.AppConfig.SignedURLExpiry)
		if err != nil {
			slog.Error("failed to presign admin problem image", "problem_id", problems[i].ID, "error", err)
			continue
		}
		problems[i].ImageURL = url
	}
	return problems, nil
}

// ListEvaluations returns every evaluation sorted newest first.
func (s *AdminService) ListEvaluations(ctx context.Context) ([]model.Evaluation, error) {
	evaluations, err := repository.ListDocs[model.Evaluation](ctx, s.kv, model.EvaluationKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].CreatedAt.After(evaluations[j].CreatedAt)
	})
	return evaluations, nil
}

// DeleteProblem removes the problem document and its stored image. History
// entries referencing the problem are left in place.
func (s *AdminService) DeleteProblem(ctx context.Context, problemID string) error {
	problem, err := repository.GetDoc[model.Problem](ctx, s.kv, problemID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("problem not found: %w", common.ErrNotFound)
		}
		return err
	}
	if problem.FileName != "" {
		if err := s.store.Delete(ctx, problem.FileName); err != nil {
			slog.Error("failed to delete problem image", "problem_id", problemID, "error", err)
		}
	}
	return s.kv.Delete(ctx, problemID)
}

func (s *AdminService) DeletePost(ctx context.Context, postID string) error {
	if _, err := repository.GetDoc[model.Post](ctx, s.kv, postID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("post not found: %w", common.ErrNotFound)
		}
		return err
	}
	return s.kv.Delete(ctx, postID)
}

// DeleteReply filters one reply out of the post's embedded array under the
// post's key lock.
func (s *AdminService) DeleteReply(ctx context.Context, postID, replyID string) error {
	unlock, err := s.locker.Acquire(ctx, postID)
	if err != nil {
		return err
	}
	defer unlock()

	post, err := repository.GetDoc[model.Post](ctx, s.kv, postID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("post not found: %w", common.ErrNotFound)
		}
		return err
	}
	if !post.RemoveReply(replyID) {
		return common.Errorf("reply not found: %w", common.ErrNotFound)
	}
	return s.kv.Set(ctx, postID, post)
}

func (s *AdminService) DeleteEvaluation(ctx context.Context, evaluationID string) error {
	if _, err := repository.GetDoc[model.Evaluation](ctx, s.kv, evaluationID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("evaluation not found: %w", common.ErrNotFound)
		}
		return err
	}
	return s.kv.Delete(ctx, evaluationID)
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
