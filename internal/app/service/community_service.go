package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"manion_server/internal/common"
	"manion_server/internal/domain/model"
	"manion_server/internal/domain/repository"
)

type CommunityService struct {
	kv     repository.KVStore
	locker KeyLocker
}

func NewCommunityService(kv repository.KVStore, locker KeyLocker) *CommunityService {
	return &CommunityService{kv: kv, locker: locker}
}

type CreatePostRequest struct {
	Content   string `json:"content"`
	Author    string `json:"author"`
	BoardType string `json:"boardType"`
	IsNotice  bool   `json:"isNotice"`
}

type VoteRequest struct {
	Action string `json:"action"`
}

type ReplyRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
	IsAdmin bool   `json:"isAdmin"`
}

// CreatePost writes a post to its board. The notice board is admin-only;
// general and anonymous boards accept unauthenticated callers.
func (s *CommunityService) CreatePost(ctx context.Context, user *model.User, req CreatePostRequest) (*model.Post, error) {
	board, ok := model.ParseBoardType(req.BoardType)
	if !ok {
		return nil, common.Errorf("invalid board type %q: %w", req.BoardType, common.ErrValidation)
	}
	if board == model.BoardNotice && !user.IsAdmin() {
		return nil, common.Errorf("only admin can create notice posts: %w", common.ErrForbidden)
	}

	post, err := model.NewPost(req.Content, req.Author, board, req.IsNotice, user)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, post.ID, post); err != nil {
		return nil, common.Errorf("failed to store post: %w", err)
	}

	if user != nil {
		if err := s.trackComment(ctx, user.ID, func(h *model.UserHistory) {
			h.AppendPostComment(post)
		}); err != nil {
			slog.Error("failed to record post in user history", "user_id", user.ID, "post_id", post.ID, "error", err)
		}
	}
	return post, nil
}

// ListPosts returns a board's posts sorted newest first.
func (s *CommunityService) ListPosts(ctx context.Context, board model.BoardType) ([]model.Post, error) {
	posts, err := repository.ListDocs[model.Post](ctx, s.kv, model.BoardPostPrefix(board))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

// Vote bumps a post's like or dislike counter under the post's key lock.
// Votes are counted per call, never deduplicated per user.
func (s *CommunityService) Vote(ctx context.Context, postID string, req VoteRequest) (*model.Post, error) {
	unlock, err := s.locker.Acquire(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := post.Vote(model.VoteAction(req.Action)); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, postID, post); err != nil {
		return nil, common.Errorf("failed to store vote: %w", err)
	}
	return post, nil
}

// Reply appends a reply to the post's embedded array. The post lock
// serialises concurrent replies so none are lost to a stale read.
func (s *CommunityService) Reply(ctx context.Context, user *model.User, postID string, req ReplyRequest) (*model.Reply, error) {
	reply, err := model.NewReply(req.Content, req.Author, req.IsAdmin, user)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Acquire(ctx, postID)
	if err != nil {
		return nil, err
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		unlock()
		return nil, err
	}
	post.AppendReply(*reply)
	err = s.kv.Set(ctx, postID, post)
	unlock()
	if err != nil {
		return nil, common.Errorf("failed to store reply: %w", err)
	}

	if user != nil {
		if err := s.trackComment(ctx, user.ID, func(h *model.UserHistory) {
			h.AppendReplyComment(postID, reply)
		}); err != nil {
			slog.Error("failed to record reply in user history", "user_id", user.ID, "post_id", postID, "error", err)
		}
	}
	return reply, nil
}

func (s *CommunityService) loadPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := repository.GetDoc[model.Post](ctx, s.kv, postID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("post not found: %w", common.ErrNotFound)
		}
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) trackComment(ctx context.Context, userID string, mutate func(*model.UserHistory)) error {
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
	mutate(history)
	return s.kv.Set(ctx, historyKey, history)
}
