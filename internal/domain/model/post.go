package model

import (
	"time"

	"manion_server/internal/common"
)

type BoardType string

const (
	BoardGeneral   BoardType = "general"
	BoardAnonymous BoardType = "anonymous"
	BoardNotice    BoardType = "notice"
)

// MaxContentLength caps post, reply and evaluation feedback bodies.
const MaxContentLength = 200

func ParseBoardType(s string) (BoardType, bool) {
	switch BoardType(s) {
	case BoardGeneral, BoardAnonymous, BoardNotice:
		return BoardType(s), true
	default:
		return "", false
	}
}

type VoteAction string

const (
	VoteLike    VoteAction = "like"
	VoteDislike VoteAction = "dislike"
)

type Reply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	UserID    *string   `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	IsAdmin   bool      `json:"isAdmin"`
}

// Post is a community bulletin board entry. Replies are embedded rather
// than independently keyed, so every reply or vote is a read-modify-write
// of the whole document.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	BoardType BoardType `json:"boardType"`
	UserID    *string   `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Replies   []Reply   `json:"replies"`
	IsNotice  bool      `json:"isNotice"`
}

func NewPost(content, author string, board BoardType, isNotice bool, user *User) (*Post, error) {
	if content == "" || author == "" {
		return nil, common.Errorf("content and author are required: %w", common.ErrValidation)
	}
	if len([]rune(content)) > MaxContentLength {
		return nil, common.Errorf("content exceeds %d characters: %w", MaxContentLength, common.ErrValidation)
	}
	p := &Post{
		ID:        NewPostID(board),
		Content:   content,
		Author:    author,
		BoardType: board,
		CreatedAt: time.Now().UTC(),
		Replies:   []Reply{},
		IsNotice:  isNotice,
	}
	if user != nil {
		p.UserID = &user.ID
	}
	return p, nil
}

func NewReply(content, author string, isAdmin bool, user *User) (*Reply, error) {
	if content == "" || author == "" {
		return nil, common.Errorf("content and author are required: %w", common.ErrValidation)
	}
	if len([]rune(content)) > MaxContentLength {
		return nil, common.Errorf("content exceeds %d characters: %w", MaxContentLength, common.ErrValidation)
	}
	r := &Reply{
		ID:        NewReplyID(),
		Content:   content,
		Author:    author,
		CreatedAt: time.Now().UTC(),
		IsAdmin:   isAdmin,
	}
	if user != nil {
		r.UserID = &user.ID
	}
	return r, nil
}

// Vote bumps the like or dislike counter. Deliberately not deduplicated
// per user; repeated calls keep counting.
func (p *Post) Vote(action VoteAction) error {
	switch action {
	case VoteLike:
		p.Likes++
	case VoteDislike:
		p.Dislikes++
	default:
		return common.Errorf("unknown vote action %q: %w", action, common.ErrValidation)
	}
	return nil
}

func (p *Post) AppendReply(r Reply) {
	p.Replies = append(p.Replies, r)
}

// RemoveReply filters a reply out by id, reporting whether it was present.
func (p *Post) RemoveReply(replyID string) bool {
	for i, r := range p.Replies {
		if r.ID == replyID {
			p.Replies = append(p.Replies[:i], p.Replies[i+1:]...)
			return true
		}
	}
	return false
}
