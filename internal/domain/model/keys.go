package model

import (
	"crypto/rand"
	"fmt"
	"time"
)

// KV key prefixes. Keys embed the prefix so listing a document family is a
// single prefix scan against the flat namespace.
const (
	ProblemKeyPrefix    = "problem_"
	PostKeyPrefix       = "post_"
	EvaluationKeyPrefix = "evaluation_"
	RenderJobKeyPrefix  = "render_job_"
	UserHistoryPrefix   = "user_history_"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randSuffix returns n random base36 characters for key uniqueness.
func randSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal; fall back to a constant
		// so key generation never panics.
		return "000000000"[:n]
	}
	for i := range buf {
		buf[i] = base36Alphabet[int(buf[i])%len(base36Alphabet)]
	}
	return string(buf)
}

func timestampedKey(prefix string) string {
	return fmt.Sprintf("%s%d_%s", prefix, time.Now().UnixMilli(), randSuffix(9))
}

func NewProblemID() string {
	return timestampedKey(ProblemKeyPrefix)
}

func NewPostID(board BoardType) string {
	return timestampedKey(PostKeyPrefix + string(board) + "_")
}

func NewReplyID() string {
	return timestampedKey("reply_")
}

func NewEvaluationID() string {
	return timestampedKey(EvaluationKeyPrefix)
}

// BoardPostPrefix returns the scan prefix for one board's posts.
func BoardPostPrefix(board BoardType) string {
	return PostKeyPrefix + string(board) + "_"
}

// UserHistoryKey returns the KV key of a user's denormalized history log.
func UserHistoryKey(userID string) string {
	return UserHistoryPrefix + userID
}

// RenderJobKey returns the KV key of a render job document.
func RenderJobKey(jobID string) string {
	return RenderJobKeyPrefix + jobID
}
