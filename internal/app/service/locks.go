package service

import "context"

// KeyLocker serialises read-modify-write cycles on one KV document. The
// production implementation is the Redis SETNX lock in platform/queue;
// tests substitute an in-process one.
type KeyLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}
