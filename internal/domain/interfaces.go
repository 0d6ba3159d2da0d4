package domain

import (
	"context"
)

// Notifier delivers a message to a recipient. It either succeeds or returns a
// delivery failure; callers do not retry.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Locker serializes writers of the same key. The returned function releases
// the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
