// Package session keeps the per-session dashboard state: the latest
// normalized dataset, the selected intersection type and the uploaded file
// descriptor. Values are JSON text behind a small key-value contract so the
// backend can be Redis or process memory.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrQuotaExceeded is returned by Set when the backend has no room left.
var ErrQuotaExceeded = errors.New("session storage quota exceeded")

// Change is emitted whenever a key of the scope is written or removed.
type Change struct {
	Key     string    `json:"key"`
	Removed bool      `json:"removed,omitempty"`
	At      time.Time `json:"at"`
}

// KV is one session's key space. Watch delivers changes made through any
// handle on the same scope until ctx is done, then closes the channel.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Watch(ctx context.Context) (<-chan Change, error)
}

// Provider hands out the KV scope of a session.
type Provider interface {
	Scope(sessionID string) KV
}
