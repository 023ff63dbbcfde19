package setting

import "context"

// Well-known setting keys.
const (
	KeySyncCode = "sync_code"
	KeyLastSync = "last_sync"
)

// Store persists key/value settings.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
