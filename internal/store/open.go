package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/playperu/shapedrop/internal/database"
	"github.com/playperu/shapedrop/internal/migrations"
)

// Open picks a backend from the URL scheme: memory://, sqlite://<path> or
// redis://... (rediss:// too).
func Open(ctx context.Context, rawURL string) (Store, error) {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return nil, fmt.Errorf("store url %q has no scheme", rawURL)
	}

	switch scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		db, err := database.Open(ctx, rest)
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return NewSQLiteStore(db), nil
	case "redis", "rediss":
		rdb, err := OpenRedis(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", scheme)
	}
}
