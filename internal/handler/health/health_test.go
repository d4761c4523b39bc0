package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/playperu/shapedrop/internal/handler/health"
	"github.com/playperu/shapedrop/internal/realtime"
	"github.com/playperu/shapedrop/internal/store"
)

func failing(msg string) health.Checker {
	return health.CheckerFunc(func(context.Context) error { return errors.New(msg) })
}

func ok() health.Checker {
	return health.CheckerFunc(func(context.Context) error { return nil })
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]health.Checker{"store": ok(), "pubsub": ok()},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"store": "ok", "pubsub": "ok"},
		},
		{
			name:       "store down",
			checks:     map[string]health.Checker{"store": failing("locked"), "pubsub": ok()},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "error", "pubsub": "ok"},
		},
		{
			name:       "pubsub down",
			checks:     map[string]health.Checker{"store": ok(), "pubsub": failing("refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "ok", "pubsub": "error"},
		},
		{
			name:       "both down",
			checks:     map[string]health.Checker{"store": failing("db"), "pubsub": failing("cache")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "error", "pubsub": "error"},
		},
		{
			name:       "in-process broadcast",
			checks:     map[string]health.Checker{"store": store.NewMemoryStore()},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"store": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}

			if len(body) != len(tt.wantBody) {
				t.Errorf("got %d checks, want %d", len(body), len(tt.wantBody))
			}
			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestHandlerRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })

	h := health.NewHandler(slog.Default(), map[string]health.Checker{
		"pubsub": realtime.NewRedisPublisher(rdb, "shapedrop:"),
	})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	mr.Close()
	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d after redis stopped, want 503", rec.Code)
	}
}
