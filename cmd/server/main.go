package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/shapedrop/internal/config"
	"github.com/playperu/shapedrop/internal/game"
	"github.com/playperu/shapedrop/internal/handler/health"
	"github.com/playperu/shapedrop/internal/realtime"
	"github.com/playperu/shapedrop/internal/server"
	"github.com/playperu/shapedrop/internal/session"
	"github.com/playperu/shapedrop/internal/store"
)

// channelPrefix namespaces session channels on a shared Redis.
const channelPrefix = "shapedrop:"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Store ---
	st, err := store.Open(ctx, cfg.StoreURL)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	logger.Info("session store ready", "url", redactURL(cfg.StoreURL))

	checks := map[string]health.Checker{"store": st}

	// --- Pub/sub ---
	broker := realtime.NewBroker()
	var (
		pub   realtime.Publisher = broker
		relay *realtime.Relay
	)
	if cfg.PubSubURL != "" {
		rdb, err := store.OpenRedis(ctx, cfg.PubSubURL)
		if err != nil {
			return fmt.Errorf("connecting to pubsub redis: %w", err)
		}
		defer rdb.Close()

		rp := realtime.NewRedisPublisher(rdb, channelPrefix)
		pub = rp
		relay = realtime.NewRelay(rdb, channelPrefix, broker, logger)
		checks["pubsub"] = rp
		logger.Info("connected to pubsub redis")
	}

	// --- Sessions ---
	engine := game.NewEngine(game.Rules{
		GridSize:          cfg.GridSize,
		TotalRounds:       cfg.TotalRounds,
		ChallengeDuration: cfg.ChallengeTimeout,
	})
	sessions := session.NewController(engine, st, pub, logger)
	// Deferred after st.Close so pending timers stop before the store closes.
	defer sessions.Close()

	if err := server.SeedDemo(ctx, logger, sessions, cfg.DemoSessionID); err != nil {
		return fmt.Errorf("seeding demo session: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Sessions:    sessions,
		Broker:      broker,
		HostKeyHash: cfg.HostKeyHash,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr,
			"grid_size", cfg.GridSize, "total_rounds", cfg.TotalRounds)
		return srv.Run(gctx)
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// redactURL hides credentials before a URL is logged.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		scheme, _, _ := strings.Cut(rawURL, "://")
		return scheme + "://..."
	}
	return u.Redacted()
}
