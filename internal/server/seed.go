package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/playperu/shapedrop/internal/session"
	"github.com/playperu/shapedrop/internal/store"
)

// SeedDemo creates the demo session if it does not exist yet.
// Idempotent: an existing session is left untouched.
func SeedDemo(ctx context.Context, logger *slog.Logger, sessions *session.Controller, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	st, err := sessions.Create(ctx, sessionID)
	if errors.Is(err, store.ErrExists) {
		logger.Info("demo session already exists", "session", sessionID)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("demo session created", "session", sessionID, "round", st.CurrentRound, "total_rounds", st.TotalRounds)
	return nil
}
