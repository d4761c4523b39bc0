// Package session runs every state-changing operation on a game session:
// creation, join, placement and challenge expiry. Each operation is one
// store transaction under a per-session lock, followed by a broadcast.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/shapedrop/internal/game"
	"github.com/playperu/shapedrop/internal/realtime"
	"github.com/playperu/shapedrop/internal/store"
)

var ErrOccupied = errors.New("position already occupied")

// errUnchanged aborts an update that has nothing to write.
var errUnchanged = errors.New("unchanged")

const expireTimeout = 5 * time.Second

type InitResult struct {
	SessionState   game.State `json:"sessionState"`
	ActingPlayerID string     `json:"actingPlayerId"`
}

type JoinResult struct {
	Success      bool       `json:"success"`
	SessionState game.State `json:"sessionState"`
}

type PlaceRequest struct {
	Type     game.ShapeKind `json:"type" required:"true"`
	Color    game.Color     `json:"color" required:"true"`
	Position game.Position  `json:"position" required:"true"`
}

type PlaceResult struct {
	Success          bool              `json:"success"`
	Shape            *game.PlacedShape `json:"shape,omitempty"`
	Message          string            `json:"message"`
	IsFirstPlacement bool              `json:"isFirstPlacement"`
	SessionState     game.State        `json:"sessionState"`
}

type LeaderboardResult struct {
	Entries      []game.PlayerScoreEntry `json:"entries"`
	TotalPlayers int                     `json:"totalPlayers"`
	CurrentRound int                     `json:"currentRound"`
	TotalRounds  int                     `json:"totalRounds"`
}

type Controller struct {
	engine *game.Engine
	store  store.Store
	pub    realtime.Publisher
	logger *slog.Logger

	locks  *locks
	timers *timers

	// ctx bounds timer callbacks; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(engine *game.Engine, st store.Store, pub realtime.Publisher, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		engine: engine,
		store:  st,
		pub:    pub,
		logger: logger,
		locks:  newLocks(),
		timers: newTimers(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels every pending challenge timer and waits for running ones.
// Call it before closing the store.
func (c *Controller) Close() {
	c.cancel()
	c.timers.stopAll()
}

func (c *Controller) hydrate(st *game.State) {
	st.TotalRounds = c.engine.Rules().TotalRounds
}

func (c *Controller) load(ctx context.Context, sessionID string) (game.State, error) {
	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return st, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	c.hydrate(&st)
	return st, nil
}

// bestEffort returns whatever state can still be read, or an empty one.
func (c *Controller) bestEffort(ctx context.Context, sessionID string) game.State {
	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		st = game.State{
			Shapes:      []game.PlacedShape{},
			Players:     []string{},
			Leaderboard: []game.PlayerScoreEntry{},
		}
	}
	c.hydrate(&st)
	return st
}

// Create initializes a session with its first challenge in place.
func (c *Controller) Create(ctx context.Context, sessionID string) (game.State, error) {
	unlock := c.locks.lock(sessionID)
	defer unlock()

	st := c.engine.NewSession()
	if err := c.store.Create(ctx, sessionID, st); err != nil {
		return game.State{}, fmt.Errorf("creating session %s: %w", sessionID, err)
	}
	c.armTimer(sessionID, st.Challenge)

	c.logger.Info("session created", "session", sessionID, "challenge", st.Challenge.ID)
	return st, nil
}

// Init returns a read-only snapshot for the acting player.
func (c *Controller) Init(ctx context.Context, sessionID, playerID string) (InitResult, error) {
	st, err := c.load(ctx, sessionID)
	if err != nil {
		return InitResult{}, err
	}
	c.resumeTimer(sessionID, &st)
	return InitResult{SessionState: st, ActingPlayerID: playerID}, nil
}

// Join adds playerID to the session if it is not already there.
func (c *Controller) Join(ctx context.Context, sessionID, playerID string) (JoinResult, error) {
	unlock := c.locks.lock(sessionID)
	defer unlock()

	st, err := c.store.Update(ctx, sessionID, func(st *game.State) error {
		if !st.AddPlayer(playerID) {
			return errUnchanged
		}
		return nil
	})
	added := err == nil
	if errors.Is(err, errUnchanged) {
		err = nil
	}
	if err != nil {
		c.logger.Error("join failed", "session", sessionID, "player", playerID, "error", err)
		return JoinResult{SessionState: c.bestEffort(ctx, sessionID)}, fmt.Errorf("joining session %s: %w", sessionID, err)
	}
	c.hydrate(&st)
	c.resumeTimer(sessionID, &st)

	if added {
		c.logger.Info("player joined", "session", sessionID, "player", playerID, "players", len(st.Players))
		c.publish(ctx, sessionID, Event{Type: EventPlayerJoin, PlayerID: playerID, SessionState: st})
	}
	return JoinResult{Success: true, SessionState: st}, nil
}

// Place validates and applies one placement. The result always carries a
// session state; the error classifies a failed placement (ErrOccupied,
// game.ErrOutOfGrid, game.ErrInvalidShape, store.ErrNotFound, or a store
// failure).
func (c *Controller) Place(ctx context.Context, sessionID, playerID string, req PlaceRequest) (PlaceResult, error) {
	if !req.Type.Valid() || !req.Color.Valid() {
		return PlaceResult{
			Message:      "Unknown shape or color.",
			SessionState: c.bestEffort(ctx, sessionID),
		}, game.ErrInvalidShape
	}
	if !c.engine.Grid().Contains(req.Position) {
		return PlaceResult{
			Message:      "That position is outside the building area.",
			SessionState: c.bestEffort(ctx, sessionID),
		}, game.ErrOutOfGrid
	}

	unlock := c.locks.lock(sessionID)
	defer unlock()

	var (
		shape   game.PlacedShape
		valid   bool
		first   bool
		cleared bool
		next    *game.Challenge
	)
	st, err := c.store.Update(ctx, sessionID, func(st *game.State) error {
		if game.IsOccupied(st.Shapes, req.Position) {
			return ErrOccupied
		}

		shape = c.engine.NewShape(st, playerID, req.Type, req.Color, req.Position)
		// Both checks see the state before the new shape is appended.
		valid = game.ValidateChallengeMove(st, shape)
		first = valid && game.IsFirstPlacementInChallenge(st, shape)

		st.Shapes = append(st.Shapes, shape)

		if valid {
			bonus := 0
			if first {
				bonus = game.FirstPlacementBonus
			}
			c.engine.ScorePlacement(st, playerID, bonus)
		}

		if game.CheckChallengeCompletion(st) {
			cleared = true
			next = c.engine.ClearChallenge(st)
		}
		return nil
	})

	switch {
	case errors.Is(err, ErrOccupied):
		c.hydrate(&st)
		c.logger.Debug("placement rejected", "session", sessionID, "player", playerID, "position", req.Position.String())
		return PlaceResult{
			Message:      "That position is already occupied.",
			SessionState: st,
		}, ErrOccupied
	case errors.Is(err, store.ErrNotFound):
		return PlaceResult{
			Message:      "Session not found.",
			SessionState: c.bestEffort(ctx, sessionID),
		}, fmt.Errorf("placing in session %s: %w", sessionID, err)
	case err != nil:
		c.logger.Error("placement failed", "session", sessionID, "player", playerID, "error", err)
		return PlaceResult{
			Message:      "Failed to place shape.",
			SessionState: c.bestEffort(ctx, sessionID),
		}, fmt.Errorf("placing in session %s: %w", sessionID, err)
	}
	c.hydrate(&st)

	if cleared {
		c.timers.cancel(sessionID)
		c.armTimer(sessionID, next)
	} else {
		c.resumeTimer(sessionID, &st)
	}

	c.logger.Info("shape placed",
		"session", sessionID,
		"player", playerID,
		"position", shape.Position.String(),
		"valid", valid,
		"first", first,
		"cleared", cleared,
	)

	c.publish(ctx, sessionID, shapePlaceEvent(shape, first, st))
	if cleared {
		c.publish(ctx, sessionID, transitionEvent(next, st))
	}

	return PlaceResult{
		Success:          true,
		Shape:            &shape,
		Message:          placeMessage(valid, first, cleared, next, &st),
		IsFirstPlacement: first,
		SessionState:     st,
	}, nil
}

func placeMessage(valid, first, cleared bool, next *game.Challenge, st *game.State) string {
	var msg string
	switch {
	case valid && first:
		msg = fmt.Sprintf("Correct! +%d points (first placement bonus).", 1+game.FirstPlacementBonus)
	case valid:
		msg = "Correct! +1 point."
	default:
		msg = "Shape placed, but it does not match the challenge."
	}

	switch {
	case cleared && next != nil:
		msg += fmt.Sprintf(" Challenge complete! Round %d of %d begins.", st.CurrentRound, st.TotalRounds)
	case cleared:
		msg += " Challenge complete! The game is over."
	case st.Challenge != nil:
		if n := game.SlotsRemaining(st); n > 0 {
			msg += fmt.Sprintf(" %d slot(s) remaining.", n)
		}
	}
	return msg
}

// Leaderboard returns the ranked scores of a session.
func (c *Controller) Leaderboard(ctx context.Context, sessionID string) (LeaderboardResult, error) {
	st, err := c.load(ctx, sessionID)
	if err != nil {
		return LeaderboardResult{}, err
	}
	return LeaderboardResult{
		Entries:      st.Leaderboard,
		TotalPlayers: len(st.Players),
		CurrentRound: st.CurrentRound,
		TotalRounds:  st.TotalRounds,
	}, nil
}

// armTimer schedules expiry of ch when it has a duration, replacing any
// pending timer of the session. Expiry is a fallback; challenges normally
// end when their slots are filled.
func (c *Controller) armTimer(sessionID string, ch *game.Challenge) {
	if ch == nil || ch.Duration <= 0 {
		return
	}
	challengeID := ch.ID
	c.timers.arm(sessionID, c.remaining(ch), func() {
		c.expire(sessionID, challengeID)
	})
}

// resumeTimer arms the active challenge's timer if this process has none
// for the session, as after a restart or when another instance created it.
func (c *Controller) resumeTimer(sessionID string, st *game.State) {
	ch := st.Challenge
	if ch == nil || ch.Duration <= 0 {
		return
	}
	challengeID := ch.ID
	if c.timers.armIdle(sessionID, c.remaining(ch), func() { c.expire(sessionID, challengeID) }) {
		c.logger.Debug("challenge timer resumed", "session", sessionID, "challenge", challengeID)
	}
}

// remaining is the time left before ch expires, clamped to [0, Duration].
func (c *Controller) remaining(ch *game.Challenge) time.Duration {
	left := ch.StartedAt + ch.Duration - c.engine.Now()
	left = min(max(left, 0), ch.Duration)
	return time.Duration(left) * time.Millisecond
}

// expire ends challengeID if it is still the active challenge and moves the
// session to its next round.
func (c *Controller) expire(sessionID, challengeID string) {
	ctx, cancel := context.WithTimeout(c.ctx, expireTimeout)
	defer cancel()

	unlock := c.locks.lock(sessionID)
	defer unlock()

	var next *game.Challenge
	st, err := c.store.Update(ctx, sessionID, func(st *game.State) error {
		if st.Challenge == nil || st.Challenge.ID != challengeID {
			return errUnchanged
		}
		next = c.engine.ClearChallenge(st)
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return
	}
	if err != nil {
		c.logger.Error("challenge expiry failed", "session", sessionID, "challenge", challengeID, "error", err)
		return
	}
	c.hydrate(&st)

	c.logger.Info("challenge expired", "session", sessionID, "challenge", challengeID, "round", st.CurrentRound)
	c.armTimer(sessionID, next)
	c.publish(ctx, sessionID, transitionEvent(next, st))
}
