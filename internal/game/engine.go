package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSlotAttempts bounds position resampling for one challenge slot.
const DefaultMaxSlotAttempts = 100

type Rules struct {
	GridSize          int
	TotalRounds       int
	MaxSlotAttempts   int
	ChallengeDuration time.Duration
}

// Engine creates challenges and scores placements according to Rules.
// Engine methods are safe for concurrent use; the State passed in is not.
type Engine struct {
	rules Rules
	grid  Grid

	mu  sync.Mutex
	rnd *Randomizer

	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithSource seeds the randomizer, mostly for deterministic tests.
func WithSource(src rand.Source) Option {
	return func(e *Engine) { e.rnd = NewRandomizer(e.grid, src) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine returns an engine for rules. An odd GridSize is rounded down to
// the next even size, with a minimum of 2, so every sampled position lies
// on the grid.
func NewEngine(rules Rules, opts ...Option) *Engine {
	rules.GridSize = max(rules.GridSize-rules.GridSize%2, 2)
	if rules.MaxSlotAttempts <= 0 {
		rules.MaxSlotAttempts = DefaultMaxSlotAttempts
	}
	e := &Engine{
		rules: rules,
		grid:  Grid{Size: rules.GridSize},
		now:   time.Now,
		newID: uuid.NewString,
	}
	e.rnd = NewRandomizer(e.grid, nil)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) Grid() Grid { return e.grid }

// Now returns the engine clock in unix milliseconds.
func (e *Engine) Now() int64 { return e.now().UnixMilli() }

// NewID returns a fresh entity id.
func (e *Engine) NewID() string { return e.newID() }

// NewSession returns the initial state of a session: empty collections and
// the first challenge already in place, so round 1 is never observed
// without a challenge.
func (e *Engine) NewSession() State {
	s := State{
		Shapes:      []PlacedShape{},
		Players:     []string{},
		Leaderboard: []PlayerScoreEntry{},
		TotalRounds: e.rules.TotalRounds,
	}
	e.CreateChallenge(&s)
	return s
}

// NewShape builds a PlacedShape for s stamped with a fresh id and the
// current time. The stamp never predates the active challenge, so a host
// whose clock lags the one that created the challenge still places shapes
// that count toward it.
func (e *Engine) NewShape(s *State, playerID string, kind ShapeKind, color Color, pos Position) PlacedShape {
	at := e.Now()
	if s.Challenge != nil {
		at = max(at, s.Challenge.StartedAt)
	}
	return PlacedShape{
		ID:        e.newID(),
		Type:      kind,
		Color:     color,
		Position:  pos,
		PlayerID:  playerID,
		CreatedAt: at,
	}
}

// latestShape returns the newest CreatedAt in shapes, or 0.
func latestShape(shapes []PlacedShape) int64 {
	var at int64
	for _, sh := range shapes {
		at = max(at, sh.CreatedAt)
	}
	return at
}
