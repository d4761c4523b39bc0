// Package game defines the session state, the challenge engine and the
// placement rules. It has no I/O: callers load a State, mutate it through
// the functions here and persist it themselves.
package game

import (
	"encoding/json"
	"fmt"
	"slices"
)

// MaxHeight is the highest valid y coordinate.
const MaxHeight = 10

// SlotsPerChallenge is the number of target slots in every challenge.
const SlotsPerChallenge = 3

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

type ShapeKind int

const (
	ShapeCube ShapeKind = iota
	ShapeSphere
	ShapeTriangle
)

// ShapeKinds lists every shape kind in declaration order.
var ShapeKinds = []ShapeKind{ShapeCube, ShapeSphere, ShapeTriangle}

func (k ShapeKind) String() string {
	switch k {
	case ShapeCube:
		return "cube"
	case ShapeSphere:
		return "sphere"
	case ShapeTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}

func (k ShapeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid shape kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *ShapeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseShapeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k ShapeKind) Valid() bool {
	return k >= ShapeCube && k <= ShapeTriangle
}

func ParseShapeKind(s string) (ShapeKind, error) {
	for _, k := range ShapeKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}

type Color int

const (
	ColorRed Color = iota
	ColorBlue
	ColorGreen
	ColorYellow
	ColorPurple
	ColorOrange
)

// Colors lists every color in declaration order.
var Colors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorPurple, ColorOrange}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	case ColorPurple:
		return "purple"
	case ColorOrange:
		return "orange"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

func (c Color) Valid() bool {
	return c >= ColorRed && c <= ColorOrange
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// PlacedShape is never mutated after it is appended to a session.
type PlacedShape struct {
	ID        string    `json:"id"`
	Type      ShapeKind `json:"type"`
	Color     Color     `json:"color"`
	Position  Position  `json:"position"`
	PlayerID  string    `json:"playerId"`
	CreatedAt int64     `json:"createdAt"`
}

type Slot struct {
	Position Position  `json:"position"`
	Type     ShapeKind `json:"type"`
	Color    Color     `json:"color"`
}

func (s Slot) matches(shape PlacedShape) bool {
	return s.Position == shape.Position && s.Type == shape.Type && s.Color == shape.Color
}

type Challenge struct {
	ID        string `json:"id"`
	Slots     []Slot `json:"slots"`
	StartedAt int64  `json:"startedAt"`
	// Duration in milliseconds; 0 means the challenge ends only on completion.
	Duration int64 `json:"duration"`
}

type PlayerScoreEntry struct {
	PlayerID     string `json:"playerId"`
	Score        int    `json:"score"`
	LastScoredAt int64  `json:"lastScoredAt"`
}

// State is the aggregate root of one session.
type State struct {
	Shapes       []PlacedShape      `json:"shapes"`
	Challenge    *Challenge         `json:"challenge"`
	Players      []string           `json:"players"`
	Leaderboard  []PlayerScoreEntry `json:"leaderboard"`
	CurrentRound int                `json:"currentRound"`
	TotalRounds  int                `json:"totalRounds"`
}

// Active reports whether rounds remain after the current one.
func (s *State) Active() bool {
	return s.CurrentRound < s.TotalRounds
}

// Complete reports whether the final round has been cleared.
func (s *State) Complete() bool {
	return s.Challenge == nil && s.CurrentRound >= s.TotalRounds
}

// MarshalJSON adds the derived active and complete flags.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	return json.Marshal(struct {
		plain
		Active   bool `json:"active"`
		Complete bool `json:"complete"`
	}{plain(s), s.Active(), s.Complete()})
}

// HasPlayer reports whether playerID has joined the session.
func (s *State) HasPlayer(playerID string) bool {
	return slices.Contains(s.Players, playerID)
}

// AddPlayer appends playerID if absent and reports whether it was added.
func (s *State) AddPlayer(playerID string) bool {
	if s.HasPlayer(playerID) {
		return false
	}
	s.Players = append(s.Players, playerID)
	return true
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Shapes = slices.Clone(s.Shapes)
	out.Players = slices.Clone(s.Players)
	out.Leaderboard = slices.Clone(s.Leaderboard)
	if s.Challenge != nil {
		c := *s.Challenge
		c.Slots = slices.Clone(s.Challenge.Slots)
		out.Challenge = &c
	}
	return out
}
