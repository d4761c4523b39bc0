// Package store persists session state as a handful of independently keyed
// string values, one per field, and exposes an atomic read-modify-write over
// the whole set.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/playperu/shapedrop/internal/game"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
	// ErrConflict means another writer changed the session between read and
	// write. The update was not applied.
	ErrConflict = errors.New("concurrent session update")
)

// UpdateFunc mutates a freshly loaded state. Returning an error aborts the
// update without writing anything.
type UpdateFunc func(*game.State) error

type Store interface {
	// Load returns the current state of a session or ErrNotFound.
	Load(ctx context.Context, sessionID string) (game.State, error)
	// Create writes the initial state of a session, or ErrExists.
	Create(ctx context.Context, sessionID string, st game.State) error
	// Update loads the session, applies fn and writes every field back as
	// one unit. On error the returned state is the one fn observed.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (game.State, error)
	// Check verifies the backend is reachable.
	Check(ctx context.Context) error
	Close() error
}

// Field names of the flat layout.
const (
	fieldShapes      = "shapes"
	fieldChallenge   = "challenge"
	fieldPlayers     = "players"
	fieldLeaderboard = "leaderboard"
	fieldRound       = "round"
)

var fields = []string{fieldShapes, fieldChallenge, fieldPlayers, fieldLeaderboard, fieldRound}

const keyPrefix = "shapedrop:session:"

// Key returns the storage key of one session field.
func Key(sessionID, field string) string {
	return keyPrefix + sessionID + ":" + field
}

// Keys returns the storage keys of a session in fields order.
func Keys(sessionID string) []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = Key(sessionID, f)
	}
	return keys
}

// record is the flat field -> value form of a state. A missing field is an
// absent key.
type record map[string]string

func encode(st game.State) (record, error) {
	rec := make(record, len(fields))

	put := func(field string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", field, err)
		}
		rec[field] = string(b)
		return nil
	}

	if err := put(fieldShapes, nonNil(st.Shapes)); err != nil {
		return nil, err
	}
	if err := put(fieldPlayers, nonNil(st.Players)); err != nil {
		return nil, err
	}
	if err := put(fieldLeaderboard, nonNil(st.Leaderboard)); err != nil {
		return nil, err
	}
	if st.Challenge != nil {
		if err := put(fieldChallenge, st.Challenge); err != nil {
			return nil, err
		}
	}
	rec[fieldRound] = strconv.Itoa(st.CurrentRound)
	return rec, nil
}

// decode rebuilds a state. A session exists iff its round key exists; every
// other absent key decodes to an empty value.
func decode(rec record) (game.State, error) {
	st := game.State{
		Shapes:      []game.PlacedShape{},
		Players:     []string{},
		Leaderboard: []game.PlayerScoreEntry{},
	}

	round, ok := rec[fieldRound]
	if !ok {
		return st, ErrNotFound
	}
	n, err := strconv.Atoi(round)
	if err != nil {
		return st, fmt.Errorf("decoding round %q: %w", round, err)
	}
	st.CurrentRound = n

	get := func(field string, dest any) error {
		v, ok := rec[field]
		if !ok || v == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), dest); err != nil {
			return fmt.Errorf("decoding %s: %w", field, err)
		}
		return nil
	}

	if err := get(fieldShapes, &st.Shapes); err != nil {
		return st, err
	}
	if err := get(fieldPlayers, &st.Players); err != nil {
		return st, err
	}
	if err := get(fieldLeaderboard, &st.Leaderboard); err != nil {
		return st, err
	}
	if v, ok := rec[fieldChallenge]; ok && v != "" && v != "null" {
		var c game.Challenge
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return st, fmt.Errorf("decoding challenge: %w", err)
		}
		st.Challenge = &c
	}
	st.Shapes = nonNil(st.Shapes)
	st.Players = nonNil(st.Players)
	st.Leaderboard = nonNil(st.Leaderboard)
	return st, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
