package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/shapedrop/internal/database"
	"github.com/playperu/shapedrop/internal/game"
	"github.com/playperu/shapedrop/internal/migrations"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))
	s := NewSQLiteStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRedis(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := newRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLite(t),
		"redis":  rs,
	}
}

func sampleState() game.State {
	return game.State{
		Shapes: []game.PlacedShape{{
			ID: "s1", Type: game.ShapeCube, Color: game.ColorRed,
			Position: game.Position{X: 1, Y: 0, Z: -1}, PlayerID: "alice", CreatedAt: 10,
		}},
		Challenge: &game.Challenge{
			ID: "c1",
			Slots: []game.Slot{
				{Position: game.Position{X: 2}, Type: game.ShapeSphere, Color: game.ColorBlue},
				{Position: game.Position{Y: 3}, Type: game.ShapeCube, Color: game.ColorGreen},
				{Position: game.Position{Z: 4}, Type: game.ShapeTriangle, Color: game.ColorPurple},
			},
			StartedAt: 5,
		},
		Players:      []string{"alice"},
		Leaderboard:  []game.PlayerScoreEntry{{PlayerID: "alice", Score: 2, LastScoredAt: 10}},
		CurrentRound: 1,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleState()
			require.NoError(t, s.Create(ctx, "post-1", want))
			assert.ErrorIs(t, s.Create(ctx, "post-1", want), ErrExists)

			got, err := s.Load(ctx, "post-1")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, "post-2", sampleState()))

			st, err := s.Update(ctx, "post-2", func(st *game.State) error {
				st.AddPlayer("bob")
				st.Challenge = nil
				st.CurrentRound = 2
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, st.Players)

			got, err := s.Load(ctx, "post-2")
			require.NoError(t, err)
			assert.Nil(t, got.Challenge, "cleared challenge must not come back")
			assert.Equal(t, 2, got.CurrentRound)
			assert.Equal(t, []string{"alice", "bob"}, got.Players)

			// An aborted update writes nothing.
			errAbort := errors.New("abort")
			_, err = s.Update(ctx, "post-2", func(st *game.State) error {
				return errAbort
			})
			assert.ErrorIs(t, err, errAbort)

			_, err = s.Update(ctx, "missing", func(*game.State) error { return nil })
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreAbsentKeysAreEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(Key("bare", fieldRound), "3")

	st, err := s.Load(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentRound)
	assert.NotNil(t, st.Shapes)
	assert.Empty(t, st.Shapes)
	assert.Empty(t, st.Players)
	assert.Empty(t, st.Leaderboard)
	assert.Nil(t, st.Challenge)
}

func TestStoreMalformedData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "bad", sampleState()))
	s.Set(Key("bad", fieldShapes), "{not json")

	_, err := s.Load(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	s.Set(Key("bad", fieldShapes), "[]")
	s.Set(Key("bad", fieldRound), "two")
	_, err = s.Load(ctx, "bad")
	assert.Error(t, err)
}

func TestRedisKeyLayout(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t)
	require.NoError(t, s.Create(ctx, "post-3", sampleState()))

	round, err := mr.Get("shapedrop:session:post-3:round")
	require.NoError(t, err)
	assert.Equal(t, "1", round)
	assert.True(t, mr.Exists("shapedrop:session:post-3:challenge"))

	_, err = s.Update(ctx, "post-3", func(st *game.State) error {
		st.Challenge = nil
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("shapedrop:session:post-3:challenge"))
}

func TestRedisUpdateDetectsConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t)
	require.NoError(t, s.Create(ctx, "post-4", sampleState()))

	_, err := s.Update(ctx, "post-4", func(st *game.State) error {
		// Another process writes while this transaction holds its WATCH.
		mr.Set(Key("post-4", fieldPlayers), `["mallory"]`)
		st.AddPlayer("bob")
		return nil
	})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.Load(ctx, "post-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"mallory"}, got.Players)
}

func TestStoreConcurrentUpdatesKeepEveryShape(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"memory", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			s := backends(t)[name]
			require.NoError(t, s.Create(ctx, "race", game.State{CurrentRound: 1}))

			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Update(ctx, "race", func(st *game.State) error {
						st.Shapes = append(st.Shapes, game.PlacedShape{Position: game.Position{X: i}})
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Load(ctx, "race")
			require.NoError(t, err)
			assert.Len(t, got.Shapes, 20)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		url     string
		want    any
		wantErr bool
	}{
		{url: "memory://", want: &MemoryStore{}},
		{url: "sqlite://:memory:", want: &SQLiteStore{}},
		{url: "redis://" + mr.Addr(), want: &RedisStore{}},
		{url: "etcd://localhost", wantErr: true},
		{url: "sqlite://" + t.TempDir() + "/sessions.db", want: &SQLiteStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			s, err := Open(ctx, tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })

			assert.IsType(t, tt.want, s)
			assert.NoError(t, s.Check(ctx))

			require.NoError(t, s.Create(ctx, "post-1", sampleState()))
			got, err := s.Load(ctx, "post-1")
			require.NoError(t, err)
			assert.Equal(t, sampleState().Shapes, got.Shapes)
		})
	}
}
