package game

import (
	"cmp"
	"slices"
)

// FirstPlacementBonus is added to the first valid move of a challenge.
const FirstPlacementBonus = 1

// ScorePlacement credits playerID with 1+bonus points, stamps the entry with
// the current time and re-sorts the leaderboard.
func (e *Engine) ScorePlacement(s *State, playerID string, bonus int) PlayerScoreEntry {
	now := e.Now()
	idx := slices.IndexFunc(s.Leaderboard, func(p PlayerScoreEntry) bool {
		return p.PlayerID == playerID
	})
	if idx < 0 {
		s.Leaderboard = append(s.Leaderboard, PlayerScoreEntry{PlayerID: playerID})
		idx = len(s.Leaderboard) - 1
	}
	s.Leaderboard[idx].Score += 1 + bonus
	s.Leaderboard[idx].LastScoredAt = now
	entry := s.Leaderboard[idx]

	SortLeaderboard(s.Leaderboard)
	return entry
}

// SortLeaderboard orders entries by score descending, then by who reached
// their latest score first.
func SortLeaderboard(entries []PlayerScoreEntry) {
	slices.SortStableFunc(entries, func(a, b PlayerScoreEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.LastScoredAt, b.LastScoredAt)
	})
}
