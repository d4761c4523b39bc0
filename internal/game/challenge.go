package game

// CreateChallenge starts the next round on s and returns its challenge, or
// nil when every round has been played. The round bump and the new
// challenge land on s together; callers persist s as one unit.
func (e *Engine) CreateChallenge(s *State) *Challenge {
	if s.CurrentRound >= e.rules.TotalRounds {
		return nil
	}
	s.CurrentRound++

	e.mu.Lock()
	slots := make([]Slot, 0, SlotsPerChallenge)
	for range SlotsPerChallenge {
		pos := e.freePosition(s.Shapes, slots)
		slots = append(slots, Slot{
			Position: pos,
			Type:     e.rnd.RandomShape(),
			Color:    e.rnd.RandomColor(),
		})
	}
	e.mu.Unlock()

	// Shapes already on the grid must predate the challenge even when they
	// were stamped by a host whose clock runs ahead of this one.
	c := &Challenge{
		ID:        e.newID(),
		Slots:     slots,
		StartedAt: max(e.Now(), latestShape(s.Shapes)+1),
		Duration:  e.rules.ChallengeDuration.Milliseconds(),
	}
	s.Challenge = c
	return c
}

// freePosition samples until it finds a position that is neither occupied
// nor already taken by a slot. After MaxSlotAttempts it returns the last
// sample regardless.
func (e *Engine) freePosition(shapes []PlacedShape, slots []Slot) Position {
	var pos Position
	for range e.rules.MaxSlotAttempts {
		pos = e.rnd.RandomPosition()
		if !IsOccupied(shapes, pos) && !slotAt(slots, pos) {
			return pos
		}
	}
	return pos
}

func slotAt(slots []Slot, pos Position) bool {
	for _, s := range slots {
		if s.Position == pos {
			return true
		}
	}
	return false
}

// ClearChallenge removes the active challenge and, when rounds remain,
// creates the next one. It returns the new challenge or nil when the session
// is complete.
func (e *Engine) ClearChallenge(s *State) *Challenge {
	s.Challenge = nil
	return e.CreateChallenge(s)
}
