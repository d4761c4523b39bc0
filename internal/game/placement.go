package game

// IsOccupied reports whether any shape already sits at pos.
func IsOccupied(shapes []PlacedShape, pos Position) bool {
	for _, sh := range shapes {
		if sh.Position == pos {
			return true
		}
	}
	return false
}

// ValidateChallengeMove reports whether shape fills one of the active
// challenge's slots with the required kind and color. A shape on a slot
// position with the wrong kind or color is not a valid move.
func ValidateChallengeMove(s *State, shape PlacedShape) bool {
	if s.Challenge == nil {
		return false
	}
	for _, slot := range s.Challenge.Slots {
		if slot.matches(shape) {
			return true
		}
	}
	return false
}

// IsFirstPlacementInChallenge reports whether no shape already in s counts
// toward the active challenge. Call it before shape is appended.
func IsFirstPlacementInChallenge(s *State, shape PlacedShape) bool {
	if s.Challenge == nil {
		return false
	}
	for _, other := range s.Shapes {
		if other.ID == shape.ID {
			continue
		}
		if countsToward(s.Challenge, other) {
			return false
		}
	}
	return true
}

// CheckChallengeCompletion reports whether every slot of the active
// challenge is filled by a matching shape placed during the challenge.
func CheckChallengeCompletion(s *State) bool {
	if s.Challenge == nil {
		return false
	}
	for _, slot := range s.Challenge.Slots {
		if !slotSatisfied(slot, s.Challenge.StartedAt, s.Shapes) {
			return false
		}
	}
	return true
}

// countsToward is the single satisfaction rule shared by the bonus and the
// completion checks: a shape counts only if placed at or after the
// challenge started.
func countsToward(c *Challenge, shape PlacedShape) bool {
	if shape.CreatedAt < c.StartedAt {
		return false
	}
	for _, slot := range c.Slots {
		if slot.matches(shape) {
			return true
		}
	}
	return false
}

func slotSatisfied(slot Slot, startedAt int64, shapes []PlacedShape) bool {
	for _, sh := range shapes {
		if sh.CreatedAt >= startedAt && slot.matches(sh) {
			return true
		}
	}
	return false
}

// SlotsRemaining counts the active challenge's slots not yet satisfied.
func SlotsRemaining(s *State) int {
	if s.Challenge == nil {
		return 0
	}
	n := 0
	for _, slot := range s.Challenge.Slots {
		if !slotSatisfied(slot, s.Challenge.StartedAt, s.Shapes) {
			n++
		}
	}
	return n
}
