package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/playperu/shapedrop/internal/game"
)

// Event types published on a session channel.
const (
	EventShapePlace   = "shapePlace"
	EventNewChallenge = "newChallenge"
	EventGameComplete = "gameComplete"
	EventPlayerJoin   = "playerJoin"
	// EventSnapshot is only sent to a viewer right after it connects.
	EventSnapshot = "snapshot"
)

// Event carries a full session snapshot, so a subscriber can replace its
// local state with every event it receives regardless of order.
type Event struct {
	Type             string            `json:"type"`
	Shape            *game.PlacedShape `json:"shape,omitempty"`
	PlacingPlayer    string            `json:"placingPlayer,omitempty"`
	IsFirstPlacement *bool             `json:"isFirstPlacement,omitempty"`
	PlayerID         string            `json:"playerId,omitempty"`
	SessionState     game.State        `json:"sessionState"`
}

// Channel returns the pub/sub channel of a session.
func Channel(sessionID string) string {
	return "session:" + sessionID
}

func shapePlaceEvent(shape game.PlacedShape, first bool, st game.State) Event {
	return Event{
		Type:             EventShapePlace,
		Shape:            &shape,
		PlacingPlayer:    shape.PlayerID,
		IsFirstPlacement: &first,
		SessionState:     st,
	}
}

// transitionEvent describes what followed a cleared challenge.
func transitionEvent(next *game.Challenge, st game.State) Event {
	if next == nil {
		return Event{Type: EventGameComplete, SessionState: st}
	}
	return Event{Type: EventNewChallenge, SessionState: st}
}

func SnapshotEvent(st game.State) Event {
	return Event{Type: EventSnapshot, SessionState: st}
}

const publishTimeout = 5 * time.Second

// publish never fails the caller: errors are logged and dropped. It outlives
// a cancelled request context since the change it reports is committed.
func (c *Controller) publish(ctx context.Context, sessionID string, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("encoding event", "session", sessionID, "type", ev.Type, "error", err)
		return
	}
	if err := c.pub.Publish(ctx, Channel(sessionID), data); err != nil {
		c.logger.Warn("broadcast failed", "session", sessionID, "type", ev.Type, "error", err)
	}
}
