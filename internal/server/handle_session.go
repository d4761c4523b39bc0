package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playperu/shapedrop/internal/game"
	"github.com/playperu/shapedrop/internal/session"
	"github.com/playperu/shapedrop/internal/store"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type CreateSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type CreateSessionResponse struct {
	SessionID    string     `json:"sessionId"`
	SessionState game.State `json:"sessionState"`
}

func handleCreateSession(logger *slog.Logger, sessions *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}
		if !sessionIDPattern.MatchString(req.SessionID) {
			writeError(w, http.StatusBadRequest, "invalid sessionId")
			return
		}

		st, err := sessions.Create(r.Context(), req.SessionID)
		if errors.Is(err, store.ErrExists) {
			writeError(w, http.StatusConflict, "session already exists")
			return
		}
		if err != nil {
			logger.Error("creating session", "session", req.SessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			SessionID:    req.SessionID,
			SessionState: st,
		})
	}
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

func handleInit(sessions *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := sessions.Init(r.Context(), sessionID(r), playerFrom(r))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleJoin(sessions *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := sessions.Join(r.Context(), sessionID(r), playerFrom(r))
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, res)
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}

// placeShapeRequest is the wire form of session.PlaceRequest. Pointer
// fields tell a missing field apart from the zero shape, color or
// coordinate.
type placeShapeRequest struct {
	Type     *game.ShapeKind `json:"type"`
	Color    *game.Color     `json:"color"`
	Position *struct {
		X *int `json:"x"`
		Y *int `json:"y"`
		Z *int `json:"z"`
	} `json:"position"`
}

func (p placeShapeRequest) toPlaceRequest() (session.PlaceRequest, error) {
	switch {
	case p.Type == nil:
		return session.PlaceRequest{}, errors.New("type is required")
	case p.Color == nil:
		return session.PlaceRequest{}, errors.New("color is required")
	case p.Position == nil:
		return session.PlaceRequest{}, errors.New("position is required")
	case p.Position.X == nil || p.Position.Y == nil || p.Position.Z == nil:
		return session.PlaceRequest{}, errors.New("position needs x, y and z")
	}
	return session.PlaceRequest{
		Type:     *p.Type,
		Color:    *p.Color,
		Position: game.Position{X: *p.Position.X, Y: *p.Position.Y, Z: *p.Position.Z},
	}, nil
}

func handlePlace(sessions *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body placeShapeRequest
		if err := readJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		req, err := body.toPlaceRequest()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}

		res, err := sessions.Place(r.Context(), sessionID(r), playerFrom(r), req)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, res)
		case errors.Is(err, session.ErrOccupied):
			writeJSON(w, http.StatusConflict, res)
		case errors.Is(err, game.ErrOutOfGrid), errors.Is(err, game.ErrInvalidShape):
			writeJSON(w, http.StatusBadRequest, res)
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		default:
			writeJSON(w, http.StatusInternalServerError, res)
		}
	}
}

func handleLeaderboard(sessions *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := sessions.Leaderboard(r.Context(), sessionID(r))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
