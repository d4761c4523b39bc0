package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/shapedrop/internal/session"
)

const apiTitle = "ShapeDrop API"

// healthResponse documents the /healthz body: one entry per dependency.
type healthResponse map[string]struct {
	Status string `json:"status"`
}

type sessionPath struct {
	SessionID string `path:"sessionID"`
}

type playerHeader struct {
	SessionID string `path:"sessionID"`
	Username  string `header:"X-Username" required:"true"`
}

type placeRequestDoc struct {
	playerHeader
	session.PlaceRequest
}

type createRequestDoc struct {
	Authorization string `header:"Authorization" description:"Bearer host key, when configured."`
	CreateSessionRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = apiTitle
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Multiplayer shape placement sessions with live updates.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the store and pub/sub backends.")
	getHealthz.AddRespStructure(healthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(healthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/sessions
	create, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	create.SetSummary("Create session")
	create.SetDescription("Creates a session at round 1 with its first challenge. A random id is assigned when sessionId is omitted.")
	create.AddReqStructure(createRequestDoc{})
	create.AddRespStructure(CreateSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(create)

	// GET /api/sessions/{sessionID}
	getInit, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}")
	getInit.SetSummary("Session snapshot")
	getInit.SetDescription("Returns the session state and the acting player's id.")
	getInit.AddReqStructure(playerHeader{})
	getInit.AddRespStructure(session.InitResult{}, openapi.WithHTTPStatus(http.StatusOK))
	getInit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getInit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getInit)

	// POST /api/sessions/{sessionID}/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/join")
	postJoin.SetSummary("Join session")
	postJoin.SetDescription("Adds the acting player to the session. Joining twice is a no-op.")
	postJoin.AddReqStructure(playerHeader{})
	postJoin.AddRespStructure(session.JoinResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(session.JoinResult{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postJoin)

	// POST /api/sessions/{sessionID}/shapes
	postShape, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{sessionID}/shapes")
	postShape.SetSummary("Place shape")
	postShape.SetDescription("Places a shape. Matching a challenge slot scores a point, plus a bonus for the first match of the challenge.")
	postShape.AddReqStructure(placeRequestDoc{})
	postShape.AddRespStructure(session.PlaceResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postShape.AddRespStructure(session.PlaceResult{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postShape.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postShape.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postShape.AddRespStructure(session.PlaceResult{}, openapi.WithHTTPStatus(http.StatusConflict))
	postShape.AddRespStructure(session.PlaceResult{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postShape)

	// GET /api/sessions/{sessionID}/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Returns ranked scores and round progress.")
	getLeaderboard.AddReqStructure(sessionPath{})
	getLeaderboard.AddRespStructure(session.LeaderboardResult{}, openapi.WithHTTPStatus(http.StatusOK))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/sessions/{sessionID}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session events, starting with a snapshot.")
	getEvents.AddReqStructure(sessionPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	getEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{sessionID}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{sessionID}/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket that carries session events as JSON text frames, starting with a snapshot.")
	getWS.AddReqStructure(sessionPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getWS.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func handleSwaggerUI() http.Handler {
	return v5emb.New(apiTitle, "/openapi.json", "/docs")
}
