package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/namethat/namethat/apperr"
	"github.com/namethat/namethat/auth"
	"github.com/namethat/namethat/game/model"
	"github.com/namethat/namethat/game/session"
	"github.com/namethat/namethat/game/store"
	"github.com/namethat/namethat/transport/websocket"
	"github.com/namethat/namethat/user"
	"github.com/namethat/namethat/validate"
)

// sessionCookie carries the long-lived session id that also keys the
// websocket reconnection fast path.
const sessionCookie = "namethat_session"

// Server is the HTTP surface: account and game management over REST plus
// the websocket endpoint that hands connections to the supervisor.
type Server struct {
	users    *user.Store
	games    *store.Store
	sessions session.Store
	hub      *websocket.Hub
	router   *mux.Router
}

// NewServer creates the API server and wires its routes.
func NewServer(users *user.Store, games *store.Store, sessions session.Store, hub *websocket.Hub) *Server {
	s := &Server{
		users:    users,
		games:    games,
		sessions: sessions,
		hub:      hub,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Accounts
	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/me", s.handleMe).Methods("GET")

	// Games
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleUpdateGame).Methods("PUT")
	api.HandleFunc("/games/{id}", s.handleDeleteGame).Methods("DELETE")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws/{gameId}", s.handleWebSocket)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, apperr.HTTPStatus(err), map[string]string{"error": err.Error()})
}

// ensureSession returns the request's session id, minting a cookie when
// the client does not have one yet.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	id, err := auth.GenerateSessionID()
	if err != nil {
		return "", apperr.Internal("failed to generate session id", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// currentUserID resolves the logged-in account for a session, if any.
func (s *Server) currentUserID(r *http.Request, sessionID string) (*uuid.UUID, error) {
	raw, ok, err := s.sessions.Get(r.Context(), sessionID, session.UserKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Internal("malformed user id in session store", err)
	}
	return &id, nil
}

// requireUser is currentUserID for endpoints that need a login.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	sessionID, err := s.ensureSession(w, r)
	if err != nil {
		return uuid.UUID{}, err
	}
	id, err := s.currentUserID(r, sessionID)
	if err != nil {
		return uuid.UUID{}, err
	}
	if id == nil {
		return uuid.UUID{}, apperr.Authentication("login required")
	}
	return *id, nil
}

// Account handlers

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	u, err := s.users.Create(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// A lookup miss reads the same as a bad password to the client.
		if apperr.KindOf(err) == apperr.KindNotFound {
			err = apperr.Authentication("invalid credentials")
		}
		respondError(w, err)
		return
	}

	sessionID, err := s.ensureSession(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.sessions.Set(r.Context(), sessionID, session.UserKey, u.ID.String()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
		return
	}
	if err := s.sessions.Delete(r.Context(), c.Value, session.UserKey); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := s.requireUser(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	u, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Game handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	userID, err := s.requireUser(w, r)
	if err != nil {
		respondError(w, err)
		return
	}

	filter := model.GameFilter{UserID: &userID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.GameStatus(raw)
		switch status {
		case model.StatusPending, model.StatusStarted, model.StatusFinished:
			filter.Status = &status
		default:
			respondError(w, apperr.Validation("unknown status %q", raw))
			return
		}
	}

	games, err := s.games.List(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, games)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	userID, err := s.requireUser(w, r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Name      string   `json:"name"`
		ImageURLs []string `json:"imageUrls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.GameName(req.Name); err != nil {
		respondError(w, err)
		return
	}
	if err := validate.ImageURLs(req.ImageURLs); err != nil {
		respondError(w, err)
		return
	}

	game, err := s.games.Insert(r.Context(), model.NewGame{
		UserID:    userID,
		Name:      req.Name,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, game)
}

// handleGetGame is unauthenticated: guests need the game before joining.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, apperr.Validation("invalid game id"))
		return
	}
	game, err := s.games.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.ownedGame(w, r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Name      string   `json:"name"`
		ImageURLs []string `json:"imageUrls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Validation("invalid request body"))
		return
	}
	if err := validate.GameName(req.Name); err != nil {
		respondError(w, err)
		return
	}
	if err := validate.ImageURLs(req.ImageURLs); err != nil {
		respondError(w, err)
		return
	}

	updated, err := s.games.Update(r.Context(), game.ID, model.UpdateGame{
		Name:      req.Name,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.ownedGame(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.games.Delete(r.Context(), game.ID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "game deleted"})
}

// ownedGame loads the addressed game and checks the caller owns it.
func (s *Server) ownedGame(w http.ResponseWriter, r *http.Request) (*model.Game, error) {
	userID, err := s.requireUser(w, r)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, apperr.Validation("invalid game id")
	}
	game, err := s.games.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if game.UserID != userID {
		return nil, apperr.Authorization("you do not own this game")
	}
	return game, nil
}

// WebSocket handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(mux.Vars(r)["gameId"])
	if err != nil {
		respondError(w, apperr.Validation("invalid game id"))
		return
	}
	if _, err := s.games.Get(r.Context(), gameID); err != nil {
		respondError(w, err)
		return
	}

	// The cookie must be set before the upgrade takes over the response.
	sessionID, err := s.ensureSession(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	userID, err := s.currentUserID(r, sessionID)
	if err != nil {
		log.Printf("failed to resolve user for websocket: %v", err)
		respondError(w, err)
		return
	}

	identity := websocket.Identity{SessionID: sessionID, UserID: userID}
	websocket.ServeWS(w, r, s.hub, s.games, s.sessions, gameID, identity)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
