// HTTP handlers for the observation and token endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pettai/pettkeeper/internal/models"
)

// statusHandler serves the full point-in-time status snapshot.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.snapshot()))
}

// actionsHandler serves the executed-action history, most recent first.
func (s *Server) actionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.store.Actions()))
}

// messagesHandler serves the outbound-message history, most recent first.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.store.Messages()))
}

// promptsHandler serves the decision-engine invocation history, most recent
// first.
func (s *Server) promptsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.store.Prompts()))
}

// tokenRequest is the POST /token body.
type tokenRequest struct {
	Token string `json:"token"`
}

// tokenHandler accepts a fresh bearer token and re-arms a session parked on
// an authentication failure.
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("api: failed to decode token request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Token == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Token must not be empty"))
		return
	}
	if err := s.sess.Rearm(req.Token); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	slog.Info("api: token updated")
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Token updated", nil))
}
