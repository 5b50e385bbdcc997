package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gryt-terminal/internal/logging"
)

// Handler serves the GRYT HTTP API.
type Handler struct {
	keys      *KeyRegistry
	responder Responder
}

func NewHandler(keys *KeyRegistry, responder Responder) *Handler {
	if responder == nil {
		responder = EchoResponder()
	}
	return &Handler{keys: keys, responder: responder}
}

// NewRouter wires HTTP routes to the handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/validate-access-key", h.handleValidateAccessKey)
		api.Post("/keys/submit", h.handleSubmitAPIKey)

		api.Group(func(protected chi.Router) {
			protected.Use(h.authRequired)
			protected.Post("/chat/send", h.handleSendMessage)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleValidateAccessKey exchanges an admin-issued access key for a bearer
// token the chat endpoints accept.
func (h *Handler) handleValidateAccessKey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccessKey string `json:"accessKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(payload.AccessKey)
	if key == "" {
		respondError(w, http.StatusBadRequest, "accessKey is required")
		return
	}

	token, ok := h.keys.Validate(key)
	if !ok {
		logging.Info("access key rejected", "remote", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Invalid access key")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Access key validated successfully",
		"token":   token,
	})
}

// handleSubmitAPIKey accepts a user-supplied provider API key. No format
// requirements beyond non-emptiness.
func (h *Handler) handleSubmitAPIKey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey      string `json:"apiKey"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.APIKey) == "" {
		respondError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	logging.Info("api key submitted", "description", payload.Description)
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "API key received"})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if payload.SessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	reply, err := h.responder.Respond(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		logging.Error("responder failed", "session_id", payload.SessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to produce response")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// authRequired checks the Authorization header carries a token issued by the
// key registry.
func (h *Handler) authRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			respondError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		if !h.keys.CheckToken(parts[1]) {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
