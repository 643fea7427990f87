package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tourchat/tourchat/internal/chat"
	"github.com/tourchat/tourchat/internal/session"
	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	controller *session.Controller
	cities     CityLookup
	cache      EnrichmentCache
	enricher   Enricher
	log        *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(controller *session.Controller, cities CityLookup, cache EnrichmentCache, enricher Enricher, log *slog.Logger) *Handlers {
	return &Handlers{
		controller: controller,
		cities:     cities,
		cache:      cache,
		enricher:   enricher,
		log:        log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.controller.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, users.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username already exists, please choose a different username")
	case err != nil:
		h.log.Error("register failed", "username", req.Username, "err", err)
		writeError(w, http.StatusBadRequest, "please enter a valid username and password")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "registered, please sign in"})
	}
}

// Login handles POST /api/v1/auth/login. The response carries the session
// token and the initial render state.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.controller.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	s, err := h.controller.Resolve(token)
	if err != nil {
		h.log.Error("resolving freshly issued token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"state": h.controller.Snapshot(s),
	})
}

// Logout handles POST /api/v1/auth/logout. Ends the session and clears
// its conversation.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.controller.Logout(sessionFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// GetSession handles GET /api/v1/session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Snapshot(sessionFrom(r.Context())))
}

// UpdatePreferences handles PUT /api/v1/session/preferences. The body is
// the full preference set; it replaces the stored set wholesale.
func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs trip.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := sessionFrom(r.Context())
	snap, err := h.controller.UpdatePreferences(r.Context(), s, prefs)
	if err != nil {
		if validationErr := prefs.Validate(); validationErr != nil {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		h.log.Error("saving preferences failed", "username", s.Username(), "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

type sendMessageRequest struct {
	Message string     `json:"message"`
	Agent   trip.Agent `json:"agent,omitempty"`
}

// SendMessage handles POST /api/v1/session/messages. A gateway failure is
// reported as 502 and leaves the transcript unchanged, so the client can
// retry the same message.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := sessionFrom(r.Context())
	snap, err := h.controller.SendMessage(r.Context(), s, req.Agent, req.Message)
	switch {
	case errors.Is(err, chat.ErrGateway):
		h.log.Error("chat gateway failed", "username", s.Username(), "err", err)
		writeError(w, http.StatusBadGateway, "the assistant is unavailable, please try again")
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

// cityResponse is the map panel's payload: coordinates plus whatever
// enrichment the external APIs produced.
type cityResponse struct {
	City        string          `json:"city"`
	Coordinates trip.Coordinate `json:"coordinates"`
	Enrichment  any             `json:"enrichment,omitempty"`
}

// GetCity handles GET /api/v1/cities/{city}?weather=true.
// A lookup miss is a 404 with an inline message, never an error page.
// Enrichment data is cached; a cache failure degrades to a direct fetch.
func (h *Handlers) GetCity(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	includeWeather := r.URL.Query().Get("weather") == "true"

	coord, ok := h.cities.Coordinates(city)
	if !ok {
		writeError(w, http.StatusNotFound, "city not found in the dataset")
		return
	}

	cached, err := h.cache.Get(r.Context(), city)
	if err != nil {
		h.log.Error("cache get failed", "city", city, "err", err)
	}
	if cached != nil && (!includeWeather || cached.Weather != nil) {
		writeJSON(w, http.StatusOK, cityResponse{City: city, Coordinates: coord, Enrichment: cached})
		return
	}

	data := h.enricher.Enrich(r.Context(), city, coord, includeWeather)
	if err := h.cache.Set(r.Context(), city, data); err != nil {
		h.log.Warn("cache set failed", "city", city, "err", err)
	}

	writeJSON(w, http.StatusOK, cityResponse{City: city, Coordinates: coord, Enrichment: data})
}

// Pinger is a health-checkable backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that pings each named
// backing service. Services not configured for this deployment are simply
// absent from the map.
func HealthHandlerFunc(pingers map[string]Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		for name, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				log.Error("health check: ping failed", "service", name, "err", err)
				body[name] = "error"
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			body[name] = "ok"
		}

		writeJSON(w, status, body)
	}
}
