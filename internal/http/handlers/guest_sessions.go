package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/middleware"
	"github.com/foodstand/guestkit/internal/model"
	"github.com/foodstand/guestkit/internal/repo"
)

var guestIDPattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)

// GuestSessionHandler handles the guest-session endpoints
type GuestSessionHandler struct {
	sessions repo.GuestSessionRepo
	logger   zerolog.Logger
}

// NewGuestSessionHandler creates a new guest-session handler
func NewGuestSessionHandler(sessions repo.GuestSessionRepo, logger zerolog.Logger) *GuestSessionHandler {
	return &GuestSessionHandler{sessions: sessions, logger: logger}
}

// HandleRegister handles POST /guest-sessions
func (h *GuestSessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.SessionRegistration
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.GuestID = strings.TrimSpace(req.GuestID)
	if !guestIDPattern.MatchString(req.GuestID) {
		respondWithError(w, http.StatusBadRequest, "guest_id must be 16 characters A-Z0-9")
		return
	}
	switch req.DeviceType {
	case model.DeviceMobile, model.DeviceTablet, model.DeviceDesktop:
	default:
		respondWithError(w, http.StatusBadRequest, "device_type must be mobile, tablet or desktop")
		return
	}
	if strings.TrimSpace(string(req.Browser)) == "" {
		respondWithError(w, http.StatusBadRequest, "browser is required")
		return
	}
	if strings.TrimSpace(req.Ref) == "" {
		req.Ref = "direct"
	}

	userID, _ := middleware.GetUserID(r.Context())
	session, err := h.sessions.Register(r.Context(), req, userID)
	if err != nil {
		h.logger.Error().Err(err).Str("guest_id", req.GuestID).Msg("failed to register guest session")
		respondWithError(w, http.StatusInternalServerError, "failed to register guest session")
		return
	}

	h.logger.Info().
		Str("guest_id", session.GuestID).
		Str("ref", session.Ref).
		Int("registrations", session.Registrations).
		Msg("guest session registered")
	respondWithData(w, http.StatusCreated, session)
}

// HandleTrackVisits handles PUT /guest-sessions/{guestID}
func (h *GuestSessionHandler) HandleTrackVisits(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestID")

	var req model.PageVisitsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PageVisits) == 0 {
		respondWithError(w, http.StatusBadRequest, "page_visits is required")
		return
	}
	for _, v := range req.PageVisits {
		if strings.TrimSpace(v.PageName) == "" || strings.TrimSpace(v.SectionName) == "" {
			respondWithError(w, http.StatusBadRequest, "page_name and section_name are required")
			return
		}
		if !v.OutTime.After(v.InTime) {
			respondWithError(w, http.StatusBadRequest, "out_time must be after in_time")
			return
		}
	}

	session, err := h.sessions.AppendVisits(r.Context(), guestID, req.PageVisits)
	if errors.Is(err, repo.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "guest session not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("guest_id", guestID).Msg("failed to track page visits")
		respondWithError(w, http.StatusInternalServerError, "failed to track page visits")
		return
	}

	respondWithData(w, http.StatusOK, session)
}

// HandleGet handles GET /guest-sessions/{guestID}
func (h *GuestSessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "guestID"))
	if errors.Is(err, repo.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "guest session not found")
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load guest session")
		return
	}
	respondWithData(w, http.StatusOK, session)
}

// HandleList handles GET /guest-sessions
func (h *GuestSessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list guest sessions")
		return
	}
	respondWithData(w, http.StatusOK, sessions)
}
