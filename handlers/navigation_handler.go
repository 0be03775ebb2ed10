package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/models"
	"github.com/pachaqtec/transit-planner/services"
)

type NavigationHandler struct {
	navigation *services.NavigationService
	logger     *logrus.Logger
}

func NewNavigationHandler(navigation *services.NavigationService, logger *logrus.Logger) *NavigationHandler {
	return &NavigationHandler{
		navigation: navigation,
		logger:     logger,
	}
}

func (h *NavigationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/navigation", h.Start).Methods("POST")
	router.HandleFunc("/api/navigation/{id}", h.GetState).Methods("GET")
	router.HandleFunc("/api/navigation/{id}", h.Exit).Methods("DELETE")
	router.HandleFunc("/api/navigation/{id}/position", h.PositionFix).Methods("POST")
	router.HandleFunc("/api/navigation/{id}/pause", h.Pause).Methods("POST")
	router.HandleFunc("/api/navigation/{id}/resume", h.Resume).Methods("POST")
}

func (h *NavigationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartNavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.navigation.Start(req.Route)
	if err != nil {
		if errors.Is(err, services.ErrEmptyRoute) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, session.State())
}

func (h *NavigationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (h *NavigationHandler) PositionFix(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.PositionFixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidCoordinate(req.Position.Lat, req.Position.Lng) {
		writeError(w, http.StatusBadRequest, "position must be a valid coordinate")
		return
	}

	writeJSON(w, http.StatusOK, session.OnPositionFix(req.Position))
}

func (h *NavigationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Pause())
}

func (h *NavigationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Resume())
}

func (h *NavigationHandler) Exit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	state, ok := h.navigation.Exit(id)
	if !ok {
		writeError(w, http.StatusNotFound, "navigation session not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *NavigationHandler) session(w http.ResponseWriter, r *http.Request) (*services.NavigationSession, bool) {
	id := mux.Vars(r)["id"]
	session, ok := h.navigation.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "navigation session not found")
		return nil, false
	}
	return session, true
}
