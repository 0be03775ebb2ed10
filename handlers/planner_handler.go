package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/models"
	"github.com/pachaqtec/transit-planner/services"
)

type PlannerHandler struct {
	planner *services.PlannerService
	network *models.TransitNetwork
	logger  *logrus.Logger
}

func NewPlannerHandler(planner *services.PlannerService, network *models.TransitNetwork, logger *logrus.Logger) *PlannerHandler {
	return &PlannerHandler{
		planner: planner,
		network: network,
		logger:  logger,
	}
}

func (h *PlannerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/routes", h.PlanRoutes).Methods("POST")
}

func (h *PlannerHandler) PlanRoutes(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidCoordinate(req.Origin.Lat, req.Origin.Lng) ||
		!models.ValidCoordinate(req.Destination.Lat, req.Destination.Lng) {
		writeError(w, http.StatusBadRequest, "origin and destination must be valid coordinates")
		return
	}

	routes := h.planner.PlanAllRoutes(r.Context(), req.Origin, req.Destination, req.OriginName, req.DestinationName, h.network)

	// An empty list is a valid "no route available" answer, not an error.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"count":  len(routes),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
