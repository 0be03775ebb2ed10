package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pachaqtec/transit-planner/models"
	"github.com/pachaqtec/transit-planner/services"
)

type SuggestionHandler struct {
	suggestions *services.SuggestionService
	network     *models.TransitNetwork
}

func NewSuggestionHandler(suggestions *services.SuggestionService, network *models.TransitNetwork) *SuggestionHandler {
	return &SuggestionHandler{
		suggestions: suggestions,
		network:     network,
	}
}

func (h *SuggestionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/suggestions", h.Suggest).Methods("GET")
}

func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results := h.suggestions.Search(r.Context(), query, h.network)
	if results == nil {
		results = []models.Suggestion{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": results,
		"count":       len(results),
	})
}
