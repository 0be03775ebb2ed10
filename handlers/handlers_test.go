package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pachaqtec/transit-planner/models"
	"github.com/pachaqtec/transit-planner/services"
)

func handlerNetwork() *models.TransitNetwork {
	return &models.TransitNetwork{
		MinibusLines: []models.MinibusLine{
			{
				ID:           "mb-273",
				LineCode:     "273",
				OperatorName: "Sindicato Litoral",
				RouteName:    "Villa Fatima - San Pedro",
				Polyline: []models.Coordinate{
					{Lat: -16.4990, Lng: -68.1490},
					{Lat: -16.5010, Lng: -68.1510},
					{Lat: -16.5040, Lng: -68.1540},
					{Lat: -16.5060, Lng: -68.1560},
				},
			},
		},
		CableCarLines: []models.CableCarLine{
			{
				ID:    "cc-roja",
				Name:  "Linea Roja",
				Color: "#d32f2f",
				Stations: []models.Station{
					{ID: "st-central", Name: "Estacion Central", Lat: -16.4995, Lng: -68.1495, Order: 1},
					{ID: "st-cementerio", Name: "Cementerio", Lat: -16.4940, Lng: -68.1440, Order: 2},
				},
			},
		},
	}
}

func newTestRouter(t *testing.T) (*mux.Router, *services.NavigationService) {
	t.Helper()

	net := handlerNetwork()
	planner := services.NewPlannerService(services.NewDirectRoutePlanner(), services.NewTransferRoutePlanner(), nil, nil)
	suggestions := services.NewSuggestionService(nil, 0, 0, nil, nil)
	navigation := services.NewNavigationService(nil, nil)

	router := mux.NewRouter()
	NewPlannerHandler(planner, net, nil).RegisterRoutes(router)
	NewSuggestionHandler(suggestions, net).RegisterRoutes(router)
	NewNavigationHandler(navigation, nil).RegisterRoutes(router)
	return router, navigation
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPlanRoutesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/routes", models.PlanRequest{
		Origin:      models.Coordinate{Lat: -16.4992, Lng: -68.1492},
		Destination: models.Coordinate{Lat: -16.5058, Lng: -68.1558},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Routes []models.RouteOption `json:"routes"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Routes)
	assert.Equal(t, len(resp.Routes), resp.Count)
}

func TestPlanRoutesRejectsInvalidCoordinates(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/routes", models.PlanRequest{
		Origin:      models.Coordinate{Lat: 120, Lng: -68.15},
		Destination: models.Coordinate{Lat: -16.5, Lng: -68.15},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid coordinates")
}

func TestPlanRoutesRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/routes", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanRoutesNoRouteIsEmptyList(t *testing.T) {
	router, _ := newTestRouter(t)

	// Far outside the network and more than a walkable distance apart.
	rec := doJSON(t, router, http.MethodPost, "/api/routes", models.PlanRequest{
		Origin:      models.Coordinate{Lat: -17.10, Lng: -67.50},
		Destination: models.Coordinate{Lat: -17.20, Lng: -67.60},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Routes []models.RouteOption `json:"routes"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Routes)
	assert.Zero(t, resp.Count)
}

func TestSuggestionsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/suggestions?q=273", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []models.Suggestion `json:"suggestions"`
		Count       int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, len(resp.Suggestions), resp.Count)
}

func TestSuggestionsShortQueryIsEmptyList(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/suggestions?q=x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggestions":[]`)
}

func TestNavigationLifecycle(t *testing.T) {
	router, navigation := newTestRouter(t)
	defer navigation.StopAll()

	route := models.RouteOption{
		ID: "route-1",
		Segments: []models.RouteSegment{
			{
				ID:              "seg-1",
				Mode:            models.ModeWalk,
				From:            models.NamedPoint{Name: "Origin", Lat: -16.4990, Lng: -68.1490},
				To:              models.NamedPoint{Name: "Estacion Central", Lat: -16.4995, Lng: -68.1495},
				DurationMinutes: 2,
				DistanceMeters:  90,
				Instructions:    "Walk to Estacion Central",
			},
		},
		TotalDurationMinutes: 2,
		TotalDistanceMeters:  90,
	}

	rec := doJSON(t, router, http.MethodPost, "/api/navigation", models.StartNavigationRequest{Route: route})
	require.Equal(t, http.StatusCreated, rec.Code)

	var state models.NavigationState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotEmpty(t, state.SessionID)
	assert.True(t, state.IsActive)

	base := "/api/navigation/" + state.SessionID

	rec = doJSON(t, router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.IsPaused)

	rec = doJSON(t, router, http.MethodPost, base+"/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.False(t, state.IsPaused)

	rec = doJSON(t, router, http.MethodPost, base+"/position", models.PositionFixRequest{
		Position: models.Coordinate{Lat: -16.4995, Lng: -68.1495},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Arrived)

	rec = doJSON(t, router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNavigationStartRejectsEmptyRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/navigation", models.StartNavigationRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNavigationPositionFixValidation(t *testing.T) {
	router, navigation := newTestRouter(t)
	defer navigation.StopAll()

	session, err := navigation.Start(models.RouteOption{
		ID: "route-2",
		Segments: []models.RouteSegment{{
			ID:   "seg-1",
			Mode: models.ModeWalk,
			From: models.NamedPoint{Name: "A", Lat: -16.50, Lng: -68.15},
			To:   models.NamedPoint{Name: "B", Lat: -16.51, Lng: -68.16},
		}},
		TotalDurationMinutes: 5,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/navigation/"+session.ID+"/position", models.PositionFixRequest{
		Position: models.Coordinate{Lat: 200, Lng: 0},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNavigationUnknownSession(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/navigation/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/navigation/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
