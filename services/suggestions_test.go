package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pachaqtec/transit-planner/models"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	queries []string
	results []PlaceResult
	err     error
}

func (f *fakeGeocoder) SearchPlaces(ctx context.Context, query string) ([]PlaceResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeGeocoder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func suggestionNetwork() *models.TransitNetwork {
	return &models.TransitNetwork{
		MinibusLines: []models.MinibusLine{
			{
				ID:           "mb-273",
				LineCode:     "273",
				OperatorName: "Sindicato Litoral",
				RouteName:    "Villa Fatima - San Pedro",
				Polyline: []models.Coordinate{
					{Lat: -16.479, Lng: -68.119},
					{Lat: -16.500, Lng: -68.140},
				},
			},
		},
		CableCarLines: []models.CableCarLine{
			{
				ID:   "cc-amarilla",
				Name: "Linea Amarilla",
				Stations: []models.Station{
					{ID: "st-libertador", Name: "Del Libertador", Lat: -16.513, Lng: -68.104, Order: 1},
					{ID: "st-satelite", Name: "Ciudad Satelite", Lat: -16.522, Lng: -68.168, Order: 2},
				},
			},
		},
	}
}

func TestSearchRequiresMinimumQueryLength(t *testing.T) {
	geo := &fakeGeocoder{}
	ss := NewSuggestionService(geo, 0, 0, nil, nil)

	assert.Nil(t, ss.Search(context.Background(), "x", suggestionNetwork()))
	assert.Nil(t, ss.Search(context.Background(), "  ", suggestionNetwork()))
	assert.Empty(t, geo.calls(), "short queries must not reach the geocoder")
}

func TestSearchLocalMatches(t *testing.T) {
	ss := NewSuggestionService(&fakeGeocoder{}, 0, 0, nil, nil)
	net := suggestionNetwork()

	byLineCode := ss.Search(context.Background(), "273", net)
	var ids []string
	for _, s := range byLineCode {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "mb-273-start")
	assert.Contains(t, ids, "mb-273-end")

	byStation := ss.Search(context.Background(), "libertador", net)
	require.NotEmpty(t, byStation)
	assert.Equal(t, "st-libertador", byStation[0].ID)
	assert.Equal(t, models.SuggestionCableCarStation, byStation[0].Kind)

	byLineName := ss.Search(context.Background(), "amarilla", net)
	assert.Len(t, byLineName, 2, "a line-name match surfaces its stations")

	byZone := ss.Search(context.Background(), "sopoca", net)
	require.NotEmpty(t, byZone)
	assert.Equal(t, "zone-sopocachi", byZone[0].ID)
}

func TestSearchRemoteMergedAndCached(t *testing.T) {
	geo := &fakeGeocoder{results: []PlaceResult{
		{PlaceID: 41, DisplayName: "Mercado Rodriguez, La Paz", Lat: "-16.5021", Lon: "-68.1402"},
		{PlaceID: 42, DisplayName: "Calle Rodriguez, La Paz", Lat: "bogus", Lon: "-68.14"},
	}}
	ss := NewSuggestionService(geo, time.Minute, 0, nil, nil)
	net := suggestionNetwork()

	first := ss.Search(context.Background(), "Rodriguez", net)
	require.Len(t, geo.calls(), 1)

	var remote []models.Suggestion
	for _, s := range first {
		if s.Kind == models.SuggestionPlace {
			remote = append(remote, s)
		}
	}
	// The unparseable candidate is dropped.
	require.Len(t, remote, 1)
	assert.Equal(t, "place-41", remote[0].ID)

	// Same query within the TTL: served from cache, identical output.
	second := ss.Search(context.Background(), "rodriguez", net)
	assert.Len(t, geo.calls(), 1, "second lookup must hit the cache")
	assert.Equal(t, first, second)
}

func TestSearchSwallowsGeocoderFailures(t *testing.T) {
	for _, geoErr := range []error{ErrGeocoderRateLimited, errors.New("connection refused"), context.DeadlineExceeded} {
		geo := &fakeGeocoder{err: geoErr}
		ss := NewSuggestionService(geo, 0, 0, nil, nil)

		results := ss.Search(context.Background(), "villa", suggestionNetwork())
		// Local results still come back; the failure never surfaces.
		assert.NotEmpty(t, results)
		for _, s := range results {
			assert.NotEqual(t, models.SuggestionPlace, s.Kind)
		}
	}
}

func TestSearchDeduplicatesAndCaps(t *testing.T) {
	net := &models.TransitNetwork{}
	for i := 0; i < 12; i++ {
		net.MinibusLines = append(net.MinibusLines, models.MinibusLine{
			ID:           fmt.Sprintf("mb-%d", i),
			LineCode:     fmt.Sprintf("linea-%d", i),
			OperatorName: "Litoral",
			RouteName:    "Ruta",
			Polyline: []models.Coordinate{
				{Lat: -16.5, Lng: -68.15},
				{Lat: -16.51, Lng: -68.16},
			},
		})
	}
	ss := NewSuggestionService(nil, 0, 0, nil, nil)

	results := ss.Search(context.Background(), "litoral", net)
	assert.Len(t, results, maxSuggestions)

	seen := map[string]bool{}
	for _, s := range results {
		assert.False(t, seen[s.ID], "duplicate suggestion id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestSuggestionStreamLastQueryWins(t *testing.T) {
	geo := &fakeGeocoder{}
	ss := NewSuggestionService(geo, time.Minute, 20*time.Millisecond, nil, nil)

	stream := ss.NewStream(context.Background(), suggestionNetwork())
	defer stream.Stop()

	// Keystrokes arriving faster than the debounce window: only the last
	// query may reach the geocoder.
	stream.Submit("so")
	stream.Submit("sopo")
	stream.Submit("sopocachi")

	select {
	case results := <-stream.Results():
		require.NotEmpty(t, results)
		assert.Equal(t, "zone-sopocachi", results[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced results")
	}

	calls := geo.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sopocachi", calls[0])
}

func TestSuggestionStreamStopCancelsInFlight(t *testing.T) {
	ss := NewSuggestionService(&fakeGeocoder{}, time.Minute, 10*time.Millisecond, nil, nil)

	stream := ss.NewStream(context.Background(), suggestionNetwork())
	stream.Submit("miraflores")
	stream.Stop()

	// The results channel closes once the loop exits.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream.Results():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not shut down")
		}
	}
}
