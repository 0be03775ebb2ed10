package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/metrics"
	"github.com/pachaqtec/transit-planner/models"
)

const (
	minQueryLength    = 2
	maxSuggestions    = 15
	defaultCacheTTL   = 5 * time.Minute
	defaultDebounce   = 350 * time.Millisecond
	streamResultDepth = 4
)

// cityZones is the fixed gazetteer of well-known La Paz zones. Matched
// locally so common destinations resolve without a geocoder round-trip.
var cityZones = []models.Suggestion{
	{ID: "zone-centro", Name: "Centro", Kind: models.SuggestionZone, Lat: -16.4957, Lng: -68.1335},
	{ID: "zone-sopocachi", Name: "Sopocachi", Kind: models.SuggestionZone, Lat: -16.5103, Lng: -68.1281},
	{ID: "zone-san-pedro", Name: "San Pedro", Kind: models.SuggestionZone, Lat: -16.5005, Lng: -68.1400},
	{ID: "zone-miraflores", Name: "Miraflores", Kind: models.SuggestionZone, Lat: -16.4961, Lng: -68.1180},
	{ID: "zone-obrajes", Name: "Obrajes", Kind: models.SuggestionZone, Lat: -16.5313, Lng: -68.1096},
	{ID: "zone-calacoto", Name: "Calacoto", Kind: models.SuggestionZone, Lat: -16.5441, Lng: -68.0870},
	{ID: "zone-san-miguel", Name: "San Miguel", Kind: models.SuggestionZone, Lat: -16.5415, Lng: -68.0795},
	{ID: "zone-villa-fatima", Name: "Villa Fatima", Kind: models.SuggestionZone, Lat: -16.4790, Lng: -68.1190},
	{ID: "zone-el-alto-ceja", Name: "La Ceja, El Alto", Kind: models.SuggestionZone, Lat: -16.5040, Lng: -68.1650},
	{ID: "zone-achumani", Name: "Achumani", Kind: models.SuggestionZone, Lat: -16.5500, Lng: -68.0700},
}

type cacheEntry struct {
	suggestions []models.Suggestion
	expiresAt   time.Time
}

// SuggestionService resolves free-text queries into ranked location
// suggestions: local substring matches over the transit network and the
// zone gazetteer, plus a cached, failure-tolerant geocoder lookup.
type SuggestionService struct {
	geocoder PlaceSearcher
	cacheTTL time.Duration
	debounce time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry

	logger  *logrus.Logger
	metrics *metrics.Collector
}

func NewSuggestionService(geocoder PlaceSearcher, cacheTTL, debounce time.Duration, logger *logrus.Logger, collector *metrics.Collector) *SuggestionService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &SuggestionService{
		geocoder: geocoder,
		cacheTTL: cacheTTL,
		debounce: debounce,
		cache:    make(map[string]cacheEntry),
		logger:   logger,
		metrics:  collector,
	}
}

// Search returns up to maxSuggestions candidates for the query. Geocoder
// failures of any kind only reduce completeness; they are never returned as
// errors.
func (ss *SuggestionService) Search(ctx context.Context, query string, net *models.TransitNetwork) []models.Suggestion {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryLength {
		return nil
	}
	if ss.metrics != nil {
		ss.metrics.SuggestionRequests.Inc()
	}

	suggestions := ss.localMatches(query, net)
	suggestions = append(suggestions, ss.remoteMatches(ctx, query)...)

	return dedupeSuggestions(suggestions, maxSuggestions)
}

func (ss *SuggestionService) localMatches(query string, net *models.TransitNetwork) []models.Suggestion {
	q := strings.ToLower(query)
	var out []models.Suggestion

	if net != nil {
		for _, line := range net.MinibusLines {
			if !containsAny(q, line.LineCode, line.OperatorName, line.RouteName) {
				continue
			}
			if len(line.Polyline) == 0 {
				continue
			}
			first := line.Polyline[0]
			last := line.Polyline[len(line.Polyline)-1]
			out = append(out,
				models.Suggestion{
					ID:     line.ID + "-start",
					Name:   "Minibus " + line.LineCode + " (inicio)",
					Detail: line.OperatorName + " - " + line.RouteName,
					Kind:   models.SuggestionMinibusStop,
					Lat:    first.Lat,
					Lng:    first.Lng,
				},
				models.Suggestion{
					ID:     line.ID + "-end",
					Name:   "Minibus " + line.LineCode + " (final)",
					Detail: line.OperatorName + " - " + line.RouteName,
					Kind:   models.SuggestionMinibusStop,
					Lat:    last.Lat,
					Lng:    last.Lng,
				},
			)
		}

		for _, line := range net.CableCarLines {
			lineMatches := strings.Contains(strings.ToLower(line.Name), q)
			for _, st := range line.StationsInOrder() {
				if lineMatches || strings.Contains(strings.ToLower(st.Name), q) {
					out = append(out, models.Suggestion{
						ID:     st.ID,
						Name:   st.Name,
						Detail: line.Name,
						Kind:   models.SuggestionCableCarStation,
						Lat:    st.Lat,
						Lng:    st.Lng,
					})
				}
			}
		}
	}

	for _, zone := range cityZones {
		if strings.Contains(strings.ToLower(zone.Name), q) {
			out = append(out, zone)
		}
	}

	return out
}

func (ss *SuggestionService) remoteMatches(ctx context.Context, query string) []models.Suggestion {
	if ss.geocoder == nil {
		return nil
	}

	key := strings.ToLower(query)
	ss.mu.Lock()
	entry, ok := ss.cache[key]
	ss.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		if ss.metrics != nil {
			ss.metrics.SuggestionCacheHits.Inc()
		}
		return entry.suggestions
	}
	if ss.metrics != nil {
		ss.metrics.SuggestionCacheMiss.Inc()
	}

	places, err := ss.geocoder.SearchPlaces(ctx, query)
	if err != nil {
		// Rate limits, timeouts and network failures all degrade to
		// local-only results.
		if ss.metrics != nil {
			ss.metrics.GeocoderErrsSwallowed.Inc()
		}
		if ss.logger != nil {
			ss.logger.WithError(err).WithField("query", query).Debug("Geocoder lookup failed, returning local results only")
		}
		return nil
	}

	suggestions := make([]models.Suggestion, 0, len(places))
	for _, p := range places {
		if s, ok := p.Suggestion(); ok {
			suggestions = append(suggestions, s)
		}
	}

	ss.mu.Lock()
	ss.cache[key] = cacheEntry{suggestions: suggestions, expiresAt: time.Now().Add(ss.cacheTTL)}
	ss.mu.Unlock()

	return suggestions
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func dedupeSuggestions(in []models.Suggestion, limit int) []models.Suggestion {
	seen := make(map[string]bool, len(in))
	out := make([]models.Suggestion, 0, len(in))
	for _, s := range in {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SuggestionStream debounces a stream of keystrokes into searches. At most
// one remote lookup is in flight; a newer query cancels the older one and a
// superseded result is discarded, not merged.
type SuggestionStream struct {
	queries chan string
	results chan []models.Suggestion
	cancel  context.CancelFunc
}

type streamResult struct {
	generation  int
	suggestions []models.Suggestion
}

// NewStream starts the debounce loop. Close the stream with Stop; the
// results channel is closed when the loop exits.
func (ss *SuggestionService) NewStream(ctx context.Context, net *models.TransitNetwork) *SuggestionStream {
	ctx, cancel := context.WithCancel(ctx)
	stream := &SuggestionStream{
		queries: make(chan string, 16),
		results: make(chan []models.Suggestion, streamResultDepth),
		cancel:  cancel,
	}

	go ss.runStream(ctx, net, stream)
	return stream
}

func (ss *SuggestionService) runStream(ctx context.Context, net *models.TransitNetwork, stream *SuggestionStream) {
	defer close(stream.results)

	timer := time.NewTimer(ss.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	var pending string
	var inflightCancel context.CancelFunc
	generation := 0
	done := make(chan streamResult, 1)

	defer func() {
		if inflightCancel != nil {
			inflightCancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case q := <-stream.queries:
			pending = q
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(ss.debounce)

		case <-timer.C:
			if inflightCancel != nil {
				inflightCancel()
			}
			generation++
			gen := generation
			query := pending
			searchCtx, cancel := context.WithCancel(ctx)
			inflightCancel = cancel
			go func() {
				suggestions := ss.Search(searchCtx, query, net)
				select {
				case done <- streamResult{generation: gen, suggestions: suggestions}:
				case <-searchCtx.Done():
				}
			}()

		case r := <-done:
			if r.generation != generation {
				// A newer query superseded this lookup.
				continue
			}
			select {
			case stream.results <- r.suggestions:
			default:
				// Consumer is behind; drop the oldest result.
				select {
				case <-stream.results:
				default:
				}
				stream.results <- r.suggestions
			}
		}
	}
}

// Submit queues a keystroke. Non-blocking; when the consumer floods the
// queue the oldest pending query is dropped, since only the latest matters.
func (s *SuggestionStream) Submit(query string) {
	select {
	case s.queries <- query:
	default:
		select {
		case <-s.queries:
		default:
		}
		s.queries <- query
	}
}

// Results delivers suggestion lists for settled queries, newest last.
func (s *SuggestionStream) Results() <-chan []models.Suggestion {
	return s.results
}

// Stop cancels the debounce loop and any in-flight lookup.
func (s *SuggestionStream) Stop() {
	s.cancel()
}
