package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pachaqtec/transit-planner/geomath"
	"github.com/pachaqtec/transit-planner/models"
)

const (
	walkSpeedMetersPerMin    = 80.0
	maxWalkOnlyMeters        = 2000.0
	minibusSpeedMetersPerMin = 300.0
	maxMinibusAccessMeters   = 500.0
	minibusFareBs            = 2.0
	minibusWaitMinutes       = 5
	maxStationAccessMeters   = 800.0
	cableCarMinutesPerStop   = 3
	cableCarFareBs           = 3.0
	cableCarWaitMinutes      = 3
	maxDirectOptions         = 5
)

// DirectRoutePlanner synthesizes single-leg itineraries: walk-only, one
// minibus ride, or one cable-car ride.
type DirectRoutePlanner struct{}

func NewDirectRoutePlanner() *DirectRoutePlanner {
	return &DirectRoutePlanner{}
}

// PlanRoutes evaluates every line independently and returns the fastest
// options, at most maxDirectOptions, sorted ascending by total duration.
func (dp *DirectRoutePlanner) PlanRoutes(origin, destination models.Coordinate, originName, destinationName string, net *models.TransitNetwork) []models.RouteOption {
	var options []models.RouteOption

	if walk, ok := dp.walkOnlyOption(origin, destination, originName, destinationName); ok {
		options = append(options, walk)
	}

	for _, line := range net.MinibusLines {
		if opt, ok := dp.minibusOption(origin, destination, originName, destinationName, line); ok {
			options = append(options, opt)
		}
	}

	for _, line := range net.CableCarLines {
		if opt, ok := dp.cableCarOption(origin, destination, originName, destinationName, line); ok {
			options = append(options, opt)
		}
	}

	sort.Slice(options, func(i, j int) bool {
		return options[i].TotalDurationMinutes < options[j].TotalDurationMinutes
	})

	if len(options) > maxDirectOptions {
		options = options[:maxDirectOptions]
	}
	return options
}

func (dp *DirectRoutePlanner) walkOnlyOption(origin, destination models.Coordinate, originName, destinationName string) (models.RouteOption, bool) {
	dist := geomath.Distance(origin, destination)
	if dist >= maxWalkOnlyMeters {
		return models.RouteOption{}, false
	}

	seg := walkSegment(
		namedPoint(originName, origin),
		namedPoint(destinationName, destination),
		fmt.Sprintf("Walk to %s", pointLabel(destinationName, "your destination")),
	)

	return assembleOption([]models.RouteSegment{seg}, 0, 0, false), true
}

func (dp *DirectRoutePlanner) minibusOption(origin, destination models.Coordinate, originName, destinationName string, line models.MinibusLine) (models.RouteOption, bool) {
	boarding, ok := geomath.NearestPointOnPolyline(origin, line.Polyline)
	if !ok {
		return models.RouteOption{}, false
	}
	alighting, ok := geomath.NearestPointOnPolyline(destination, line.Polyline)
	if !ok {
		return models.RouteOption{}, false
	}

	if boarding.DistanceMeters >= maxMinibusAccessMeters || alighting.DistanceMeters >= maxMinibusAccessMeters {
		return models.RouteOption{}, false
	}
	// The polyline order is the travel direction; riding backwards is not
	// an option.
	if alighting.Index <= boarding.Index {
		return models.RouteOption{}, false
	}

	ridePolyline := line.Polyline[boarding.Index : alighting.Index+1]
	rideDist := geomath.PolylineLength(ridePolyline)
	label := fmt.Sprintf("Minibus %s", line.LineCode)

	boardPoint := models.NamedPoint{Name: fmt.Sprintf("%s boarding point", label), Lat: boarding.Coordinate.Lat, Lng: boarding.Coordinate.Lng}
	exitPoint := models.NamedPoint{Name: fmt.Sprintf("%s exit point", label), Lat: alighting.Coordinate.Lat, Lng: alighting.Coordinate.Lng}

	segments := []models.RouteSegment{
		walkSegment(namedPoint(originName, origin), boardPoint, fmt.Sprintf("Walk to the %s stop", label)),
		{
			ID:              uuid.NewString(),
			Mode:            models.ModeMinibus,
			From:            boardPoint,
			To:              exitPoint,
			DurationMinutes: ceilMinutes(rideDist, minibusSpeedMetersPerMin),
			DistanceMeters:  rideDist,
			CostBs:          minibusFareBs,
			LineLabel:       line.LineCode,
			Instructions:    fmt.Sprintf("Take %s (%s) towards %s", label, line.OperatorName, line.RouteName),
			Polyline:        ridePolyline,
		},
		walkSegment(exitPoint, namedPoint(destinationName, destination), fmt.Sprintf("Walk to %s", pointLabel(destinationName, "your destination"))),
	}

	// Minibuses run frequently and cheap; they are always the recommended
	// direct option when one exists.
	return assembleOption(segments, minibusWaitMinutes, 0, true), true
}

func (dp *DirectRoutePlanner) cableCarOption(origin, destination models.Coordinate, originName, destinationName string, line models.CableCarLine) (models.RouteOption, bool) {
	entry := geomath.NearestStation(origin, line.Stations)
	exit := geomath.NearestStation(destination, line.Stations)
	if entry == nil || exit == nil {
		return models.RouteOption{}, false
	}
	if entry.DistanceMeters >= maxStationAccessMeters || exit.DistanceMeters >= maxStationAccessMeters {
		return models.RouteOption{}, false
	}
	if entry.Station.ID == exit.Station.ID {
		return models.RouteOption{}, false
	}

	ride := stationRange(line, entry.Station, exit.Station)
	ridePolyline := stationPolyline(ride)
	rideDist := geomath.PolylineLength(ridePolyline)

	entryPoint := stationPoint(entry.Station)
	exitPoint := stationPoint(exit.Station)

	segments := []models.RouteSegment{
		walkSegment(namedPoint(originName, origin), entryPoint, fmt.Sprintf("Walk to %s station", entry.Station.Name)),
		{
			ID:              uuid.NewString(),
			Mode:            models.ModeCableCar,
			From:            entryPoint,
			To:              exitPoint,
			DurationMinutes: cableCarMinutesPerStop * len(ride),
			DistanceMeters:  rideDist,
			CostBs:          cableCarFareBs,
			LineLabel:       line.Name,
			Color:           line.Color,
			Instructions:    fmt.Sprintf("Ride %s from %s to %s", line.Name, entry.Station.Name, exit.Station.Name),
			Polyline:        ridePolyline,
		},
		walkSegment(exitPoint, namedPoint(destinationName, destination), fmt.Sprintf("Walk to %s", pointLabel(destinationName, "your destination"))),
	}

	return assembleOption(segments, cableCarWaitMinutes, 0, false), true
}

// stationRange returns the contiguous stations between from and to by
// order, direction-aware.
func stationRange(line models.CableCarLine, from, to models.Station) []models.Station {
	ordered := line.StationsInOrder()

	lo, hi := from.Order, to.Order
	reversed := false
	if lo > hi {
		lo, hi = hi, lo
		reversed = true
	}

	var out []models.Station
	for _, s := range ordered {
		if s.Order >= lo && s.Order <= hi {
			out = append(out, s)
		}
	}
	if reversed {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func stationPolyline(stations []models.Station) []models.Coordinate {
	out := make([]models.Coordinate, len(stations))
	for i, s := range stations {
		out[i] = s.Coordinate()
	}
	return out
}

func stationPoint(s models.Station) models.NamedPoint {
	return models.NamedPoint{Name: s.Name, Lat: s.Lat, Lng: s.Lng}
}

func namedPoint(name string, c models.Coordinate) models.NamedPoint {
	return models.NamedPoint{Name: pointLabel(name, "Selected point"), Lat: c.Lat, Lng: c.Lng}
}

func pointLabel(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func walkSegment(from, to models.NamedPoint, instructions string) models.RouteSegment {
	dist := geomath.Distance(from.Coordinate(), to.Coordinate())
	return models.RouteSegment{
		ID:              uuid.NewString(),
		Mode:            models.ModeWalk,
		From:            from,
		To:              to,
		DurationMinutes: ceilMinutes(dist, walkSpeedMetersPerMin),
		DistanceMeters:  dist,
		CostBs:          0,
		Instructions:    instructions,
		Polyline:        []models.Coordinate{from.Coordinate(), to.Coordinate()},
	}
}

func ceilMinutes(distanceMeters, speedMetersPerMin float64) int {
	if distanceMeters <= 0 {
		return 0
	}
	return int(math.Ceil(distanceMeters / speedMetersPerMin))
}

// assembleOption sums segment totals and applies the planner's fixed wait
// allowance on top of the ride durations.
func assembleOption(segments []models.RouteSegment, waitMinutes, transferCount int, recommended bool) models.RouteOption {
	var duration int
	var cost, distance float64
	for _, s := range segments {
		duration += s.DurationMinutes
		cost += s.CostBs
		distance += s.DistanceMeters
	}
	duration += waitMinutes

	now := time.Now()
	return models.RouteOption{
		ID:                   uuid.NewString(),
		Segments:             segments,
		TotalDurationMinutes: duration,
		TotalCostBs:          cost,
		TotalDistanceMeters:  distance,
		TransferCount:        transferCount,
		Recommended:          recommended,
		DepartureTime:        now,
		ArrivalTime:          now.Add(time.Duration(duration) * time.Minute),
	}
}
