// Package geomath holds the distance and projection primitives shared by the
// planners, the suggestion index and the navigation tracker. Keeping them in
// one place avoids the drift that comes from every service carrying its own
// haversine copy.
package geomath

import (
	"math"

	"github.com/pachaqtec/transit-planner/models"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle (haversine) distance between two
// coordinates in meters.
func Distance(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// PolylinePoint is the result of projecting a coordinate onto a polyline.
type PolylinePoint struct {
	Index          int
	Coordinate     models.Coordinate
	DistanceMeters float64
}

// NearestPointOnPolyline scans the polyline vertices and returns the closest
// one. Ties go to the lowest index. The second return is false when the
// polyline is empty.
func NearestPointOnPolyline(p models.Coordinate, polyline []models.Coordinate) (PolylinePoint, bool) {
	if len(polyline) == 0 {
		return PolylinePoint{}, false
	}

	best := PolylinePoint{Index: 0, Coordinate: polyline[0], DistanceMeters: Distance(p, polyline[0])}
	for i := 1; i < len(polyline); i++ {
		if d := Distance(p, polyline[i]); d < best.DistanceMeters {
			best = PolylinePoint{Index: i, Coordinate: polyline[i], DistanceMeters: d}
		}
	}
	return best, true
}

// StationMatch pairs a station with its distance from the query point.
type StationMatch struct {
	Station        models.Station
	DistanceMeters float64
}

// NearestStation returns the station closest to p, or nil when the list is
// empty. Ties go to the first occurrence.
func NearestStation(p models.Coordinate, stations []models.Station) *StationMatch {
	if len(stations) == 0 {
		return nil
	}

	best := &StationMatch{Station: stations[0], DistanceMeters: Distance(p, stations[0].Coordinate())}
	for i := 1; i < len(stations); i++ {
		if d := Distance(p, stations[i].Coordinate()); d < best.DistanceMeters {
			best = &StationMatch{Station: stations[i], DistanceMeters: d}
		}
	}
	return best
}

// PolylineLength sums consecutive-pair distances. Zero for one point or less.
func PolylineLength(points []models.Coordinate) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
