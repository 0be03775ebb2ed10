package services

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pachaqtec/transit-planner/geomath"
	"github.com/pachaqtec/transit-planner/models"
)

const (
	defaultTransferRadiusMeters = 800.0
	entryWalkThresholdMeters    = 50.0
	transferWalkThresholdMeters = 20.0
	transferMinibusFareBs       = 2.5
	cableCarSpeedMetersPerSec   = 4.0
	recommendedTransferMinutes  = 60
)

// TransferRoutePlanner synthesizes two-leg itineraries that ride a minibus
// to a cable-car station and continue by cable car.
type TransferRoutePlanner struct {
	// transferRadiusMeters bounds how far a cable-car station may sit from
	// the minibus polyline to count as a transfer point.
	transferRadiusMeters float64
}

func NewTransferRoutePlanner() *TransferRoutePlanner {
	return &TransferRoutePlanner{transferRadiusMeters: defaultTransferRadiusMeters}
}

// NewTransferRoutePlannerWithRadius lets callers tighten the transfer
// discovery radius, e.g. to 500 m for intersection-only matching.
func NewTransferRoutePlannerWithRadius(radiusMeters float64) *TransferRoutePlanner {
	if radiusMeters <= 0 {
		radiusMeters = defaultTransferRadiusMeters
	}
	return &TransferRoutePlanner{transferRadiusMeters: radiusMeters}
}

// PlanRoutes evaluates the full minibus x cable-car cross-product. Pairings
// that produce no usable transfer are skipped, never surfaced as errors.
// The result is sorted ascending by duration and intentionally uncapped;
// the caller truncates after merging with direct options.
func (tp *TransferRoutePlanner) PlanRoutes(origin, destination models.Coordinate, net *models.TransitNetwork) []models.RouteOption {
	var options []models.RouteOption

	for _, mb := range net.MinibusLines {
		for _, cc := range net.CableCarLines {
			if opt, ok := tp.pairOption(origin, destination, mb, cc); ok {
				options = append(options, opt)
			}
		}
	}

	sort.Slice(options, func(i, j int) bool {
		return options[i].TotalDurationMinutes < options[j].TotalDurationMinutes
	})
	return options
}

func (tp *TransferRoutePlanner) pairOption(origin, destination models.Coordinate, mb models.MinibusLine, cc models.CableCarLine) (models.RouteOption, bool) {
	entry, ok := geomath.NearestPointOnPolyline(origin, mb.Polyline)
	if !ok || entry.DistanceMeters > maxWalkOnlyMeters {
		return models.RouteOption{}, false
	}

	transfer, transferProj, found := tp.findTransferStation(mb, cc)
	if !found {
		return models.RouteOption{}, false
	}
	// The polyline order is the travel direction; a transfer the rider
	// could only reach by riding backwards is rejected.
	if transferProj.Index < entry.Index {
		return models.RouteOption{}, false
	}

	exit := geomath.NearestStation(destination, cc.Stations)
	if exit == nil || exit.Station.ID == transfer.ID || exit.DistanceMeters > maxStationAccessMeters {
		return models.RouteOption{}, false
	}

	label := fmt.Sprintf("Minibus %s", mb.LineCode)
	originPoint := models.NamedPoint{Name: "Origin", Lat: origin.Lat, Lng: origin.Lng}
	boardPoint := models.NamedPoint{Name: fmt.Sprintf("%s boarding point", label), Lat: entry.Coordinate.Lat, Lng: entry.Coordinate.Lng}
	dropPoint := models.NamedPoint{Name: fmt.Sprintf("Transfer near %s", transfer.Name), Lat: transferProj.Coordinate.Lat, Lng: transferProj.Coordinate.Lng}
	transferStationPoint := stationPoint(transfer)
	exitStationPoint := stationPoint(exit.Station)
	destinationPoint := models.NamedPoint{Name: "Destination", Lat: destination.Lat, Lng: destination.Lng}

	ridePolyline := slicePolyline(mb.Polyline, entry.Index, transferProj.Index)
	transferGap := geomath.Distance(transferProj.Coordinate, transfer.Coordinate())
	if transferGap <= transferWalkThresholdMeters {
		// Close enough that no walk leg is emitted, so the ride must end
		// at the station itself to keep adjacent segments contiguous.
		dropPoint = transferStationPoint
		ridePolyline = append(ridePolyline, transfer.Coordinate())
	}
	rideDist := geomath.PolylineLength(ridePolyline)

	var segments []models.RouteSegment

	if entry.DistanceMeters > entryWalkThresholdMeters {
		segments = append(segments, walkSegment(originPoint, boardPoint, fmt.Sprintf("Walk to the %s stop", label)))
	}
	segments = append(segments, models.RouteSegment{
		ID:              uuid.NewString(),
		Mode:            models.ModeMinibus,
		From:            boardPoint,
		To:              dropPoint,
		DurationMinutes: ceilMinutes(rideDist, minibusSpeedMetersPerMin),
		DistanceMeters:  rideDist,
		CostBs:          transferMinibusFareBs,
		LineLabel:       mb.LineCode,
		Instructions:    fmt.Sprintf("Take %s and get off near %s station", label, transfer.Name),
		Polyline:        ridePolyline,
	})

	if transferGap > transferWalkThresholdMeters {
		segments = append(segments, walkSegment(dropPoint, transferStationPoint, fmt.Sprintf("Walk to %s station", transfer.Name)))
	}

	cableRide := stationRange(cc, transfer, exit.Station)
	cablePolyline := stationPolyline(cableRide)
	cableDist := geomath.PolylineLength(cablePolyline)
	segments = append(segments, models.RouteSegment{
		ID:              uuid.NewString(),
		Mode:            models.ModeCableCar,
		From:            transferStationPoint,
		To:              exitStationPoint,
		DurationMinutes: ceilMinutes(cableDist, cableCarSpeedMetersPerSec*60),
		DistanceMeters:  cableDist,
		CostBs:          cableCarFareBs,
		LineLabel:       cc.Name,
		Color:           cc.Color,
		Instructions:    fmt.Sprintf("Ride %s from %s to %s", cc.Name, transfer.Name, exit.Station.Name),
		Polyline:        cablePolyline,
	})

	if exit.DistanceMeters > transferWalkThresholdMeters {
		segments = append(segments, walkSegment(exitStationPoint, destinationPoint, "Walk to your destination"))
	}

	opt := assembleOption(segments, 0, 1, false)
	opt.Recommended = opt.TotalDurationMinutes < recommendedTransferMinutes
	return opt, true
}

// findTransferStation returns the first station in line order whose
// projection onto the minibus polyline is inside the radius. First match in
// station order wins, not the closest one.
func (tp *TransferRoutePlanner) findTransferStation(mb models.MinibusLine, cc models.CableCarLine) (models.Station, geomath.PolylinePoint, bool) {
	for _, station := range cc.StationsInOrder() {
		proj, ok := geomath.NearestPointOnPolyline(station.Coordinate(), mb.Polyline)
		if !ok {
			return models.Station{}, geomath.PolylinePoint{}, false
		}
		if proj.DistanceMeters <= tp.transferRadiusMeters {
			return station, proj, true
		}
	}
	return models.Station{}, geomath.PolylinePoint{}, false
}

// slicePolyline copies the vertices between two indices inclusive.
func slicePolyline(polyline []models.Coordinate, from, to int) []models.Coordinate {
	out := make([]models.Coordinate, to-from+1)
	copy(out, polyline[from:to+1])
	return out
}
