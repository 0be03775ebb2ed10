// Package network decodes the transit-network export produced by the data
// collaborator into the in-memory structures the planners consume.
package network

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pachaqtec/transit-planner/models"
)

// LoadFromJSON parses a network export. Lines that cannot be used for
// planning (a polyline with fewer than two points, a station with
// out-of-range coordinates) are dropped rather than failing the whole load.
func LoadFromJSON(data []byte) (*models.TransitNetwork, error) {
	var wrapped struct {
		Network struct {
			MinibusLines  []models.MinibusLine  `json:"minibus_lines"`
			CableCarLines []models.CableCarLine `json:"cablecar_lines"`
		} `json:"network"`
	}

	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse network JSON: %v", err)
	}

	net := &models.TransitNetwork{}

	for _, line := range wrapped.Network.MinibusLines {
		polyline := make([]models.Coordinate, 0, len(line.Polyline))
		for _, p := range line.Polyline {
			if !models.ValidCoordinate(p.Lat, p.Lng) {
				continue
			}
			polyline = append(polyline, p)
		}
		if len(polyline) < 2 {
			continue
		}
		line.Polyline = polyline
		net.MinibusLines = append(net.MinibusLines, line)
	}

	for _, line := range wrapped.Network.CableCarLines {
		stations := make([]models.Station, 0, len(line.Stations))
		for _, s := range line.Stations {
			if !models.ValidCoordinate(s.Lat, s.Lng) {
				continue
			}
			stations = append(stations, s)
		}
		if len(stations) == 0 {
			continue
		}
		sort.SliceStable(stations, func(i, j int) bool {
			return stations[i].Order < stations[j].Order
		})
		line.Stations = stations
		net.CableCarLines = append(net.CableCarLines, line)
	}

	return net, nil
}

// LoadFromFile reads and parses a network export from disk.
func LoadFromFile(path string) (*models.TransitNetwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file %s: %v", path, err)
	}
	return LoadFromJSON(data)
}
