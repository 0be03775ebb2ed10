package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/metrics"
	"github.com/pachaqtec/transit-planner/models"
)

const maxMergedOptions = 8

// PlannerService runs the direct and transfer planners and merges their
// output into one ranked list.
type PlannerService struct {
	direct   *DirectRoutePlanner
	transfer *TransferRoutePlanner
	logger   *logrus.Logger
	metrics  *metrics.Collector
}

func NewPlannerService(direct *DirectRoutePlanner, transfer *TransferRoutePlanner, logger *logrus.Logger, collector *metrics.Collector) *PlannerService {
	return &PlannerService{
		direct:   direct,
		transfer: transfer,
		logger:   logger,
		metrics:  collector,
	}
}

// PlanDirectRoutes returns walk-only, single-minibus and single-cable-car
// options, ranked.
func (ps *PlannerService) PlanDirectRoutes(ctx context.Context, origin, destination models.Coordinate, originName, destinationName string, net *models.TransitNetwork) []models.RouteOption {
	return ps.direct.PlanRoutes(origin, destination, originName, destinationName, net)
}

// PlanTransferRoutes returns the minibus-to-cable-car options, ranked and
// uncapped.
func (ps *PlannerService) PlanTransferRoutes(ctx context.Context, origin, destination models.Coordinate, net *models.TransitNetwork) []models.RouteOption {
	return ps.transfer.PlanRoutes(origin, destination, net)
}

// PlanAllRoutes evaluates both planners concurrently, merges, sorts
// ascending by duration and truncates to maxMergedOptions. An empty result
// means no route exists; it is never an error.
func (ps *PlannerService) PlanAllRoutes(ctx context.Context, origin, destination models.Coordinate, originName, destinationName string, net *models.TransitNetwork) []models.RouteOption {
	start := time.Now()

	var directOptions, transferOptions []models.RouteOption
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		directOptions = ps.direct.PlanRoutes(origin, destination, originName, destinationName, net)
	}()
	go func() {
		defer wg.Done()
		transferOptions = ps.transfer.PlanRoutes(origin, destination, net)
	}()
	wg.Wait()

	options := make([]models.RouteOption, 0, len(directOptions)+len(transferOptions))
	options = append(options, directOptions...)
	options = append(options, transferOptions...)

	sort.Slice(options, func(i, j int) bool {
		return options[i].TotalDurationMinutes < options[j].TotalDurationMinutes
	})
	if len(options) > maxMergedOptions {
		options = options[:maxMergedOptions]
	}

	if ps.metrics != nil {
		ps.metrics.PlanRequests.Inc()
		ps.metrics.RoutesReturned.Add(float64(len(options)))
		ps.metrics.PlanDuration.Observe(time.Since(start).Seconds())
	}
	if ps.logger != nil {
		ps.logger.WithFields(logrus.Fields{
			"direct":   len(directOptions),
			"transfer": len(transferOptions),
			"returned": len(options),
			"took":     time.Since(start).String(),
		}).Debug("Planning call finished")
	}

	return options
}
