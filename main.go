package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/config"
	"github.com/pachaqtec/transit-planner/handlers"
	"github.com/pachaqtec/transit-planner/metrics"
	"github.com/pachaqtec/transit-planner/network"
	"github.com/pachaqtec/transit-planner/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting transit planner")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	net, err := network.LoadFromFile(cfg.Network.File)
	if err != nil {
		logger.Fatalf("Failed to load transit network: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"minibus_lines":  len(net.MinibusLines),
		"cablecar_lines": len(net.CableCarLines),
	}).Info("Transit network loaded")

	collector := metrics.NewCollector()

	geocoder := services.NewGeocoderClient(cfg.Geocoder.BaseURL, cfg.Geocoder.ViewBox, cfg.Geocoder.Timeout)
	suggestionService := services.NewSuggestionService(geocoder, cfg.Geocoder.CacheTTL, cfg.Geocoder.DebounceMS, logger, collector)
	plannerService := services.NewPlannerService(
		services.NewDirectRoutePlanner(),
		services.NewTransferRoutePlannerWithRadius(cfg.Planner.TransferRadiusMeters),
		logger,
		collector,
	)
	navigationService := services.NewNavigationService(logger, collector)

	router := mux.NewRouter()
	handlers.NewSuggestionHandler(suggestionService, net).RegisterRoutes(router)
	handlers.NewPlannerHandler(plannerService, net, logger).RegisterRoutes(router)
	handlers.NewNavigationHandler(navigationService, logger).RegisterRoutes(router)

	router.Handle("/metrics", collector.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	handler := handlers.CORS(handlers.RequestLogger(logger)(router))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	navigationService.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Forced shutdown: %v", err)
	}
	logger.Info("Server stopped")
}
