// Package main is the entry point for the ventra server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/randytsao24/ventra/internal/api"
	"github.com/randytsao24/ventra/internal/config"
	"github.com/randytsao24/ventra/internal/location"
	"github.com/randytsao24/ventra/internal/maps"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/nearby"
	"github.com/randytsao24/ventra/internal/transit"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	stops, err := loadStops(cfg.StopsFile)
	if err != nil {
		slog.Error("failed to load stop table", "error", err)
		os.Exit(1)
	}
	slog.Info("stop table loaded", "stations", stops.Count())

	trains := transit.NewTrainService(transit.TrainOptions{
		APIKey:   cfg.CTATrainKey,
		BaseURL:  cfg.TrainBaseURL,
		Routes:   cfg.TrainRoutes,
		Timeout:  cfg.HTTPTimeout,
		CacheTTL: cfg.CacheTTL,
	})
	defer trains.Close()

	buses := transit.NewBusService(transit.BusOptions{
		APIKey:   cfg.CTABusKey,
		BaseURL:  cfg.BusBaseURL,
		Routes:   cfg.BusRoutes,
		Timeout:  cfg.HTTPTimeout,
		CacheTTL: cfg.CacheTTL,
	})
	defer buses.Close()

	alerts := transit.NewAlertService(cfg.AlertsBaseURL, cfg.HTTPTimeout, cfg.CacheTTL)
	defer alerts.Close()

	mapsOpts := maps.Options{
		APIKey:   cfg.GoogleServerKey,
		BaseURL:  cfg.GoogleBaseURL,
		Timeout:  cfg.HTTPTimeout,
		CacheTTL: cfg.CacheTTL,
	}
	places := maps.NewPlaces(mapsOpts)
	defer places.Close()
	geocoder := maps.NewGeocoder(mapsOpts)
	defer geocoder.Close()
	directions := maps.NewDirections(mapsOpts)

	// GTFS-RT feeds, when configured, replace the tracker APIs as the live
	// vehicle sources for the proximity view
	var busSource, trainSource nearby.VehicleSource = buses, trains
	if cfg.GTFSRTBusURL != "" {
		feed := transit.NewFeedService(cfg.GTFSRTBusURL, models.ModeBus, cfg.HTTPTimeout, cfg.CacheTTL)
		defer feed.Close()
		busSource = feed
		slog.Info("using GTFS-RT bus feed")
	}
	if cfg.GTFSRTTrainURL != "" {
		feed := transit.NewFeedService(cfg.GTFSRTTrainURL, models.ModeTrain, cfg.HTTPTimeout, cfg.CacheTTL)
		defer feed.Close()
		trainSource = feed
		slog.Info("using GTFS-RT train feed")
	}

	tracker := nearby.NewAggregator(places, busSource, trainSource, stops, nearby.Options{
		BusRadiusKm:        cfg.BusRadiusKm,
		TrainRadiusKm:      cfg.TrainRadiusKm,
		PlacesRadiusMeters: cfg.PlacesRadiusMeters,
		// below the handler deadline so a stalled feed is reported unavailable
		SourceTimeout:      cfg.HTTPTimeout,
	})

	router := api.NewRouter(cfg, api.Services{
		Trains:     trains,
		Buses:      buses,
		Alerts:     alerts,
		Places:     places,
		Directions: directions,
		Geocoder:   geocoder,
		Tracker:    tracker,
		Stops:      stops,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if !trains.HasAPIKey() {
		slog.Warn("CTA_TRAIN_KEY not set, train endpoints will fail")
	}
	if !buses.HasAPIKey() {
		slog.Warn("CTA_BUS_KEY not set, bus endpoints will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("ventra server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return
	}
	slog.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func loadStops(path string) (*location.StopTable, error) {
	if path == "" {
		return location.DefaultStopTable()
	}
	table := location.NewStopTable()
	if err := table.Load(path); err != nil {
		return nil, err
	}
	return table, nil
}
