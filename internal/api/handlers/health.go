// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"
)

// Version is reported by the health and index endpoints
const Version = "1.0.0"

type HealthHandler struct {
	startTime time.Time
	trains    TrainProvider
	buses     BusProvider
	stops     StopDirectory
}

func NewHealthHandler(trains TrainProvider, buses BusProvider, stops StopDirectory) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		trains:    trains,
		buses:     buses,
		stops:     stops,
	}
}

// Health reports liveness and which upstream keys are configured. Key
// values are never included.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"uptime":    time.Since(h.startTime).String(),
		"upstreams": map[string]bool{
			"trainTracker": h.trains.HasAPIKey(),
			"busTracker":   h.buses.HasAPIKey(),
		},
		"stations": len(h.stops.All()),
	})
}
