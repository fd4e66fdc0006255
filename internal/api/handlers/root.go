package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "ventra",
		"description": "Real-time CTA transit tracking for Chicago",
		"version":     Version,
		"endpoints": map[string]string{
			"GET /":                         "API information",
			"GET /health":                   "Health check",
			"GET /google-key":               "Browser Maps key (development only)",
			"GET /trains/{route}":           "Train positions for a route",
			"GET /buses/{route}":            "Bus positions for a route",
			"GET /alerts":                   "CTA service alerts",
			"GET /nearby?lat&lng":           "Transit stations near a point",
			"GET /tracknearby?lat&lng":      "Stations, buses, and trains near a point",
			"GET /routes?from&to":           "Transit directions",
			"GET /cta-arrivals?stpid":       "Train Tracker arrivals for a stop",
			"GET /geocode?address":          "Address lookup",
			"GET /stations":                 "Stations with live arrival lookups",
			"GET /stations/{name}/arrivals": "Next arrivals at a station",
			"GET /live?lat&lng":             "Websocket board, refreshed periodically",
		},
		"prefixes": []string{"/", "/api"},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}
