package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/randytsao24/ventra/internal/transit"
)

type TransitHandler struct {
	trains TrainProvider
	buses  BusProvider
	alerts AlertProvider
}

func NewTransitHandler(trains TrainProvider, buses BusProvider, alerts AlertProvider) *TransitHandler {
	return &TransitHandler{
		trains: trains,
		buses:  buses,
		alerts: alerts,
	}
}

// Trains passes through Train Tracker positions for a route
func (h *TransitHandler) Trains(w http.ResponseWriter, r *http.Request) {
	route := strings.TrimSpace(chi.URLParam(r, "route"))
	if route == "" {
		writeError(w, http.StatusBadRequest, "Train route is required")
		return
	}

	raw, err := h.trains.Positions(r.Context(), route)
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch train data")
		return
	}
	writeRaw(w, raw)
}

// Buses returns the live vehicles on a bus route
func (h *TransitHandler) Buses(w http.ResponseWriter, r *http.Request) {
	route := strings.TrimSpace(chi.URLParam(r, "route"))
	if route == "" {
		writeError(w, http.StatusBadRequest, "Bus route is required")
		return
	}

	vehicles, err := h.buses.RouteVehicles(r.Context(), route)
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch bus info")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"route":    route,
		"vehicles": vehicles,
	})
}

// Alerts returns normalized CTA service alerts
func (h *TransitHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	feed, err := h.alerts.Alerts(r.Context(), transit.AlertQuery{
		RouteID:       q.Get("routeid"),
		ActiveOnly:    q.Get("activeonly"),
		Planned:       q.Get("planned"),
		Accessibility: q.Get("accessibility"),
	})
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch CTA alerts")
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

type arrivalsQuery struct {
	StopID string `query:"stpid" validate:"required,numeric"`
}

// CTAArrivals passes through Train Tracker arrivals for a stop or station id
func (h *TransitHandler) CTAArrivals(w http.ResponseWriter, r *http.Request) {
	q := arrivalsQuery{StopID: strings.TrimSpace(r.URL.Query().Get("stpid"))}
	if err := validateQuery(q); err != nil {
		writeValidation(w, err)
		return
	}

	raw, err := h.trains.Arrivals(r.Context(), q.StopID)
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch arrivals")
		return
	}
	writeRaw(w, raw)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
