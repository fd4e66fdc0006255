package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/randytsao24/ventra/internal/maps"
	"github.com/randytsao24/ventra/internal/models"
)

// MapsHandler serves the Google-backed endpoints. Only the browser key is
// ever returned to clients; the server key stays inside the maps clients.
type MapsHandler struct {
	browserKey    string
	production    bool
	defaultRadius int
	places        PlacesProvider
	directions    DirectionsProvider
	geocoder      GeocodeProvider
}

// MapsOptions configures a MapsHandler
type MapsOptions struct {
	BrowserKey    string
	Production    bool
	DefaultRadius int
}

func NewMapsHandler(places PlacesProvider, directions DirectionsProvider, geocoder GeocodeProvider, opts MapsOptions) *MapsHandler {
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = maps.DefaultRadiusMeters
	}
	return &MapsHandler{
		browserKey:    opts.BrowserKey,
		production:    opts.Production,
		defaultRadius: opts.DefaultRadius,
		places:        places,
		directions:    directions,
		geocoder:      geocoder,
	}
}

// GoogleKey hands the browser-restricted key to the local frontend
func (h *MapsHandler) GoogleKey(w http.ResponseWriter, r *http.Request) {
	if h.production {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if h.browserKey == "" {
		writeError(w, http.StatusInternalServerError, "Google Maps browser key not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": h.browserKey})
}

type placeResult struct {
	Name     string            `json:"name"`
	Location models.Coordinate `json:"location"`
	Types    []string          `json:"types"`
	Address  string            `json:"address"`
}

// maxRadiusMeters is the largest radius Places nearby search accepts
const maxRadiusMeters = 50000

type nearbyQuery struct {
	Radius string `query:"radius" validate:"omitempty,numeric"`
}

// Nearby searches for transit stations around lat/lng
func (h *MapsHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	center, err := parseCenter(r)
	if err != nil {
		writeValidation(w, err)
		return
	}

	q := nearbyQuery{Radius: strings.TrimSpace(r.URL.Query().Get("radius"))}
	if err := validateQuery(q); err != nil {
		writeValidation(w, err)
		return
	}
	radius := h.defaultRadius
	if q.Radius != "" {
		f, _ := strconv.ParseFloat(q.Radius, 64)
		if f <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be positive")
			return
		}
		if f > maxRadiusMeters {
			writeError(w, http.StatusBadRequest, "radius must be at most 50000")
			return
		}
		radius = max(1, int(f))
	}

	stations, err := h.places.Nearby(r.Context(), center, radius, strings.TrimSpace(r.URL.Query().Get("keyword")))
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch nearby stations")
		return
	}

	results := make([]placeResult, 0, len(stations))
	for _, s := range stations {
		if !s.Location.Valid() {
			continue
		}
		types := s.Types
		if types == nil {
			types = []string{}
		}
		results = append(results, placeResult{
			Name:     s.Name,
			Location: s.Location,
			Types:    types,
			Address:  s.Address,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": results,
	})
}

type routesQuery struct {
	From string `query:"from" validate:"required"`
	To   string `query:"to" validate:"required"`
}

// Routes plans transit itineraries between two addresses or coordinates
func (h *MapsHandler) Routes(w http.ResponseWriter, r *http.Request) {
	q := routesQuery{
		From: strings.TrimSpace(r.URL.Query().Get("from")),
		To:   strings.TrimSpace(r.URL.Query().Get("to")),
	}
	if err := validateQuery(q); err != nil {
		writeValidation(w, err)
		return
	}

	routes, err := h.directions.Transit(r.Context(), q.From, q.To)
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch directions")
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

type geocodeQuery struct {
	Address string `query:"address" validate:"required"`
}

// Geocode resolves a free-form address to coordinates
func (h *MapsHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	q := geocodeQuery{Address: strings.TrimSpace(r.URL.Query().Get("address"))}
	if err := validateQuery(q); err != nil {
		writeValidation(w, err)
		return
	}

	place, err := h.geocoder.Geocode(r.Context(), q.Address)
	if errors.Is(err, maps.ErrNoResults) {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	if err != nil {
		upstreamFailed(w, r, err, "Failed to geocode address")
		return
	}
	writeJSON(w, http.StatusOK, place)
}
