package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/randytsao24/ventra/internal/api/handlers"
	"github.com/randytsao24/ventra/internal/config"
	"github.com/randytsao24/ventra/internal/nearby"
)

// Services are the collaborators the handlers are built from
type Services struct {
	Trains     handlers.TrainProvider
	Buses      handlers.BusProvider
	Alerts     handlers.AlertProvider
	Places     handlers.PlacesProvider
	Directions handlers.DirectionsProvider
	Geocoder   handlers.GeocodeProvider
	Tracker    handlers.Tracker
	Stops      handlers.StopDirectory
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware. Every route is served at the root and again under /api.
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	healthHandler := handlers.NewHealthHandler(svc.Trains, svc.Buses, svc.Stops)
	rootHandler := handlers.NewRootHandler()
	transitHandler := handlers.NewTransitHandler(svc.Trains, svc.Buses, svc.Alerts)
	mapsHandler := handlers.NewMapsHandler(svc.Places, svc.Directions, svc.Geocoder, handlers.MapsOptions{
		BrowserKey:    cfg.GoogleBrowserKey,
		Production:    cfg.IsProduction(),
		DefaultRadius: cfg.PlacesRadiusMeters,
	})

	var arrivals nearby.ArrivalSource
	if svc.Trains != nil {
		arrivals = svc.Trains
	}
	trackHandler := handlers.NewTrackHandler(svc.Tracker, svc.Stops, arrivals, cfg.RefreshInterval)

	r := chi.NewRouter()
	r.Use(RequestID, Recovery, Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.NotFound(rootHandler.NotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rootHandler.NotFound(w, r)
	})

	routes := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Timeout(cfg.HTTPTimeout + 5*time.Second))

			r.Get("/health", healthHandler.Health)
			r.Get("/google-key", mapsHandler.GoogleKey)

			r.Get("/trains/{route}", transitHandler.Trains)
			r.Get("/buses/{route}", transitHandler.Buses)
			r.Get("/alerts", transitHandler.Alerts)
			r.Get("/cta-arrivals", transitHandler.CTAArrivals)

			r.Get("/nearby", mapsHandler.Nearby)
			r.Get("/routes", mapsHandler.Routes)
			r.Get("/geocode", mapsHandler.Geocode)

			r.Get("/tracknearby", trackHandler.TrackNearby)
			r.Get("/stations", trackHandler.Stations)
			r.Get("/stations/{name}/arrivals", trackHandler.StationArrivals)
		})

		// long-lived; the timeout handler cannot hijack connections
		r.Get("/live", trackHandler.Live)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", rootHandler.Index)
		routes(r)
	})
	routes(r)

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	} else {
		r.Get("/", rootHandler.Index)
	}

	return r
}
