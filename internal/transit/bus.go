package transit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

const (
	DefaultBusBaseURL = "https://www.ctabustracker.com/bustime/api/v3"

	busProvider = "cta bus tracker"

	// getvehicles accepts at most this many routes per call
	maxRoutesPerCall = 10
)

// DefaultBusRoutes are high-frequency downtown routes tracked when none are configured
var DefaultBusRoutes = []string{"3", "4", "6", "8", "9", "12", "20", "22", "29", "36", "60", "66", "146", "151", "157"}

// BusOptions configures a BusService
type BusOptions struct {
	APIKey   string
	BaseURL  string
	Routes   []string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// BusService fetches live vehicle positions from CTA Bus Tracker
type BusService struct {
	apiKey  string
	baseURL string
	routes  []string
	client  *http.Client
	cache   *cache.Cache[[]json.RawMessage]
}

// NewBusService creates a new bus service
func NewBusService(opts BusOptions) *BusService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBusBaseURL
	}
	if len(opts.Routes) == 0 {
		opts.Routes = DefaultBusRoutes
	}
	return &BusService{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		routes:  opts.Routes,
		client:  upstream.NewClient(opts.Timeout),
		cache:   cache.New[[]json.RawMessage](opts.CacheTTL),
	}
}

// HasAPIKey returns true if the service has an API key configured
func (s *BusService) HasAPIKey() bool {
	return s.apiKey != ""
}

// Close releases the response cache
func (s *BusService) Close() {
	s.cache.Close()
}

// RouteVehicles returns the upstream vehicle objects for one route, unmodified.
// A route with no active vehicles yields an empty list.
func (s *BusService) RouteVehicles(ctx context.Context, route string) ([]json.RawMessage, error) {
	return s.fetch(ctx, []string{route})
}

// Vehicles returns live positions for every configured route. Batches are
// requested concurrently; the call fails only when every batch fails.
func (s *BusService) Vehicles(ctx context.Context) ([]models.VehiclePosition, error) {
	var batches [][]string
	for start := 0; start < len(s.routes); start += maxRoutesPerCall {
		batches = append(batches, s.routes[start:min(start+maxRoutesPerCall, len(s.routes))])
	}

	results := make([][]json.RawMessage, len(batches))
	errs := make([]error, len(batches))

	var g errgroup.Group
	for i, routes := range batches {
		g.Go(func() error {
			results[i], errs[i] = s.fetch(ctx, routes)
			return nil
		})
	}
	_ = g.Wait()

	var (
		vehicles []models.VehiclePosition
		failed   []error
	)
	for i, raw := range results {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		for _, r := range raw {
			var v btVehicle
			if err := json.Unmarshal(r, &v); err != nil {
				continue
			}
			vehicles = append(vehicles, v.position())
		}
	}

	if len(batches) > 0 && len(failed) == len(batches) {
		return nil, errors.Join(failed...)
	}
	return vehicles, nil
}

func (s *BusService) fetch(ctx context.Context, routes []string) ([]json.RawMessage, error) {
	if s.apiKey == "" {
		return nil, upstream.Unavailable(busProvider, "CTA_BUS_KEY not configured")
	}

	rt := strings.Join(routes, ",")
	return s.cache.Fetch(ctx, rt, func(ctx context.Context) ([]json.RawMessage, error) {
		params := url.Values{}
		params.Set("key", s.apiKey)
		params.Set("rt", rt)
		params.Set("format", "json")

		var resp btResponse
		if err := upstream.GetJSON(ctx, s.client, busProvider, upstream.BuildURL(s.baseURL, "/getvehicles", params), &resp); err != nil {
			return nil, err
		}
		return resp.vehicles()
	})
}

// Bus Tracker response structures
type btResponse struct {
	Body *struct {
		Vehicle upstream.List[json.RawMessage] `json:"vehicle"`
		Error   upstream.List[btError]         `json:"error"`
	} `json:"bustime-response"`
}

type btError struct {
	Rt  string `json:"rt"`
	Msg string `json:"msg"`
}

// vehicles treats "No data found" errors as an empty route rather than a failure
func (r btResponse) vehicles() ([]json.RawMessage, error) {
	if r.Body == nil {
		return nil, upstream.Unavailable(busProvider, "missing bustime-response")
	}
	if len(r.Body.Vehicle) > 0 {
		return r.Body.Vehicle, nil
	}
	for _, e := range r.Body.Error {
		if !strings.Contains(strings.ToLower(e.Msg), "no data found") {
			return nil, upstream.Unavailable(busProvider, "%s", e.Msg)
		}
	}
	return []json.RawMessage{}, nil
}

type btVehicle struct {
	Vid string          `json:"vid"`
	Lat *upstream.Float `json:"lat"`
	Lon *upstream.Float `json:"lon"`
	Hdg *upstream.Float `json:"hdg"`
	Rt  string          `json:"rt"`
	Des string          `json:"des"`
	Dly upstream.Bool   `json:"dly"`
}

func (v btVehicle) position() models.VehiclePosition {
	return models.VehiclePosition{
		ID:          v.Vid,
		Mode:        models.ModeBus,
		Route:       v.Rt,
		Location:    models.Coordinate{Lat: v.Lat.Value(), Lng: v.Lon.Value()},
		Heading:     heading(v.Hdg),
		Destination: v.Des,
		Delayed:     bool(v.Dly),
	}
}
