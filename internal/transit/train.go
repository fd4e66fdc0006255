// Package transit fetches live CTA train, bus, and alert data
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/location"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

const (
	DefaultTrainBaseURL = "https://lapi.transitchicago.com/api/1.0"

	trainProvider = "cta train tracker"

	// Train Tracker timestamps are Chicago local time without an offset
	trainTimeLayout = "2006-01-02T15:04:05"

	MaxStopArrivals = 3
)

// TrainRoutes lists every 'L' route code accepted by Train Tracker
var TrainRoutes = []string{"red", "blue", "brn", "g", "org", "p", "pink", "y"}

var chicago = mustLoadLocation("America/Chicago")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading %s: %v", name, err))
	}
	return loc
}

// StopArrival is a predicted train arrival at a stop
type StopArrival struct {
	Route       string       `json:"route"`
	Destination string       `json:"destination"`
	Station     string       `json:"station"`
	Platform    string       `json:"platform"`
	ArrivalTime time.Time    `json:"arrivalTime"`
	Minutes     location.ETA `json:"minutes"`
	Approaching bool         `json:"approaching"`
	Delayed     bool         `json:"delayed"`
	Scheduled   bool         `json:"scheduled"`
}

// TrainOptions configures a TrainService
type TrainOptions struct {
	APIKey   string
	BaseURL  string
	Routes   []string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// TrainService fetches positions and arrivals from CTA Train Tracker
type TrainService struct {
	apiKey    string
	baseURL   string
	routes    []string
	client    *http.Client
	positions *cache.Cache[json.RawMessage]
	arrivals  *cache.Cache[json.RawMessage]
	now       func() time.Time
}

// NewTrainService creates a new train service
func NewTrainService(opts TrainOptions) *TrainService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultTrainBaseURL
	}
	if len(opts.Routes) == 0 {
		opts.Routes = TrainRoutes
	}
	return &TrainService{
		apiKey:    opts.APIKey,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		routes:    opts.Routes,
		client:    upstream.NewClient(opts.Timeout),
		positions: cache.New[json.RawMessage](opts.CacheTTL),
		arrivals:  cache.New[json.RawMessage](opts.CacheTTL),
		now:       time.Now,
	}
}

// HasAPIKey returns true if the service has an API key configured
func (s *TrainService) HasAPIKey() bool {
	return s.apiKey != ""
}

// Close releases the response caches
func (s *TrainService) Close() {
	s.positions.Close()
	s.arrivals.Close()
}

// Positions returns the raw Train Tracker positions document for one or more routes
func (s *TrainService) Positions(ctx context.Context, routes ...string) (json.RawMessage, error) {
	if s.apiKey == "" {
		return nil, upstream.Unavailable(trainProvider, "CTA_TRAIN_KEY not configured")
	}
	if len(routes) == 0 {
		return nil, upstream.Unavailable(trainProvider, "no routes requested")
	}

	rt := strings.ToLower(strings.Join(routes, ","))
	return s.positions.Fetch(ctx, rt, func(ctx context.Context) (json.RawMessage, error) {
		params := url.Values{}
		params.Set("key", s.apiKey)
		params.Set("rt", rt)
		params.Set("outputType", "JSON")
		return upstream.GetJSONRaw(ctx, s.client, trainProvider, upstream.BuildURL(s.baseURL, "/ttpositions.aspx", params))
	})
}

// Vehicles returns live positions for every configured route
func (s *TrainService) Vehicles(ctx context.Context) ([]models.VehiclePosition, error) {
	raw, err := s.Positions(ctx, s.routes...)
	if err != nil {
		return nil, err
	}
	return parseTrainPositions(raw)
}

// Arrivals returns the raw Train Tracker arrivals document for a stop id.
// Ids in the 4xxxx range are station ids and are sent as mapid.
func (s *TrainService) Arrivals(ctx context.Context, stopID string) (json.RawMessage, error) {
	if s.apiKey == "" {
		return nil, upstream.Unavailable(trainProvider, "CTA_TRAIN_KEY not configured")
	}

	param := "stpid"
	if id, err := strconv.Atoi(stopID); err == nil && (location.Stop{ID: id}).IsStation() {
		param = "mapid"
	}

	return s.arrivals.Fetch(ctx, param+"="+stopID, func(ctx context.Context) (json.RawMessage, error) {
		params := url.Values{}
		params.Set("key", s.apiKey)
		params.Set(param, stopID)
		params.Set("outputType", "JSON")
		return upstream.GetJSONRaw(ctx, s.client, trainProvider, upstream.BuildURL(s.baseURL, "/ttarrivals.aspx", params))
	})
}

// NextArrivals returns up to limit upcoming arrivals for a stop, in upstream order
func (s *TrainService) NextArrivals(ctx context.Context, stopID int, limit int) ([]StopArrival, error) {
	raw, err := s.Arrivals(ctx, strconv.Itoa(stopID))
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxStopArrivals {
		limit = MaxStopArrivals
	}
	return parseStopArrivals(raw, s.now(), limit)
}

func parseTrainPositions(raw json.RawMessage) ([]models.VehiclePosition, error) {
	var resp ttResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, upstream.Unavailable(trainProvider, "parsing positions: %v", err)
	}
	if err := resp.CTATT.err(); err != nil {
		return nil, err
	}

	var vehicles []models.VehiclePosition
	for _, route := range resp.CTATT.Route {
		for _, train := range route.Train {
			vehicles = append(vehicles, models.VehiclePosition{
				ID:          train.Rn,
				Mode:        models.ModeTrain,
				Route:       route.Name,
				Location:    models.Coordinate{Lat: train.Lat.Value(), Lng: train.Lon.Value()},
				Heading:     heading(train.Heading),
				Destination: train.DestNm,
				Delayed:     bool(train.IsDly),
			})
		}
	}
	return vehicles, nil
}

func parseStopArrivals(raw json.RawMessage, now time.Time, limit int) ([]StopArrival, error) {
	var resp ttResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, upstream.Unavailable(trainProvider, "parsing arrivals: %v", err)
	}
	if err := resp.CTATT.err(); err != nil {
		return nil, err
	}

	arrivals := make([]StopArrival, 0, limit)
	for _, eta := range resp.CTATT.ETA {
		if len(arrivals) == limit {
			break
		}
		var arrT time.Time
		if t, err := time.ParseInLocation(trainTimeLayout, eta.ArrT, chicago); err == nil {
			arrT = t
		}
		arrivals = append(arrivals, StopArrival{
			Route:       eta.Rt,
			Destination: eta.DestNm,
			Station:     eta.StaNm,
			Platform:    eta.StpDe,
			ArrivalTime: arrT,
			Minutes:     location.MinutesUntil(arrT, now),
			Approaching: bool(eta.IsApp),
			Delayed:     bool(eta.IsDly),
			Scheduled:   bool(eta.IsSch),
		})
	}
	return arrivals, nil
}

func heading(f *upstream.Float) int {
	v := f.Value()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}

// Train Tracker response structures
type ttResponse struct {
	CTATT ttBody `json:"ctatt"`
}

type ttBody struct {
	Tmst  string                   `json:"tmst"`
	ErrCd upstream.CData           `json:"errCd"`
	ErrNm upstream.CData           `json:"errNm"`
	Route upstream.List[ttRoute]   `json:"route"`
	ETA   upstream.List[ttArrival] `json:"eta"`
}

func (b ttBody) err() error {
	if code := b.ErrCd.String(); code != "" && code != "0" {
		return upstream.Unavailable(trainProvider, "error %s: %s", code, b.ErrNm)
	}
	return nil
}

type ttRoute struct {
	Name  string                 `json:"@name"`
	Train upstream.List[ttTrain] `json:"train"`
}

type ttTrain struct {
	Rn      string          `json:"rn"`
	DestNm  string          `json:"destNm"`
	IsDly   upstream.Bool   `json:"isDly"`
	Lat     *upstream.Float `json:"lat"`
	Lon     *upstream.Float `json:"lon"`
	Heading *upstream.Float `json:"heading"`
}

type ttArrival struct {
	StaNm  string        `json:"staNm"`
	StpDe  string        `json:"stpDe"`
	Rt     string        `json:"rt"`
	DestNm string        `json:"destNm"`
	ArrT   string        `json:"arrT"`
	IsApp  upstream.Bool `json:"isApp"`
	IsSch  upstream.Bool `json:"isSch"`
	IsDly  upstream.Bool `json:"isDly"`
}
