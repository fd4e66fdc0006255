// Package maps wraps the Google Maps Platform web services used by the
// tracker: Places nearby search, transit Directions, and Geocoding.
package maps

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// ErrNoResults is returned when a lookup succeeds but matches nothing
var ErrNoResults = errors.New("no results")

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Options configures a Google Maps client. APIKey is the server-side key.
type Options struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newClient(opts Options) client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    upstream.NewClient(opts.Timeout),
	}
}

// get injects the key and decodes a Google status envelope into v
func (c client) get(ctx context.Context, provider, path string, params url.Values, v any) error {
	if c.apiKey == "" {
		return upstream.Unavailable(provider, "GOOGLE_MAPS_API_KEY_SERVER not configured")
	}
	params.Set("key", c.apiKey)
	return upstream.GetJSON(ctx, c.http, provider, upstream.BuildURL(c.baseURL, path, params), v)
}

// checkStatus accepts OK and ZERO_RESULTS. Google reports most failures with
// a 200 and a status string.
func checkStatus(provider, status, message string) error {
	switch status {
	case statusOK, statusZeroResults:
		return nil
	case "":
		return upstream.Unavailable(provider, "missing status")
	}
	if message != "" {
		return upstream.Unavailable(provider, "status %s: %s", status, message)
	}
	return upstream.Unavailable(provider, "status %s", status)
}

type latLng struct {
	Lat *upstream.Float `json:"lat"`
	Lng *upstream.Float `json:"lng"`
}

func (l *latLng) coordinate() models.Coordinate {
	if l == nil {
		return models.Unknown()
	}
	return models.Coordinate{Lat: l.Lat.Value(), Lng: l.Lng.Value()}
}

type geometry struct {
	Location *latLng `json:"location"`
}
