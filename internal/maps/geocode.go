package maps

import (
	"context"
	"net/url"
	"strings"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/models"
)

const geocodeProvider = "google geocoding"

// Place is a geocoded address
type Place struct {
	Address  string            `json:"address"`
	Location models.Coordinate `json:"location"`
}

// Geocoder resolves free-form addresses with the Geocoding API
type Geocoder struct {
	client
	cache *cache.Cache[Place]
}

// NewGeocoder creates a Geocoder
func NewGeocoder(opts Options) *Geocoder {
	return &Geocoder{
		client: newClient(opts),
		cache:  cache.New[Place](opts.CacheTTL),
	}
}

// Close releases the response cache
func (g *Geocoder) Close() {
	g.cache.Close()
}

// Geocode returns the best match for address, or ErrNoResults
func (g *Geocoder) Geocode(ctx context.Context, address string) (Place, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	return g.cache.Fetch(ctx, key, func(ctx context.Context) (Place, error) {
		params := url.Values{}
		params.Set("address", address)

		var resp geocodeResponse
		if err := g.get(ctx, geocodeProvider, "/geocode/json", params, &resp); err != nil {
			return Place{}, err
		}
		if err := checkStatus(geocodeProvider, resp.Status, resp.ErrorMessage); err != nil {
			return Place{}, err
		}
		if len(resp.Results) == 0 {
			return Place{}, ErrNoResults
		}

		first := resp.Results[0]
		loc := models.Unknown()
		if first.Geometry != nil {
			loc = first.Geometry.Location.coordinate()
		}
		if !loc.Valid() {
			return Place{}, ErrNoResults
		}
		return Place{Address: first.FormattedAddress, Location: loc}, nil
	})
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string    `json:"formatted_address"`
		Geometry         *geometry `json:"geometry"`
	} `json:"results"`
}
