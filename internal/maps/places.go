package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/models"
)

const (
	placesProvider = "google places"

	// SourceGooglePlaces labels station candidates from nearby search
	SourceGooglePlaces = "google_places"

	DefaultRadiusMeters = 1000
)

// Places finds transit stations with Places Nearby Search
type Places struct {
	client
	cache *cache.Cache[[]models.StationCandidate]
}

// NewPlaces creates a Places client
func NewPlaces(opts Options) *Places {
	return &Places{
		client: newClient(opts),
		cache:  cache.New[[]models.StationCandidate](opts.CacheTTL),
	}
}

// Close releases the response cache
func (p *Places) Close() {
	p.cache.Close()
}

// Nearby returns transit stations within radiusMeters of center, in the
// order Google ranks them. keyword narrows the search when set.
func (p *Places) Nearby(ctx context.Context, center models.Coordinate, radiusMeters int, keyword string) ([]models.StationCandidate, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radiusMeters)
	}
	if !center.Valid() {
		return nil, fmt.Errorf("invalid center %v", center)
	}

	params := url.Values{}
	params.Set("location", formatLatLng(center))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", "transit_station")
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	return p.cache.Fetch(ctx, params.Encode(), func(ctx context.Context) ([]models.StationCandidate, error) {
		var resp placesResponse
		if err := p.get(ctx, placesProvider, "/place/nearbysearch/json", params, &resp); err != nil {
			return nil, err
		}
		if err := checkStatus(placesProvider, resp.Status, resp.ErrorMessage); err != nil {
			return nil, err
		}

		stations := make([]models.StationCandidate, 0, len(resp.Results))
		for _, r := range resp.Results {
			loc := models.Unknown()
			if r.Geometry != nil {
				loc = r.Geometry.Location.coordinate()
			}
			stations = append(stations, models.StationCandidate{
				Name:     r.Name,
				Location: loc,
				Address:  r.Vicinity,
				Types:    r.Types,
				Source:   SourceGooglePlaces,
			})
		}
		return stations, nil
	})
}

func formatLatLng(c models.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

type placesResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	Name     string    `json:"name"`
	Vicinity string    `json:"vicinity"`
	Types    []string  `json:"types"`
	Geometry *geometry `json:"geometry"`
}
