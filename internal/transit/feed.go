package transit

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

const feedProvider = "gtfs-realtime feed"

// FeedService reads live vehicle positions from a GTFS-realtime
// VehiclePositions feed. It can stand in for either CTA tracker.
type FeedService struct {
	url    string
	mode   models.Mode
	client *http.Client
	cache  *cache.Cache[[]models.VehiclePosition]
}

// NewFeedService creates a feed reader that labels every vehicle with mode
func NewFeedService(url string, mode models.Mode, timeout, cacheTTL time.Duration) *FeedService {
	return &FeedService{
		url:    url,
		mode:   mode,
		client: upstream.NewClient(timeout),
		cache:  cache.New[[]models.VehiclePosition](cacheTTL),
	}
}

// Close releases the response cache
func (s *FeedService) Close() {
	s.cache.Close()
}

// Vehicles returns every vehicle in the feed. Entities without a position
// are kept with an unknown location. GTFS-realtime positions carry no delay
// flag, so Delayed is always false.
func (s *FeedService) Vehicles(ctx context.Context) ([]models.VehiclePosition, error) {
	return s.cache.Fetch(ctx, "all", func(ctx context.Context) ([]models.VehiclePosition, error) {
		body, err := upstream.GetRaw(ctx, s.client, feedProvider, s.url)
		if err != nil {
			return nil, err
		}

		feed := &gtfs.FeedMessage{}
		if err := proto.Unmarshal(body, feed); err != nil {
			return nil, upstream.Unavailable(feedProvider, "parsing protobuf: %v", err)
		}
		return s.parseVehicles(feed), nil
	})
}

func (s *FeedService) parseVehicles(feed *gtfs.FeedMessage) []models.VehiclePosition {
	var vehicles []models.VehiclePosition

	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}

		id := vp.GetVehicle().GetId()
		if id == "" {
			id = entity.GetId()
		}

		loc := models.Unknown()
		var hdg int
		if pos := vp.GetPosition(); pos != nil {
			loc = models.Coordinate{Lat: float64(pos.GetLatitude()), Lng: float64(pos.GetLongitude())}
			if b := float64(pos.GetBearing()); !math.IsNaN(b) {
				hdg = int(b)
			}
		}

		vehicles = append(vehicles, models.VehiclePosition{
			ID:          id,
			Mode:        s.mode,
			Route:       vp.GetTrip().GetRouteId(),
			Location:    loc,
			Heading:     hdg,
			Destination: vp.GetVehicle().GetLabel(),
		})
	}

	return vehicles
}
