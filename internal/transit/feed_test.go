package transit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

func vehicleEntity(id, route string, pos *gtfs.Position) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfs.VehiclePosition{
			Trip:     &gtfs.TripDescriptor{RouteId: proto.String(route)},
			Vehicle:  &gtfs.VehicleDescriptor{Id: proto.String("v" + id), Label: proto.String("Navy Pier")},
			Position: pos,
		},
	}
}

func TestFeedVehicles(t *testing.T) {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
		},
		Entity: []*gtfs.FeedEntity{
			vehicleEntity("1", "66", &gtfs.Position{Latitude: proto.Float32(41.89), Longitude: proto.Float32(-87.62), Bearing: proto.Float32(90)}),
			vehicleEntity("2", "66", nil),
			{Id: proto.String("trip-only"), TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{RouteId: proto.String("66")}}},
		},
	}
	body, err := proto.Marshal(feed)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(body)
	}))
	defer srv.Close()

	svc := NewFeedService(srv.URL, models.ModeBus, time.Second, 0)
	defer svc.Close()

	vehicles, err := svc.Vehicles(context.Background())
	if err != nil {
		t.Fatalf("Vehicles: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(vehicles))
	}

	v := vehicles[0]
	if v.ID != "v1" || v.Route != "66" || v.Mode != models.ModeBus || v.Heading != 90 || v.Destination != "Navy Pier" {
		t.Errorf("vehicle = %+v", v)
	}
	if !v.Location.Valid() {
		t.Error("first vehicle should have a valid location")
	}
	if vehicles[1].Location.Valid() {
		t.Error("vehicle without a position should have an unknown location")
	}
}

func TestFeedMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xff, 0xff, 0xff})
	}))
	defer srv.Close()

	svc := NewFeedService(srv.URL, models.ModeTrain, time.Second, 0)
	defer svc.Close()

	if _, err := svc.Vehicles(context.Background()); !errors.Is(err, upstream.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
