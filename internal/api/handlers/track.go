package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/nearby"
	"github.com/randytsao24/ventra/internal/refresh"
	"github.com/randytsao24/ventra/internal/transit"
)

const (
	// pingInterval is how often the server pings a live client
	pingInterval = 30 * time.Second

	// pongWait is how long a client may stay silent before it is dropped
	pongWait = 60 * time.Second

	// maxMessageSize caps inbound position updates
	maxMessageSize = 1024

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// origins are restricted by the CORS middleware for the HTTP surface;
	// the live board carries no credentials
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TrackHandler serves the proximity tracker and the live board
type TrackHandler struct {
	tracker  Tracker
	stops    StopDirectory
	arrivals nearby.ArrivalSource
	interval time.Duration
	now      func() time.Time
}

func NewTrackHandler(tracker Tracker, stops StopDirectory, arrivals nearby.ArrivalSource, interval time.Duration) *TrackHandler {
	return &TrackHandler{
		tracker:  tracker,
		stops:    stops,
		arrivals: arrivals,
		interval: interval,
		now:      time.Now,
	}
}

// TrackNearby returns stations, buses, and trains around lat/lng
func (h *TrackHandler) TrackNearby(w http.ResponseWriter, r *http.Request) {
	center, err := parseCenter(r)
	if err != nil {
		writeValidation(w, err)
		return
	}

	result, err := h.tracker.Track(r.Context(), center)
	if errors.Is(err, nearby.ErrInvalidCenter) {
		writeError(w, http.StatusBadRequest, "lat and lng must be finite")
		return
	}
	if err != nil {
		upstreamFailed(w, r, err, "Failed to track nearby transit")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stations lists the stations that get live arrival lookups
func (h *TrackHandler) Stations(w http.ResponseWriter, r *http.Request) {
	stops := h.stops.All()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(stops),
		"stations": stops,
	})
}

// StationArrivals returns the next arrivals at a named station
func (h *TrackHandler) StationArrivals(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSpace(name)

	stop, ok := h.stops.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Station not found")
		return
	}

	arrivals, err := h.arrivals.NextArrivals(r.Context(), stop.ID, transit.MaxStopArrivals)
	if err != nil {
		upstreamFailed(w, r, err, "Failed to fetch arrivals")
		return
	}
	if arrivals == nil {
		arrivals = []transit.StopArrival{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"station":  stop.Name,
		"stopId":   stop.ID,
		"arrivals": arrivals,
	})
}

type positionMessage struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Live upgrades to a websocket and streams a board on every refresh. Clients
// send {"lat":..,"lng":..} to move the reference point.
func (h *TrackHandler) Live(w http.ResponseWriter, r *http.Request) {
	center, err := parseCenter(r)
	if err != nil {
		writeValidation(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	slog.Info("live session opened", "session", session, "lat", center.Lat, "lng", center.Lng)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	moves := make(chan models.Coordinate, 1)
	go h.readPump(ctx, cancel, conn, session, moves)
	go pingPump(ctx, cancel, conn)

	loop := refresh.New(h.interval, func(ctx context.Context, c models.Coordinate) (nearby.Snapshot, error) {
		return h.tracker.Snapshot(ctx, c, h.arrivals, h.now())
	})
	err = loop.Run(ctx, center, moves, func(b nearby.Board) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(b)
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("live session ended", "session", session, "error", err)
	} else {
		slog.Info("live session closed", "session", session)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readPump forwards position updates until the client goes away
func (h *TrackHandler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session string, moves chan<- models.Coordinate) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live read failed", "session", session, "error", err)
			}
			return
		}

		var msg positionMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Lat == nil || msg.Lng == nil {
			slog.Debug("ignoring live message", "session", session)
			continue
		}

		select {
		case moves <- models.Coordinate{Lat: *msg.Lat, Lng: *msg.Lng}:
		case <-ctx.Done():
			return
		}
	}
}

// pingPump keeps the connection alive. WriteControl is safe alongside the
// board writer.
func pingPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cancel()
				return
			}
		}
	}
}
