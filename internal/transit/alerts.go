package transit

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randytsao24/ventra/internal/cache"
	"github.com/randytsao24/ventra/internal/upstream"
)

const (
	DefaultAlertsBaseURL = "https://www.transitchicago.com/api/1.0"

	alertsProvider = "cta alerts"
)

// AlertQuery holds the optional filters forwarded to the alerts API
type AlertQuery struct {
	RouteID       string
	ActiveOnly    string
	Planned       string
	Accessibility string
}

func (q AlertQuery) values() url.Values {
	params := url.Values{}
	params.Set("outputType", "JSON")
	for key, v := range map[string]string{
		"routeid":       q.RouteID,
		"activeonly":    q.ActiveOnly,
		"planned":       q.Planned,
		"accessibility": q.Accessibility,
	} {
		if v != "" {
			params.Set(key, v)
		}
	}
	return params
}

// AlertFeed is the normalized alerts response
type AlertFeed struct {
	Timestamp string  `json:"timestamp"`
	Alerts    []Alert `json:"alerts"`
}

// Alert is a CTA service alert
type Alert struct {
	ID               string            `json:"id"`
	Headline         string            `json:"headline"`
	ShortDescription string            `json:"shortDescription"`
	FullDescription  string            `json:"fullDescription"`
	Severity         Severity          `json:"severity"`
	Impact           string            `json:"impact"`
	EventStart       string            `json:"eventStart"`
	EventEnd         *string           `json:"eventEnd"`
	OpenEnded        bool              `json:"openEnded"`
	MajorAlert       bool              `json:"majorAlert"`
	URL              *string           `json:"url"`
	ImpactedServices []ImpactedService `json:"impactedServices"`
}

type Severity struct {
	Score string `json:"score"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

// ImpactedService is a route or station affected by an alert
type ImpactedService struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	ID     string        `json:"id"`
	Colors ServiceColors `json:"colors"`
	URL    string        `json:"url"`
}

type ServiceColors struct {
	Background string `json:"background"`
	Text       string `json:"text"`
}

// AlertService fetches and caches CTA service alerts
type AlertService struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache[AlertFeed]
}

// NewAlertService creates a new alert service. The alerts API needs no key.
func NewAlertService(baseURL string, timeout, cacheTTL time.Duration) *AlertService {
	if baseURL == "" {
		baseURL = DefaultAlertsBaseURL
	}
	return &AlertService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  upstream.NewClient(timeout),
		cache:   cache.New[AlertFeed](cacheTTL),
	}
}

// Close releases the response cache
func (s *AlertService) Close() {
	s.cache.Close()
}

// Alerts returns the normalized alerts matching the query
func (s *AlertService) Alerts(ctx context.Context, q AlertQuery) (AlertFeed, error) {
	params := q.values()
	return s.cache.Fetch(ctx, params.Encode(), func(ctx context.Context) (AlertFeed, error) {
		var resp caResponse
		if err := upstream.GetJSON(ctx, s.client, alertsProvider, upstream.BuildURL(s.baseURL, "/alerts.aspx", params), &resp); err != nil {
			return AlertFeed{}, err
		}
		if resp.CTAAlerts == nil {
			return AlertFeed{}, upstream.Unavailable(alertsProvider, "missing CTAAlerts")
		}
		return resp.CTAAlerts.feed(), nil
	})
}

// Alerts API response structures
type caResponse struct {
	CTAAlerts *caBody `json:"CTAAlerts"`
}

type caBody struct {
	TimeStamp upstream.CData         `json:"TimeStamp"`
	ErrorCode upstream.CData         `json:"ErrorCode"`
	Alert     upstream.List[caAlert] `json:"Alert"`
}

type caAlert struct {
	AlertID          upstream.CData `json:"AlertId"`
	Headline         upstream.CData `json:"Headline"`
	ShortDescription upstream.CData `json:"ShortDescription"`
	FullDescription  upstream.CData `json:"FullDescription"`
	SeverityScore    upstream.CData `json:"SeverityScore"`
	SeverityColor    upstream.CData `json:"SeverityColor"`
	SeverityCSS      upstream.CData `json:"SeverityCSS"`
	Impact           upstream.CData `json:"Impact"`
	EventStart       upstream.CData `json:"EventStart"`
	EventEnd         upstream.CData `json:"EventEnd"`
	TBD              upstream.CData `json:"TBD"`
	MajorAlert       upstream.CData `json:"MajorAlert"`
	AlertURL         upstream.CData `json:"AlertURL"`
	ImpactedService  *struct {
		Service upstream.List[caService] `json:"Service"`
	} `json:"ImpactedService"`
}

type caService struct {
	ServiceTypeDescription upstream.CData `json:"ServiceTypeDescription"`
	ServiceName            upstream.CData `json:"ServiceName"`
	ServiceID              upstream.CData `json:"ServiceId"`
	ServiceBackColor       upstream.CData `json:"ServiceBackColor"`
	ServiceTextColor       upstream.CData `json:"ServiceTextColor"`
	ServiceURL             upstream.CData `json:"ServiceURL"`
}

func (b *caBody) feed() AlertFeed {
	feed := AlertFeed{
		Timestamp: b.TimeStamp.String(),
		Alerts:    make([]Alert, 0, len(b.Alert)),
	}
	for _, a := range b.Alert {
		feed.Alerts = append(feed.Alerts, a.normalize())
	}
	return feed
}

func (a caAlert) normalize() Alert {
	alert := Alert{
		ID:               a.AlertID.String(),
		Headline:         a.Headline.String(),
		ShortDescription: a.ShortDescription.String(),
		FullDescription:  a.FullDescription.String(),
		Severity: Severity{
			Score: a.SeverityScore.String(),
			Color: "#" + a.SeverityColor.String(),
			Type:  a.SeverityCSS.String(),
		},
		Impact:           a.Impact.String(),
		EventStart:       a.EventStart.String(),
		EventEnd:         optional(a.EventEnd),
		OpenEnded:        a.TBD == "1",
		MajorAlert:       a.MajorAlert == "1",
		URL:              optional(a.AlertURL),
		ImpactedServices: []ImpactedService{},
	}

	if a.ImpactedService != nil {
		for _, svc := range a.ImpactedService.Service {
			alert.ImpactedServices = append(alert.ImpactedServices, ImpactedService{
				Type: svc.ServiceTypeDescription.String(),
				Name: svc.ServiceName.String(),
				ID:   svc.ServiceID.String(),
				Colors: ServiceColors{
					Background: "#" + svc.ServiceBackColor.String(),
					Text:       "#" + svc.ServiceTextColor.String(),
				},
				URL: svc.ServiceURL.String(),
			})
		}
	}
	return alert
}

func optional(c upstream.CData) *string {
	if c == "" {
		return nil
	}
	s := c.String()
	return &s
}
