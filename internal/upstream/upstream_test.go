package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"name":"Red"}`))
		case "/bad":
			w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	if err := GetJSON(ctx, client, "test", srv.URL+"/ok", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "Red" {
		t.Errorf("Name = %q", out.Name)
	}

	tests := []struct {
		name string
		path string
	}{
		{"malformed", "/bad"},
		{"non-2xx", "/missing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := GetJSON(ctx, client, "test", srv.URL+tc.path, &out)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestGetJSONRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("valid") == "1" {
			w.Write([]byte(`{"ctatt":{}}`))
			return
		}
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	raw, err := GetJSONRaw(context.Background(), client, "test", srv.URL+"?valid=1")
	if err != nil || string(raw) != `{"ctatt":{}}` {
		t.Fatalf("GetJSONRaw = %s, %v", raw, err)
	}
	if _, err := GetJSONRaw(context.Background(), client, "test", srv.URL); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestErrorsDoNotLeakKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	rawURL := BuildURL(addr, "/api", url.Values{"key": {"super-secret"}})
	_, err := GetRaw(context.Background(), NewClient(time.Second), "cta", rawURL)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if strings.Contains(err.Error(), "super-secret") {
		t.Errorf("error leaks the key: %v", err)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		nan  bool
	}{
		{`41.88`, 41.88, false},
		{`"-87.63"`, -87.63, false},
		{`" 12 "`, 12, false},
		{`""`, 0, true},
		{`"abc"`, 0, true},
		{`null`, 0, true},
	}
	for _, tc := range tests {
		var f Float
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if tc.nan {
			if !math.IsNaN(f.Value()) {
				t.Errorf("%s -> %f, want NaN", tc.in, f.Value())
			}
			continue
		}
		if f.Value() != tc.want {
			t.Errorf("%s -> %f, want %f", tc.in, f.Value(), tc.want)
		}
	}

	var missing struct {
		Lat *Float `json:"lat"`
	}
	json.Unmarshal([]byte(`{}`), &missing)
	if !math.IsNaN(missing.Lat.Value()) {
		t.Error("missing field should be NaN")
	}
}

func TestCData(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"plain"`, "plain"},
		{`{"#cdata-section":"<p>wrapped</p>"}`, "<p>wrapped</p>"},
		{`{"#cdatasection":"http://x"}`, "http://x"},
		{`{"other":"x"}`, ""},
		{`25`, "25"},
		{`null`, ""},
	}
	for _, tc := range tests {
		var c CData
		if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if c.String() != tc.want {
			t.Errorf("%s -> %q, want %q", tc.in, c, tc.want)
		}
	}
}

func TestList(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}
	tests := []struct {
		in   string
		want int
	}{
		{`[{"id":"a"},{"id":"b"}]`, 2},
		{`{"id":"a"}`, 1},
		{`null`, 0},
		{`[]`, 0},
	}
	for _, tc := range tests {
		var l List[item]
		if err := json.Unmarshal([]byte(tc.in), &l); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if len(l) != tc.want {
			t.Errorf("%s -> %d items, want %d", tc.in, len(l), tc.want)
		}
	}

	var l List[item]
	if err := json.Unmarshal([]byte(`"oops"`), &l); err == nil {
		t.Error("expected error for a string")
	}
}

func TestBool(t *testing.T) {
	tests := map[string]bool{
		`true`:    true,
		`false`:   false,
		`"1"`:     true,
		`"0"`:     false,
		`"true"`:  true,
		`null`:    false,
		`"maybe"`: false,
	}
	for in, want := range tests {
		var b Bool
		if err := json.Unmarshal([]byte(in), &b); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if bool(b) != want {
			t.Errorf("%s -> %v, want %v", in, b, want)
		}
	}
}
