// Package upstream issues outbound requests to third-party transit and map
// providers and classifies their failures.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single upstream call
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of an upstream response is read
const maxBody = 8 << 20

// ErrUnavailable marks any provider failure: network errors, non-2xx
// statuses, and malformed or unexpected payloads
var ErrUnavailable = errors.New("upstream unavailable")

// NewClient returns an HTTP client with a bounded per-call timeout
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Unavailable wraps a provider-specific failure in ErrUnavailable
func Unavailable(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrUnavailable, provider, fmt.Sprintf(format, args...))
}

// GetRaw fetches rawURL and returns the body of a 2xx response
func GetRaw(ctx context.Context, client *http.Client, provider, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, Unavailable(provider, "building request: %v", stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, Unavailable(provider, "request failed: %v", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, Unavailable(provider, "returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, Unavailable(provider, "reading response: %v", stripURL(err))
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, v any) error {
	body, err := GetRaw(ctx, client, provider, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return Unavailable(provider, "parsing response: %v", err)
	}
	return nil
}

// GetJSONRaw fetches rawURL and checks that the body is valid JSON without
// decoding it
func GetJSONRaw(ctx context.Context, client *http.Client, provider, rawURL string) (json.RawMessage, error) {
	body, err := GetRaw(ctx, client, provider, rawURL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, Unavailable(provider, "response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

// BuildURL joins a base URL, a path, and query parameters
func BuildURL(base, path string, params url.Values) string {
	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// stripURL drops the request URL from *url.Error values. Provider URLs carry
// API keys in their query strings.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
