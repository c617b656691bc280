// Package geometry attaches road geometry to solved routes using the
// OpenRouteService directions API.
package geometry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client calls the ORS directions endpoint.
type Client struct {
	apiKey  string
	baseURL string
	profile string
	session *http.Client
	limiter *rate.Limiter
	backoff time.Duration
}

type ClientOptions struct {
	APIKey  string
	BaseURL string
	Profile string
	// RateRPS caps outgoing requests per second; <= 0 means unlimited.
	RateRPS float64
	Timeout time.Duration
	// HTTPClient replaces the default client, mostly for tests.
	HTTPClient *http.Client
}

func NewClient(o ClientOptions) (*Client, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, errors.New("ors api key is required")
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openrouteservice.org"
	}
	if o.Profile == "" {
		o.Profile = "driving-car"
	}
	session := o.HTTPClient
	if session == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		session = &http.Client{Timeout: timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RateRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RateRPS), 1)
	}
	return &Client{
		apiKey:  o.APIKey,
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		profile: o.Profile,
		session: session,
		limiter: lim,
		backoff: 200 * time.Millisecond,
	}, nil
}

// Profile is the routing profile requests are sent with.
func (c *Client) Profile() string { return c.profile }

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Directions returns the driving polyline through lonLat as [lat, lon] pairs.
func (c *Client) Directions(ctx context.Context, lonLat [][2]float64) ([][]float64, error) {
	body, err := json.Marshal(directionsRequest{Coordinates: lonLat})
	if err != nil {
		return nil, fmt.Errorf("encode directions request: %w", err)
	}
	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.profile)
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	defer resp.Body.Close()

	var out directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode directions: %w", err)
	}
	if len(out.Features) == 0 {
		return nil, errors.New("directions: no features in response")
	}
	coords := out.Features[0].Geometry.Coordinates
	latLon := make([][]float64, 0, len(coords))
	for _, p := range coords {
		if len(p) < 2 {
			return nil, fmt.Errorf("directions: malformed coordinate %v", p)
		}
		latLon = append(latLon, []float64{p[1], p[0]})
	}
	return latLon, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx) with
// exponential backoff. Every attempt first waits on the rate limiter.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 4
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}
		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}
		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}
