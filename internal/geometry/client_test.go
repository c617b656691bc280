package geometry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientOptions{APIKey: "k-123", BaseURL: srv.URL})
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func TestDirectionsSwapsCoordinateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("Authorization"))
		var body directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, [][2]float64{{13.4, 52.5}, {13.5, 52.6}}, body.Coordinates)
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[13.4,52.5],[13.45,52.55],[13.5,52.6]]}}]}`))
	})

	line, err := c.Directions(context.Background(), [][2]float64{{13.4, 52.5}, {13.5, 52.6}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{52.5, 13.4}, {52.55, 13.45}, {52.6, 13.5}}, line)
}

func TestDirectionsRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[1,2],[3,4]]}}]}`))
	})

	line, err := c.Directions(context.Background(), [][2]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, [][]float64{{2, 1}, {4, 3}}, line)
}

func TestDirectionsDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad coordinates", http.StatusBadRequest)
	})

	_, err := c.Directions(context.Background(), [][2]float64{{1, 2}, {3, 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Code 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDirectionsGivesUpAfterFourAttempts(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Directions(context.Background(), [][2]float64{{1, 2}, {3, 4}})
	require.Error(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDirectionsEmptyFeatures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})
	_, err := c.Directions(context.Background(), [][2]float64{{1, 2}, {3, 4}})
	assert.ErrorContains(t, err, "no features")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}
