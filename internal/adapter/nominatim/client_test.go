package nominatim

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Geocode_LongitudeFirst(t *testing.T) {
	srv := jsonServer(t, `[{"lat":"10","lon":"20","display_name":"Somewhere"}]`, nil)

	c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())
	coords, err := c.Geocode(context.Background(), "XX Somewhere")
	require.NoError(t, err)

	assert.Equal(t, domain.Coordinates{Lon: 20, Lat: 10}, coords)
}

func TestClient_Geocode_Request(t *testing.T) {
	srv := jsonServer(t, `[{"lat":"30.2672","lon":"-97.7431"}]`, func(r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "TX Austin", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-agent/0.1", r.Header.Get("User-Agent"))
	})

	c := NewClient(srv.URL, "test-agent/0.1", 5*time.Second, 0, discardLogger())
	coords, err := c.Geocode(context.Background(), "TX Austin")
	require.NoError(t, err)
	assert.InEpsilon(t, -97.7431, coords.Lon, 1e-9)
	assert.InEpsilon(t, 30.2672, coords.Lat, 1e-9)
}

func TestClient_Geocode_DefaultUserAgent(t *testing.T) {
	srv := jsonServer(t, `[{"lat":"1","lon":"2"}]`, func(r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
	})

	c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())
	_, err := c.Geocode(context.Background(), "x")
	require.NoError(t, err)
}

func TestClient_Geocode_EmptyResponse(t *testing.T) {
	srv := jsonServer(t, `[]`, nil)

	c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())
	_, err := c.Geocode(context.Background(), "XX Nowhere")

	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorIs(t, err, domain.ErrNoResult)
}

func TestClient_Geocode_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad latitude", `[{"lat":"north","lon":"20"}]`},
		{"bad longitude", `[{"lat":"10","lon":""}]`},
		{"missing fields", `[{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.body, nil)
			c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())

			_, err := c.Geocode(context.Background(), "x")
			require.ErrorIs(t, err, ErrInvalidCoordinates)
		})
	}
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html>Access blocked</html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())
	_, err := c.Geocode(context.Background(), "TX Austin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_Geocode_MalformedJSON(t *testing.T) {
	srv := jsonServer(t, `{"error":`, nil)

	c := NewClient(srv.URL, "", 5*time.Second, 0, discardLogger())
	_, err := c.Geocode(context.Background(), "TX Austin")
	require.Error(t, err)
}

func TestClient_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 50*time.Millisecond, 0, discardLogger())
	_, err := c.Geocode(context.Background(), "TX Austin")
	require.Error(t, err)
}

// --- HTTPClient seam ---

type stubHTTPClient struct {
	requests int
}

func (s *stubHTTPClient) Do(_ *http.Request) (*http.Response, error) {
	s.requests++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(`[{"lat":"1","lon":"2"}]`)),
	}, nil
}

func TestClient_Geocode_RateLimitHonorsContext(t *testing.T) {
	stub := &stubHTTPClient{}
	c := newClient(stub, "", "", 0.001, discardLogger())

	_, err := c.Geocode(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Geocode(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, stub.requests, "second request must wait for the limiter")
}
