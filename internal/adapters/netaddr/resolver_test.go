package netaddr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParsesResponseBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{name: "plain ipv4", contentType: "text/plain", body: "203.0.113.7\n", want: "203.0.113.7"},
		{name: "plain ipv6", contentType: "text/plain", body: "2001:db8::1", want: "2001:db8::1"},
		{name: "json object", contentType: "application/json", body: `{"ip":"198.51.100.20"}`, want: "198.51.100.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				_, err := uuid.Parse(r.Header.Get(requestIDHeader))
				assert.NoError(t, err)

				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			resolver := HTTPResolver{LookupURL: server.URL, HTTPClient: server.Client()}
			address, err := resolver.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, address)
		})
	}
}

func TestResolveRejectsBadResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "upstream down", wantErr: "lookup address: status 502"},
		{name: "empty body", status: http.StatusOK, body: "  \n", wantErr: "address lookup response is empty"},
		{name: "html page", status: http.StatusOK, body: "<html>captive portal</html>", wantErr: "not an IP address"},
		{name: "broken json", status: http.StatusOK, body: `{"ip":`, wantErr: "decode address lookup response"},
		{name: "json without ip", status: http.StatusOK, body: `{"addr":"203.0.113.7"}`, wantErr: "not an IP address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			_, err := HTTPResolver{LookupURL: server.URL, HTTPClient: server.Client()}.Resolve(context.Background())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveTimesOutWithoutCallerDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	resolver := HTTPResolver{
		LookupURL:      server.URL,
		HTTPClient:     server.Client(),
		RequestTimeout: 20 * time.Millisecond,
	}

	start := time.Now()
	_, err := resolver.Resolve(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveCapsResponseBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("9", 4*maxLookupResponseBytes)))
	}))
	t.Cleanup(server.Close)

	_, err := HTTPResolver{LookupURL: server.URL, HTTPClient: server.Client()}.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "...")
}

func TestLookupURLValidation(t *testing.T) {
	t.Parallel()

	endpoint, err := lookupURL("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLookupURL, endpoint)

	_, err = lookupURL("ftp://example.com")
	assert.EqualError(t, err, "lookup url must use http or https")

	_, err = lookupURL("https://")
	assert.EqualError(t, err, "lookup url host is required")
}
