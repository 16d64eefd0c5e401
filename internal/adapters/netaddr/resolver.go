// Package netaddr asks an external echo service which address the node is
// reachable on.
package netaddr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultLookupURL = "https://api.ipify.org"

	maxLookupResponseBytes = 1 << 10
	requestIDHeader        = "X-Request-Id"
)

type HTTPResolver struct {
	LookupURL      string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.AddressResolver = HTTPResolver{}

type lookupResponse struct {
	IP string `json:"ip"`
}

// Resolve accepts either a bare address body or a JSON object with an "ip"
// field, which covers ipify, ifconfig.co and icanhazip style services.
func (r HTTPResolver) Resolve(ctx context.Context) (string, error) {
	endpoint, err := lookupURL(r.LookupURL)
	if err != nil {
		return "", err
	}

	requestCtx, cancel := r.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create address lookup request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := r.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup address: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("lookup address: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read address lookup response: %w", err)
	}

	address, err := parseLookupBody(body)
	if err != nil {
		return "", err
	}

	return address, nil
}

func parseLookupBody(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errors.New("address lookup response is empty")
	}

	address := string(body)
	if body[0] == '{' {
		var payload lookupResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decode address lookup response: %w", err)
		}
		address = strings.TrimSpace(payload.IP)
	}

	if net.ParseIP(address) == nil {
		return "", fmt.Errorf("address lookup returned %q, not an IP address", truncateForError(address))
	}

	return address, nil
}

func (r HTTPResolver) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r HTTPResolver) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := r.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func lookupURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultLookupURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse lookup url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("lookup url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("lookup url host is required")
	}

	return parsed.String(), nil
}

func truncateForError(value string) string {
	const limit = 48
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
