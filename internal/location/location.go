// Package location provides one-shot device position acquisition.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
	"github.com/kjstillabower/weatherview/internal/validation"
)

// ErrUnavailable is returned when no position could be obtained: provider
// unreachable, lookup denied, timeout, or an out-of-range fix.
var ErrUnavailable = errors.New("location unavailable")

// DefaultIPLookupURL is an ip-api compatible endpoint returning the caller's position.
const DefaultIPLookupURL = "http://ip-api.com/json"

// Locator returns the current device position. Each call is a single lookup.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Position, error)
}

// StaticLocator reports a fixed, configured position.
type StaticLocator struct {
	pos models.Position
}

// NewStaticLocator validates pos and returns a locator that always reports it.
func NewStaticLocator(pos models.Position) (*StaticLocator, error) {
	if err := validation.ValidateCoordinates(pos); err != nil {
		return nil, fmt.Errorf("static position: %w", err)
	}
	return &StaticLocator{pos: pos}, nil
}

func (l *StaticLocator) CurrentPosition(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		observability.LocationLookupsTotal.WithLabelValues("static", "error").Inc()
		return models.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	observability.LocationLookupsTotal.WithLabelValues("static", "success").Inc()
	return l.pos, nil
}

// IPLocator resolves the position of the host's public IP address.
type IPLocator struct {
	lookupURL string
	client    *http.Client
}

// NewIPLocator returns a locator querying lookupURL (DefaultIPLookupURL when
// empty), each lookup bounded by timeout.
func NewIPLocator(lookupURL string, timeout time.Duration) *IPLocator {
	if lookupURL == "" {
		lookupURL = DefaultIPLookupURL
	}
	return &IPLocator{
		lookupURL: lookupURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type ipLookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

func (l *IPLocator) CurrentPosition(ctx context.Context) (models.Position, error) {
	pos, err := l.lookup(ctx)
	if err != nil {
		observability.LocationLookupsTotal.WithLabelValues("ip", "error").Inc()
		return models.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	observability.LocationLookupsTotal.WithLabelValues("ip", "success").Inc()
	return pos, nil
}

func (l *IPLocator) lookup(ctx context.Context) (models.Position, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.lookupURL, nil)
	if err != nil {
		return models.Position{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return models.Position{}, fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Position{}, fmt.Errorf("ip lookup: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Position{}, fmt.Errorf("read response body: %w", err)
	}

	var lr ipLookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return models.Position{}, fmt.Errorf("parse response: %w", err)
	}
	if lr.Status != "" && lr.Status != "success" {
		return models.Position{}, fmt.Errorf("ip lookup status %q: %s", lr.Status, lr.Message)
	}
	if lr.Lat == nil || lr.Lon == nil {
		return models.Position{}, errors.New("ip lookup: response missing coordinates")
	}

	pos := models.Position{Latitude: *lr.Lat, Longitude: *lr.Lon}
	if err := validation.ValidateCoordinates(pos); err != nil {
		return models.Position{}, err
	}
	return pos, nil
}
