package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/weatherview/internal/models"
	"github.com/kjstillabower/weatherview/internal/observability"
)

// DefaultAPIURL is the OpenWeatherMap current weather endpoint.
const DefaultAPIURL = "http://api.openweathermap.org/data/2.5/weather"

type WeatherClient interface {
	GetCurrentConditions(ctx context.Context, pos models.Position) (models.Conditions, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
)

// OpenWeatherClient issues exactly one request per call. Failures are
// returned to the caller as-is; there is no retry or backoff.
type OpenWeatherClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type openWeatherResponse struct {
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// GetCurrentConditions fetches current conditions for pos in metric units and
// maps main.temp and weather[0].main.
func (c *OpenWeatherClient) GetCurrentConditions(ctx context.Context, pos models.Position) (models.Conditions, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, pos)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.Conditions{}, c.fail(fmt.Errorf("build request: %w", err))
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.Conditions{}, c.fail(fmt.Errorf("request timeout: %w", err))
		}
		return models.Conditions{}, c.fail(fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return models.Conditions{}, c.fail(err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Conditions{}, c.fail(fmt.Errorf("read response body: %w", err))
	}

	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.Conditions{}, c.fail(fmt.Errorf("%w: parse response: %v", ErrMalformedResponse, err))
	}

	conditions, err := mapResponse(apiResp)
	if err != nil {
		return models.Conditions{}, c.fail(err)
	}
	return conditions, nil
}

func (c *OpenWeatherClient) fail(err error) error {
	observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
	return err
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, pos models.Position) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := baseURL.Query()
	params.Set("lat", formatCoordinate(pos.Latitude))
	params.Set("lon", formatCoordinate(pos.Longitude))
	params.Set("APPID", c.apiKey)
	params.Set("units", "metric")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps non-2xx statuses onto sentinel errors. Every
// status here is terminal for the current fetch attempt.
func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func mapResponse(apiResp openWeatherResponse) (models.Conditions, error) {
	if apiResp.Main == nil || apiResp.Main.Temp == nil {
		return models.Conditions{}, fmt.Errorf("%w: missing main.temp", ErrMalformedResponse)
	}
	if len(apiResp.Weather) == 0 {
		return models.Conditions{}, fmt.Errorf("%w: empty weather list", ErrMalformedResponse)
	}

	return models.Conditions{
		Temperature: *apiResp.Main.Temp,
		Weather:     apiResp.Weather[0].Main,
	}, nil
}

func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey performs one probe request at (0, 0) and reports whether the
// key is accepted. Used once at startup.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, models.Position{})
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
