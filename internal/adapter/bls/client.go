// Package bls implements the BLS Public Data API v2 timeseries client.
package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/labor-stats-etl/internal/catalog"
	"github.com/couchcryptid/labor-stats-etl/internal/domain"
	"github.com/couchcryptid/labor-stats-etl/internal/observability"
)

// maxYearSpan is the widest window a single BLS v2 request accepts.
const maxYearSpan = 20

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// backoffConfig controls retry behaviour for transient request failures.
type backoffConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// Client fetches monthly observations from the BLS timeseries API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backoff    backoffConfig
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a BLS API client. The API key is optional; anonymous
// requests are rate-limited more aggressively by the remote service.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bls",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		backoff: backoffConfig{
			maxRetries:      3,
			initialInterval: 500 * time.Millisecond,
			maxInterval:     5 * time.Second,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchObservations requests one series for the inclusive year window and
// normalizes the response into dataset observations keyed by the entry's
// logical name. Windows wider than the API maximum are clamped to the most
// recent years.
func (c *Client) FetchObservations(ctx context.Context, entry catalog.Entry, startYear, endYear int) ([]domain.Observation, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("fetch %s: start year %d after end year %d", entry.Name, startYear, endYear)
	}
	if endYear-startYear+1 > maxYearSpan {
		startYear = endYear - maxYearSpan + 1
	}

	payload, err := json.Marshal(c.buildRequest(entry.ID, startYear, endYear))
	if err != nil {
		return nil, fmt.Errorf("marshal request for %s: %w", entry.Name, err)
	}

	resp, err := c.doRequest(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entry.Name, err)
	}
	defer resp.Body.Close()

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", entry.Name, err)
	}

	if apiResp.Status != "REQUEST_SUCCEEDED" {
		return nil, fmt.Errorf("fetch %s: API status %q: %s",
			entry.Name, apiResp.Status, strings.Join(apiResp.Message, "; "))
	}
	if len(apiResp.Results.Series) == 0 {
		return nil, fmt.Errorf("fetch %s: series %s missing from response", entry.Name, entry.ID)
	}

	return c.normalize(entry, apiResp.Results.Series[0].Data), nil
}

// normalize converts raw API data points into observations. Only monthly
// periods M01-M12 are kept; M13 is the annual average. The "-" sentinel and
// empty values become absent observations rather than being dropped.
func (c *Client) normalize(entry catalog.Entry, points []dataPoint) []domain.Observation {
	obs := make([]domain.Observation, 0, len(points))
	for _, p := range points {
		period, ok := parseMonthlyPeriod(p.Year, p.Period)
		if !ok {
			continue
		}

		value, ok := parseValue(p.Value)
		if !ok {
			c.logger.Warn("skipping unparseable observation value",
				"series", entry.Name, "period", p.Period, "year", p.Year, "value", p.Value)
			continue
		}

		obs = append(obs, domain.Observation{
			Series: entry.Name,
			Period: period,
			Value:  value,
		})
	}
	return obs
}

func (c *Client) buildRequest(seriesID string, startYear, endYear int) request {
	return request{
		SeriesID:        []string{seriesID},
		StartYear:       strconv.Itoa(startYear),
		EndYear:         strconv.Itoa(endYear),
		RegistrationKey: c.apiKey,
	}
}

// doRequest executes the POST with retries, exponential backoff, and the
// circuit breaker. Rate limiting and 5xx responses are retried; an open
// circuit fails fast so one broken series does not stall the whole run.
func (c *Client) doRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	backoff := c.backoff.initialInterval

	var lastErr error
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		start := time.Now()
		result, err := c.breaker.Execute(func() (any, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
			if reqErr != nil {
				return nil, reqErr
			}
			req.Header.Set("Content-Type", "application/json")

			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				drainAndClose(resp)
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				drainAndClose(resp)
				return nil, errServerError
			case resp.StatusCode != http.StatusOK:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				resp.Body.Close()
				return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
			}
			return resp, nil
		})
		c.metrics.BLSRequestDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= c.backoff.maxRetries {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff *= 2; backoff > c.backoff.maxInterval {
			backoff = c.backoff.maxInterval
		}
	}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// parseMonthlyPeriod converts BLS year/period strings ("2024", "M05") into a
// Period. M13 (annual average) and non-monthly periods are rejected.
func parseMonthlyPeriod(yearStr, periodStr string) (domain.Period, bool) {
	if len(periodStr) != 3 || periodStr[0] != 'M' {
		return domain.Period{}, false
	}
	month, err := strconv.Atoi(periodStr[1:])
	if err != nil || month < 1 || month > 12 {
		return domain.Period{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		return domain.Period{}, false
	}
	return domain.Period{Year: year, Month: time.Month(month)}, true
}

// parseValue converts a BLS value string into an optional float. The "-"
// sentinel and empty strings mean suppressed/unreleased and map to nil;
// any other unparseable value is reported as not ok.
func parseValue(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// BLS API wire types.

type request struct {
	SeriesID        []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationkey,omitempty"`
}

type response struct {
	Status  string   `json:"status"`
	Message []string `json:"message"`
	Results results  `json:"Results"`
}

type results struct {
	Series []series `json:"series"`
}

type series struct {
	SeriesID string      `json:"seriesID"`
	Data     []dataPoint `json:"data"`
}

type dataPoint struct {
	Year       string     `json:"year"`
	Period     string     `json:"period"`
	PeriodName string     `json:"periodName"`
	Value      string     `json:"value"`
	Footnotes  []footnote `json:"footnotes"`
}

type footnote struct {
	Code string `json:"code"`
	Text string `json:"text"`
}
