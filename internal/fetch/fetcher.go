// Package fetch queries the weather provider once per configured city and
// writes the collected raw payloads as a single timestamped snapshot.
//
// Failure handling is per city: a city that cannot be fetched is logged and
// dropped from the run, never surfaced to the caller. Only a run in which
// every city failed is observable at all, and only as "no snapshot written".
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"weather-pipeline/internal/weather"
)

var (
	errRateLimited  = errors.New("rate limited")
	errUnauthorized = errors.New("unauthorized")
	errUnexpected   = errors.New("unexpected status code")
)

// RetryPolicy declares how rate-limited requests are retried: up to
// MaxRetries extra attempts, waiting Backoff between attempts. Only 429
// responses are retried; auth failures and transport errors are not.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Fetcher issues one GET per city and accumulates raw provider payloads.
type Fetcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
	cities  []string
	retry   RetryPolicy
	circuit *gobreaker.CircuitBreaker
	store   weather.SnapshotStore
	now     func() time.Time
	log     *zap.Logger
}

// New creates a Fetcher. The circuit breaker guards the single provider
// endpoint shared by all cities.
func New(client *http.Client, baseURL, apiKey string, cities []string, retry RetryPolicy, store weather.SnapshotStore, log *zap.Logger) *Fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather-provider",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Fetcher{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		cities:  cities,
		retry:   retry,
		circuit: cb,
		store:   store,
		now:     time.Now,
		log:     log,
	}
}

// Fetch runs one fetch pass over all cities. Payloads from successful cities
// are written as one snapshot stamped with the current time; if no city
// succeeded, nothing is written and no error is returned.
func (f *Fetcher) Fetch(ctx context.Context) error {
	stamp := weather.Stamp(f.now())

	var payloads []json.RawMessage
	for _, city := range f.cities {
		payload, err := f.fetchCity(ctx, city)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn("dropping city for this run",
				zap.String("city", city),
				zap.Error(err))
			continue
		}
		payloads = append(payloads, payload)
	}

	if len(payloads) == 0 {
		f.log.Warn("no weather data collected, snapshot not created", zap.String("stamp", stamp))
		return nil
	}

	if err := f.store.WriteSnapshot(stamp, payloads); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", stamp, err)
	}

	f.log.Info("snapshot written",
		zap.String("stamp", stamp),
		zap.Int("cities", len(payloads)))
	return nil
}

// fetchCity performs the request for one city, retrying rate-limited
// responses according to the policy. The returned payload is the provider's
// raw JSON document.
func (f *Fetcher) fetchCity(ctx context.Context, city string) (json.RawMessage, error) {
	var attempt int
	for {
		payload, err := f.doRequest(ctx, city)
		if err == nil {
			return payload, nil
		}

		if !errors.Is(err, errRateLimited) || attempt >= f.retry.MaxRetries {
			return nil, err
		}

		f.log.Warn("rate limit hit, backing off before retry",
			zap.String("city", city),
			zap.Duration("backoff", f.retry.Backoff))

		timer := time.NewTimer(f.retry.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}

func (f *Fetcher) doRequest(ctx context.Context, city string) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", f.apiKey)
	values.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", f.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	result, err := f.circuit.Execute(func() (interface{}, error) {
		resp, execErr := f.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}
			if !json.Valid(body) {
				return nil, fmt.Errorf("provider returned invalid JSON for %q", city)
			}
			return json.RawMessage(body), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: check the API key", errUnauthorized)
		default:
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open: %w", err)
		}
		return nil, err
	}

	payload, ok := result.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return payload, nil
}
