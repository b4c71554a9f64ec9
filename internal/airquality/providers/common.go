package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

// HTTPClientConfig bundles the HTTP client and client-side request limits.
type HTTPClientConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

var (
	errCircuitOpen  = eris.New("circuit breaker open")
	errNoHTTPClient = eris.New("http client not configured")
)

// doRequest executes a single upstream request behind the limiter and the
// circuit breaker. There are no retries: a failure is returned to the caller
// as a *airquality.FetchError.
//
// Transport failures and 5xx/429 responses count against the breaker; other
// non-2xx responses are reported without tripping it.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, airquality.NewFetchError(airquality.ErrorTransport, errNoHTTPClient)
	}

	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return nil, airquality.NewFetchError(airquality.ErrorTransport, eris.Wrap(err, "rate limiter wait"))
		}
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, airquality.NewFetchError(airquality.ErrorTransport, eris.Wrap(redactURL(err), "build request"))
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, airquality.NewFetchError(airquality.ErrorTransport, eris.Wrap(redactURL(execErr), "upstream request"))
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, httpError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, airquality.NewFetchError(airquality.ErrorTransport, eris.Wrap(errCircuitOpen, err.Error()))
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, airquality.NewFetchError(airquality.ErrorTransport, eris.New("unexpected result type from circuit breaker"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, httpError(resp)
	}
	return resp, nil
}

// redactURL drops the query string from a *url.Error so credentials passed as
// query parameters never reach the logs.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if u, perr := url.Parse(ue.URL); perr == nil && u.RawQuery != "" {
		u.RawQuery = "redacted"
		ue.URL = u.String()
	} else if perr != nil {
		ue.URL = "<unparseable url>"
	}
	return err
}

func httpError(resp *http.Response) *airquality.FetchError {
	return &airquality.FetchError{
		Kind:       airquality.ErrorHTTP,
		StatusCode: resp.StatusCode,
		Err:        eris.Errorf("unexpected status %s", resp.Status),
	}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
