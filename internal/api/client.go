// Package api implements the authenticated client for the third-party
// athlete-monitoring API: session listing over a time range and player-detail
// lookup, with bounded retry on transient failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/gpspull/internal/config"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
	"github.com/jonesrussell/gpspull/internal/retry"
)

// Status codes used for response classification.
const (
	statusUnauthorized = 401
	statusForbidden    = 403
	statusTooManyReqs  = 429
	statusServerErrLow = 500
)

// maxResponseBodyBytes limits the size of upstream responses.
const maxResponseBodyBytes = 32 * 1024 * 1024 // 32 MB

// AuthModeHeaders transmits credentials as X-API-KEY / X-API-SECRET headers;
// AuthModeBody injects thirdPartyApiId into the request payload.
const (
	AuthModeHeaders = "headers"
	AuthModeBody    = "body"
)

// Client issues authenticated requests to the upstream API. It holds no
// cross-call state beyond connection and timeout configuration.
type Client struct {
	cfg         config.API
	log         logger.Interface
	httpClient  *http.Client // normal timeout, full-day and hour fetches
	probeClient *http.Client // discovery timeout, existence probes
}

// NewClient creates a client from the given API configuration.
func NewClient(cfg config.API, log logger.Interface) (*Client, error) {
	if cfg.Key == "" {
		return nil, ErrAPIKeyRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:         cfg,
		log:         log.WithComponent("api"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		probeClient: &http.Client{Timeout: cfg.DiscoveryTimeout},
	}, nil
}

// SessionsInRange fetches all sessions with a timestamp inside [from, to]
// using the normal timeout. An empty slice with a nil error means the
// upstream explicitly reported no sessions.
func (c *Client) SessionsInRange(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	return c.fetchSessions(ctx, c.httpClient, from, to)
}

// HasData issues a short-timeout existence probe for the given day. It
// returns true when the upstream reports at least one session. Only
// authentication failures are surfaced as errors; other probe failures read
// as "no data detected".
func (c *Client) HasData(ctx context.Context, date time.Time) (bool, error) {
	dayStart := domain.Midnight(date)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	sessions, err := c.fetchSessions(ctx, c.probeClient, dayStart, dayEnd)
	if err != nil {
		if isAuthError(err) {
			return false, err
		}
		c.log.Debug("probe failed, treating as no data",
			"date", dayStart.Format(domain.DateFormat),
			"error", err)
		return false, nil
	}
	return len(sessions) > 0, nil
}

// PlayerDetails fetches athlete profile fields for the given session date.
func (c *Client) PlayerDetails(ctx context.Context, date time.Time) ([]domain.PlayerDetail, error) {
	payload := playerDetailsRequest{
		SessionDate: domain.Midnight(date).Format(domain.APITimeFormat),
	}
	if c.cfg.AuthMode == AuthModeBody {
		payload.ThirdPartyAPIID = c.cfg.Key
	}

	body, err := c.post(ctx, c.httpClient, playerDetailsPath, payload)
	if err != nil {
		return nil, err
	}

	var records []playerRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode player details: %w", err)
	}

	players := make([]domain.PlayerDetail, 0, len(records))
	for i := range records {
		players = append(players, records[i].toDomain())
	}
	return players, nil
}

// fetchSessions posts a session-listing request and decodes the response.
func (c *Client) fetchSessions(
	ctx context.Context,
	httpClient *http.Client,
	from, to time.Time,
) ([]domain.Session, error) {
	payload := sessionsRequest{
		SessionStartDate: from.UTC().Format(domain.APITimeFormat),
		SessionEndDate:   to.UTC().Format(domain.APITimeFormat),
	}
	if c.cfg.AuthMode == AuthModeBody {
		payload.ThirdPartyAPIID = c.cfg.Key
	}

	body, err := c.post(ctx, httpClient, sessionsPath, payload)
	if err != nil {
		return nil, err
	}

	var records []sessionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(records))
	for i := range records {
		sessions = append(sessions, records[i].toDomain())
	}
	return sessions, nil
}

// post executes one POST with retry and exponential backoff on transient
// failures. The returned bytes are the raw response body of a 2xx response.
func (c *Client) post(
	ctx context.Context,
	httpClient *http.Client,
	path string,
	payload any,
) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var body []byte
	retryCfg := retry.Config{
		MaxAttempts:  c.cfg.MaxRetries,
		InitialDelay: c.cfg.RetryInitialWait,
		MaxDelay:     c.cfg.RetryMaxWait,
		Multiplier:   2.0,
		IsRetryable:  IsTransient,
	}

	err = retry.Do(ctx, retryCfg, func() error {
		body, err = c.doRequest(ctx, httpClient, url, encoded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// doRequest performs a single HTTP round trip and classifies the outcome.
func (c *Client) doRequest(
	ctx context.Context,
	httpClient *http.Client,
	url string,
	payload []byte,
) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == statusUnauthorized || resp.StatusCode == statusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode == statusTooManyReqs || resp.StatusCode >= statusServerErrLow:
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("upstream returned %s", resp.Status),
		}
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
}

// setHeaders applies the api-version header and, in header auth mode, the
// credential headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-version", c.cfg.Version)

	if c.cfg.AuthMode == AuthModeHeaders {
		req.Header.Set("X-API-KEY", c.cfg.Key)
		if c.cfg.Secret != "" {
			req.Header.Set("X-API-SECRET", c.cfg.Secret)
		}
	}
}

// isAuthError reports whether err wraps ErrAuthentication.
func isAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// truncate shortens s to at most n bytes for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
