package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/votes"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Doer is the subset of *http.Client the client needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config describes the remote votes API.
type Config struct {
	BaseURL           string
	Path              string
	UserAgent         string
	MaxBodyBytes      int64
	MaxErrorBodyBytes int64
}

// TransportError reports that no response was received.
type TransportError struct {
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	return "votes api unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response that could not be used: a non-2xx status or
// a 2xx body that failed to decode.
type StatusError struct {
	RequestID  string
	StatusCode int
	Body       []byte
	DecodeErr  error
}

func (e *StatusError) Error() string {
	if e.DecodeErr != nil {
		return fmt.Sprintf("votes api returned undecodable body (status %d): %v", e.StatusCode, e.DecodeErr)
	}
	return fmt.Sprintf("votes api returned status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.DecodeErr }

// Result is a successful fetch.
type Result struct {
	RequestID  string
	StatusCode int
	Snapshot   votes.Snapshot
	Latency    time.Duration
}

// Client issues authenticated reads against the votes API. It never retries.
type Client struct {
	endpoint   string
	userAgent  string
	maxBody    int64
	maxErrBody int64
	http       Doer
	logger     *zap.Logger
	newID      func() string
	now        func() time.Time
}

// New validates cfg and returns a Client.
func New(cfg Config, doer Doer, logger *zap.Logger) (*Client, error) {
	endpoint, err := joinEndpoint(cfg.BaseURL, cfg.Path)
	if err != nil {
		return nil, err
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.MaxErrorBodyBytes <= 0 {
		cfg.MaxErrorBodyBytes = 4 << 10
	}
	return &Client{
		endpoint:   endpoint,
		userAgent:  cfg.UserAgent,
		maxBody:    cfg.MaxBodyBytes,
		maxErrBody: cfg.MaxErrorBodyBytes,
		http:       doer,
		logger:     logger.Named("remote"),
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}, nil
}

// Endpoint returns the absolute URL of the votes-and-ratings resource.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchVotesAndRatings performs GET <endpoint> with the token as a bearer
// credential.
func (c *Client) FetchVotesAndRatings(ctx context.Context, token string) (Result, error) {
	requestID := c.newID()
	start := c.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Result{}, &TransportError{RequestID: requestID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("votes fetch failed",
			zap.String("request_id", requestID),
			zap.Duration("latency", c.now().Sub(start)),
			zap.Error(err))
		return Result{}, &TransportError{RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	latency := c.now().Sub(start)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxErrBody))
		c.logger.Warn("votes api rejected request",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", latency),
			zap.ByteString("body", body))
		return Result{}, &StatusError{RequestID: requestID, StatusCode: resp.StatusCode, Body: body}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return Result{}, &TransportError{RequestID: requestID, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return Result{}, &StatusError{
			RequestID:  requestID,
			StatusCode: resp.StatusCode,
			Body:       truncate(body, c.maxErrBody),
			DecodeErr:  fmt.Errorf("response body exceeds %d bytes", c.maxBody),
		}
	}

	snap, err := votes.Decode(body)
	if err != nil {
		c.logger.Warn("votes api returned undecodable body",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return Result{}, &StatusError{
			RequestID:  requestID,
			StatusCode: resp.StatusCode,
			Body:       truncate(body, c.maxErrBody),
			DecodeErr:  err,
		}
	}

	c.logger.Debug("votes fetched",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
		zap.Int("records", snap.Len()))

	return Result{
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		Snapshot:   snap,
		Latency:    latency,
	}, nil
}

func joinEndpoint(base, path string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("api base url required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("api base url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("api base url missing host")
	}
	if path == "" {
		path = "/api/user-votes-and-ratings"
	}
	return strings.TrimRight(u.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}

func truncate(b []byte, n int64) []byte {
	if int64(len(b)) <= n {
		return b
	}
	return b[:n]
}
