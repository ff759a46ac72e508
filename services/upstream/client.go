package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dhub/utils"

	"go.uber.org/zap"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	backoffCap         = 10 * time.Second
)

// Envelope is the response shape used by the remote booking API.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodeData unmarshals the envelope's data payload into out.
func (e *Envelope) DecodeData(out interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope has no data")
	}
	return json.Unmarshal(e.Data, out)
}

// CallOptions overrides retry behaviour for a single call.
type CallOptions struct {
	// Retryable widens or narrows the set of kinds that are retried.
	// UNAUTHORIZED and VALIDATION are never retried regardless.
	Retryable []ErrorKind
	// OnFailure is invoked with the classification of the final failure.
	OnFailure func(ErrorKind)
}

// Client executes JSON calls against a remote API with per-attempt
// timeouts, a fixed failure taxonomy and bounded exponential backoff.
type Client struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	// BackoffBase is the first retry wait; subsequent waits double up to
	// a 10s cap. Tests shrink it.
	BackoffBase time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger

	retryable map[ErrorKind]bool
}

// NewClient builds a client with default timeout (30s), attempts (3) and
// retryable set {NETWORK, TIMEOUT}.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Timeout:     defaultTimeout,
		MaxAttempts: defaultMaxAttempts,
		BackoffBase: time.Second,
		HTTPClient:  &http.Client{},
		Logger:      logger,
		retryable: map[ErrorKind]bool{
			KindNetwork: true,
			KindTimeout: true,
		},
	}
}

// GetJSON issues a GET and decodes the 2xx JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out, nil)
}

// PostJSON issues a POST with a JSON body and decodes the 2xx response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.DoJSON(ctx, http.MethodPost, path, body, out, nil)
}

// GetEnvelope issues a GET and decodes the remote API's {success, data}
// envelope. The success flag is not inspected here; that is the caller's
// concern.
func (c *Client) GetEnvelope(ctx context.Context, path string) (*Envelope, error) {
	var env Envelope
	if err := c.GetJSON(ctx, path, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DoJSON executes the request with retries. Only kinds in the effective
// retryable set are reattempted; UNAUTHORIZED and VALIDATION fail on
// first occurrence. Each retry waits min(base * 2^n, 10s).
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}, opts *CallOptions) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	retryable := c.effectiveRetryable(opts)
	url := c.BaseURL + path

	var lastErr *Error
	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			utils.UpstreamRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				// A deadline expiring here is a TIMEOUT; a caller
				// abandoning the request is not.
				return c.fail(newError(classifyTransportError(ctx.Err()), ctx.Err(), 0), opts)
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		kind, status, err := c.attempt(ctx, method, url, payload, out)
		if err == nil {
			utils.UpstreamRequestsTotal.WithLabelValues("ok").Inc()
			return nil
		}

		lastErr = newError(kind, err, status)
		if !retryable[kind] {
			break
		}
		c.Logger.Warn("upstream call failed, will retry",
			zap.String("url", url),
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return c.fail(lastErr, opts)
}

// attempt performs a single HTTP exchange under the per-attempt timeout.
// The returned error is the underlying cause; kind carries the
// classification.
func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, out interface{}) (ErrorKind, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return KindUnknown, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyTransportError(err), 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return classifyStatus(resp.StatusCode), resp.StatusCode,
			fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return KindUnknown, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return "", resp.StatusCode, nil
}

func (c *Client) fail(err *Error, opts *CallOptions) error {
	if err == nil {
		err = newError(KindUnknown, nil, 0)
	}
	utils.UpstreamRequestsTotal.WithLabelValues(string(err.Kind)).Inc()
	c.Logger.Error("upstream call failed",
		zap.String("kind", string(err.Kind)),
		zap.Int("status", err.Status),
		zap.Error(err.Err))
	if opts != nil && opts.OnFailure != nil {
		opts.OnFailure(err.Kind)
	}
	return err
}

// effectiveRetryable merges the client default with any per-call
// override, hard-excluding the never-retry kinds.
func (c *Client) effectiveRetryable(opts *CallOptions) map[ErrorKind]bool {
	set := c.retryable
	if opts != nil && opts.Retryable != nil {
		set = make(map[ErrorKind]bool, len(opts.Retryable))
		for _, k := range opts.Retryable {
			set[k] = true
		}
	}
	out := make(map[ErrorKind]bool, len(set))
	for k, v := range set {
		if k == KindUnauthorized || k == KindValidation {
			continue
		}
		out[k] = v
	}
	return out
}

func (c *Client) backoff(n int) time.Duration {
	d := c.BackoffBase << uint(n)
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}
