// Package api is the HTTP client for the KKOOKK backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kkookk/kkookk/internal/version"
)

const (
	defaultTimeout = 10 * time.Second

	headerWalletSession = "X-Wallet-Session"
	headerRequestID     = "X-Request-ID"
)

// ErrMissingSession is returned before any network call when the session
// lacks the token an endpoint needs.
var ErrMissingSession = errors.New("session token is not configured")

type authMode int

const (
	authNone authMode = iota
	authWallet
	authOwner
)

// Client calls the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	session Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a client for baseURL using the given session.
func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, auth authMode, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)

	switch auth {
	case authWallet:
		token := strings.TrimSpace(c.session.WalletToken)
		if token == "" {
			return fmt.Errorf("%s %s: wallet %w", method, path, ErrMissingSession)
		}
		req.Header.Set(headerWalletSession, token)
	case authOwner:
		token := strings.TrimSpace(c.session.OwnerToken)
		if token == "" {
			return fmt.Errorf("%s %s: owner %w", method, path, ErrMissingSession)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	slog.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Method:     method,
			Path:       path,
		}
		var eb errorBody
		if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
			if eb.RequestID != "" {
				apiErr.RequestID = eb.RequestID
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func storeQuery(storeID int64) url.Values {
	q := url.Values{}
	q.Set("storeId", fmt.Sprintf("%d", storeID))
	return q
}
