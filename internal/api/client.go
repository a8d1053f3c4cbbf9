// Package api is the client for the Datasphere REST surface: spaces,
// repository objects, users and dependency (lineage) queries.
//
// The client retries transient failures and attaches the OAuth bearer token
// to every request. Response shapes vary across tenant versions, so list
// endpoints tolerate both bare arrays and {"results": [...]} wrappers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	requestTimeout = 30 * time.Second
	lineageTimeout = 60 * time.Second

	retryCount       = 3
	retryWaitTime    = 1 * time.Second
	retryWaitTimeMax = 4 * time.Second
)

// Credentials holds the connection settings and OAuth token state for one
// Datasphere tenant.
type Credentials struct {
	Host string

	ClientID     string
	ClientSecret string
	TokenURL     string

	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// TokenValid reports whether the access token is present and not expired.
func (c *Credentials) TokenValid() bool {
	return c.AccessToken != "" && time.Now().Before(c.TokenExpiry)
}

// Client talks to the Datasphere REST API.
type Client struct {
	creds  *Credentials
	resty  *resty.Client
	logger *slog.Logger
}

// NewClient builds a client for the given tenant credentials.
func NewClient(creds *Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	r := resty.New()
	r.SetBaseURL(creds.Host)
	r.SetTimeout(requestTimeout)
	r.SetRetryCount(retryCount)
	r.SetRetryWaitTime(retryWaitTime)
	r.SetRetryMaxWaitTime(retryWaitTimeMax)
	r.SetHeader("Accept", "application/json")
	r.SetHeader("Content-Type", "application/json")
	r.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil && (resp == nil || resp.StatusCode() == 0) {
			return true
		}
		switch resp.StatusCode() {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	})

	return &Client{creds: creds, resty: r, logger: logger}
}

// RestyClient exposes the underlying resty client, mainly so tests can mock
// its transport.
func (c *Client) RestyClient() *resty.Client {
	return c.resty
}

// SetRetry overrides the retry policy; used by tests and by callers that
// want faster failure.
func (c *Client) SetRetry(count int, wait, maxWait time.Duration) {
	c.resty.SetRetryCount(count)
	c.resty.SetRetryWaitTime(wait)
	c.resty.SetRetryMaxWaitTime(maxWait)
}

// get performs an authenticated GET and decodes the JSON body into any.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, timeout time.Duration) (any, error) {
	if !c.creds.TokenValid() {
		return nil, apiErr(0, "OAuth token is invalid or expired, refresh it first")
	}

	req := c.resty.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.creds.AccessToken)
	if params != nil {
		req.SetQueryParams(params)
	}
	if timeout > 0 {
		// Per-request deadline on top of the client default.
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		req.SetContext(reqCtx)
	}

	c.logger.Debug("api request", "method", http.MethodGet, "endpoint", endpoint)

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, apiErr(0, "request failed: %v", err)
	}
	if err := checkStatus(resp, endpoint); err != nil {
		return nil, err
	}

	var data any
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, apiErr(0, "invalid JSON response from API: %v", err)
	}
	return data, nil
}

func checkStatus(resp *resty.Response, endpoint string) error {
	code := resp.StatusCode()
	switch {
	case code == http.StatusUnauthorized:
		return apiErr(code, "authentication failed, token may be expired")
	case code == http.StatusForbidden:
		return apiErr(code, "access forbidden, check permissions")
	case code == http.StatusNotFound:
		return apiErr(code, "resource not found: %s", endpoint)
	case code >= 400:
		msg := fmt.Sprintf("API request failed with status %d", code)
		var body map[string]any
		if err := json.Unmarshal(resp.Body(), &body); err == nil {
			if m, ok := body["message"].(string); ok && m != "" {
				msg += ": " + m
			}
		}
		return apiErr(code, "%s", msg)
	}
	return nil
}

// RefreshAccessToken exchanges the refresh token for a new access token and
// updates the credentials in place.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	if c.creds.RefreshToken == "" {
		return apiErr(0, "no refresh token available, re-authenticate")
	}

	c.logger.Info("refreshing OAuth token")

	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": c.creds.RefreshToken,
			"client_id":     c.creds.ClientID,
			"client_secret": c.creds.ClientSecret,
		}).
		Post(c.creds.TokenURL)
	if err != nil {
		return apiErr(0, "token refresh request failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return apiErr(resp.StatusCode(), "token refresh failed")
	}

	var token struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return apiErr(0, "invalid token response: %v", err)
	}

	c.creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.creds.RefreshToken = token.RefreshToken
	}
	expiresIn := token.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	c.creds.TokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)

	c.logger.Info("token refreshed")
	return nil
}

// TestConnection verifies credentials by listing spaces.
func (c *Client) TestConnection(ctx context.Context) error {
	spaces, err := c.Spaces(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("API connection ok", "spaces", len(spaces))
	return nil
}
