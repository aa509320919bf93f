// Package identity is the HTTP client for the remote identity service that
// issues and verifies console session credentials.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/metrics"
	"github.com/pipedeck/console/internal/models"
)

const (
	MePath     = "/api/auth/me"
	LogoutPath = "/api/auth/logout"

	HeaderSessionID = "X-Session-Id"
	HeaderRequestID = "X-Request-Id"
)

var (
	ErrInvalidCredential = errors.New("credential rejected by identity service")
	ErrTransport         = errors.New("identity service request failed")
	ErrMalformedResponse = errors.New("malformed identity service response")
	ErrInvalidEndpoint   = errors.New("invalid identity service endpoint")
)

// StatusError is returned for any non-2xx answer. It matches
// ErrInvalidCredential with errors.Is.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrInvalidCredential
}

type Client struct {
	client   *resty.Client
	endpoint string
}

type Option func(*Client)

// WithTimeout bounds every request made by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.SetTimeout(timeout)
		}
	}
}

// WithRestyClient replaces the underlying resty client, mostly for tests.
func WithRestyClient(client *resty.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client.SetBaseURL(c.endpoint)
		}
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {

	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")

	if len(endpoint) == 0 || !common.IsValidURL(endpoint) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint: endpoint,
		client: resty.New().
			SetBaseURL(endpoint).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", fmt.Sprintf("pipedeck/%s", common.GetVersion())),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) newRequest(ctx context.Context, credential models.Credential) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetAuthToken(credential.AccessToken).
		SetHeader(HeaderSessionID, credential.SessionID).
		SetHeader(HeaderRequestID, uuid.NewString())
}

// Me asks the identity service who the credential belongs to.
func (c *Client) Me(ctx context.Context, credential models.Credential) (models.UserProfile, error) {

	started := time.Now()
	resp, err := c.newRequest(ctx, credential).Get(MePath)
	observe("me", resp, err, started)

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"endpoint": c.endpoint,
		}).Debugln("Identity lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{Endpoint: MePath, StatusCode: resp.StatusCode()}
	}

	var body models.IdentityResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if body.User == nil {
		return nil, fmt.Errorf("%w: missing user", ErrMalformedResponse)
	}

	return body.User, nil
}

// Logout terminates the session on the identity service. The response body
// is ignored.
func (c *Client) Logout(ctx context.Context, credential models.Credential) error {

	started := time.Now()
	resp, err := c.newRequest(ctx, credential).Post(LogoutPath)
	observe("logout", resp, err, started)

	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if !resp.IsSuccess() {
		return &StatusError{Endpoint: LogoutPath, StatusCode: resp.StatusCode()}
	}

	return nil
}

func observe(endpoint string, resp *resty.Response, err error, started time.Time) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}

	metrics.IdentityRequestsTotal.WithLabelValues(endpoint, status).Inc()
	metrics.IdentityRequestDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}
