package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/microshop/backend/services/common/metrics"
)

const userServiceName = "user-service"

// ValidationResult is the outcome of a remote user existence check.
type ValidationResult string

const (
	// ValidationConfirmed means the user directory answered 200.
	ValidationConfirmed ValidationResult = "confirmed"
	// ValidationNotFound is an authoritative 404. Never retried.
	ValidationNotFound ValidationResult = "not_found"
	// ValidationUnreachable covers transport errors, timeouts and 5xx.
	ValidationUnreachable ValidationResult = "unreachable"
)

// UserValidator confirms that a user exists in the user directory.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID string) ValidationResult
}

// UserClient validates users against the user-service over HTTP.
type UserClient struct {
	baseURL      string
	httpClient   *http.Client
	retryBackoff time.Duration
	metrics      *metrics.Registry
	logger       *zap.Logger
}

// NewUserClient creates a validation client. A malformed base address is a
// startup error; per-request failures are reported as validation outcomes,
// never as errors.
func NewUserClient(baseURL string, timeout, retryBackoff time.Duration, reg *metrics.Registry, log *zap.Logger) (*UserClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid user service base address %q", baseURL)
	}
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryBackoff: retryBackoff,
		metrics:      reg,
		logger:       log,
	}, nil
}

// ValidateUser checks that the user exists: one attempt plus at most one
// retry after a short fixed backoff, retrying only when the user-service was
// unreachable. A 404 is authoritative absence and is never retried. A blank
// identifier short-circuits without touching the network.
func (c *UserClient) ValidateUser(ctx context.Context, userID string) ValidationResult {
	if strings.TrimSpace(userID) == "" {
		return ValidationNotFound
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		outcome := c.check(ctx, userID)
		if outcome != ValidationUnreachable || attempt == maxAttempts {
			return outcome
		}
		c.logger.Warn("user validation unreachable, retrying",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt))
		time.Sleep(c.retryBackoff)
	}
}

func (c *UserClient) check(ctx context.Context, userID string) ValidationResult {
	target := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ValidationUnreachable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordExternalCall(userServiceName, "error", time.Since(start))
		return ValidationUnreachable
	}
	defer resp.Body.Close()

	c.metrics.RecordExternalCall(userServiceName, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		return ValidationConfirmed
	case resp.StatusCode == http.StatusNotFound:
		return ValidationNotFound
	default:
		return ValidationUnreachable
	}
}
