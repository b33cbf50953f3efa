// Package hrsource fetches HR records from the upstream employee service
// over its paged JSON REST API.
package hrsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/retry"
)

const defaultPageSize = 200

// Client reads entity pages from the upstream HR system with basic auth
// and bounded retries on transient failures.
type Client struct {
	baseURL  string
	username string
	password string
	pageSize int
	http     *http.Client
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewClient creates an upstream HR client from sync configuration.
func NewClient(cfg config.SyncConfig, logger *zap.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.SourceBaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
		// Three attempts per page, spaced 2s then 4s, matching the
		// upstream service's own rate guidance.
		retryCfg: &retry.Config{
			MaxRetries:       2,
			InitialDelay:     2 * time.Second,
			MaxDelay:         10 * time.Second,
			Multiplier:       2.0,
			JitterFactor:     0.1,
			MaxSameErrorType: 3,
		},
		logger: logger,
	}
}

// Employees retrieves every employee record.
func (c *Client) Employees(ctx context.Context) ([]EmployeeRecord, error) {
	return fetchAll[EmployeeRecord](ctx, c, "employee")
}

// Departments retrieves every department record.
func (c *Client) Departments(ctx context.Context) ([]DepartmentRecord, error) {
	return fetchAll[DepartmentRecord](ctx, c, "department")
}

// Goals retrieves every goal record.
func (c *Client) Goals(ctx context.Context) ([]GoalRecord, error) {
	return fetchAll[GoalRecord](ctx, c, "goal")
}

// Projects retrieves every project record.
func (c *Client) Projects(ctx context.Context) ([]ProjectRecord, error) {
	return fetchAll[ProjectRecord](ctx, c, "project")
}

// Skills retrieves every catalog skill record.
func (c *Client) Skills(ctx context.Context) ([]SkillRecord, error) {
	return fetchAll[SkillRecord](ctx, c, "skill")
}

// EmployeeProjects retrieves every project assignment record.
func (c *Client) EmployeeProjects(ctx context.Context) ([]EmployeeProjectRecord, error) {
	return fetchAll[EmployeeProjectRecord](ctx, c, "employee-project")
}

// EmployeeSkills retrieves every employee skill record.
func (c *Client) EmployeeSkills(ctx context.Context) ([]EmployeeSkillRecord, error) {
	return fetchAll[EmployeeSkillRecord](ctx, c, "employee-skill")
}

// fetchAll pages through an endpoint until a short page signals the end.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var all []T
	offset := 0
	for {
		var page []T
		if err := c.getPage(ctx, endpoint, offset, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			c.logger.Debug("Fetched upstream records",
				zap.String("endpoint", endpoint),
				zap.Int("count", len(all)))
			return all, nil
		}
		offset += len(page)
	}
}

// getPage fetches one page, retrying transient failures. Auth and client
// errors return immediately.
func (c *Client) getPage(ctx context.Context, endpoint string, offset int, out any) error {
	url := fmt.Sprintf("%s/%s?offset=%d&limit=%d", c.baseURL, endpoint, offset, c.pageSize)
	return retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		return c.fetch(ctx, url, out)
	})
}

func (c *Client) fetch(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{
			status: resp.StatusCode,
			url:    url,
			body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// statusError carries the HTTP status code so retry classification does
// not depend on digits in the message, which may also appear in ports
// and offsets.
type statusError struct {
	status int
	url    string
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.status, e.url)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.status, e.url, e.body)
}

// IsRetryable reports whether the response status is worth retrying.
func (e *statusError) IsRetryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}
