// Package gateway provides a gateway to the GitLab GraphQL API: a retrying
// POST client, a bounded in-flight request limit, and cursor pagination over
// authored merge requests.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

const (
	retryLimit = 5
	baseDelay  = 500 * time.Millisecond
	jitterMax  = 200 * time.Millisecond

	// DefaultConcurrency bounds simultaneous in-flight HTTP requests when the
	// configuration does not say otherwise.
	DefaultConcurrency = 25
)

const mergeRequestsQuery = `
query($usernames: [String!]!, $startDate: Time, $endDate: Time, $after: String) {
  users(usernames: $usernames) {
    nodes {
      username
      authoredMergeRequests(mergedAfter: $startDate, mergedBefore: $endDate, first: 500, after: $after) {
        pageInfo {
          hasNextPage
          endCursor
        }
        nodes {
          mergedAt
          author {
            username
          }
        }
      }
    }
  }
}`

// Fetcher defines the behavior of a gateway fetching merge request data from
// GitLab. startDate and endDate are ISO dates (YYYY-MM-DD).
type Fetcher interface {
	FetchMergeRequests(ctx context.Context, username, startDate, endDate string) ([]domain.MergeRequest, error)
}

// HTTPDoer is implemented by http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a GitLab GraphQL client. Transient failures are retried with
// exponential backoff and jitter; all requests, retries included, run under a
// process-wide concurrency limit. The client holds no mutable cross-call
// state beyond that limiter, so it is safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	doer     HTTPDoer
	limiter  *semaphore.Weighted
	logger   *zap.Logger

	// sleep and jitter are injected for testability.
	sleep  func(time.Duration)
	jitter func() time.Duration
}

// NewClient creates a Client for the given GitLab instance. rawURL is
// normalized once here; every request goes to {base}/api/graphql.
func NewClient(rawURL, token string, concurrency int64, logger *zap.Logger) *Client {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: NormalizeBaseURL(rawURL) + "/api/graphql",
		token:    token,
		doer:     &http.Client{Timeout: 30 * time.Second},
		limiter:  semaphore.NewWeighted(concurrency),
		logger:   logger,
		sleep:    time.Sleep,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(jitterMax)))
		},
	}
}

// NormalizeBaseURL trims whitespace, strips trailing slashes and a trailing
// /api/graphql path, and prepends https:// when no scheme is present. It is
// idempotent.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/api/graphql")
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base
}

type queryVariables struct {
	Usernames []string `json:"usernames"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	After     *string  `json:"after"`
}

type graphQLResponse struct {
	Data struct {
		Users struct {
			Nodes []userNode `json:"nodes"`
		} `json:"users"`
	} `json:"data"`
	Errors []responseError `json:"errors"`
}

type userNode struct {
	Username              string `json:"username"`
	AuthoredMergeRequests struct {
		PageInfo struct {
			HasNextPage bool    `json:"hasNextPage"`
			EndCursor   *string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []struct {
			MergedAt time.Time `json:"mergedAt"`
			Author   struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"nodes"`
	} `json:"authoredMergeRequests"`
}

type responseError struct {
	Message   string `json:"message"`
	Locations []struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"locations"`
	Path []any `json:"path"`
}

// execute runs one logical GraphQL request, retrying transient failures up
// to retryLimit attempts. The retry policy is an explicit bounded loop; on
// exhaustion or a permanent failure the final error is wrapped in *APIError
// together with the request context an operator needs.
func (c *Client) execute(ctx context.Context, query string, variables queryVariables) (*graphQLResponse, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.doOnce(ctx, query, variables)
		if err == nil {
			return resp, nil
		}

		if attempt < retryLimit && ShouldRetry(err) {
			delay := c.backoffDelay(attempt)
			c.logger.Debug("retrying GitLab request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			c.sleep(delay)
			continue
		}

		serialized, marshalErr := json.Marshal(variables)
		if marshalErr != nil {
			serialized = []byte(fmt.Sprintf("%+v", variables))
		}
		return nil, &APIError{
			Attempts:  attempt,
			URL:       c.endpoint,
			Variables: string(serialized),
			Err:       err,
		}
	}
}

// backoffDelay doubles the base delay per attempt and adds uniform jitter so
// concurrent clients do not retry in lockstep.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return baseDelay<<(attempt-1) + c.jitter()
}

func (c *Client) doOnce(ctx context.Context, query string, variables queryVariables) (*graphQLResponse, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	raw, status, err := c.roundTrip(ctx, payload)
	if err != nil {
		return nil, err
	}

	// The body is parsed before the status check so that a non-JSON error
	// page yields a diagnostic error carrying the raw text.
	var parsed graphQLResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &InvalidResponseError{Status: status, Body: string(raw)}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &HTTPError{Status: status, Body: string(raw)}
	}
	if len(parsed.Errors) > 0 {
		return nil, &GraphQLError{Messages: formatResponseErrors(parsed.Errors)}
	}
	return &parsed, nil
}

// roundTrip performs a single HTTP POST under the concurrency limiter. The
// slot is held until the full response body has been read.
func (c *Client) roundTrip(ctx context.Context, payload []byte) ([]byte, int, error) {
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer c.limiter.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func formatResponseErrors(errs []responseError) []string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Message
		if len(e.Locations) > 0 {
			msg += fmt.Sprintf(" (at line %d, column %d)", e.Locations[0].Line, e.Locations[0].Column)
		}
		if len(e.Path) > 0 {
			parts := make([]string, len(e.Path))
			for i, p := range e.Path {
				parts[i] = fmt.Sprint(p)
			}
			msg += " Path: " + strings.Join(parts, ".")
		}
		messages = append(messages, msg)
	}
	return messages
}
