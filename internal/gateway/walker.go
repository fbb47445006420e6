package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

// FetchMergeRequests pages through every merge request username merged
// within [startDate, endDate], in cursor order. Page N+1 is never requested
// before page N's cursor is known. A username with no visible user node is
// not an error: it yields an empty result so one unknown user cannot abort a
// whole run. Errors from the underlying client are propagated as-is; retries
// already happened per request inside the client.
//
// The walker keeps no state between calls and is safe to run concurrently
// across usernames.
func (c *Client) FetchMergeRequests(ctx context.Context, username, startDate, endDate string) ([]domain.MergeRequest, error) {
	var records []domain.MergeRequest
	var cursor *string

	for {
		resp, err := c.execute(ctx, mergeRequestsQuery, queryVariables{
			Usernames: []string{username},
			StartDate: startDate,
			EndDate:   endDate,
			After:     cursor,
		})
		if err != nil {
			return nil, err
		}

		if len(resp.Data.Users.Nodes) == 0 {
			return records, nil
		}
		user := resp.Data.Users.Nodes[0]
		for _, node := range user.AuthoredMergeRequests.Nodes {
			records = append(records, domain.MergeRequest{
				MergedAt: node.MergedAt,
				Author:   node.Author.Username,
			})
		}

		pageInfo := user.AuthoredMergeRequests.PageInfo
		if !pageInfo.HasNextPage {
			return records, nil
		}
		cursor = pageInfo.EndCursor
		c.logger.Debug("fetching next merge request page",
			zap.String("username", username),
			zap.Int("fetched", len(records)),
		)
	}
}
