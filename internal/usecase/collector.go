// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamlens/gitlab-metrics/internal/domain"
	"github.com/teamlens/gitlab-metrics/internal/gateway"
)

// batchSize is the number of users fetched concurrently before the collector
// waits for the group to finish. Batches bound peak resource use and give a
// natural progress checkpoint; the gateway's limiter bounds actual in-flight
// requests underneath.
const batchSize = 10

// Collector aggregates merge request counts per author per month.
type Collector struct {
	fetcher gateway.Fetcher
	logger  *zap.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect fetches merge requests for every username within
// [startDate, endDate] and folds them into per-author monthly counts.
//
// Every username is seeded with an empty month map before any fetching, so
// users with zero activity still appear in the output. Usernames are
// processed in fixed-size batches in their original order; members of a
// batch are fetched concurrently, and each goroutine mutates only its own
// username's pre-seeded sub-map.
//
// The first user whose fetch cannot complete aborts the entire run and no
// further batches are started: partial, silently incomplete statistics are
// worse than a loud failure for a reporting tool.
func (c *Collector) Collect(ctx context.Context, usernames []string, startDate, endDate string) (domain.AuthorStats, error) {
	stats := domain.AuthorStats{}
	for _, username := range usernames {
		stats[username] = domain.MonthCounts{}
	}

	processed := 0
	for start := 0; start < len(usernames); start += batchSize {
		end := min(start+batchSize, len(usernames))
		batch := usernames[start:end]

		eg, egCtx := errgroup.WithContext(ctx)
		for _, username := range batch {
			username := username
			eg.Go(func() error {
				records, err := c.fetcher.FetchMergeRequests(egCtx, username, startDate, endDate)
				if err != nil {
					return fmt.Errorf("collect merge requests for %s: %w", username, err)
				}
				for _, record := range records {
					stats.Add(username, record.MergedAt)
				}
				c.logger.Debug("user processed",
					zap.String("username", username),
					zap.Int("merge_requests", len(records)),
				)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		processed += len(batch)
		c.logger.Info("processing users",
			zap.Int("processed", processed),
			zap.Int("total", len(usernames)),
		)
	}

	return stats, nil
}
