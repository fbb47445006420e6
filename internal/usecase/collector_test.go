package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/teamlens/gitlab-metrics/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchMergeRequests(ctx context.Context, username, startDate, endDate string) ([]domain.MergeRequest, error) {
	args := m.Called(ctx, username, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MergeRequest), args.Error(1)
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestCollector_Collect(t *testing.T) {
	testCases := []struct {
		name     string
		records  map[string][]domain.MergeRequest
		errs     map[string]error
		expected domain.AuthorStats
		wantErr  string
	}{
		{
			name: "aggregates counts per author per month",
			records: map[string][]domain.MergeRequest{
				"alice": {
					{MergedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), Author: "alice"},
					{MergedAt: time.Date(2024, 3, 20, 2, 0, 0, 0, time.UTC), Author: "alice"},
					{MergedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Author: "alice"},
				},
				"bob": {},
			},
			expected: domain.AuthorStats{
				"alice": {"2024-03": 2, "2024-04": 1},
				"bob":   {},
			},
		},
		{
			name: "user with no activity still appears in the output",
			records: map[string][]domain.MergeRequest{
				"ghost": {},
			},
			expected: domain.AuthorStats{
				"ghost": {},
			},
		},
		{
			name: "single user failure aborts the run with context",
			records: map[string][]domain.MergeRequest{
				"alice": {},
			},
			errs: map[string]error{
				"bob": errors.New("gitlab api error"),
			},
			wantErr: "collect merge requests for bob",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			usernames := make([]string, 0, len(tc.records)+len(tc.errs))
			for username, records := range tc.records {
				fetcher.On("FetchMergeRequests", mock.Anything, username, "2024-01-01", "2024-12-31").Return(records, nil)
				usernames = append(usernames, username)
			}
			for username, err := range tc.errs {
				fetcher.On("FetchMergeRequests", mock.Anything, username, "2024-01-01", "2024-12-31").Return(nil, err)
				usernames = append(usernames, username)
			}

			collector := NewCollector(fetcher, nil)
			stats, err := collector.Collect(context.Background(), usernames, "2024-01-01", "2024-12-31")

			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				assert.Nil(t, stats)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stats)
		})
	}
}

func TestCollector_MonthKeyHonorsCarriedTimezone(t *testing.T) {
	// 2023-12-31T23:30-05:00 is 2024-01-01T04:30Z; the carried offset wins.
	fetcher := new(mockFetcher)
	fetcher.On("FetchMergeRequests", mock.Anything, "alice", "2023-01-01", "2024-12-31").Return([]domain.MergeRequest{
		{MergedAt: mustParse(t, "2023-12-31T23:30:00-05:00"), Author: "alice"},
	}, nil)

	collector := NewCollector(fetcher, nil)
	stats, err := collector.Collect(context.Background(), []string{"alice"}, "2023-01-01", "2024-12-31")

	require.NoError(t, err)
	assert.Equal(t, domain.AuthorStats{"alice": {"2023-12": 1}}, stats)
}

func TestCollector_FailFastSkipsLaterBatches(t *testing.T) {
	// Three batches of 10, 10 and 5. A failure in the first batch must stop
	// the run before any later batch starts.
	var usernames []string
	for i := 0; i < 25; i++ {
		usernames = append(usernames, fmt.Sprintf("user-%02d", i))
	}

	fetcher := new(mockFetcher)
	for i := 0; i < 10; i++ {
		username := usernames[i]
		if i == 2 {
			fetcher.On("FetchMergeRequests", mock.Anything, username, "2024-01-01", "2024-12-31").Return(nil, errors.New("gitlab api error"))
			continue
		}
		fetcher.On("FetchMergeRequests", mock.Anything, username, "2024-01-01", "2024-12-31").Return([]domain.MergeRequest{}, nil)
	}

	collector := NewCollector(fetcher, nil)
	stats, err := collector.Collect(context.Background(), usernames, "2024-01-01", "2024-12-31")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-02")
	assert.Nil(t, stats)

	for i := 10; i < 25; i++ {
		fetcher.AssertNotCalled(t, "FetchMergeRequests", mock.Anything, usernames[i], "2024-01-01", "2024-12-31")
	}
}
