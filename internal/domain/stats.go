// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// MergeRequest is a single merged merge request as reported by GitLab.
type MergeRequest struct {
	MergedAt time.Time
	Author   string
}

// MonthCounts maps a month key such as "2024-03" to a merge request count.
// A key that was never observed counts as zero.
type MonthCounts map[string]int

// Count returns the count for key, or zero when the month was never observed.
func (m MonthCounts) Count(key string) int {
	return m[key]
}

// AuthorStats maps a username to that user's per-month merge request counts.
// It is the core domain entity of this application. Usernames are seeded with
// empty maps before collection starts, so users with no activity in the
// requested range still appear in exported output.
type AuthorStats map[string]MonthCounts

// Add records one merge request for username in the calendar month of mergedAt.
func (s AuthorStats) Add(username string, mergedAt time.Time) {
	counts, ok := s[username]
	if !ok {
		counts = MonthCounts{}
		s[username] = counts
	}
	counts[MonthKey(mergedAt)]++
}

// Count returns the number of merge requests username merged in monthKey,
// or zero when nothing was recorded.
func (s AuthorStats) Count(username, monthKey string) int {
	return s[username].Count(monthKey)
}

// Authors returns all usernames in sorted order for deterministic output.
func (s AuthorStats) Authors() []string {
	authors := make([]string, 0, len(s))
	for username := range s {
		authors = append(authors, username)
	}
	sort.Strings(authors)
	return authors
}

// Months returns the sorted union of all month keys observed for any author.
func (s AuthorStats) Months() []string {
	seen := map[string]bool{}
	for _, counts := range s {
		for key := range counts {
			seen[key] = true
		}
	}
	months := make([]string, 0, len(seen))
	for key := range seen {
		months = append(months, key)
	}
	sort.Strings(months)
	return months
}

// MonthKey formats the calendar month of t as "YYYY-MM". The month is taken
// in the timezone the timestamp carries; no conversion is applied.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MonthLabel converts a month key to the column header used by the export
// sinks, e.g. "2024-03" becomes "March 2024".
func MonthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}
