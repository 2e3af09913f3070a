// Package notifier sends a one-time summary message when a session group's
// response count hits one of the training's configured targets.
package notifier

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"evalreport-go/internal/aggregator"
)

// FlagKey is the reportedTargets entry for a group and target count.
func FlagKey(groupKey string, count int) string {
	return fmt.Sprintf("%s_%d", groupKey, count)
}

// ShouldNotify reports whether count equals a configured target that has not
// been reported yet for the group. A target skipped over is never retried.
func ShouldNotify(targets []int, reported map[string]bool, groupKey string, count int) bool {
	if count <= 0 {
		return false
	}
	for _, target := range targets {
		if target == count {
			return !reported[FlagKey(groupKey, count)]
		}
	}
	return false
}

// ShortestComments picks up to n comments across all text questions,
// shortest first.
func ShortestComments(blocks []aggregator.TextComments, n int) []string {
	var all []string
	for _, b := range blocks {
		all = append(all, b.Comments...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return utf8.RuneCountInString(all[i]) < utf8.RuneCountInString(all[j])
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
