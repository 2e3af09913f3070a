package dataset

import (
	"sort"

	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the per-group tally of an import, shown before it is committed.
type Summary struct {
	Total    int                        `json:"total"`
	ByKind   map[types.ResponseType]int `json:"by_kind"`
	ByGroup  []GroupCount               `json:"by_group"`
	Unknown  []string                   `json:"unknown_targets"`
	Skipped  int                        `json:"skipped"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// Summarize tallies imported responses by kind and group, and lists target
// names that match no facilitator session of the training.
func Summarize(t *types.Training, res Result) Summary {
	s := Summary{
		Total:   len(res.Responses),
		ByKind:  map[types.ResponseType]int{},
		Skipped: len(res.Skipped),
	}
	known := map[string]bool{}
	for _, f := range t.Facilitators {
		known[session.FacilitatorKey(f.Name, f.Subject)] = true
	}

	counts := map[string]int{}
	unknown := map[string]bool{}
	for _, r := range res.Responses {
		s.ByKind[r.Type]++
		k := session.GroupKey(r)
		counts[k]++
		if r.Type == types.ResponseFacilitator && !known[k] {
			unknown[k] = true
		}
	}
	for k, n := range counts {
		s.ByGroup = append(s.ByGroup, GroupCount{Key: k, Count: n})
	}
	sort.Slice(s.ByGroup, func(i, j int) bool {
		if s.ByGroup[i].Count != s.ByGroup[j].Count {
			return s.ByGroup[i].Count > s.ByGroup[j].Count
		}
		return s.ByGroup[i].Key < s.ByGroup[j].Key
	})
	for k := range unknown {
		s.Unknown = append(s.Unknown, k)
	}
	sort.Strings(s.Unknown)

	if len(res.IgnoredColumns) > 0 {
		s.Warnings = append(s.Warnings, "columns without a matching question were ignored")
	}
	if len(s.Unknown) > 0 {
		s.Warnings = append(s.Warnings, "some rows name sessions that are not configured; they will sort last in reports")
	}
	return s
}
