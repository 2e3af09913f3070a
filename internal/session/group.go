// Package session resolves raw responses into ordered session groups and
// decides which sessions a respondent may rate.
package session

import (
	"sort"
	"strings"

	"evalreport-go/internal/types"
)

// The process evaluation has exactly one group per training.
const (
	ProcessGroupKey  = "penyelenggaraan/umum"
	ProcessGroupName = "Penyelenggaraan/Umum"
)

// Normalize trims and case-folds a target name or subject.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FacilitatorKey is the report grouping key of a facilitator session.
func FacilitatorKey(name, subject string) string {
	return Normalize(name) + "|" + Normalize(subject)
}

// GroupKey returns the report group a response belongs to.
func GroupKey(r types.Response) string {
	if r.Type == types.ResponseProcess {
		return ProcessGroupKey
	}
	return FacilitatorKey(r.TargetName, r.TargetSubject)
}

// Group is one aggregation unit: every response sharing a target identity.
type Group struct {
	Key              string
	Kind             types.ResponseType
	DisplayName      string
	Subject          string
	SessionDate      string
	SessionStartTime string
	OrderRank        int
	// Matched is false when no facilitator session carries this name and subject.
	Matched     bool
	Hidden      bool
	Facilitator types.Facilitator
	Responses   []types.Response
}

// Count is the number of responses in the group.
func (g Group) Count() int { return len(g.Responses) }

// Resolve groups the responses of one kind and returns them in report order.
// Hidden sessions are dropped unless role may see them.
func Resolve(t *types.Training, responses []types.Response, kind types.ResponseType, role types.ViewerRole) []Group {
	if kind == types.ResponseProcess {
		return resolveProcess(responses)
	}

	meta := make(map[string]types.Facilitator, len(t.Facilitators))
	for _, f := range t.Facilitators {
		k := FacilitatorKey(f.Name, f.Subject)
		if _, dup := meta[k]; !dup {
			meta[k] = f
		}
	}

	index := map[string]int{}
	var groups []Group
	for _, r := range responses {
		if r.Type != types.ResponseFacilitator {
			continue
		}
		k := GroupKey(r)
		i, ok := index[k]
		if !ok {
			g := Group{
				Key:         k,
				Kind:        types.ResponseFacilitator,
				DisplayName: strings.TrimSpace(r.TargetName),
				Subject:     strings.TrimSpace(r.TargetSubject),
			}
			if f, found := meta[k]; found {
				g.Matched = true
				g.Facilitator = f
				g.DisplayName = strings.TrimSpace(f.Name)
				g.Subject = strings.TrimSpace(f.Subject)
				g.SessionDate = f.SessionDate
				g.SessionStartTime = f.SessionStartTime
				g.OrderRank = f.Order
				g.Hidden = f.Hidden
			}
			i = len(groups)
			index[k] = i
			groups = append(groups, g)
		}
		groups[i].Responses = append(groups[i].Responses, r)
	}

	SortGroups(groups)
	return FilterVisible(groups, role)
}

func resolveProcess(responses []types.Response) []Group {
	g := Group{
		Key:         ProcessGroupKey,
		Kind:        types.ResponseProcess,
		DisplayName: ProcessGroupName,
		Matched:     true,
	}
	for _, r := range responses {
		if r.Type == types.ResponseProcess {
			g.Responses = append(g.Responses, r)
		}
	}
	if len(g.Responses) == 0 {
		return nil
	}
	return []Group{g}
}

// SortGroups orders groups by manual order, then session date and start time.
// Groups without facilitator metadata keep their first-seen order at the end.
func SortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Matched != b.Matched {
			return a.Matched
		}
		if !a.Matched {
			return false
		}
		if a.OrderRank != b.OrderRank {
			return a.OrderRank < b.OrderRank
		}
		if c := compareDates(a.SessionDate, b.SessionDate); c != 0 {
			return c < 0
		}
		if a.SessionStartTime != b.SessionStartTime {
			return a.SessionStartTime < b.SessionStartTime
		}
		return Normalize(a.DisplayName) < Normalize(b.DisplayName)
	})
}

// compareDates compares ISO dates; an empty date sorts after any set date.
func compareDates(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

// FilterVisible removes hidden groups for viewers that may not see them.
func FilterVisible(groups []Group, role types.ViewerRole) []Group {
	if role.CanSeeHidden() {
		return groups
	}
	out := groups[:0:0]
	for _, g := range groups {
		if !g.Hidden {
			out = append(out, g)
		}
	}
	return out
}

// FindGroup returns the group with key k.
func FindGroup(groups []Group, k string) (Group, bool) {
	for _, g := range groups {
		if g.Key == k {
			return g, true
		}
	}
	return Group{}, false
}
