package session

import (
	"strconv"
	"strings"
	"time"

	"evalreport-go/internal/types"
)

// Unit is one respondent-selectable target. Facilitators sharing the same
// subject, date and start time form a team and are rated together.
type Unit struct {
	Key              string              `json:"key"`
	Subject          string              `json:"subject"`
	SessionDate      string              `json:"sessionDate"`
	SessionStartTime string              `json:"sessionStartTime,omitempty"`
	Members          []types.Facilitator `json:"members"`
}

// TeamKey is the selection-time key of a facilitator session.
func TeamKey(f types.Facilitator) string {
	return Normalize(f.Subject) + "|" + strings.TrimSpace(f.SessionDate) + "|" + strings.TrimSpace(f.SessionStartTime)
}

// IsTeam reports whether the unit merges more than one facilitator.
func (u Unit) IsTeam() bool { return len(u.Members) > 1 }

// Label joins member names for display.
func (u Unit) Label() string {
	names := make([]string, 0, len(u.Members))
	for _, m := range u.Members {
		names = append(names, strings.TrimSpace(m.Name))
	}
	return strings.Join(names, " & ")
}

// Units merges the training's facilitator sessions into selectable units,
// keeping the order in which each unit first appears.
func Units(facilitators []types.Facilitator) []Unit {
	index := map[string]int{}
	var units []Unit
	for _, f := range facilitators {
		k := TeamKey(f)
		i, ok := index[k]
		if !ok {
			i = len(units)
			index[k] = i
			units = append(units, Unit{
				Key:              k,
				Subject:          strings.TrimSpace(f.Subject),
				SessionDate:      strings.TrimSpace(f.SessionDate),
				SessionStartTime: strings.TrimSpace(f.SessionStartTime),
			})
		}
		units[i].Members = append(units[i].Members, f)
	}
	return units
}

// FindUnit looks a unit up by key.
func FindUnit(facilitators []types.Facilitator, key string) (Unit, bool) {
	for _, u := range Units(facilitators) {
		if u.Key == key {
			return u, true
		}
	}
	return Unit{}, false
}

// History is the respondent's locally remembered set of rated sessions,
// keyed by FacilitatorKey. It only hides sessions from the picker.
type History map[string]bool

// NewHistory builds a history from facilitator keys.
func NewHistory(keys []string) History {
	h := History{}
	for _, k := range keys {
		h[k] = true
	}
	return h
}

// Rated reports whether every member of u has been rated already.
func (h History) Rated(u Unit) bool {
	if len(h) == 0 || len(u.Members) == 0 {
		return false
	}
	for _, m := range u.Members {
		if !h[FacilitatorKey(m.Name, m.Subject)] {
			return false
		}
	}
	return true
}

// SelectOptions control which units a respondent is offered.
type SelectOptions struct {
	Now     time.Time
	History History
	// AdminBypass disables override, calendar, time and history checks.
	AdminBypass bool
}

// Selectable returns the units the respondent may rate at opts.Now.
func Selectable(t *types.Training, opts SelectOptions) []Unit {
	units := Units(t.Facilitators)
	if opts.AdminBypass {
		return units
	}
	out := units[:0:0]
	for _, u := range units {
		if !UnitOpen(u, opts.Now) {
			continue
		}
		if opts.History.Rated(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// UnitOpen reports whether any member of the unit is open at now.
func UnitOpen(u Unit, now time.Time) bool {
	for _, m := range u.Members {
		if IsOpen(m, now) {
			return true
		}
	}
	return false
}

// IsOpen applies the manual override first; otherwise a session is open only
// on its own date and, when a start time is set, from that time onwards.
func IsOpen(f types.Facilitator, now time.Time) bool {
	switch f.ManualOpen {
	case types.OverrideOpen:
		return true
	case types.OverrideClosed:
		return false
	}
	if strings.TrimSpace(f.SessionDate) != now.Format("2006-01-02") {
		return false
	}
	start, ok := parseClock(f.SessionStartTime)
	if !ok {
		return true
	}
	return now.Hour()*60+now.Minute() >= start
}

// parseClock parses "H:MM" or "HH:MM" into minutes after midnight.
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	hh, mm, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	if len(mm) > 2 {
		mm = mm[:2]
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
