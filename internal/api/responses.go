package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

var errSessionClosed = errors.New("session is not open for evaluation")

type targetView struct {
	Key              string   `json:"key"`
	Label            string   `json:"label"`
	Subject          string   `json:"subject"`
	SessionDate      string   `json:"sessionDate"`
	SessionStartTime string   `json:"sessionStartTime,omitempty"`
	Team             bool     `json:"team"`
	GroupKeys        []string `json:"groupKeys"`
}

// getTargets lists the units a respondent may rate now. The "rated" query
// parameter carries the respondent's local history as comma-separated group
// keys; admins may pass bypass=1.
func (s *Server) getTargets(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTraining(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	var rated []string
	if v := q.Get("rated"); v != "" {
		rated = strings.Split(v, ",")
	}
	opts := session.SelectOptions{
		Now:         s.now(),
		History:     session.NewHistory(rated),
		AdminBypass: q.Get("bypass") == "1" && s.roleOf(r) >= types.RoleAdmin,
	}
	units := session.Selectable(t, opts)
	out := make([]targetView, 0, len(units))
	for _, u := range units {
		v := targetView{
			Key:              u.Key,
			Label:            u.Label(),
			Subject:          u.Subject,
			SessionDate:      u.SessionDate,
			SessionStartTime: u.SessionStartTime,
			Team:             u.IsTeam(),
		}
		for _, m := range u.Members {
			v.GroupKeys = append(v.GroupKeys, session.FacilitatorKey(m.Name, m.Subject))
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

type submitResult struct {
	IDs       []string `json:"ids"`
	GroupKeys []string `json:"groupKeys"`
}

// postResponses stores one respondent submission. A team unit fans out into
// one response per member; the participant limit is checked per group.
func (s *Server) postResponses(w http.ResponseWriter, r *http.Request) {
	var sub session.Submission
	if err := decodeJSON(w, r, maxBody, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	t, err := s.store.GetTraining(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()

	if sub.Kind == types.ResponseFacilitator && s.roleOf(r) < types.RoleAdmin {
		if u, ok := session.FindUnit(t.Facilitators, sub.UnitKey); ok && !session.UnitOpen(u, now) {
			s.writeError(w, r, errSessionClosed)
			return
		}
	}

	intents, err := session.ExpandSubmission(t, sub, now, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.saveIntents(ctx, t, intents)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.notifyAsync(t.ID, sub.Kind, res.GroupKeys)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) saveIntents(ctx context.Context, t *types.Training, intents []session.WriteIntent) (submitResult, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	var res submitResult
	if t.ParticipantLimit > 0 {
		for _, in := range intents {
			count, err := s.store.CountGroupResponses(ctx, t.ID, in.GroupKey)
			if err != nil {
				return res, err
			}
			if err := session.CheckParticipantLimit(t.ParticipantLimit, count); err != nil {
				return res, err
			}
		}
	}

	responses := make([]types.Response, 0, len(intents))
	for _, in := range intents {
		responses = append(responses, in.Response)
		res.IDs = append(res.IDs, in.Response.ID)
		res.GroupKeys = append(res.GroupKeys, in.GroupKey)
	}
	if err := s.store.SaveResponses(ctx, responses); err != nil {
		return res, err
	}
	return res, nil
}

// notifyAsync runs the threshold check after the respondent has been answered.
func (s *Server) notifyAsync(trainingID string, kind types.ResponseType, groupKeys []string) {
	if s.notifier == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotifyTimeout)
		defer cancel()
		s.notifier.OnResponses(ctx, trainingID, kind, groupKeys)
	}()
}

func (s *Server) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}
