package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"evalreport-go/internal/store"
	"evalreport-go/internal/types"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// maxBody bounds JSON request bodies; backups get more room.
const (
	maxBody       = 1 << 20
	maxBackupBody = 64 << 20
)

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		return badRequest("decoding body: %v", err)
	}
	return nil
}

type trainingSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Sessions  int    `json:"sessions"`
}

func (s *Server) listTrainings(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListTrainings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]trainingSummary, 0, len(list))
	for _, t := range list {
		out = append(out, trainingSummary{
			ID:        t.ID,
			Title:     t.Title,
			StartDate: t.StartDate,
			EndDate:   t.EndDate,
			Sessions:  len(t.Facilitators),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTraining(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTraining(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.roleOf(r) == types.RoleGuest {
		t = publicTraining(t)
	}
	writeJSON(w, http.StatusOK, t)
}

// publicTraining strips contact numbers and notification state for respondents.
func publicTraining(t *types.Training) *types.Training {
	c := *t
	c.Facilitators = make([]types.Facilitator, len(t.Facilitators))
	for i, f := range t.Facilitators {
		f.WhatsappNumber = ""
		c.Facilitators[i] = f
	}
	c.ProcessOrganizer.WhatsappNumber = ""
	c.ReportedTargets = nil
	c.Targets = nil
	return &c
}

func (s *Server) putTraining(w http.ResponseWriter, r *http.Request) {
	var t types.Training
	if err := decodeJSON(w, r, maxBody, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if t.ID == "" {
		t.ID = id
	}
	if t.ID != id {
		s.writeError(w, r, badRequest("body id %q does not match path id %q", t.ID, id))
		return
	}
	if err := s.validator.Check(&t); err != nil {
		s.writeError(w, r, err)
		return
	}
	// notification flags are server-owned
	prev, err := s.store.GetTraining(r.Context(), id)
	switch {
	case err == nil:
		t.ReportedTargets = prev.ReportedTargets
	case errors.Is(err, store.ErrNotFound):
		t.ReportedTargets = nil
	default:
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SaveTraining(r.Context(), &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &t)
}

func (s *Server) deleteTraining(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTraining(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseKind(r *http.Request) (types.ResponseType, error) {
	k := types.ResponseType(r.URL.Query().Get("kind"))
	if k == "" {
		return types.ResponseFacilitator, nil
	}
	if !k.Valid() {
		return "", badRequest("unknown kind %q", k)
	}
	return k, nil
}
