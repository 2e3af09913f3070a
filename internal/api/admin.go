package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"evalreport-go/internal/aggregator"
	"evalreport-go/internal/store"
	"evalreport-go/internal/types"
)

type renameRequest struct {
	GroupKey string `json:"groupKey"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
}

type changedResult struct {
	Changed int `json:"changed"`
}

func (s *Server) renameGroup(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.GroupKey == "" || strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, badRequest("groupKey and name are required"))
		return
	}
	n, err := s.store.RenameTarget(r.Context(), r.PathValue("id"), req.GroupKey, req.Name, req.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResult{Changed: n})
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, r, badRequest("key is required"))
		return
	}
	n, err := s.store.DeleteGroup(r.Context(), r.PathValue("id"), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResult{Changed: n})
}

func (s *Server) listOrphans(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	t, err := s.store.GetTraining(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	responses, err := s.store.ListResponses(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var own []types.Response
	for _, resp := range responses {
		if resp.Type == kind {
			own = append(own, resp)
		}
	}
	out := aggregator.DetectOrphans(t.Questions(kind), own)
	if out == nil {
		out = []aggregator.OrphanedQuestion{}
	}
	writeJSON(w, http.StatusOK, out)
}

type restoreRequest struct {
	Kind  types.ResponseType `json:"kind"`
	Label string             `json:"label"`
	Type  types.QuestionType `json:"type"`
}

func (s *Server) restoreOrphan(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(w, r, maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Kind == "" {
		req.Kind = types.ResponseFacilitator
	}
	if !req.Kind.Valid() {
		s.writeError(w, r, badRequest("unknown kind %q", req.Kind))
		return
	}
	id := r.PathValue("id")
	err := s.store.RestoreQuestion(r.Context(), id, req.Kind, r.PathValue("qid"), req.Label, req.Type)
	switch {
	case errors.Is(err, aggregator.ErrNotOrphaned),
		errors.Is(err, aggregator.ErrInvalidLabel),
		errors.Is(err, aggregator.ErrInvalidType):
		s.writeError(w, r, badRequest("%v", err))
		return
	case err != nil:
		s.writeError(w, r, err)
		return
	}
	t, err := s.store.GetTraining(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t.Questions(req.Kind))
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var st types.Settings
	if err := decodeJSON(w, r, maxBody, &st); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SaveSettings(r.Context(), st); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.ExportBackup(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="evalreport-backup.json"`)
	writeJSON(w, http.StatusOK, b)
}

type importResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// postBackup restores a backup all-or-nothing and answers with a plain
// success flag.
func (s *Server) postBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, importResult{Error: err.Error()})
		return
	}
	if err := s.store.ImportBackup(r.Context(), data); err != nil {
		if errors.Is(err, store.ErrInvalidBackup) {
			writeJSON(w, http.StatusBadRequest, importResult{Error: err.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult{OK: true})
}
