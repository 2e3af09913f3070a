package api

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"

	"evalreport-go/internal/export"
	"evalreport-go/internal/report"
	"evalreport-go/internal/types"
)

// buildReport loads a training and its responses and assembles one tab.
func (s *Server) buildReport(r *http.Request) (report.Report, error) {
	kind, err := parseKind(r)
	if err != nil {
		return report.Report{}, err
	}
	id := r.PathValue("id")
	t, err := s.store.GetTraining(r.Context(), id)
	if err != nil {
		return report.Report{}, err
	}
	responses, err := s.store.ListResponses(r.Context(), id)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(t, responses, kind, s.roleOf(r)), nil
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// deep links from notifications focus a single group
	if key := r.URL.Query().Get("group"); key != "" {
		rep = rep.Focus(key)
	}
	writeJSON(w, http.StatusOK, rep)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportFilename(rep report.Report, ext string) string {
	prefix := "rekap-fasilitator"
	if rep.Kind == types.ResponseProcess {
		prefix = "rekap-penyelenggaraan"
	}
	return fmt.Sprintf("%s-%s.%s", prefix, unsafeFilename.ReplaceAllString(rep.TrainingID, "_"), ext)
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(rep, "xlsx")))
	w.Write(buf.Bytes())
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render := export.SummaryCSV
	if r.URL.Query().Get("detail") == "1" {
		render = export.DetailCSV
	}
	out, err := render(rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(rep, "csv")))
	w.Write(out)
}
