// Package dataset imports historical evaluation responses from spreadsheets.
package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"evalreport-go/internal/logger"
	"evalreport-go/internal/scoring"
	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// SkippedRow explains why a sheet row produced no response.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Result struct {
	Responses      []types.Response `json:"responses"`
	Skipped        []SkippedRow     `json:"skipped"`
	IgnoredColumns []string         `json:"ignored_columns"`
}

type columns struct {
	id, timestamp, kind, name, subject int
	questions                          map[int]types.Question
}

// Load reads the first sheet of an .xlsx workbook. The header row names the
// columns: id, timestamp, type, facilitator name and subject are detected by
// header heuristics; any other header is matched to a question by id or
// label. Rows without a type column use defaultKind.
func Load(r io.Reader, t *types.Training, defaultKind types.ResponseType, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.New()
	}
	log = log.Component("dataset.loader").WithField("training_id", t.ID)

	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return Result{}, fmt.Errorf("no data rows")
	}

	var res Result
	cols := detectColumns(rows[0], t, &res)
	log.WithField("questions", len(cols.questions)).WithField("ignored", len(res.IgnoredColumns)).Info("header detected")

	for i, row := range rows[1:] {
		sheetRow := i + 2
		resp, reason := parseRow(row, cols, t, defaultKind)
		if reason != "" {
			res.Skipped = append(res.Skipped, SkippedRow{Row: sheetRow, Reason: reason})
			continue
		}
		res.Responses = append(res.Responses, resp)
	}
	log.WithField("imported", len(res.Responses)).WithField("skipped", len(res.Skipped)).Info("sheet parsed")
	return res, nil
}

func detectColumns(header []string, t *types.Training, res *Result) columns {
	cols := columns{id: -1, timestamp: -1, kind: -1, name: -1, subject: -1, questions: map[int]types.Question{}}

	byKey := map[string]types.Question{}
	for _, q := range append(append([]types.Question{}, t.FacilitatorQuestions...), t.ProcessQuestions...) {
		byKey[q.ID] = q
		if l := session.Normalize(q.Label); l != "" {
			if _, taken := byKey[l]; !taken {
				byKey[l] = q
			}
		}
	}

	for i, h := range header {
		raw := strings.TrimSpace(h)
		l := strings.ToLower(raw)
		if q, ok := byKey[raw]; ok {
			cols.questions[i] = q
			continue
		}
		if q, ok := byKey[l]; ok {
			cols.questions[i] = q
			continue
		}
		switch {
		case l == "id" || l == "response id" || l == "responseid":
			cols.id = first(cols.id, i)
		case strings.Contains(l, "timestamp") || strings.Contains(l, "waktu") || strings.Contains(l, "tanggal"):
			cols.timestamp = first(cols.timestamp, i)
		case l == "type" || l == "jenis" || l == "tipe":
			cols.kind = first(cols.kind, i)
		case strings.Contains(l, "fasilitator") || strings.Contains(l, "facilitator") || l == "nama" || l == "name" || strings.Contains(l, "target"):
			cols.name = first(cols.name, i)
		case strings.Contains(l, "materi") || strings.Contains(l, "subject"):
			cols.subject = first(cols.subject, i)
		default:
			if raw != "" {
				res.IgnoredColumns = append(res.IgnoredColumns, raw)
			}
		}
	}
	return cols
}

func first(cur, i int) int {
	if cur == -1 {
		return i
	}
	return cur
}

func cellAt(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string, cols columns, t *types.Training, defaultKind types.ResponseType) (types.Response, string) {
	kind := defaultKind
	if v := strings.ToLower(cellAt(row, cols.kind)); v != "" {
		kind = types.ResponseType(v)
	}
	if !kind.Valid() {
		return types.Response{}, fmt.Sprintf("unknown type %q", kind)
	}

	resp := types.Response{
		ID:         cellAt(row, cols.id),
		TrainingID: t.ID,
		Type:       kind,
		Answers:    map[string]types.Answer{},
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if kind == types.ResponseFacilitator {
		resp.TargetName = cellAt(row, cols.name)
		resp.TargetSubject = cellAt(row, cols.subject)
		if resp.TargetName == "" {
			return types.Response{}, "missing facilitator name"
		}
	}

	ts := cellAt(row, cols.timestamp)
	if ts == "" {
		return types.Response{}, "missing timestamp"
	}
	at, err := parseTimestamp(ts)
	if err != nil {
		return types.Response{}, err.Error()
	}
	resp.Timestamp = at

	for i, q := range cols.questions {
		v := cellAt(row, i)
		if v == "" {
			continue
		}
		if q.Kind() == types.QuestionText {
			resp.Answers[q.ID] = types.TextAnswer(v)
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return types.Response{}, fmt.Sprintf("question %s: %q is not a number", q.ID, v)
		}
		if q.Kind() == types.QuestionSlider {
			n = scoring.ClampSlider(n)
		}
		resp.Answers[q.ID] = types.NumberAnswer(n)
	}
	if len(resp.Answers) == 0 {
		return types.Response{}, "no answers"
	}
	return resp, ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"01-02-06 15:04",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// spreadsheet serial date
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
