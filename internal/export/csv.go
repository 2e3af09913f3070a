package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"evalreport-go/internal/report"
)

// SummaryCSV renders the cross-group summary table, grand-total row included.
func SummaryCSV(rep report.Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"no", "name", "subject", "date", "respondents", "score"})
	for _, r := range rep.Summary {
		no := ""
		if !r.GrandTotal {
			no = strconv.Itoa(r.No)
		}
		if err := w.Write([]string{no, r.Name, r.Subject, r.Date, strconv.Itoa(r.Respondents), r.Score}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DetailCSV renders one line per group and question in long format.
func DetailCSV(rep report.Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"group", "subject", "question_id", "question", "average", "score", "kurang", "sedang", "baik", "sangat_baik"})
	for _, sec := range rep.Sections {
		for _, r := range sec.Rows {
			rec := []string{
				sec.Name,
				sec.Subject,
				r.QuestionID,
				r.Label,
				strconv.FormatFloat(r.Average, 'f', 2, 64),
				r.Score,
			}
			rec = append(rec, r.Distribution[:]...)
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
