// Package export renders assembled reports into downloadable files.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"evalreport-go/internal/report"
	"evalreport-go/internal/scoring"
	"evalreport-go/internal/types"
)

// SummarySheet is the name of the first sheet of every workbook.
const SummarySheet = "Ringkasan"

const maxSheetName = 31

var summaryHeader = []any{"No", "Nama", "Materi", "Tanggal", "Responden", "Nilai"}

// WriteXLSX writes the report as a workbook: a summary sheet followed by one
// sheet per group with question rows, distributions and comments.
func WriteXLSX(w io.Writer, rep report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeSummary(f, st, rep); err != nil {
		return err
	}
	used := map[string]bool{SummarySheet: true}
	for _, sec := range rep.Sections {
		name := sheetName(sec, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeSection(f, st, name, rep.Kind, sec); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	bold  int
	title int
	tier  [scoring.TierCount]int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, fmt.Errorf("style: %w", err)
	}
	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return st, fmt.Errorf("style: %w", err)
	}
	for _, t := range scoring.Tiers {
		id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: strings.TrimPrefix(t.Color(), "#")}})
		if err != nil {
			return st, fmt.Errorf("style: %w", err)
		}
		st.tier[t] = id
	}
	return st, nil
}

func writeSummary(f *excelize.File, st styles, rep report.Report) error {
	sheet := SummarySheet
	title := "Rekap Evaluasi Fasilitator"
	if rep.Kind == types.ResponseProcess {
		title = "Rekap Evaluasi Penyelenggaraan"
	}
	rows := [][]any{
		{title},
		{"Pelatihan", rep.Title},
		{"Periode", rep.Period},
		{"Lokasi", rep.Location},
		{},
		summaryHeader,
	}
	for _, r := range rep.Summary {
		no := any(r.No)
		if r.GrandTotal {
			no = ""
		}
		rows = append(rows, []any{no, r.Name, r.Subject, r.Date, r.Respondents, r.Score})
	}
	if rep.Empty() {
		rows = append(rows, []any{"", "Belum ada data evaluasi."})
	}
	if err := setRows(f, sheet, 1, rows); err != nil {
		return err
	}

	_ = f.SetCellStyle(sheet, "A1", "A1", st.title)
	_ = f.SetCellStyle(sheet, "A6", "F6", st.bold)
	if n := len(rep.Summary); n > 0 && rep.Summary[n-1].GrandTotal {
		row := 6 + n
		_ = f.SetCellStyle(sheet, cell(1, row), cell(6, row), st.bold)
	}
	_ = f.SetColWidth(sheet, "A", "A", 6)
	_ = f.SetColWidth(sheet, "B", "C", 32)
	_ = f.SetColWidth(sheet, "D", "D", 18)
	_ = f.SetColWidth(sheet, "E", "F", 20)
	return nil
}

func writeSection(f *excelize.File, st styles, sheet string, kind types.ResponseType, sec report.Section) error {
	header := []any{"Evaluasi", sec.Name}
	if kind == types.ResponseFacilitator {
		header = []any{"Fasilitator", sec.Name}
	}
	rows := [][]any{
		header,
		{"Materi", sec.Subject},
		{"Tanggal", report.FormatDate(sec.Date)},
		{"Responden", sec.Respondents},
		{},
		{"No", "Pertanyaan", "Nilai", scoring.TierKurang.String(), scoring.TierSedang.String(), scoring.TierBaik.String(), scoring.TierSangatBaik.String()},
	}
	for _, r := range sec.Rows {
		row := []any{r.No, r.Label, r.Score}
		for _, p := range r.Distribution {
			row = append(row, p+"%")
		}
		rows = append(rows, row)
	}
	rows = append(rows, []any{"", "Rata-rata", sec.OverallScore})
	if err := setRows(f, sheet, 1, rows); err != nil {
		return err
	}

	_ = f.SetCellStyle(sheet, "A1", "A4", st.bold)
	_ = f.SetCellStyle(sheet, "A6", "G6", st.bold)
	for i, r := range sec.Rows {
		tier := scoring.ColorClassFor(r.Average, r.Type)
		c := cell(3, 7+i)
		_ = f.SetCellStyle(sheet, c, c, st.tier[tier])
	}
	last := 7 + len(sec.Rows)
	_ = f.SetCellStyle(sheet, cell(2, last), cell(3, last), st.bold)

	next := last + 2
	for _, block := range sec.Comments {
		comments := [][]any{{block.Label}}
		for _, c := range block.Comments {
			comments = append(comments, []any{"-", c})
		}
		if len(block.Comments) == 0 {
			comments = append(comments, []any{"", "Tidak ada komentar."})
		}
		if err := setRows(f, sheet, next, comments); err != nil {
			return err
		}
		_ = f.SetCellStyle(sheet, cell(1, next), cell(1, next), st.bold)
		next += len(comments) + 1
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 48)
	_ = f.SetColWidth(sheet, "C", "C", 20)
	_ = f.SetColWidth(sheet, "D", "G", 12)
	return nil
}

func setRows(f *excelize.File, sheet string, start int, rows [][]any) error {
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		row := r
		if err := f.SetSheetRow(sheet, cell(1, start+i), &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, start+i, err)
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// sheetName derives a unique, valid sheet name for a section.
func sheetName(sec report.Section, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(sec.Name))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Sesi"
	}
	base = fmt.Sprintf("%d. %s", sec.No, base)
	name := truncate(base, maxSheetName)
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncate(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[name] = true
	return name
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
