package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"evalreport-go/internal/report"
	"evalreport-go/internal/types"
)

func sampleReport() report.Report {
	tr := &types.Training{
		ID:        "t1",
		Title:     "Pelatihan Dasar",
		StartDate: "2025-03-01",
		EndDate:   "2025-03-03",
		Facilitators: []types.Facilitator{
			{Name: "Ida", Subject: "Komunikasi", SessionDate: "2025-03-01"},
		},
		FacilitatorQuestions: []types.Question{
			{ID: "q1", Label: "Materi", Type: types.QuestionStar},
			{ID: "c", Label: "Saran", Type: types.QuestionText},
		},
	}
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var rs []types.Response
	for i, v := range []float64{5, 4, 3} {
		answers := map[string]types.Answer{"q1": types.NumberAnswer(v)}
		if i == 0 {
			answers["c"] = types.TextAnswer("jelas")
		}
		rs = append(rs, types.Response{
			ID: string(rune('a' + i)), TrainingID: "t1", Type: types.ResponseFacilitator,
			TargetName: "Ida", TargetSubject: "Komunikasi", Answers: answers, Timestamp: at,
		})
	}
	return report.Build(tr, rs, types.ResponseFacilitator, types.RoleGuest)
}

func TestWriteXLSX_SummaryAndGroupSheets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "1. Ida"}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"Pelatihan", "Pelatihan Dasar"}, rows[1])
	assert.Equal(t, []string{"1", "Ida", "Komunikasi", "1 Maret 2025", "3", "4.00 (Baik)"}, rows[6])
	assert.Equal(t, "Rata-rata Keseluruhan", rows[7][1])
	assert.Equal(t, "4.00 (Baik)", rows[7][5])

	rows, err = f.GetRows("1. Ida")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "Materi", "4.00 (Baik)", "0.0%", "33.3%", "33.3%", "33.3%"}, rows[6])
	assert.Equal(t, []string{"", "Rata-rata", "4.00 (Baik)"}, rows[7])
	assert.Equal(t, []string{"Saran"}, rows[9])
	assert.Equal(t, []string{"-", "jelas"}, rows[10])
}

func TestWriteXLSX_EmptyReport(t *testing.T) {
	rep := report.Build(&types.Training{ID: "t", Title: "Kosong"}, nil, types.ResponseProcess, types.RoleGuest)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SummarySheet}, f.GetSheetList())
	v, err := f.GetCellValue(SummarySheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "Belum ada data evaluasi.", v)
}

func TestSheetName_SanitizesAndDeduplicates(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)
	a := sheetName(report.Section{No: 1, Name: "A/B: [C]"}, used)
	b := sheetName(report.Section{No: 2, Name: long}, used)
	c := sheetName(report.Section{No: 2, Name: long}, used)

	assert.Equal(t, "1. A-B- -C-", a)
	assert.Len(t, b, maxSheetName)
	assert.NotEqual(t, b, c)
	assert.True(t, strings.HasSuffix(c, " (2)"))
	assert.LessOrEqual(t, len(c), maxSheetName)
}

func TestSummaryCSV(t *testing.T) {
	out, err := SummaryCSV(sampleReport())
	require.NoError(t, err)
	assert.Equal(t,
		"no,name,subject,date,respondents,score\n"+
			"1,Ida,Komunikasi,1 Maret 2025,3,4.00 (Baik)\n"+
			",Rata-rata Keseluruhan,,,3,4.00 (Baik)\n",
		string(out))
}

func TestDetailCSV(t *testing.T) {
	out, err := DetailCSV(sampleReport())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Ida,Komunikasi,q1,Materi,4.00,4.00 (Baik),0.0,33.3,33.3,33.3", lines[1])
}
