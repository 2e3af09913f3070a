package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"evalreport-go/internal/config"
	"evalreport-go/internal/export"
	"evalreport-go/internal/logger"
	"evalreport-go/internal/store"
	"evalreport-go/internal/types"
)

// testApp wires an App backed by a throwaway database file.
func testApp(t *testing.T) *App {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &App{
		Config: &config.AppConfig{Port: "0", Location: time.UTC},
		Store:  st,
		Log:    logger.Discard(),
	}
}

func seedApp(t *testing.T, app *App) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, app.Store.SaveTraining(ctx, &types.Training{
		ID:    "t1",
		Title: "Pelatihan Dasar",
		Facilitators: []types.Facilitator{
			{Name: "Ida", Subject: "Komunikasi", SessionDate: "2025-03-01"},
			{Name: "Rahasia", Subject: "Internal", SessionDate: "2025-03-02", Hidden: true},
		},
		FacilitatorQuestions: []types.Question{{ID: "q1", Label: "Materi", Type: types.QuestionStar}},
	}))
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, app.Store.SaveResponses(ctx, []types.Response{
		{ID: "r1", TrainingID: "t1", Type: types.ResponseFacilitator, TargetName: "Ida", TargetSubject: "Komunikasi",
			Answers: map[string]types.Answer{"q1": types.NumberAnswer(5)}, Timestamp: at},
		{ID: "r2", TrainingID: "t1", Type: types.ResponseFacilitator, TargetName: "Rahasia", TargetSubject: "Internal",
			Answers: map[string]types.Answer{"q1": types.NumberAnswer(3)}, Timestamp: at},
	}))
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExportCmd_XLSX(t *testing.T) {
	app := testApp(t)
	seedApp(t, app)
	path := filepath.Join(t.TempDir(), "rekap.xlsx")

	out, err := execute(t, app, "export", "--training", "t1", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 groups, 1 responses")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{export.SummarySheet, "1. Ida"}, f.GetSheetList())
}

func TestExportCmd_CSVIncludeHidden(t *testing.T) {
	app := testApp(t)
	seedApp(t, app)
	path := filepath.Join(t.TempDir(), "rekap.csv")

	_, err := execute(t, app, "export", "--training", "t1", "--out", path, "--include-hidden")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rahasia")
	// hidden sessions never count towards the grand total
	assert.Contains(t, string(data), ",Rata-rata Keseluruhan,,,2,5.00 (Sangat Baik)")
}

func TestExportCmd_Errors(t *testing.T) {
	app := testApp(t)
	seedApp(t, app)

	_, err := execute(t, app, "export", "--training", "t1", "--kind", "other")
	assert.Error(t, err)
	_, err = execute(t, app, "export", "--training", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = execute(t, app, "export", "--training", "t1", "--out", filepath.Join(t.TempDir(), "x.pdf"))
	assert.Error(t, err)
	_, err = execute(t, app, "export")
	assert.Error(t, err)
}

func TestBackupThenImport(t *testing.T) {
	src := testApp(t)
	seedApp(t, src)
	path := filepath.Join(t.TempDir(), "backup.json")

	_, err := execute(t, src, "backup", "--out", path)
	require.NoError(t, err)

	dst := testApp(t)
	out, err := execute(t, dst, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete")

	responses, err := dst.Store.ListResponses(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, responses, 2)
}

func TestImportCmd_RejectsMalformed(t *testing.T) {
	app := testApp(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"responses":[{"id":"r","trainingId":"nope","type":"process","answers":{}}]}`), 0644))

	_, err := execute(t, app, "import", path)
	assert.ErrorIs(t, err, store.ErrInvalidBackup)

	list, err := app.Store.ListTrainings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSeedSettings(t *testing.T) {
	app := testApp(t)
	app.Config.DefaultSettings = types.Settings{MessageHeader: "Yth."}
	ctx := context.Background()

	require.NoError(t, seedSettings(ctx, app))
	st, err := app.Store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Yth.", st.MessageHeader)

	require.NoError(t, app.Store.SaveSettings(ctx, types.Settings{MessageFooter: "Salam"}))
	require.NoError(t, seedSettings(ctx, app))
	st, err = app.Store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Settings{MessageFooter: "Salam"}, st)
}
