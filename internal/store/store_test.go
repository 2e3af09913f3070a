package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTraining(t *testing.T, s *Store) *types.Training {
	t.Helper()
	tr := &types.Training{
		ID:    "t1",
		Title: "Pelatihan Dasar",
		Facilitators: []types.Facilitator{
			{ID: "f1", Name: "Ida", Subject: "Komunikasi", SessionDate: "2025-03-01"},
			{ID: "f2", Name: "Budi", Subject: "Etika", SessionDate: "2025-03-02"},
		},
		FacilitatorQuestions: []types.Question{{ID: "q1", Label: "Materi", Type: types.QuestionStar}},
		Targets:              []int{5, 10},
	}
	require.NoError(t, s.SaveTraining(context.Background(), tr))
	return tr
}

func resp(id, name, subject string, v float64, at time.Time) types.Response {
	return types.Response{
		ID:            id,
		TrainingID:    "t1",
		Type:          types.ResponseFacilitator,
		TargetName:    name,
		TargetSubject: subject,
		Answers:       map[string]types.Answer{"q1": types.NumberAnswer(v), "c": types.TextAnswer("ok")},
		Timestamp:     at,
	}
}

func TestTrainingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tr := seedTraining(t, s)

	got, err := s.GetTraining(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	list, err := s.ListTrainings(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetTraining(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResponsesSaveListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTraining(t, s)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveResponses(ctx, []types.Response{
		resp("r2", "Ida ", "komunikasi", 4, base.Add(time.Minute)),
		resp("r1", "Ida", "Komunikasi", 5, base),
		resp("r3", "Budi", "Etika", 3, base.Add(2*time.Minute)),
	}))

	list, err := s.ListResponses(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "r1", list[0].ID, "ordered by timestamp")
	v, ok := list[0].Answers["q1"].Number()
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, "ok", list[0].Answers["c"].Text)
	assert.True(t, list[0].Timestamp.Equal(base))

	n, err := s.CountGroupResponses(ctx, "t1", session.FacilitatorKey("IDA", "Komunikasi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSaveResponses_UnknownTrainingRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTraining(t, s)

	bad := resp("r2", "Ida", "Komunikasi", 4, time.Now())
	bad.TrainingID = "nope"
	err := s.SaveResponses(ctx, []types.Response{resp("r1", "Ida", "Komunikasi", 5, time.Now()), bad})
	require.Error(t, err)

	list, err := s.ListResponses(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRenameTargetAndDeleteGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTraining(t, s)
	now := time.Now()
	require.NoError(t, s.SaveResponses(ctx, []types.Response{
		resp("r1", "Ida", "Komunikasi", 5, now),
		resp("r2", "ida ", "Komunikasi", 4, now),
		resp("r3", "Budi", "Etika", 3, now),
	}))

	n, err := s.RenameTarget(ctx, "t1", "ida|komunikasi", "Ida Ayu", "Komunikasi Efektif")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tr, err := s.GetTraining(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Ida Ayu", tr.Facilitators[0].Name)
	assert.Equal(t, "Komunikasi Efektif", tr.Facilitators[0].Subject)

	count, err := s.CountGroupResponses(ctx, "t1", "ida ayu|komunikasi efektif")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	deleted, err := s.DeleteGroup(ctx, "t1", "budi|etika")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	list, err := s.ListResponses(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMarkReportedAndRestoreQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTraining(t, s)

	require.NoError(t, s.MarkReported(ctx, "t1", "ida|komunikasi_5"))
	require.NoError(t, s.RestoreQuestion(ctx, "t1", types.ResponseFacilitator, "old", "Waktu", types.QuestionSlider))

	tr, err := s.GetTraining(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, tr.ReportedTargets["ida|komunikasi_5"])
	require.Len(t, tr.FacilitatorQuestions, 2)
	assert.Equal(t, "old", tr.FacilitatorQuestions[1].ID)

	err = s.RestoreQuestion(ctx, "t1", types.ResponseFacilitator, "q1", "Dup", types.QuestionStar)
	assert.Error(t, err)
	assert.ErrorIs(t, s.MarkReported(ctx, "missing", "x_1"), ErrNotFound)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Settings{}, empty)

	want := types.Settings{MessageHeader: "Laporan", MessageFooter: "Terima kasih"}
	require.NoError(t, s.SaveSettings(ctx, want))
	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBackupExportImport(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()
	seedTraining(t, src)
	require.NoError(t, src.SaveResponses(ctx, []types.Response{resp("r1", "Ida", "Komunikasi", 5, time.Now())}))
	require.NoError(t, src.SaveSettings(ctx, types.Settings{MessageHeader: "H"}))

	b, err := src.ExportBackup(ctx)
	require.NoError(t, err)
	data, err := json.Marshal(b)
	require.NoError(t, err)

	dst := newTestStore(t)
	require.NoError(t, dst.ImportBackup(ctx, data))

	list, err := dst.ListResponses(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	st, err := dst.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "H", st.MessageHeader)
}

func TestImportBackup_DropsNullAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	payload := `{"version":1,"trainings":[{"id":"a"}],"responses":[
		{"id":"r","trainingId":"a","type":"process","answers":{"p":80,"q":null},"timestamp":"2025-03-01T10:00:00Z"}]}`
	require.NoError(t, s.ImportBackup(ctx, []byte(payload)))

	list, err := s.ListResponses(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]types.Answer{"p": types.NumberAnswer(80)}, list[0].Answers)
}

func TestImportBackup_RejectsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cases := map[string]string{
		"not json":        `{`,
		"bad version":     `{"version": 9}`,
		"orphan response": `{"version":1,"trainings":[{"id":"a"}],"responses":[{"id":"r","trainingId":"b","type":"process","answers":{}}]}`,
		"bad type":        `{"version":1,"trainings":[{"id":"a"}],"responses":[{"id":"r","trainingId":"a","type":"x","answers":{}}]}`,
		"dup training":    `{"version":1,"trainings":[{"id":"a"},{"id":"a"}]}`,
		"bad answer":      `{"version":1,"trainings":[{"id":"a"}],"responses":[{"id":"r","trainingId":"a","type":"process","answers":{"q":true}}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.ImportBackup(ctx, []byte(payload))
			assert.ErrorIs(t, err, ErrInvalidBackup)
		})
	}

	list, err := s.ListTrainings(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing was written")
}
