package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evalreport-go/internal/aggregator"
	"evalreport-go/internal/types"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) SaveTraining(ctx context.Context, t *types.Training) error {
	if t.ID == "" {
		return fmt.Errorf("saving training: empty id")
	}
	return putTraining(ctx, s.db, t)
}

func putTraining(ctx context.Context, q queryer, t *types.Training) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding training %s: %w", t.ID, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO trainings (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		t.ID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving training %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTraining(ctx context.Context, id string) (*types.Training, error) {
	return getTraining(ctx, s.db, id)
}

func getTraining(ctx context.Context, q queryer, id string) (*types.Training, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM trainings WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("training %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading training %s: %w", id, err)
	}
	var t types.Training
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("decoding training %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTrainings(ctx context.Context) ([]*types.Training, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM trainings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing trainings: %w", err)
	}
	defer rows.Close()

	var out []*types.Training
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning training: %w", err)
		}
		var t types.Training
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("decoding training: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// DeleteTraining removes a training and, by cascade, its responses.
func (s *Store) DeleteTraining(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trainings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting training %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("training %s: %w", id, ErrNotFound)
	}
	return nil
}

// updateTraining applies fn to the stored training inside one transaction.
func (s *Store) updateTraining(ctx context.Context, id string, fn func(t *types.Training) error) error {
	return s.withinTx(ctx, func(tx *sql.Tx) error {
		t, err := getTraining(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		return putTraining(ctx, tx, t)
	})
}

// MarkReported persists a sent-notification flag ("groupKey_count").
func (s *Store) MarkReported(ctx context.Context, trainingID, flag string) error {
	return s.updateTraining(ctx, trainingID, func(t *types.Training) error {
		if t.ReportedTargets == nil {
			t.ReportedTargets = map[string]bool{}
		}
		t.ReportedTargets[flag] = true
		return nil
	})
}

// RestoreQuestion turns an orphaned answer key back into an active question.
func (s *Store) RestoreQuestion(ctx context.Context, trainingID string, kind types.ResponseType, id, label string, qt types.QuestionType) error {
	return s.updateTraining(ctx, trainingID, func(t *types.Training) error {
		restored, err := aggregator.RestoreQuestion(t.Questions(kind), id, label, qt)
		if err != nil {
			return err
		}
		if kind == types.ResponseProcess {
			t.ProcessQuestions = restored
		} else {
			t.FacilitatorQuestions = restored
		}
		return nil
	})
}

const settingsKey = "app"

func (s *Store) GetSettings(ctx context.Context) (types.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Settings{}, nil
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	var st types.Settings
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return types.Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st types.Settings) error {
	return putSettings(ctx, s.db, st)
}

func putSettings(ctx context.Context, q queryer, st types.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingsKey, string(data))
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
