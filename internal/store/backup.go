package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evalreport-go/internal/types"
)

// ErrInvalidBackup rejects a backup payload as a whole.
var ErrInvalidBackup = errors.New("invalid backup payload")

const backupVersion = 1

type Backup struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Settings   types.Settings   `json:"settings"`
	Trainings  []types.Training `json:"trainings"`
	Responses  []types.Response `json:"responses"`
}

// ExportBackup snapshots every training, response and the settings.
func (s *Store) ExportBackup(ctx context.Context) (*Backup, error) {
	trainings, err := s.ListTrainings(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	b := &Backup{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Settings:   settings,
		Trainings:  make([]types.Training, 0, len(trainings)),
		Responses:  []types.Response{},
	}
	for _, t := range trainings {
		b.Trainings = append(b.Trainings, *t)
		responses, err := s.ListResponses(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		b.Responses = append(b.Responses, responses...)
	}
	return b, nil
}

// ImportBackup validates the whole payload before writing anything and then
// upserts it in one transaction. Any problem rejects the import wholesale.
func (s *Store) ImportBackup(ctx context.Context, data []byte) error {
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	return s.withinTx(ctx, func(tx *sql.Tx) error {
		for i := range b.Trainings {
			if err := putTraining(ctx, tx, &b.Trainings[i]); err != nil {
				return err
			}
		}
		if err := insertResponses(ctx, tx, b.Responses); err != nil {
			return err
		}
		return putSettings(ctx, tx, b.Settings)
	})
}

// Validate checks structural integrity of a backup.
func (b *Backup) Validate() error {
	if b.Version != backupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	trainings := make(map[string]bool, len(b.Trainings))
	for _, t := range b.Trainings {
		if t.ID == "" {
			return fmt.Errorf("%w: training without id", ErrInvalidBackup)
		}
		if trainings[t.ID] {
			return fmt.Errorf("%w: duplicate training %s", ErrInvalidBackup, t.ID)
		}
		trainings[t.ID] = true
		for _, q := range append(append([]types.Question{}, t.FacilitatorQuestions...), t.ProcessQuestions...) {
			if q.ID == "" {
				return fmt.Errorf("%w: training %s has a question without id", ErrInvalidBackup, t.ID)
			}
		}
	}
	responses := make(map[string]bool, len(b.Responses))
	for i := range b.Responses {
		b.Responses[i].Answers = types.CompactAnswers(b.Responses[i].Answers)
	}
	for _, r := range b.Responses {
		switch {
		case r.ID == "":
			return fmt.Errorf("%w: response without id", ErrInvalidBackup)
		case responses[r.ID]:
			return fmt.Errorf("%w: duplicate response %s", ErrInvalidBackup, r.ID)
		case !r.Type.Valid():
			return fmt.Errorf("%w: response %s has type %q", ErrInvalidBackup, r.ID, r.Type)
		case !trainings[r.TrainingID]:
			return fmt.Errorf("%w: response %s references unknown training %q", ErrInvalidBackup, r.ID, r.TrainingID)
		}
		responses[r.ID] = true
	}
	return nil
}
