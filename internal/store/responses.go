package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SaveResponses writes every response of one submission in a single transaction.
func (s *Store) SaveResponses(ctx context.Context, responses []types.Response) error {
	return s.withinTx(ctx, func(tx *sql.Tx) error {
		return insertResponses(ctx, tx, responses)
	})
}

func insertResponses(ctx context.Context, tx *sql.Tx, responses []types.Response) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO responses (id, training_id, type, target_name, target_subject, answers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			training_id = excluded.training_id,
			type = excluded.type,
			target_name = excluded.target_name,
			target_subject = excluded.target_subject,
			answers = excluded.answers,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("preparing response insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range responses {
		answers, err := json.Marshal(r.Answers)
		if err != nil {
			return fmt.Errorf("encoding answers of %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID,
			r.TrainingID,
			string(r.Type),
			r.TargetName,
			r.TargetSubject,
			string(answers),
			r.Timestamp.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("inserting response %s: %w", r.ID, err)
		}
	}
	return nil
}

// ListResponses returns every response of a training in submission order.
func (s *Store) ListResponses(ctx context.Context, trainingID string) ([]types.Response, error) {
	return listResponses(ctx, s.db, `WHERE training_id = ?`, trainingID)
}

func listResponses(ctx context.Context, q rowQueryer, where string, args ...any) ([]types.Response, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, training_id, type, target_name, target_subject, answers, created_at
		FROM responses `+where+` ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	var out []types.Response
	for rows.Next() {
		var (
			r                 types.Response
			kind, answers, at string
		)
		if err := rows.Scan(&r.ID, &r.TrainingID, &kind, &r.TargetName, &r.TargetSubject, &answers, &at); err != nil {
			return nil, fmt.Errorf("scanning response: %w", err)
		}
		r.Type = types.ResponseType(kind)
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("decoding answers of %s: %w", r.ID, err)
		}
		r.Answers = types.CompactAnswers(r.Answers)
		if r.Timestamp, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parsing timestamp of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountGroupResponses counts the stored responses of one session group.
// Grouping keys are normalized in Go so the count matches the report.
func (s *Store) CountGroupResponses(ctx context.Context, trainingID, groupKey string) (int, error) {
	responses, err := s.ListResponses(ctx, trainingID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range responses {
		if session.GroupKey(r) == groupKey {
			n++
		}
	}
	return n, nil
}

// matchingIDs returns the ids of facilitator responses in groupKey.
func matchingIDs(ctx context.Context, tx *sql.Tx, trainingID, groupKey string) ([]string, error) {
	responses, err := listResponses(ctx, tx, `WHERE training_id = ? AND type = ?`, trainingID, string(types.ResponseFacilitator))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range responses {
		if session.GroupKey(r) == groupKey {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// RenameTarget rewrites targetName and targetSubject on every response of a
// facilitator group, and on the matching facilitator sessions of the training.
// It returns the number of responses changed.
func (s *Store) RenameTarget(ctx context.Context, trainingID, groupKey, newName, newSubject string) (int, error) {
	newName, newSubject = strings.TrimSpace(newName), strings.TrimSpace(newSubject)
	if newName == "" {
		return 0, fmt.Errorf("renaming %s: empty name", groupKey)
	}
	changed := 0
	err := s.withinTx(ctx, func(tx *sql.Tx) error {
		t, err := getTraining(ctx, tx, trainingID)
		if err != nil {
			return err
		}
		ids, err := matchingIDs(ctx, tx, trainingID, groupKey)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE responses SET target_name = ?, target_subject = ? WHERE id = ?`,
				newName, newSubject, id); err != nil {
				return fmt.Errorf("renaming response %s: %w", id, err)
			}
		}
		changed = len(ids)

		for i, f := range t.Facilitators {
			if session.FacilitatorKey(f.Name, f.Subject) == groupKey {
				t.Facilitators[i].Name = newName
				t.Facilitators[i].Subject = newSubject
			}
		}
		return putTraining(ctx, tx, t)
	})
	return changed, err
}

// DeleteGroup removes every response of a session group.
func (s *Store) DeleteGroup(ctx context.Context, trainingID, groupKey string) (int, error) {
	deleted := 0
	err := s.withinTx(ctx, func(tx *sql.Tx) error {
		var ids []string
		if groupKey == session.ProcessGroupKey {
			all, err := listResponses(ctx, tx, `WHERE training_id = ? AND type = ?`, trainingID, string(types.ResponseProcess))
			if err != nil {
				return err
			}
			for _, r := range all {
				ids = append(ids, r.ID)
			}
		} else {
			var err error
			if ids, err = matchingIDs(ctx, tx, trainingID, groupKey); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deleting response %s: %w", id, err)
			}
		}
		deleted = len(ids)
		return nil
	})
	return deleted, err
}
