package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, video_id, asset_root, state, failed_stage, error_kind, error_message,
	folder_count, segment_count, narration_seconds, intro_seconds, output_path, started_at, finished_at`

// Begin inserts a running record.
func (s *Store) Begin(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("run id is required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.State == "" {
		rec.State = StateRunning
	}
	_, err := s.exec(ctx, `INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		rec.ID, rec.VideoID, rec.AssetRoot, rec.State, rec.FailedStage, rec.ErrorKind, rec.ErrorMessage,
		rec.FolderCount, rec.SegmentCount, rec.NarrationSeconds, rec.IntroSeconds, rec.OutputPath,
		formatTime(rec.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the final outcome of a run.
func (s *Store) Finish(ctx context.Context, rec Record) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	res, err := s.exec(ctx, `UPDATE runs SET
		state = ?, failed_stage = ?, error_kind = ?, error_message = ?,
		folder_count = ?, segment_count = ?, narration_seconds = ?, intro_seconds = ?,
		output_path = ?, finished_at = ?
		WHERE id = ?`,
		rec.State, rec.FailedStage, rec.ErrorKind, rec.ErrorMessage,
		rec.FolderCount, rec.SegmentCount, rec.NarrationSeconds, rec.IntroSeconds,
		rec.OutputPath, formatTime(rec.FinishedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	return nil
}

// Get loads one run by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Prune deletes finished runs older than cutoff and returns the count.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM runs WHERE finished_at IS NOT NULL AND started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		started  string
		finished sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.VideoID, &rec.AssetRoot, &rec.State, &rec.FailedStage, &rec.ErrorKind, &rec.ErrorMessage,
		&rec.FolderCount, &rec.SegmentCount, &rec.NarrationSeconds, &rec.IntroSeconds, &rec.OutputPath,
		&started, &finished,
	); err != nil {
		return Record{}, err
	}
	rec.StartedAt = parseTime(started)
	if finished.Valid {
		rec.FinishedAt = parseTime(finished.String)
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
