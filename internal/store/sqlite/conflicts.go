package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/klauern/permisync/internal/model"
	syncer "github.com/klauern/permisync/internal/sync"
)

// Conflict is one stored divergence, identified by the row's uuid or,
// for legacy rows, its composite dedupe key.
type Conflict struct {
	ID         int64
	Label      string
	Reason     string
	DetectedAt string
	ResolvedAt string
}

// RecordConflict stores a detected divergence. Re-detecting an already
// open conflict refreshes its reason instead of duplicating the row.
func (s *Store) RecordConflict(ctx context.Context, label, reason string) error {
	now := model.FormatTimestamp(time.Now().UTC())

	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_conflicts SET reason = ?, detected_at = ?
		WHERE label = ? AND resolved_at IS NULL`,
		reason, now, label)
	if err != nil {
		return fmt.Errorf("%w: refresh conflict %s: %v", syncer.ErrIO, label, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_conflicts (label, reason, detected_at)
		VALUES (?, ?, ?)`,
		label, reason, now)
	if err != nil {
		return fmt.Errorf("%w: record conflict %s: %v", syncer.ErrIO, label, err)
	}
	return nil
}

// OpenConflicts returns unresolved conflicts, oldest first.
func (s *Store) OpenConflicts(ctx context.Context) ([]Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, reason, detected_at
		FROM sync_conflicts
		WHERE resolved_at IS NULL
		ORDER BY detected_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query conflicts: %v", syncer.ErrIO, err)
	}
	defer rows.Close()

	var out []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.ID, &c.Label, &c.Reason, &c.DetectedAt); err != nil {
			return nil, fmt.Errorf("%w: scan conflict: %v", syncer.ErrIO, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate conflicts: %v", syncer.ErrIO, err)
	}
	return out, nil
}

// ResolveConflict marks every open conflict carrying the label as
// resolved. Returns how many rows were closed.
func (s *Store) ResolveConflict(ctx context.Context, label string) (int, error) {
	now := model.FormatTimestamp(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_conflicts SET resolved_at = ?
		WHERE label = ? AND resolved_at IS NULL`,
		now, label)
	if err != nil {
		return 0, fmt.Errorf("%w: resolve conflict %s: %v", syncer.ErrIO, label, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: resolve conflict %s: %v", syncer.ErrIO, label, err)
	}
	return int(affected), nil
}
