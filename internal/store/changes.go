package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// ChangesByVersion reports every record of view in book that changed after
// version since, together with the current version. Book 0 means every
// book. Exceptions are left out; see ChangesExceptionByVersion.
//
// A record created after since is reported as inserted, even if it was
// updated again; a record deleted after since as deleted, unless it was
// also created after since, in which case it is not reported at all.
func (s *Store) ChangesByVersion(ctx context.Context, view string, bookID int32, since int64) ([]*record.UpdatedInfo, int64, error) {
	return s.changes(ctx, view, since, "(? = 0 OR book_id = ?) AND original_id = 0", bookID, bookID)
}

// ChangesExceptionByVersion reports the changed exceptions of event
// originalID after version since, together with the current version.
func (s *Store) ChangesExceptionByVersion(ctx context.Context, view string, originalID int32, since int64) ([]*record.UpdatedInfo, int64, error) {
	if originalID <= 0 {
		return nil, 0, calerr.New(calerr.InvalidParameter, "changes", "invalid original id %d", originalID)
	}
	return s.changes(ctx, view, since, "original_id = ?", originalID)
}

func (s *Store) changes(ctx context.Context, view string, since int64, scope string, args ...any) ([]*record.UpdatedInfo, int64, error) {
	if !Writable(view) {
		return nil, 0, calerr.New(calerr.InvalidParameter, "changes", "view %q has no change history", view)
	}
	if since < 0 {
		return nil, 0, calerr.New(calerr.InvalidParameter, "changes", "negative version %d", since)
	}

	// One read transaction so the changes and the version agree.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("changes: begin tx: %w", err)
	}
	defer tx.Rollback()

	out := []*record.UpdatedInfo{}
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, book_id, created_ver, changed_ver FROM records
		WHERE view = ? AND changed_ver > ? AND %s
		ORDER BY changed_ver ASC, id ASC
	`, scope), append([]any{view, since}, args...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("changes: %w", err)
	}
	for rows.Next() {
		info := record.NewUpdatedInfo()
		var created int64
		if err := rows.Scan(&info.ID, &info.BookID, &created, &info.Version); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("changes: scan: %w", err)
		}
		info.Type = record.ChangeUpdated
		if created > since {
			info.Type = record.ChangeInserted
		}
		out = append(out, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("changes: iterate: %w", err)
	}

	// A tombstone left by a move between books is skipped while the record
	// is still live within the scope.
	targs := append([]any{view, since, since}, args...)
	rows, err = tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, book_id, deleted_ver FROM tombstones
		WHERE view = ? AND deleted_ver > ? AND created_ver <= ? AND %s
		AND NOT EXISTS (
			SELECT 1 FROM records r WHERE r.view = tombstones.view AND r.id = tombstones.id AND %s
		)
		ORDER BY deleted_ver ASC, id ASC
	`, scope, scope), append(targs, args...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("changes: tombstones: %w", err)
	}
	for rows.Next() {
		info := record.NewUpdatedInfo()
		if err := rows.Scan(&info.ID, &info.BookID, &info.Version); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("changes: scan tombstone: %w", err)
		}
		info.Type = record.ChangeDeleted
		out = append(out, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("changes: iterate tombstones: %w", err)
	}

	current, err := currentVersion(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	slices.SortStableFunc(out, func(a, b *record.UpdatedInfo) int {
		if c := cmp.Compare(a.Version, b.Version); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, current, nil
}

// CleanAfterSync drops the tombstones of book (0 for every book) deleted at
// or before version since. Deletions dropped this way are no longer
// reported by ChangesByVersion. The version counter is not bumped.
func (s *Store) CleanAfterSync(ctx context.Context, bookID int32, since int64) error {
	if bookID < 0 || since < 0 {
		return calerr.New(calerr.InvalidParameter, "clean after sync", "invalid book %d or version %d", bookID, since)
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tombstones WHERE deleted_ver <= ? AND (? = 0 OR book_id = ?)
	`, since, bookID, bookID)
	if err != nil {
		return fmt.Errorf("clean after sync: %w", err)
	}
	return nil
}
