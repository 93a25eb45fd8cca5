package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/querysql"
	"github.com/roach88/calstore/internal/record"
)

// tableFor returns the table serving view. Only stored and instance views
// can be read.
func tableFor(view string) (string, error) {
	switch {
	case Writable(view):
		return "records", nil
	case instanceViews[view]:
		return "instances", nil
	}
	return "", calerr.New(calerr.InvalidParameter, "read", "cannot read view %q", view)
}

// Get returns the record of view with key id, children included.
// Returns a RecordNotFound error if there is none.
func (s *Store) Get(ctx context.Context, view string, id int32) (record.Record, error) {
	table, err := tableFor(view)
	if err != nil {
		return nil, err
	}
	var blob []byte
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT blob FROM %s WHERE view = ? AND id = ?`, table), view, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, calerr.New(calerr.RecordNotFound, "get record", "%s record %d not found", view, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	r, err := unmarshalBlob(blob)
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, s.db, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetAll lists the records of view in id order. A limit of 0 means no limit.
func (s *Store) GetAll(ctx context.Context, view string, offset, limit int) ([]record.Record, error) {
	return s.Query(ctx, query.New(view), offset, limit)
}

// Query lists the records matching q. A limit of 0 means no limit.
//
// With a projection only the projected properties (and the key) are filled
// and children are not loaded. A distinct projection returns search records
// holding just the projected values, one per distinct combination.
func (s *Store) Query(ctx context.Context, q *query.Query, offset, limit int) ([]record.Record, error) {
	if q == nil {
		return nil, calerr.New(calerr.InvalidParameter, "query", "nil query")
	}
	if offset < 0 || limit < 0 {
		return nil, calerr.New(calerr.InvalidParameter, "query", "negative offset %d or limit %d", offset, limit)
	}
	table, err := tableFor(q.View)
	if err != nil {
		return nil, err
	}
	distinct := q.Distinct && len(q.Projection) > 0

	sqlLimit, sqlOffset := limit, offset
	if sqlLimit == 0 {
		sqlLimit = -1
	}
	if distinct {
		sqlLimit, sqlOffset = -1, 0
	}
	c := &querysql.Compiler{Table: table}
	stmt, params, err := c.Select(q, sqlOffset, sqlLimit)
	if err != nil {
		return nil, err
	}

	out, err := queryBlobs(ctx, s.db, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.View, err)
	}

	if len(q.Projection) == 0 {
		if table == "records" {
			for _, r := range out {
				if err := loadChildren(ctx, s.db, r); err != nil {
					return nil, err
				}
			}
		}
		return out, nil
	}
	for _, r := range out {
		if err := record.Project(r, q.Projection); err != nil {
			return nil, err
		}
	}
	if !distinct {
		return out, nil
	}
	return distinctSearch(q, out, offset, limit)
}

// distinctSearch folds projected records into search records, dropping
// repeats, then applies the window.
func distinctSearch(q *query.Query, rs []record.Record, offset, limit int) ([]record.Record, error) {
	seen := make(map[string]bool)
	out := []record.Record{}
	for _, r := range rs {
		srch := record.NewSearch(q.View)
		for _, id := range q.Projection {
			v, err := record.Get(r, id)
			if err != nil {
				return nil, err
			}
			if err := srch.Add(id, v); err != nil {
				return nil, err
			}
		}
		b, err := record.Marshal(srch)
		if err != nil {
			return nil, err
		}
		if seen[string(b)] {
			continue
		}
		seen[string(b)] = true
		out = append(out, srch)
	}

	if offset >= len(out) {
		return []record.Record{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of records of view.
func (s *Store) Count(ctx context.Context, view string) (int, error) {
	return s.CountQuery(ctx, query.New(view))
}

// CountQuery returns the number of records matching q. Distinct is ignored.
func (s *Store) CountQuery(ctx context.Context, q *query.Query) (int, error) {
	if q == nil {
		return 0, calerr.New(calerr.InvalidParameter, "count", "nil query")
	}
	table, err := tableFor(q.View)
	if err != nil {
		return 0, err
	}
	c := &querysql.Compiler{Table: table}
	stmt, params, err := c.Count(q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, stmt, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.View, err)
	}
	return n, nil
}

// BookOf returns the book owning the record of view with key id.
func (s *Store) BookOf(ctx context.Context, view string, id int32) (int32, error) {
	table, err := tableFor(view)
	if err != nil {
		return 0, err
	}
	var book int32
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT book_id FROM %s WHERE view = ? AND id = ?`, table), view, id).Scan(&book)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, calerr.New(calerr.RecordNotFound, "book of", "%s record %d not found", view, id)
	}
	if err != nil {
		return 0, fmt.Errorf("book of %s %d: %w", view, id, err)
	}
	return book, nil
}

// BookOfKey returns the book owning the stored record with key id,
// whatever its view.
func (s *Store) BookOfKey(ctx context.Context, id int32) (int32, error) {
	var book int32
	err := s.db.QueryRowContext(ctx, `SELECT book_id FROM records WHERE id = ?`, id).Scan(&book)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, calerr.New(calerr.RecordNotFound, "book of", "record %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("book of %d: %w", id, err)
	}
	return book, nil
}

// BookMode returns the mode of book id (record.BookModeDefault or
// record.BookModeReadOnly).
func (s *Store) BookMode(ctx context.Context, id int32) (int32, error) {
	var mode sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT json_extract(data, '$."mode"') FROM records WHERE view = ? AND id = ?`,
		record.ViewBook, id).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, calerr.New(calerr.RecordNotFound, "book mode", "book %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("book mode %d: %w", id, err)
	}
	return int32(mode.Int64), nil
}

// queryBlobs runs stmt and decodes the blob column of every row. The rows
// are closed before returning, so callers may issue further queries on the
// single connection.
func queryBlobs(ctx context.Context, q querier, stmt string, args ...any) ([]record.Record, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var blobs [][]byte
	for rows.Next() {
		var blob []byte
		dest := []any{&blob}
		if len(cols) == 2 {
			var id int64
			dest = []any{&id, &blob}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		blobs = append(blobs, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	out := make([]record.Record, 0, len(blobs))
	for _, b := range blobs {
		r, err := unmarshalBlob(b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// children lists the rows of view matching column = id, as T.
func children[T record.Record](ctx context.Context, q querier, view, column string, id int32) ([]T, error) {
	rs, err := queryBlobs(ctx, q,
		fmt.Sprintf(`SELECT blob FROM records WHERE view = ? AND %s = ? ORDER BY id ASC`, column), view, id)
	if err != nil {
		return nil, fmt.Errorf("load %s children of %d: %w", view, id, err)
	}
	if len(rs) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		c, ok := r.(T)
		if !ok {
			return nil, fmt.Errorf("load children of %d: unexpected %T", id, r)
		}
		out = append(out, c)
	}
	return out, nil
}

// loadChildren fills the child lists of r from their rows.
func loadChildren(ctx context.Context, q querier, r record.Record) error {
	var err error
	switch v := r.(type) {
	case *record.Book:
		v.Extended, err = children[*record.Extended](ctx, q, record.ViewExtended, "parent_id", v.ID)
	case *record.Event:
		if v.Alarms, err = children[*record.Alarm](ctx, q, record.ViewAlarm, "parent_id", v.ID); err != nil {
			return err
		}
		if v.Attendees, err = children[*record.Attendee](ctx, q, record.ViewAttendee, "parent_id", v.ID); err != nil {
			return err
		}
		if v.Extended, err = children[*record.Extended](ctx, q, record.ViewExtended, "parent_id", v.ID); err != nil {
			return err
		}
		if v.OriginalEventID != 0 {
			return nil
		}
		if v.Exceptions, err = children[*record.Event](ctx, q, record.ViewEvent, "original_id", v.ID); err != nil {
			return err
		}
		for _, e := range v.Exceptions {
			if err = loadChildren(ctx, q, e); err != nil {
				return err
			}
		}
	case *record.Todo:
		if v.Alarms, err = children[*record.Alarm](ctx, q, record.ViewAlarm, "parent_id", v.ID); err != nil {
			return err
		}
		if v.Attendees, err = children[*record.Attendee](ctx, q, record.ViewAttendee, "parent_id", v.ID); err != nil {
			return err
		}
		v.Extended, err = children[*record.Extended](ctx, q, record.ViewExtended, "parent_id", v.ID)
	}
	return err
}
