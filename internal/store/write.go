package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// writableViews are the views backed by the records table.
var writableViews = map[string]bool{
	record.ViewBook:     true,
	record.ViewEvent:    true,
	record.ViewTodo:     true,
	record.ViewTimezone: true,
	record.ViewAttendee: true,
	record.ViewAlarm:    true,
	record.ViewExtended: true,
}

// Writable reports whether records of view can be inserted, updated or
// deleted.
func Writable(view string) bool { return writableViews[view] }

// row is the bookkeeping part of a records row.
type row struct {
	id         int32
	view       string
	book       int32
	parent     int32
	original   int32
	createdVer int64
}

// Insert stores r and returns its new id. Children embedded in r are stored
// as their own rows in the same call.
func (s *Store) Insert(ctx context.Context, r record.Record) (int32, Mutation, error) {
	var id int32
	m, err := s.mutate(ctx, func(t *txn) error {
		var err error
		id, err = s.insert(ctx, t, r)
		return err
	})
	if err != nil {
		return 0, Mutation{}, fmt.Errorf("insert record: %w", err)
	}
	return id, m, nil
}

// InsertBatch stores every record in one call. Either all are stored or
// none.
func (s *Store) InsertBatch(ctx context.Context, rs []record.Record) ([]int32, Mutation, error) {
	if len(rs) == 0 {
		return nil, Mutation{}, calerr.New(calerr.InvalidParameter, "insert records", "empty batch")
	}
	ids := make([]int32, 0, len(rs))
	m, err := s.mutate(ctx, func(t *txn) error {
		for _, r := range rs {
			id, err := s.insert(ctx, t, r)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, Mutation{}, fmt.Errorf("insert records: %w", err)
	}
	return ids, m, nil
}

// Update writes r over the stored record with the same key. If r carries
// dirty flags only those properties change; otherwise every property is
// replaced and embedded children replace the stored ones.
func (s *Store) Update(ctx context.Context, r record.Record) (Mutation, error) {
	m, err := s.mutate(ctx, func(t *txn) error { return s.update(ctx, t, r) })
	if err != nil {
		return Mutation{}, fmt.Errorf("update record: %w", err)
	}
	return m, nil
}

// UpdateBatch updates every record in one call.
func (s *Store) UpdateBatch(ctx context.Context, rs []record.Record) (Mutation, error) {
	if len(rs) == 0 {
		return Mutation{}, calerr.New(calerr.InvalidParameter, "update records", "empty batch")
	}
	m, err := s.mutate(ctx, func(t *txn) error {
		for _, r := range rs {
			if err := s.update(ctx, t, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Mutation{}, fmt.Errorf("update records: %w", err)
	}
	return m, nil
}

// Replace overwrites the record with key id by r, whatever r's own key and
// dirty flags say.
func (s *Store) Replace(ctx context.Context, r record.Record, id int32) (Mutation, error) {
	m, err := s.mutate(ctx, func(t *txn) error { return s.replace(ctx, t, r, id) })
	if err != nil {
		return Mutation{}, fmt.Errorf("replace record: %w", err)
	}
	return m, nil
}

// ReplaceBatch replaces rs[i] at ids[i] in one call.
func (s *Store) ReplaceBatch(ctx context.Context, rs []record.Record, ids []int32) (Mutation, error) {
	if len(rs) == 0 || len(rs) != len(ids) {
		return Mutation{}, calerr.New(calerr.InvalidParameter, "replace records",
			"%d records for %d ids", len(rs), len(ids))
	}
	m, err := s.mutate(ctx, func(t *txn) error {
		for i, r := range rs {
			if err := s.replace(ctx, t, r, ids[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Mutation{}, fmt.Errorf("replace records: %w", err)
	}
	return m, nil
}

// Delete removes the record and everything it owns. Deleting a book deletes
// every record in it.
func (s *Store) Delete(ctx context.Context, view string, id int32) (Mutation, error) {
	return s.DeleteBatch(ctx, view, []int32{id})
}

// DeleteBatch deletes every id of view in one call.
func (s *Store) DeleteBatch(ctx context.Context, view string, ids []int32) (Mutation, error) {
	if len(ids) == 0 {
		return Mutation{}, calerr.New(calerr.InvalidParameter, "delete records", "empty batch")
	}
	if !Writable(view) {
		return Mutation{}, calerr.New(calerr.InvalidParameter, "delete records", "%s is read-only", view)
	}
	m, err := s.mutate(ctx, func(t *txn) error {
		for _, id := range ids {
			rw, err := t.row(ctx, view, id)
			if err != nil {
				return err
			}
			if err := t.delete(ctx, rw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Mutation{}, fmt.Errorf("delete records: %w", err)
	}
	return m, nil
}

func (s *Store) insert(ctx context.Context, t *txn, r record.Record) (int32, error) {
	view := record.ViewOf(r)
	if !Writable(view) {
		return 0, calerr.New(calerr.InvalidParameter, "insert", "cannot insert into %q", view)
	}
	s.stamp(t, r, 0)

	rw, err := t.links(ctx, r)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO records (view, book_id, parent_id, original_id, created_ver, changed_ver)
		VALUES (?, ?, ?, ?, ?, ?)
	`, view, rw.book, rw.parent, rw.original, t.ver, t.ver)
	if err != nil {
		return 0, fmt.Errorf("insert row: %w", err)
	}
	id64, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert row: %w", err)
	}
	id := int32(id64)
	if err := record.SetKey(r, id); err != nil {
		return 0, err
	}
	rw.id = id
	if view == record.ViewBook {
		rw.book = id
	}

	if err := s.insertChildren(ctx, t, r, r, rw); err != nil {
		return 0, err
	}
	if err := t.write(ctx, r, rw); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) update(ctx context.Context, t *txn, r record.Record) error {
	view := record.ViewOf(r)
	if !Writable(view) {
		return calerr.New(calerr.InvalidParameter, "update", "cannot update %q", view)
	}
	id := record.Key(r)
	stored, err := t.load(ctx, view, id)
	if err != nil {
		return err
	}
	prev, err := t.row(ctx, view, id)
	if err != nil {
		return err
	}

	created := createdTime(stored)
	dirty := record.DirtyProperties(r)
	if err := record.CopyProperties(stored, r, dirty); err != nil {
		return err
	}
	if err := record.SetKey(stored, id); err != nil {
		return err
	}
	s.stamp(t, stored, created)

	rw, err := t.links(ctx, stored)
	if err != nil {
		return err
	}
	rw.id = id
	if view == record.ViewBook {
		rw.book = id
	}

	if err := t.relink(ctx, prev, rw.book); err != nil {
		return err
	}
	if len(dirty) == 0 {
		e, isEvent := r.(*record.Event)
		if err := t.deleteChildren(ctx, rw, isEvent && len(e.Exceptions) > 0); err != nil {
			return err
		}
		if err := s.insertChildren(ctx, t, r, stored, rw); err != nil {
			return err
		}
	}
	return t.write(ctx, stored, rw)
}

// relink moves self's children and exceptions into book. When self or any
// of them leaves another book, a tombstone is left there at this version.
func (t *txn) relink(ctx context.Context, self row, book int32) error {
	if self.book != book {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO tombstones (id, view, book_id, original_id, created_ver, deleted_ver)
			VALUES (?, ?, ?, ?, ?, ?)
		`, self.id, self.view, self.book, self.original, self.createdVer, t.ver); err != nil {
			return fmt.Errorf("tombstone %d in book %d: %w", self.id, self.book, err)
		}
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tombstones (id, view, book_id, original_id, created_ver, deleted_ver)
		SELECT id, view, book_id, original_id, created_ver, ? FROM records
		WHERE (parent_id = ? OR original_id = ?) AND book_id != ?
	`, t.ver, self.id, self.id, book); err != nil {
		return fmt.Errorf("tombstone children of %d: %w", self.id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE instances SET book_id = ?
		WHERE id IN (SELECT id FROM records WHERE original_id = ? AND book_id != ?)
	`, book, self.id, book); err != nil {
		return fmt.Errorf("relink instances of %d: %w", self.id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE records SET book_id = ?, changed_ver = ?
		WHERE (parent_id = ? OR original_id = ?) AND book_id != ?
	`, book, t.ver, self.id, self.id, book); err != nil {
		return fmt.Errorf("relink children of %d: %w", self.id, err)
	}
	return nil
}

func (s *Store) replace(ctx context.Context, t *txn, r record.Record, id int32) error {
	if err := record.SetKey(r, id); err != nil {
		return err
	}
	r.Header().ClearDirty()
	return s.update(ctx, t, r)
}

// stamp fills the server-maintained properties: a UID when missing and the
// created/modified times. A zero created means now.
func (s *Store) stamp(t *txn, r record.Record, created int64) {
	now := t.now.Unix()
	if created == 0 {
		created = now
	}
	uid := func(u *sql.NullString) {
		if !u.Valid || u.String == "" {
			*u = record.Str(s.newUID())
		}
	}
	switch v := r.(type) {
	case *record.Book:
		uid(&v.UID)
	case *record.Event:
		uid(&v.UID)
		v.CreatedTime, v.LastModified = created, now
	case *record.Todo:
		uid(&v.UID)
		v.CreatedTime, v.LastModified = created, now
	}
}

func createdTime(r record.Record) int64 {
	switch v := r.(type) {
	case *record.Event:
		return v.CreatedTime
	case *record.Todo:
		return v.CreatedTime
	}
	return 0
}

// links resolves the book, parent and original of r and checks that they
// exist.
func (t *txn) links(ctx context.Context, r record.Record) (row, error) {
	rw := row{view: record.ViewOf(r)}
	switch v := r.(type) {
	case *record.Event:
		rw.book, rw.original = v.BookID, v.OriginalEventID
	case *record.Todo:
		rw.book = v.BookID
	case *record.Timezone:
		rw.book = v.BookID
	case *record.Attendee:
		rw.parent = v.ParentID
	case *record.Alarm:
		rw.parent = v.ParentID
	case *record.Extended:
		rw.parent = v.RecordID
	case *record.Book:
		return rw, nil
	}

	if rw.parent != 0 {
		var view string
		var book int32
		err := t.tx.QueryRowContext(ctx, `SELECT view, book_id FROM records WHERE id = ?`, rw.parent).Scan(&view, &book)
		if errors.Is(err, sql.ErrNoRows) {
			return row{}, calerr.New(calerr.RecordNotFound, "links", "parent %d of %s not found", rw.parent, rw.view)
		}
		if err != nil {
			return row{}, fmt.Errorf("lookup parent: %w", err)
		}
		rw.book = book
		if view == record.ViewBook {
			rw.book = rw.parent
		}
		return rw, nil
	}
	if rw.view == record.ViewAttendee || rw.view == record.ViewAlarm || rw.view == record.ViewExtended {
		return row{}, calerr.New(calerr.InvalidParameter, "links", "%s needs a parent", rw.view)
	}

	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE id = ? AND view = ?`,
		rw.book, record.ViewBook).Scan(&n); err != nil {
		return row{}, fmt.Errorf("lookup book: %w", err)
	}
	if n == 0 {
		return row{}, calerr.New(calerr.RecordNotFound, "links", "book %d not found", rw.book)
	}
	if rw.original != 0 {
		if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE id = ? AND view = ?`,
			rw.original, record.ViewEvent).Scan(&n); err != nil {
			return row{}, fmt.Errorf("lookup original event: %w", err)
		}
		if n == 0 {
			return row{}, calerr.New(calerr.RecordNotFound, "links", "original event %d not found", rw.original)
		}
	}
	return rw, nil
}

// insertChildren stores the child lists of src under parent (the record
// being written, keyed rw.id) and records their presence on parent.
func (s *Store) insertChildren(ctx context.Context, t *txn, src, parent record.Record, rw row) error {
	var alarms []*record.Alarm
	var attendees []*record.Attendee
	var extended []*record.Extended
	var exceptions []*record.Event
	switch v := src.(type) {
	case *record.Book:
		extended = v.Extended
	case *record.Event:
		alarms, attendees, extended, exceptions = v.Alarms, v.Attendees, v.Extended, v.Exceptions
	case *record.Todo:
		alarms, attendees, extended = v.Alarms, v.Attendees, v.Extended
	default:
		return nil
	}

	for _, a := range alarms {
		a.ParentID = rw.id
		if _, err := s.insert(ctx, t, a); err != nil {
			return err
		}
	}
	for _, a := range attendees {
		a.ParentID = rw.id
		if _, err := s.insert(ctx, t, a); err != nil {
			return err
		}
	}
	for _, x := range extended {
		x.RecordID = rw.id
		x.RecordType = int32(record.TypeOf(parent))
		if _, err := s.insert(ctx, t, x); err != nil {
			return err
		}
	}
	for _, e := range exceptions {
		e.OriginalEventID = rw.id
		e.BookID = rw.book
		if _, err := s.insert(ctx, t, e); err != nil {
			return err
		}
	}

	flag := func(n int) int32 {
		if n > 0 {
			return 1
		}
		return 0
	}
	switch v := parent.(type) {
	case *record.Event:
		v.HasAlarm, v.HasAttendee = flag(len(alarms)), flag(len(attendees))
	case *record.Todo:
		v.HasAlarm, v.HasAttendee = flag(len(alarms)), flag(len(attendees))
	}
	return nil
}

// write stores the document and blob of r and re-materializes its
// instances. The row's links and changed version are refreshed.
func (t *txn) write(ctx context.Context, r record.Record, rw row) error {
	doc, err := marshalDocument(r)
	if err != nil {
		return err
	}
	blob, err := marshalBlob(r)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE records
		SET book_id = ?, parent_id = ?, original_id = ?, changed_ver = ?, data = ?, blob = ?
		WHERE id = ?
	`, rw.book, rw.parent, rw.original, t.ver, doc, blob, rw.id)
	if err != nil {
		return fmt.Errorf("write row %d: %w", rw.id, err)
	}
	t.touched[rw.view] = true

	if e, ok := r.(*record.Event); ok {
		return t.materialize(ctx, e)
	}
	return nil
}

// row reads the bookkeeping columns of one record.
func (t *txn) row(ctx context.Context, view string, id int32) (row, error) {
	rw := row{id: id, view: view}
	err := t.tx.QueryRowContext(ctx, `
		SELECT book_id, parent_id, original_id, created_ver FROM records WHERE view = ? AND id = ?
	`, view, id).Scan(&rw.book, &rw.parent, &rw.original, &rw.createdVer)
	if errors.Is(err, sql.ErrNoRows) {
		return row{}, calerr.New(calerr.RecordNotFound, "lookup", "%s record %d not found", view, id)
	}
	if err != nil {
		return row{}, fmt.Errorf("lookup %s %d: %w", view, id, err)
	}
	return rw, nil
}

// load decodes the stored record, without children.
func (t *txn) load(ctx context.Context, view string, id int32) (record.Record, error) {
	var blob []byte
	err := t.tx.QueryRowContext(ctx, `SELECT blob FROM records WHERE view = ? AND id = ?`, view, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, calerr.New(calerr.RecordNotFound, "lookup", "%s record %d not found", view, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s %d: %w", view, id, err)
	}
	return unmarshalBlob(blob)
}

// dependents lists the rows owned by rw: children, exceptions and, for a
// book, every record in it.
func (t *txn) dependents(ctx context.Context, rw row) ([]row, error) {
	var rows *sql.Rows
	var err error
	if rw.view == record.ViewBook {
		rows, err = t.tx.QueryContext(ctx, `
			SELECT id, view, book_id, parent_id, original_id, created_ver FROM records
			WHERE book_id = ? AND id != ? AND parent_id = 0 AND original_id = 0
			   OR parent_id = ?
			ORDER BY id ASC
		`, rw.id, rw.id, rw.id)
	} else {
		rows, err = t.tx.QueryContext(ctx, `
			SELECT id, view, book_id, parent_id, original_id, created_ver FROM records
			WHERE parent_id = ? OR original_id = ?
			ORDER BY id ASC
		`, rw.id, rw.id)
	}
	if err != nil {
		return nil, fmt.Errorf("list dependents of %d: %w", rw.id, err)
	}
	defer rows.Close()

	out := []row{}
	for rows.Next() {
		var d row
		if err := rows.Scan(&d.id, &d.view, &d.book, &d.parent, &d.original, &d.createdVer); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependents: %w", err)
	}
	return out, nil
}

// delete removes rw and its dependents, leaving a tombstone for each.
func (t *txn) delete(ctx context.Context, rw row) error {
	deps, err := t.dependents(ctx, rw)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if err := t.delete(ctx, d); err != nil {
			return err
		}
	}

	if _, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tombstones (id, view, book_id, original_id, created_ver, deleted_ver)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rw.id, rw.view, rw.book, rw.original, rw.createdVer, t.ver); err != nil {
		return fmt.Errorf("tombstone %d: %w", rw.id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rw.id); err != nil {
		return fmt.Errorf("delete %d: %w", rw.id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, rw.id); err != nil {
		return fmt.Errorf("delete instances of %d: %w", rw.id, err)
	}
	t.touched[rw.view] = true
	return nil
}

// deleteChildren removes the child rows of rw, and its exceptions if asked
// to.
func (t *txn) deleteChildren(ctx context.Context, rw row, exceptions bool) error {
	deps, err := t.dependents(ctx, rw)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if d.parent != rw.id && !exceptions {
			continue
		}
		if err := t.delete(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
