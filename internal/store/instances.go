package store

import (
	"context"
	"fmt"

	"github.com/roach88/calstore/internal/record"
)

// instanceViews lists the read-only views served from the instances table.
var instanceViews = map[string]bool{
	record.ViewInstanceUTime:             true,
	record.ViewInstanceLocalTime:         true,
	record.ViewInstanceUTimeExtended:     true,
	record.ViewInstanceLocalTimeExtended: true,
}

// materialize rewrites the instance rows of e. An event without a start has
// none.
func (t *txn) materialize(ctx context.Context, e *record.Event) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear instances of %d: %w", e.ID, err)
	}
	if e.Start.IsZero() {
		return nil
	}

	types := []record.Type{record.TypeInstanceUTime, record.TypeInstanceUTimeExtended}
	if e.Start.Kind == record.TimeLocal {
		types = []record.Type{record.TypeInstanceLocalTime, record.TypeInstanceLocalTimeExtended}
	}
	for _, typ := range types {
		in := instanceOf(e, typ)
		doc, err := marshalDocument(in)
		if err != nil {
			return err
		}
		blob, err := marshalBlob(in)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO instances (id, view, book_id, data, blob) VALUES (?, ?, ?, ?, ?)
		`, e.ID, in.ViewURI, e.BookID, doc, blob); err != nil {
			return fmt.Errorf("materialize %d: %w", e.ID, err)
		}
		t.touched[in.ViewURI] = true
	}
	return nil
}

func instanceOf(e *record.Event, typ record.Type) *record.Instance {
	in, _ := record.NewInstance(typ)
	in.EventID = e.ID
	in.BookID = e.BookID
	in.Start = e.Start
	in.End = e.End
	if in.End.IsZero() {
		in.End = e.Start
	}
	in.Summary = e.Summary
	in.Location = e.Location
	in.Description = e.Description
	in.BusyStatus = e.BusyStatus
	in.EventStatus = e.Status
	in.Priority = e.Priority
	in.Sensitivity = e.Sensitivity
	if e.RRule.Valid && e.RRule.String != "" {
		in.HasRRule = 1
	}
	in.Latitude = e.Latitude
	in.Longitude = e.Longitude
	in.HasAlarm = e.HasAlarm
	in.OriginalEventID = e.OriginalEventID
	in.LastModified = e.LastModified
	in.OrganizerName = e.OrganizerName
	in.Categories = e.Categories
	in.HasAttendee = e.HasAttendee
	in.SyncData1 = e.SyncData1
	return in
}
