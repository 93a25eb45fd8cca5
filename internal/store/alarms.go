package store

import (
	"context"
	"fmt"

	"github.com/roach88/calstore/internal/record"
)

// AlarmTarget is a stored alarm and the event or todo that owns it, without
// the owner's children.
type AlarmTarget struct {
	Alarm  *record.Alarm
	Parent record.Record
}

// Alarms lists every stored alarm with its owner, in alarm id order.
func (s *Store) Alarms(ctx context.Context) ([]AlarmTarget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.blob, p.blob FROM records a
		JOIN records p ON p.id = a.parent_id
		WHERE a.view = ?
		ORDER BY a.id ASC
	`, record.ViewAlarm)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	out := []AlarmTarget{}
	for rows.Next() {
		var ab, pb []byte
		if err := rows.Scan(&ab, &pb); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		a, err := unmarshalBlob(ab)
		if err != nil {
			return nil, err
		}
		alarm, ok := a.(*record.Alarm)
		if !ok {
			return nil, fmt.Errorf("list alarms: unexpected %T", a)
		}
		p, err := unmarshalBlob(pb)
		if err != nil {
			return nil, err
		}
		out = append(out, AlarmTarget{Alarm: alarm, Parent: p})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}
	return out, nil
}
