package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/calstore/internal/record"
)

// marshalDocument converts a record's properties to the JSON TEXT stored in
// records.data. Strings are NFC-normalized so they compare the way compiled
// filters expect.
func marshalDocument(r record.Record) (string, error) {
	doc, err := record.Document(r)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	for k, v := range doc {
		if s, ok := v.(string); ok {
			doc[k] = norm.NFC.String(s)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalBlob encodes r for records.blob. Child lists live in their own rows
// and per-call property flags are not persisted, so both are dropped.
func marshalBlob(r record.Record) ([]byte, error) {
	b, err := record.Marshal(bare(r))
	if err != nil {
		return nil, fmt.Errorf("marshal blob: %w", err)
	}
	return b, nil
}

func unmarshalBlob(b []byte) (record.Record, error) {
	r, err := record.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal blob: %w", err)
	}
	return r, nil
}

// bare returns a shallow copy of r without child lists and without
// property flags.
func bare(r record.Record) record.Record {
	h := record.Envelope{Type: record.TypeOf(r), ViewURI: record.ViewOf(r)}
	switch v := r.(type) {
	case *record.Book:
		c := *v
		c.Envelope, c.Extended = h, nil
		return &c
	case *record.Event:
		c := *v
		c.Envelope = h
		c.Alarms, c.Attendees, c.Exceptions, c.Extended = nil, nil, nil, nil
		return &c
	case *record.Todo:
		c := *v
		c.Envelope = h
		c.Alarms, c.Attendees, c.Extended = nil, nil, nil
		return &c
	case *record.Timezone:
		c := *v
		c.Envelope = h
		return &c
	case *record.Attendee:
		c := *v
		c.Envelope = h
		return &c
	case *record.Alarm:
		c := *v
		c.Envelope = h
		return &c
	case *record.Extended:
		c := *v
		c.Envelope = h
		return &c
	case *record.Instance:
		c := *v
		c.Envelope = h
		return &c
	}
	return r
}
