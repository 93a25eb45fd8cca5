package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/rpc"
)

// call builds the request of one method from resolved args. result renders
// the decoded response for the trace.
type call func(args map[string]any) (req, resp rpc.Message, result func() map[string]any, err error)

var calls = map[string]call{
	rpc.CheckPermission:     checkPermission,
	rpc.InsertRecord:        insertRecord,
	rpc.GetRecord:           getRecord,
	rpc.UpdateRecord:        updateRecord,
	rpc.DeleteRecord:        deleteRecord,
	rpc.ReplaceRecord:       replaceRecord,
	rpc.GetAllRecords:       getAllRecords,
	rpc.GetCount:            getCount,
	rpc.InsertRecords:       insertRecords,
	rpc.DeleteRecords:       deleteRecords,
	rpc.InsertVCalendars:    insertVCalendars,
	rpc.GetChangesByVersion: getChangesByVersion,
	rpc.GetCurrentVersion:   getCurrentVersion,
	rpc.CleanAfterSync:      cleanAfterSync,
}

func checkPermission(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	var kind access.Kind
	switch s, _ := args["kind"].(string); s {
	case "read":
		kind = access.KindRead
	case "write":
		kind = access.KindWrite
	default:
		return nil, nil, nil, fmt.Errorf("kind must be read or write, got %v", args["kind"])
	}
	resp := &rpc.BoolResponse{}
	return &rpc.CheckPermissionRequest{Kind: int32(kind)}, resp, func() map[string]any {
		return map[string]any{"value": resp.Value}
	}, nil
}

func insertRecord(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	r, err := buildRecord(args, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.InsertRecordResponse{}
	return &rpc.RecordRequest{Record: r}, resp, func() map[string]any {
		return map[string]any{"id": resp.ID, "version": resp.Version}
	}, nil
}

func getRecord(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, id, err := viewAndID(args)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.RecordResponse{}
	return &rpc.KeyRequest{View: view, ID: id}, resp, func() map[string]any {
		doc, err := record.Document(resp.Record)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		return map[string]any{"id": record.Key(resp.Record), "fields": doc}
	}, nil
}

func updateRecord(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	_, id, err := viewAndID(args)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := buildRecord(args, id)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.VersionResponse{}
	return &rpc.RecordRequest{Record: r}, resp, versionResult(resp), nil
}

func deleteRecord(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, id, err := viewAndID(args)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.VersionResponse{}
	return &rpc.KeyRequest{View: view, ID: id}, resp, versionResult(resp), nil
}

func replaceRecord(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	_, id, err := viewAndID(args)
	if err != nil {
		return nil, nil, nil, err
	}
	r, err := buildRecord(args, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.VersionResponse{}
	return &rpc.ReplaceRecordRequest{Record: r, ID: id}, resp, versionResult(resp), nil
}

func getAllRecords(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, nil, nil, err
	}
	offset, err := optionalInt(args, "offset")
	if err != nil {
		return nil, nil, nil, err
	}
	limit, err := optionalInt(args, "limit")
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.ListResponse{}
	req := &rpc.GetAllRecordsRequest{View: view, Offset: int32(offset), Limit: int32(limit)}
	return req, resp, func() map[string]any {
		ids := make([]int32, 0, resp.List.Len())
		for _, r := range resp.List.Records() {
			ids = append(ids, record.Key(r))
		}
		return map[string]any{"ids": ids}
	}, nil
}

func getCount(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.CountResponse{}
	return &rpc.ViewRequest{View: view}, resp, func() map[string]any {
		return map[string]any{"count": resp.Count}
	}, nil
}

func insertRecords(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, nil, nil, err
	}
	items, ok := args["records"].([]any)
	if !ok {
		return nil, nil, nil, fmt.Errorf("records must be a list of field maps")
	}
	l := record.NewList()
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, nil, nil, fmt.Errorf("records[%d] must be a field map", i)
		}
		r, err := buildRecord(map[string]any{"view": view, "fields": fields}, 0)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		if err := l.Add(r); err != nil {
			return nil, nil, nil, err
		}
	}
	resp := &rpc.IDsResponse{}
	return &rpc.ListRequest{List: l}, resp, idsResult(resp), nil
}

func deleteRecords(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, nil, nil, err
	}
	raw, ok := args["ids"].([]any)
	if !ok {
		return nil, nil, nil, fmt.Errorf("ids must be a list")
	}
	ids := make([]int32, len(raw))
	for i, v := range raw {
		n, err := toInt64(v)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		ids[i] = int32(n)
	}
	resp := &rpc.VersionResponse{}
	return &rpc.DeleteRecordsRequest{View: view, IDs: ids}, resp, versionResult(resp), nil
}

func insertVCalendars(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	text, ok := args["text"].(string)
	if !ok {
		return nil, nil, nil, fmt.Errorf("text is required")
	}
	// YAML block scalars end lines with \n; the vCalendar grammar wants CRLF.
	if !strings.Contains(text, "\r\n") {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	resp := &rpc.IDsResponse{}
	return &rpc.VCalendarRequest{Text: text}, resp, idsResult(resp), nil
}

func getChangesByVersion(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, nil, nil, err
	}
	book, err := optionalInt(args, "book")
	if err != nil {
		return nil, nil, nil, err
	}
	since, err := optionalInt(args, "since")
	if err != nil {
		return nil, nil, nil, err
	}
	resp := &rpc.ChangesResponse{}
	req := &rpc.ChangesRequest{View: view, Scope: int32(book), Since: since}
	return req, resp, func() map[string]any {
		changes := make([]map[string]any, 0, resp.List.Len())
		for _, r := range resp.List.Records() {
			u, ok := r.(*record.UpdatedInfo)
			if !ok {
				continue
			}
			changes = append(changes, map[string]any{
				"id": u.ID, "book": u.BookID, "type": u.Type, "version": u.Version,
			})
		}
		return map[string]any{"changes": changes, "current": resp.Current}
	}, nil
}

func getCurrentVersion(map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	resp := &rpc.VersionResponse{}
	return &rpc.Empty{}, resp, versionResult(resp), nil
}

func cleanAfterSync(args map[string]any) (rpc.Message, rpc.Message, func() map[string]any, error) {
	book, err := optionalInt(args, "book")
	if err != nil {
		return nil, nil, nil, err
	}
	since, err := optionalInt(args, "since")
	if err != nil {
		return nil, nil, nil, err
	}
	return &rpc.CleanAfterSyncRequest{Book: int32(book), Since: since}, &rpc.Empty{}, nil, nil
}

func versionResult(resp *rpc.VersionResponse) func() map[string]any {
	return func() map[string]any { return map[string]any{"version": resp.Version} }
}

func idsResult(resp *rpc.IDsResponse) func() map[string]any {
	return func() map[string]any { return map[string]any{"ids": resp.IDs, "version": resp.Version} }
}

func viewArg(args map[string]any) (string, error) {
	name, _ := args["view"].(string)
	view, ok := record.ViewByName(name)
	if !ok {
		return "", fmt.Errorf("unknown view %q", name)
	}
	return view, nil
}

func viewAndID(args map[string]any) (string, int32, error) {
	view, err := viewArg(args)
	if err != nil {
		return "", 0, err
	}
	id, err := toInt64(args["id"])
	if err != nil {
		return "", 0, fmt.Errorf("id: %w", err)
	}
	return view, int32(id), nil
}

func optionalInt(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// buildRecord creates a record of args["view"] with args["fields"] set by
// property name. A non-zero id is set as the key.
func buildRecord(args map[string]any, id int32) (record.Record, error) {
	view, err := viewArg(args)
	if err != nil {
		return nil, err
	}
	r, err := record.NewForView(view)
	if err != nil {
		return nil, err
	}
	if id != 0 {
		if err := record.SetKey(r, id); err != nil {
			return nil, err
		}
	}
	fields, _ := args["fields"].(map[string]any)
	if len(fields) == 0 {
		return r, nil
	}
	props, err := record.Properties(view)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]record.PropertyID, len(props))
	for _, p := range props {
		byName[p.Name] = p.ID
	}
	for name, raw := range fields {
		pid, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%s has no property %q", record.ShortViewName(view), name)
		}
		v, err := valueFor(pid, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := record.Set(r, pid, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func valueFor(id record.PropertyID, raw any) (record.Value, error) {
	switch id.DataType() {
	case record.DataString:
		if raw == nil {
			return record.NullStringValue(), nil
		}
		return record.StringValue(fmt.Sprint(raw)), nil
	case record.DataInt:
		n, err := toInt64(raw)
		return record.IntValue(int32(n)), err
	case record.DataInt64:
		n, err := toInt64(raw)
		return record.Int64Value(n), err
	case record.DataDouble:
		switch v := raw.(type) {
		case float64:
			return record.DoubleValue(v), nil
		default:
			n, err := toInt64(raw)
			return record.DoubleValue(float64(n)), err
		}
	case record.DataTime:
		t, err := parseCalTime(raw)
		return record.TimeValue(t), err
	}
	return record.Value{}, fmt.Errorf("%s properties cannot be set from a scenario", id.DataType())
}

// parseCalTime reads an RFC 3339 instant as a UTime and a zoneless
// date-time or date as a local time.
func parseCalTime(raw any) (record.CalTime, error) {
	s, ok := raw.(string)
	if !ok {
		if t, isTime := raw.(time.Time); isTime {
			return record.UTime(t), nil
		}
		return record.CalTime{}, fmt.Errorf("time must be a string, got %T", raw)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return record.UTime(t), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return record.LocalTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return record.CalTime{}, fmt.Errorf("unparsable time %q", s)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}
