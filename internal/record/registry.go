package record

import (
	"reflect"
	"strings"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/wire"
)

// Record is a handle to one calendar record. Every concrete record type
// embeds Envelope, which supplies Header.
type Record interface {
	Header() *Envelope
	defaultType() Type
}

// kind is the capability entry for one type tag: how to create a fresh
// record of the right view, which property table lays out its fields, and
// how to walk anything that is not a plain property (child lists, search
// values).
type kind struct {
	typ      Type
	view     string
	props    []property
	index    map[PropertyID]int
	byName   map[string]int
	new      func() Record
	children func(s wire.Stream, r Record)
	custom   func(s wire.Stream, r Record)
	keyed    bool
}

var (
	kinds     = make(map[Type]*kind)
	viewKinds = make(map[string]*kind)
)

func register(k *kind) {
	k.index = make(map[PropertyID]int, len(k.props))
	k.byName = make(map[string]int, len(k.props))
	for i, p := range k.props {
		k.index[p.ID] = i
		k.byName[p.Name] = i
	}
	k.keyed = len(k.props) > 0 && k.props[0].ID.DataType() == DataInt
	kinds[k.typ] = k
	if k.view != "" {
		viewKinds[k.view] = k
	}
}

func init() {
	register(&kind{typ: TypeBook, view: ViewBook, props: bookProperties,
		new: func() Record { return NewBook() }, children: bookChildren})
	register(&kind{typ: TypeEvent, view: ViewEvent, props: eventProperties,
		new: func() Record { return NewEvent() }, children: eventChildren})
	register(&kind{typ: TypeTodo, view: ViewTodo, props: todoProperties,
		new: func() Record { return NewTodo() }, children: todoChildren})
	register(&kind{typ: TypeTimezone, view: ViewTimezone, props: timezoneProperties,
		new: func() Record { return NewTimezone() }})
	register(&kind{typ: TypeAttendee, view: ViewAttendee, props: attendeeProperties,
		new: func() Record { return NewAttendee() }})
	register(&kind{typ: TypeAlarm, view: ViewAlarm, props: alarmProperties,
		new: func() Record { return NewAlarm() }})
	for _, v := range instanceVariants {
		v := v
		register(&kind{typ: v.typ, view: v.view, props: v.props,
			new: func() Record { return newInstance(v.typ, v.view) }})
	}
	register(&kind{typ: TypeExtended, view: ViewExtended, props: extendedProperties,
		new: func() Record { return NewExtended() }})
	register(&kind{typ: TypeUpdatedInfo, view: ViewUpdatedInfo, props: updatedInfoProperties,
		new: func() Record { return NewUpdatedInfo() }})
	register(&kind{typ: TypeSearch,
		new: func() Record { return &Search{Envelope: Envelope{Type: TypeSearch}} }, custom: searchFields})
}

func isNil(r Record) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// kindOf resolves the capability entry for r, filling in the envelope of a
// zero-value record from its Go type.
func kindOf(r Record) (*kind, error) {
	if isNil(r) {
		return nil, calerr.New(calerr.InvalidParameter, "record", "nil record")
	}
	h := r.Header()
	if h.Type == TypeInvalid {
		h.Type = r.defaultType()
	}
	k, ok := kinds[h.Type]
	if !ok {
		return nil, calerr.New(calerr.InvalidParameter, "record", "unknown record type %d", int32(h.Type))
	}
	if k.new().defaultType() != r.defaultType() {
		return nil, calerr.New(calerr.InvalidParameter, "record", "%T cannot carry type %s", r, h.Type)
	}
	if h.ViewURI == "" {
		h.ViewURI = k.view
	}
	if k.view != "" && h.ViewURI != k.view {
		return nil, calerr.New(calerr.InvalidParameter, "record", "%s record cannot carry view %q", h.Type, h.ViewURI)
	}
	return k, nil
}

func kindForView(view string) (*kind, error) {
	k, ok := viewKinds[view]
	if !ok {
		return nil, calerr.New(calerr.InvalidParameter, "record", "unknown view %q", view)
	}
	return k, nil
}

// ViewByName resolves a view URI or its short name, the URI without the
// "calstore.view." prefix.
func ViewByName(name string) (string, bool) {
	if _, ok := viewKinds[name]; ok {
		return name, true
	}
	if _, ok := viewKinds[viewPrefix+name]; ok {
		return viewPrefix + name, true
	}
	return "", false
}

// ShortViewName returns view without the "calstore.view." prefix.
func ShortViewName(view string) string { return strings.TrimPrefix(view, viewPrefix) }

const viewPrefix = "calstore.view."

// New creates an empty record for type tag t.
func New(t Type) (Record, error) {
	k, ok := kinds[t]
	if !ok {
		return nil, calerr.New(calerr.InvalidParameter, "new record", "unknown record type %d", int32(t))
	}
	return k.new(), nil
}

// NewForView creates an empty record of the type backing view.
func NewForView(view string) (Record, error) {
	k, err := kindForView(view)
	if err != nil {
		return nil, err
	}
	return k.new(), nil
}

// TypeForView returns the record type backing view.
func TypeForView(view string) (Type, error) {
	k, err := kindForView(view)
	if err != nil {
		return TypeInvalid, err
	}
	return k.typ, nil
}

// ViewForType returns the view URI of type t.
func ViewForType(t Type) (string, bool) {
	k, ok := kinds[t]
	if !ok || k.view == "" {
		return "", false
	}
	return k.view, true
}

// Properties lists the properties of view in field order.
func Properties(view string) ([]PropertyInfo, error) {
	k, err := kindForView(view)
	if err != nil {
		return nil, err
	}
	out := make([]PropertyInfo, len(k.props))
	for i, p := range k.props {
		out[i] = PropertyInfo{ID: p.ID, Name: p.Name}
	}
	return out, nil
}

// PropertyName returns the storage name of property id within view.
func PropertyName(view string, id PropertyID) (string, error) {
	k, err := kindForView(view)
	if err != nil {
		return "", err
	}
	i, ok := k.index[id]
	if !ok {
		return "", calerr.New(calerr.InvalidParameter, "property", "%s is not a property of %s", id, view)
	}
	return k.props[i].Name, nil
}

// Marshal encodes r, envelope first.
func Marshal(r Record) ([]byte, error) {
	enc := wire.NewEncoder(wire.NewBuffer(128))
	Field(enc, &r)
	if err := enc.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "marshal record", err)
	}
	return enc.W.Bytes(), nil
}

// Unmarshal decodes exactly one record from b. On any failure no record is
// returned.
func Unmarshal(b []byte) (Record, error) {
	rd := wire.NewReader(b)
	dec := wire.NewDecoder(rd)
	var r Record
	Field(dec, &r)
	if err := dec.Err(); err != nil {
		return nil, calerr.Wrap(calerr.InvalidParameter, "unmarshal record", err)
	}
	if rd.Remaining() != 0 {
		return nil, calerr.New(calerr.InvalidParameter, "unmarshal record", "%d trailing bytes", rd.Remaining())
	}
	return r, nil
}

// Field walks one record slot. Encoding writes the envelope then the
// type-specific fields. Decoding reads the envelope, creates a fresh record
// for its type tag and fills it; *r is left nil unless the whole record
// decoded.
func Field(s wire.Stream, r *Record) {
	if !s.Decoding() {
		encodeRecord(s, *r)
		return
	}
	*r = nil
	if rec := decodeRecord(s); s.Err() == nil {
		*r = rec
	}
}

func encodeRecord(s wire.Stream, r Record) {
	k, err := kindOf(r)
	if err != nil {
		s.Fail(err)
		return
	}
	h := r.Header()
	if n := len(h.PropertiesFlags); n != 0 && n != len(k.props) {
		s.Fail(calerr.New(calerr.InvalidParameter, "marshal record",
			"%d property flags for %d properties", n, len(k.props)))
		return
	}
	h.fields(s)
	k.walk(s, r)
}

func decodeRecord(s wire.Stream) Record {
	var h Envelope
	h.fields(s)
	if s.Err() != nil {
		return nil
	}
	k, ok := kinds[h.Type]
	if !ok {
		s.Fail(calerr.New(calerr.InvalidParameter, "unmarshal record", "unknown record type %d", int32(h.Type)))
		return nil
	}
	if k.view != "" && h.ViewURI != k.view {
		s.Fail(calerr.New(calerr.InvalidParameter, "unmarshal record",
			"%s record carries view %q", h.Type, h.ViewURI))
		return nil
	}
	if n := len(h.PropertiesFlags); n != 0 && n != len(k.props) {
		s.Fail(calerr.New(calerr.InvalidParameter, "unmarshal record",
			"%d property flags for %d properties", n, len(k.props)))
		return nil
	}
	r := k.new()
	*r.Header() = h
	k.walk(s, r)
	if s.Err() != nil {
		return nil
	}
	return r
}

func (k *kind) walk(s wire.Stream, r Record) {
	if k.custom != nil {
		k.custom(s, r)
		return
	}
	walkProperties(s, r, k.props)
	if k.children != nil && s.Err() == nil {
		k.children(s, r)
	}
}

// childList walks an embedded child list with the list codec. Decoded
// elements must all be of the list's element type.
func childList[T Record](s wire.Stream, list *[]T) {
	n := len(*list)
	s.Count(&n, minEnvelopeSize)
	if s.Err() != nil {
		return
	}
	if !s.Decoding() {
		for _, child := range *list {
			encodeRecord(s, child)
		}
		return
	}
	if n == 0 {
		*list = nil
		return
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		r := decodeRecord(s)
		if s.Err() != nil {
			return
		}
		child, ok := r.(T)
		if !ok {
			var zero T
			s.Fail(calerr.New(calerr.InvalidParameter, "unmarshal child list", "%s in a list of %T", r.Header().Type, zero))
			return
		}
		out = append(out, child)
	}
	*list = out
}

// Key returns the primary key of r, or 0 for records without one.
func Key(r Record) int32 {
	k, err := kindOf(r)
	if err != nil || !k.keyed {
		return 0
	}
	return k.props[0].get(r).Int
}

// SetKey assigns the primary key of r.
func SetKey(r Record, id int32) error {
	k, err := kindOf(r)
	if err != nil {
		return err
	}
	if !k.keyed {
		return calerr.New(calerr.InvalidParameter, "set key", "%s records have no key", k.typ)
	}
	return k.props[0].set(r, IntValue(id))
}

// TypeOf returns r's type tag, resolving zero-value envelopes.
func TypeOf(r Record) Type {
	if _, err := kindOf(r); err != nil {
		return TypeInvalid
	}
	return r.Header().Type
}

// ViewOf returns r's view URI, resolving zero-value envelopes.
func ViewOf(r Record) string {
	if _, err := kindOf(r); err != nil {
		return ""
	}
	return r.Header().ViewURI
}

func lookup(r Record, id PropertyID) (*kind, int, error) {
	k, err := kindOf(r)
	if err != nil {
		return nil, 0, err
	}
	i, ok := k.index[id]
	if !ok {
		return nil, 0, calerr.New(calerr.InvalidParameter, "property", "%s is not a property of %s", id, k.typ)
	}
	return k, i, nil
}

// Get reads property id of r.
func Get(r Record, id PropertyID) (Value, error) {
	k, i, err := lookup(r, id)
	if err != nil {
		return Value{}, err
	}
	return k.props[i].get(r), nil
}

// Set writes property id of r and marks it dirty.
func Set(r Record, id PropertyID, v Value) error {
	k, i, err := lookup(r, id)
	if err != nil {
		return err
	}
	if err := k.props[i].set(r, v); err != nil {
		return err
	}
	h := r.Header()
	h.setFlag(len(k.props), i, FlagDirty)
	h.PropertyFlag |= FlagDirty
	return nil
}

// IsDirty reports whether property id was changed through Set.
func IsDirty(r Record, id PropertyID) bool {
	_, i, err := lookup(r, id)
	return err == nil && r.Header().hasFlag(i, FlagDirty)
}

// DirtyProperties lists the properties changed through Set, in field order.
func DirtyProperties(r Record) []PropertyID {
	k, err := kindOf(r)
	if err != nil {
		return nil
	}
	var out []PropertyID
	for i, p := range k.props {
		if r.Header().hasFlag(i, FlagDirty) {
			out = append(out, p.ID)
		}
	}
	return out
}

// IsProjected reports whether property id was selected by a projection.
func IsProjected(r Record, id PropertyID) bool {
	_, i, err := lookup(r, id)
	return err == nil && r.Header().hasFlag(i, FlagProjection)
}

// Project keeps only the listed properties (and the key) of r, clearing the
// rest, and marks the kept ones as projected. An empty list keeps everything.
func Project(r Record, ids []PropertyID) error {
	if len(ids) == 0 {
		return nil
	}
	k, err := kindOf(r)
	if err != nil {
		return err
	}
	keep := make(map[int]bool, len(ids))
	for _, id := range ids {
		i, ok := k.index[id]
		if !ok {
			return calerr.New(calerr.InvalidParameter, "project", "%s is not a property of %s", id, k.typ)
		}
		keep[i] = true
	}
	h := r.Header()
	for i, p := range k.props {
		switch {
		case keep[i]:
			h.setFlag(len(k.props), i, FlagProjection)
		case i == 0 && k.keyed:
		default:
			p.clear(r)
		}
	}
	return nil
}

// Document returns r's properties keyed by storage name. Child lists are
// not included.
func Document(r Record) (map[string]any, error) {
	k, err := kindOf(r)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any, len(k.props))
	for _, p := range k.props {
		doc[p.Name] = p.document(r)
	}
	return doc, nil
}

// CopyProperties copies the listed properties from src to dst, which must be
// of the same type. An empty list copies every property.
func CopyProperties(dst, src Record, ids []PropertyID) error {
	k, err := kindOf(src)
	if err != nil {
		return err
	}
	if dk, err := kindOf(dst); err != nil || dk != k {
		return calerr.New(calerr.InvalidParameter, "copy properties", "%T and %T differ in type", dst, src)
	}
	if len(ids) == 0 {
		for _, p := range k.props {
			_ = p.set(dst, p.get(src))
		}
		return nil
	}
	for _, id := range ids {
		i, ok := k.index[id]
		if !ok {
			return calerr.New(calerr.InvalidParameter, "copy properties", "%s is not a property of %s", id, k.typ)
		}
		_ = k.props[i].set(dst, k.props[i].get(src))
	}
	return nil
}

// Clone returns a deep copy of r.
func Clone(r Record) (Record, error) {
	b, err := Marshal(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(b)
}
