package record

import (
	"database/sql"

	"github.com/roach88/calstore/internal/wire"
)

// Book properties.
const (
	BookID          = groupBook<<24 | dInt | 0
	BookUID         = groupBook<<24 | dStr | 1
	BookName        = groupBook<<24 | dStr | 2
	BookDescription = groupBook<<24 | dStr | 3
	BookColor       = groupBook<<24 | dStr | 4
	BookLocation    = groupBook<<24 | dStr | 5
	BookVisibility  = groupBook<<24 | dInt | 6
	BookSyncEvent   = groupBook<<24 | dInt | 7
	BookAccountID   = groupBook<<24 | dInt | 8
	BookStoreType   = groupBook<<24 | dInt | 9
	BookMode        = groupBook<<24 | dInt | 10
	BookSyncData1   = groupBook<<24 | dStr | 11
	BookSyncData2   = groupBook<<24 | dStr | 12
	BookExtended    = groupBook<<24 | dRecord | 13
)

// Book is a named calendar container. It owns events, todos and timezones
// and is the unit of write permission.
type Book struct {
	Envelope
	ID          int32
	UID         sql.NullString
	Name        sql.NullString
	Description sql.NullString
	Color       sql.NullString
	Location    sql.NullString
	Visibility  int32
	SyncEvent   int32
	AccountID   int32
	StoreType   int32
	Mode        int32
	SyncData1   sql.NullString
	SyncData2   sql.NullString

	Extended []*Extended
}

// NewBook returns an empty book record.
func NewBook() *Book {
	return &Book{Envelope: Envelope{Type: TypeBook, ViewURI: ViewBook}}
}

func (*Book) defaultType() Type { return TypeBook }

var bookProperties = []property{
	prop(BookID, "id", func(b *Book) any { return &b.ID }),
	prop(BookUID, "uid", func(b *Book) any { return &b.UID }),
	prop(BookName, "name", func(b *Book) any { return &b.Name }),
	prop(BookDescription, "description", func(b *Book) any { return &b.Description }),
	prop(BookColor, "color", func(b *Book) any { return &b.Color }),
	prop(BookLocation, "location", func(b *Book) any { return &b.Location }),
	prop(BookVisibility, "visibility", func(b *Book) any { return &b.Visibility }),
	prop(BookSyncEvent, "sync_event", func(b *Book) any { return &b.SyncEvent }),
	prop(BookAccountID, "account_id", func(b *Book) any { return &b.AccountID }),
	prop(BookStoreType, "store_type", func(b *Book) any { return &b.StoreType }),
	prop(BookMode, "mode", func(b *Book) any { return &b.Mode }),
	prop(BookSyncData1, "sync_data1", func(b *Book) any { return &b.SyncData1 }),
	prop(BookSyncData2, "sync_data2", func(b *Book) any { return &b.SyncData2 }),
}

func bookChildren(s wire.Stream, r Record) {
	childList(s, &r.(*Book).Extended)
}
