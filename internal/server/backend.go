package server

import (
	"context"

	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/store"
)

// Backend is the storage the server serves. *store.Store implements it.
type Backend interface {
	Insert(ctx context.Context, r record.Record) (int32, store.Mutation, error)
	InsertBatch(ctx context.Context, rs []record.Record) ([]int32, store.Mutation, error)
	Update(ctx context.Context, r record.Record) (store.Mutation, error)
	UpdateBatch(ctx context.Context, rs []record.Record) (store.Mutation, error)
	Replace(ctx context.Context, r record.Record, id int32) (store.Mutation, error)
	ReplaceBatch(ctx context.Context, rs []record.Record, ids []int32) (store.Mutation, error)
	Delete(ctx context.Context, view string, id int32) (store.Mutation, error)
	DeleteBatch(ctx context.Context, view string, ids []int32) (store.Mutation, error)

	Get(ctx context.Context, view string, id int32) (record.Record, error)
	GetAll(ctx context.Context, view string, offset, limit int) ([]record.Record, error)
	Query(ctx context.Context, q *query.Query, offset, limit int) ([]record.Record, error)
	Count(ctx context.Context, view string) (int, error)
	CountQuery(ctx context.Context, q *query.Query) (int, error)

	ChangesByVersion(ctx context.Context, view string, bookID int32, since int64) ([]*record.UpdatedInfo, int64, error)
	ChangesExceptionByVersion(ctx context.Context, view string, originalID int32, since int64) ([]*record.UpdatedInfo, int64, error)
	CleanAfterSync(ctx context.Context, bookID int32, since int64) error
	CurrentVersion(ctx context.Context) (int64, error)

	BookOf(ctx context.Context, view string, id int32) (int32, error)
	BookOfKey(ctx context.Context, id int32) (int32, error)
	BookMode(ctx context.Context, id int32) (int32, error)
}

var _ Backend = (*store.Store)(nil)
