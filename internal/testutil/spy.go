package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/store"
)

// SpyBackend forwards every storage call to a real store and records the
// name of each call, so a test can prove a request never reached storage.
type SpyBackend struct {
	*store.Store

	mu    sync.Mutex
	calls []string
}

// NewSpyBackend wraps s.
func NewSpyBackend(s *store.Store) *SpyBackend {
	return &SpyBackend{Store: s}
}

// Calls returns the recorded call names in order.
func (b *SpyBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// Reset forgets the recorded calls.
func (b *SpyBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *SpyBackend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
}

func (b *SpyBackend) Insert(ctx context.Context, r record.Record) (int32, store.Mutation, error) {
	b.record("Insert")
	return b.Store.Insert(ctx, r)
}

func (b *SpyBackend) InsertBatch(ctx context.Context, rs []record.Record) ([]int32, store.Mutation, error) {
	b.record("InsertBatch")
	return b.Store.InsertBatch(ctx, rs)
}

func (b *SpyBackend) Update(ctx context.Context, r record.Record) (store.Mutation, error) {
	b.record("Update")
	return b.Store.Update(ctx, r)
}

func (b *SpyBackend) UpdateBatch(ctx context.Context, rs []record.Record) (store.Mutation, error) {
	b.record("UpdateBatch")
	return b.Store.UpdateBatch(ctx, rs)
}

func (b *SpyBackend) Replace(ctx context.Context, r record.Record, id int32) (store.Mutation, error) {
	b.record("Replace")
	return b.Store.Replace(ctx, r, id)
}

func (b *SpyBackend) ReplaceBatch(ctx context.Context, rs []record.Record, ids []int32) (store.Mutation, error) {
	b.record("ReplaceBatch")
	return b.Store.ReplaceBatch(ctx, rs, ids)
}

func (b *SpyBackend) Delete(ctx context.Context, view string, id int32) (store.Mutation, error) {
	b.record("Delete")
	return b.Store.Delete(ctx, view, id)
}

func (b *SpyBackend) DeleteBatch(ctx context.Context, view string, ids []int32) (store.Mutation, error) {
	b.record("DeleteBatch")
	return b.Store.DeleteBatch(ctx, view, ids)
}

func (b *SpyBackend) Get(ctx context.Context, view string, id int32) (record.Record, error) {
	b.record("Get")
	return b.Store.Get(ctx, view, id)
}

func (b *SpyBackend) GetAll(ctx context.Context, view string, offset, limit int) ([]record.Record, error) {
	b.record("GetAll")
	return b.Store.GetAll(ctx, view, offset, limit)
}

func (b *SpyBackend) Query(ctx context.Context, q *query.Query, offset, limit int) ([]record.Record, error) {
	b.record("Query")
	return b.Store.Query(ctx, q, offset, limit)
}

func (b *SpyBackend) Count(ctx context.Context, view string) (int, error) {
	b.record("Count")
	return b.Store.Count(ctx, view)
}

func (b *SpyBackend) CountQuery(ctx context.Context, q *query.Query) (int, error) {
	b.record("CountQuery")
	return b.Store.CountQuery(ctx, q)
}

func (b *SpyBackend) ChangesByVersion(ctx context.Context, view string, bookID int32, since int64) ([]*record.UpdatedInfo, int64, error) {
	b.record("ChangesByVersion")
	return b.Store.ChangesByVersion(ctx, view, bookID, since)
}

func (b *SpyBackend) ChangesExceptionByVersion(ctx context.Context, view string, originalID int32, since int64) ([]*record.UpdatedInfo, int64, error) {
	b.record("ChangesExceptionByVersion")
	return b.Store.ChangesExceptionByVersion(ctx, view, originalID, since)
}

func (b *SpyBackend) CleanAfterSync(ctx context.Context, bookID int32, since int64) error {
	b.record("CleanAfterSync")
	return b.Store.CleanAfterSync(ctx, bookID, since)
}

func (b *SpyBackend) CurrentVersion(ctx context.Context) (int64, error) {
	b.record("CurrentVersion")
	return b.Store.CurrentVersion(ctx)
}
