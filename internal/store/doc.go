// Package store provides SQLite-backed durable storage for calendar records.
//
// Every writable view (book, event, todo, timezone, attendee, alarm,
// extended) maps to rows of one records table:
//   - data: the record's properties as a JSON document keyed by property
//     name, which filters compile against (see internal/querysql)
//   - blob: the wire-encoded record with its child lists stripped
//   - parent_id / original_id: links from children and exceptions to the
//     record that owns them
//
// # Versioning
//
// A single counter in store_version is bumped exactly once per committed
// mutating call, inside the call's transaction, and every row the call
// touches is stamped with the new value. A call that fails rolls back and
// consumes no version. Deleted rows leave a tombstone so that
// ChangesByVersion can report them until CleanAfterSync drops it.
//
// # Instances
//
// Each event with a start time is materialized into the instance table,
// once in the plain and once in the extended variant of the utime or
// localtime instance view, depending on the kind of its start. Instance
// views are read-only.
//
// # Deterministic Query Results
//
// Every list query ends in ORDER BY ... id, so results are stable across
// calls.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
