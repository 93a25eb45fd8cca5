// Package harness runs scripted client sessions against an in-process
// calendar store daemon and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	access:
//	  default: read
//	  users: { "1000": "read,write" }
//	setup:
//	  - call: insert_record
//	    as: work
//	    args: { view: book, fields: { name: Work } }
//	flow:
//	  - call: insert_record
//	    uid: 1000
//	    as: standup
//	    args:
//	      view: event
//	      fields: { book_id: $work, summary: Standup }
//	    expect:
//	      status: NONE
//	      result: { version: 2 }
//	assertions:
//	  - type: trace_contains
//	    call: insert_record
//	    status: PERMISSION_DENIED
//	  - type: final_state
//	    view: event
//	    where: { summary: Standup }
//	    expect: { book_id: 1 }
//
// Every step is one RPC, encoded and dispatched through the server exactly
// as a socket client's would be, on behalf of the peer with the step's uid
// (1000 when omitted). "as" binds the id a call returned to an alias;
// "$alias" anywhere in later args is replaced by that id.
//
// # Assertion Types
//
//   - trace_contains: a call appears in the trace, optionally with a status
//   - trace_order: calls appear in the given order
//   - trace_count: a call appears exactly N times
//   - final_state: a stored record matching where carries the expected fields
//   - final_count: a view holds exactly N records
//
// # Deterministic Testing
//
// Each run opens a fresh store in a temporary directory with a manual clock
// and sequential UIDs, so record ids, versions and traces are identical
// across runs and can be compared against golden files.
package harness
