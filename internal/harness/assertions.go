package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] uid=%d %s %v -> %s\n", event.Seq, event.UID, event.Call, event.Args, event.Status)
		}
	}
	return buf.String()
}

// evaluateAssertions runs every assertion and returns one message per
// failure.
func evaluateAssertions(ctx context.Context, st *store.Store, trace []TraceEvent, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		case AssertFinalState:
			err = assertFinalState(ctx, st, a)
		case AssertFinalCount:
			err = assertFinalCount(ctx, st, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks that the trace holds a call of the named
// method, with the given status when one is set.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Call == a.Call && (a.Status == "" || event.Status == a.Status) {
			return nil
		}
	}
	want := a.Call
	if a.Status != "" {
		want += " with status " + a.Status
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of the calls appear in
// the given order. Intervening calls are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, want := range a.Calls {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1].Call == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("calls in order: %v", a.Calls),
				Actual:   fmt.Sprintf("%s missing or out of order", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the call appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Call == a.Call {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Call),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState finds the first record of the view whose fields match
// Where and checks Expect against it, both as subsets.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	view, ok := record.ViewByName(a.View)
	if !ok {
		return fmt.Errorf("unknown view %q", a.View)
	}
	rs, err := st.GetAll(ctx, view, 0, 0)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("read %s", a.View),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}
	for _, r := range rs {
		doc, err := record.Document(r)
		if err != nil {
			return err
		}
		if len(a.Where) > 0 && !matchSubset(a.Where, doc) {
			continue
		}
		if !matchSubset(a.Expect, doc) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s where %v to have %v", a.View, a.Where, a.Expect),
				Actual:   fmt.Sprintf("%v", doc),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("record in %s where %v", a.View, a.Where),
		Actual:   "record not found",
	}
}

// assertFinalCount checks the number of records stored in the view.
func assertFinalCount(ctx context.Context, st *store.Store, a Assertion) error {
	view, ok := record.ViewByName(a.View)
	if !ok {
		return fmt.Errorf("unknown view %q", a.View)
	}
	n, err := st.Count(ctx, view)
	if err != nil {
		return fmt.Errorf("count %s: %w", a.View, err)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertFinalCount,
			Expected: fmt.Sprintf("%d records in %s", a.Count, a.View),
			Actual:   fmt.Sprintf("%d records", n),
		}
	}
	return nil
}
