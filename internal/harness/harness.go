package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/rpc"
	"github.com/roach88/calstore/internal/server"
	"github.com/roach88/calstore/internal/store"
	"github.com/roach88/calstore/internal/testutil"
)

// Harness is the test execution engine. It owns one store and one server
// for the length of a scenario.
type Harness struct {
	store   *store.Store
	server  *server.Server
	clock   *testutil.ManualClock
	aliases map[string]int32
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and a server over it
// 2. Execute setup steps, each of which must succeed
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	policy, err := scenario.policy()
	if err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock(testutil.Epoch)
	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithUIDFunc(testutil.UIDs("uid")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		server: server.New(st, access.NewGate(policy, st),
			server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
		clock:   clock,
		aliases: make(map[string]int32),
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
		if ev.Status != calerr.None.String() {
			return nil, fmt.Errorf("setup[%d] %s failed with %s", i, step.Call, ev.Status)
		}
	}

	for i, step := range scenario.Flow {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
		result.AddTrace(ev)
		checkExpect(result, i, step, ev)
	}

	for _, msg := range evaluateAssertions(ctx, st, result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	for k, v := range h.aliases {
		result.Aliases[k] = v
	}
	return result, nil
}

// execute dispatches one step through the server's full request path.
// Only harness-side problems (bad args, unknown aliases) are errors; every
// server outcome is a status in the returned event.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	args, err := h.resolve(step.Args)
	if err != nil {
		return TraceEvent{}, err
	}
	argMap, _ := args.(map[string]any)

	build := calls[step.Call]
	req, resp, render, err := build(argMap)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("%s: %w", step.Call, err)
	}
	payload, err := rpc.EncodeRequest(step.Call, req)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("%s: encode: %w", step.Call, err)
	}

	uid := step.uid()
	peer := access.Peer{UID: uid, GID: uid, PID: 1}
	out := h.server.Dispatch(ctx, peer, payload)
	callErr := rpc.DecodeResponse(out, step.Call, resp)
	h.clock.Advance(time.Minute)

	ev := TraceEvent{
		Call:   step.Call,
		UID:    uid,
		Args:   argMap,
		Status: calerr.CodeOf(callErr).String(),
	}
	if callErr == nil && render != nil {
		ev.Result = render()
	}
	if step.As != "" {
		id, ok := boundID(ev.Result)
		if !ok {
			return ev, fmt.Errorf("%s: as %q: call returned no id", step.Call, step.As)
		}
		h.aliases[step.As] = id
	}
	return ev, nil
}

// boundID picks the id an alias binds to: the single id of an insert or
// the first of a batch.
func boundID(result map[string]any) (int32, bool) {
	if id, ok := result["id"].(int32); ok {
		return id, true
	}
	if ids, ok := result["ids"].([]int32); ok && len(ids) > 0 {
		return ids[0], true
	}
	return 0, false
}

// resolve copies v, replacing "$alias" strings by their ids.
func (h *Harness) resolve(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if !strings.HasPrefix(x, "$") {
			return x, nil
		}
		id, ok := h.aliases[x[1:]]
		if !ok {
			return nil, fmt.Errorf("unknown alias %q", x)
		}
		return id, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			r, err := h.resolve(item)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			r, err := h.resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func checkExpect(result *Result, i int, step Step, ev TraceEvent) {
	want := calerr.None.String()
	if step.Expect != nil {
		want = step.Expect.Status
	}
	if ev.Status != want {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected status %s, got %s", i, step.Call, want, ev.Status))
		return
	}
	if step.Expect == nil || len(step.Expect.Result) == 0 {
		return
	}
	if !matchSubset(step.Expect.Result, ev.Result) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Call, step.Expect.Result, ev.Result))
	}
}

// matchSubset reports whether every key of want is present in got with an
// equal value, recursing into maps. Values are compared in their JSON
// form, so int and int32 (or int64) of the same number are equal.
func matchSubset(want, got any) bool {
	return subset(normalize(want), normalize(got))
}

func subset(want, got any) bool {
	wm, ok := want.(map[string]any)
	if !ok {
		return reflect.DeepEqual(want, got)
	}
	gm, ok := got.(map[string]any)
	if !ok {
		return false
	}
	for k, wv := range wm {
		gv, ok := gm[k]
		if !ok || !subset(wv, gv) {
			return false
		}
	}
	return true
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
