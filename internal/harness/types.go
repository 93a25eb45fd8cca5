package harness

// TraceEvent records one dispatched call and its outcome.
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Call   string         `json:"call"`
	UID    uint32         `json:"uid"`
	Args   map[string]any `json:"args,omitempty"`
	Status string         `json:"status"`
	Result map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the flow calls in order. Setup calls are not traced.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Aliases maps each "as" name to the id it was bound to.
	Aliases map[string]int32 `json:"aliases,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Aliases: make(map[string]int32),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
