package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"` // "ok" or the engine error code
	ID      string `json:"id,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the coordinator state after the last step.
	Final FinalState `json:"final"`
}

// FinalState is the part of the coordinator state golden files record.
type FinalState struct {
	Selected string `json:"selected"`
	Items    int    `json:"items"`
	// Agenda holds the selected date per bucket, each entry "[ ] Label" or
	// "[x] Label".
	Agenda   map[string][]string `json:"agenda"`
	Specials []string            `json:"specials"`
	Income   string              `json:"income"`
	Expenses string              `json:"expenses"`
	Balance  string              `json:"balance"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(step int, op, outcome, id string) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Op: op, Outcome: outcome, ID: id})
}
