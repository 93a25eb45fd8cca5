package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/calstore/internal/access"
	"github.com/roach88/calstore/internal/calerr"
)

// DefaultUID is the peer uid of steps that name none.
const DefaultUID uint32 = 1000

// Scenario defines a scripted client session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Access is the daemon's access policy. When nil, uid 1000 may read and
	// write and everyone else may only read.
	Access *AccessSpec `yaml:"access,omitempty"`

	// Setup calls run before the flow, untraced. Each must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the traced session.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions"`
}

// AccessSpec is an access policy in config notation.
type AccessSpec struct {
	Default string            `yaml:"default"`
	Users   map[string]string `yaml:"users,omitempty"`
	Groups  map[string]string `yaml:"groups,omitempty"`
}

// Step is one RPC.
type Step struct {
	// Call is the RPC method name, e.g. "insert_record".
	Call string `yaml:"call"`

	// UID is the calling peer's uid; DefaultUID when nil.
	UID *uint32 `yaml:"uid,omitempty"`

	// As binds the returned id to an alias for later "$alias" args.
	As string `yaml:"as,omitempty"`

	// Args are the call arguments. Which keys apply depends on Call.
	Args map[string]any `yaml:"args"`

	// Expect checks the outcome. Without it a step must return NONE.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Status is the expected status name, e.g. "NONE" or "PERMISSION_DENIED".
	Status string `yaml:"status"`

	// Result is matched against the step's result as a subset.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Call is the method name (trace_contains, trace_count).
	Call string `yaml:"call,omitempty"`

	// Status optionally narrows trace_contains to one status.
	Status string `yaml:"status,omitempty"`

	// Count is the expected number (trace_count, final_count).
	Count int `yaml:"count,omitempty"`

	// Calls is the expected call order (trace_order).
	Calls []string `yaml:"calls,omitempty"`

	// View is the view to inspect (final_state, final_count).
	View string `yaml:"view,omitempty"`

	// Where selects the record by field values (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect holds the expected field values, subset match (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertFinalCount    = "final_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.policy(); err != nil {
		return err
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step) error {
	if step.Call == "" {
		return fmt.Errorf("%s: call is required", where)
	}
	if _, ok := calls[step.Call]; !ok {
		return fmt.Errorf("%s: unsupported call %q", where, step.Call)
	}
	if step.Args == nil {
		return fmt.Errorf("%s: args is required (use empty map if no args)", where)
	}
	if step.Expect != nil {
		if _, ok := calerr.ParseCode(step.Expect.Status); !ok {
			return fmt.Errorf("%s.expect: unknown status %q", where, step.Expect.Status)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.View == "" {
			return fmt.Errorf("assertions[%d]: view is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertFinalCount:
		if a.View == "" {
			return fmt.Errorf("assertions[%d]: view is required for final_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// policy resolves the scenario's access policy.
func (s *Scenario) policy() (access.Policy, error) {
	if s.Access == nil {
		return access.Policy{
			Default: access.GrantRead,
			Users:   map[uint32]access.Grant{DefaultUID: access.GrantReadWrite},
		}, nil
	}
	policy, err := access.ParsePolicy(s.Access.Default, s.Access.Users, s.Access.Groups)
	if err != nil {
		return access.Policy{}, fmt.Errorf("access.%w", err)
	}
	return policy, nil
}

func (s Step) uid() uint32 {
	if s.UID == nil {
		return DefaultUID
	}
	return *s.UID
}
