package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted agenda session.
// Scenarios seed the store, run steps through the coordinator and assert on
// the resulting state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the initial clock time (RFC 3339).
	Now string `yaml:"now"`

	// Timezone is the IANA zone dates are evaluated in. Defaults to UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Seed contains documents written before the coordinator starts.
	Seed []SeedDoc `yaml:"seed,omitempty"`

	// FailWrites lists collections whose writes are rejected by the store
	// once the coordinator is running.
	FailWrites []string `yaml:"fail_writes,omitempty"`

	// Steps run in order after the first snapshot.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedDoc is a raw document written under the actor's collection.
type SeedDoc struct {
	Collection string `yaml:"collection"`
	Key        string `yaml:"key"`
	// Data is the JSON body, written as is.
	Data string `yaml:"data"`
}

// Step is one command or clock move.
type Step struct {
	Op     string        `yaml:"op"`
	Args   StepArgs      `yaml:"args,omitempty"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// StepArgs is the union of arguments accepted by every op. Dates are
// YYYY-MM-DD strings.
type StepArgs struct {
	ID           string `yaml:"id,omitempty"`
	Label        string `yaml:"label,omitempty"`
	At           string `yaml:"at,omitempty"`
	Period       string `yaml:"period,omitempty"`
	On           string `yaml:"on,omitempty"`
	Repeat       string `yaml:"repeat,omitempty"`
	Color        string `yaml:"color,omitempty"`
	Kind         string `yaml:"kind,omitempty"`
	Amount       string `yaml:"amount,omitempty"`
	Description  string `yaml:"description,omitempty"`
	Category     string `yaml:"category,omitempty"`
	Confirmation string `yaml:"confirmation,omitempty"`
	Duration     string `yaml:"duration,omitempty"`
}

// ExpectClause specifies how a step should fail.
type ExpectClause struct {
	// Error is the expected engine error code (e.g. "VALIDATION").
	Error string `yaml:"error"`
}

// Step operations.
const (
	OpAddItem           = "add_item"
	OpToggleItem        = "toggle_item"
	OpRemoveItem        = "remove_item"
	OpSelectDate        = "select_date"
	OpAddTransaction    = "add_transaction"
	OpRemoveTransaction = "remove_transaction"
	OpClearMonth        = "clear_month"
	OpAddSpecial        = "add_special"
	OpRemoveSpecial     = "remove_special"
	OpSweep             = "sweep"
	OpAdvance           = "advance"
)

var knownOps = map[string]bool{
	OpAddItem: true, OpToggleItem: true, OpRemoveItem: true, OpSelectDate: true,
	OpAddTransaction: true, OpRemoveTransaction: true, OpClearMonth: true,
	OpAddSpecial: true, OpRemoveSpecial: true, OpSweep: true, OpAdvance: true,
}

// Assertion validates final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "agenda": labels projected on Date (one bucket when Bucket is set)
	// - "document": stored document under Collection/Key
	// - "special_dates": in-memory special-date labels
	// - "totals": current month income, expenses and balance
	// - "notification": number of notifications with Code
	// - "index": number of indexed items
	Type string `yaml:"type"`

	Date   string   `yaml:"date,omitempty"`
	Bucket string   `yaml:"bucket,omitempty"`
	Labels []string `yaml:"labels,omitempty"`
	// Done lists the labels expected to be completed on Date (agenda).
	Done []string `yaml:"done,omitempty"`

	Collection string `yaml:"collection,omitempty"`
	Key        string `yaml:"key,omitempty"`
	// Exists defaults to true for document assertions.
	Exists *bool `yaml:"exists,omitempty"`

	// Count is an entry count (document, notification, index).
	Count *int `yaml:"count,omitempty"`

	Income   string `yaml:"income,omitempty"`
	Expenses string `yaml:"expenses,omitempty"`
	Balance  string `yaml:"balance,omitempty"`

	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertAgenda       = "agenda"
	AssertDocument     = "document"
	AssertSpecialDates = "special_dates"
	AssertTotals       = "totals"
	AssertNotification = "notification"
	AssertIndex        = "index"
)

var collections = map[string]bool{"agenda": true, "finances": true, "meta": true}

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
	// Strict fields catch typos like "assertion:" vs "assertions:"
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
	if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
		return fmt.Errorf("now must be an RFC 3339 time: %w", err)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	if len(s.Steps) == 0 && len(s.Seed) == 0 {
		return fmt.Errorf("steps or seed is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, doc := range s.Seed {
		if !collections[doc.Collection] {
			return fmt.Errorf("seed[%d]: unknown collection %q", i, doc.Collection)
		}
		if doc.Key == "" {
			return fmt.Errorf("seed[%d]: key is required", i)
		}
		if !json.Valid([]byte(doc.Data)) {
			return fmt.Errorf("seed[%d]: data is not valid JSON", i)
		}
	}
	for i, c := range s.FailWrites {
		if !collections[c] {
			return fmt.Errorf("fail_writes[%d]: unknown collection %q", i, c)
		}
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
		if step.Op == OpAdvance {
			if _, err := time.ParseDuration(step.Args.Duration); err != nil {
				return fmt.Errorf("steps[%d]: advance needs a duration: %w", i, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAgenda:
		if a.Date == "" {
			return fmt.Errorf("assertions[%d]: date is required for agenda", index)
		}
	case AssertDocument:
		if !collections[a.Collection] {
			return fmt.Errorf("assertions[%d]: unknown collection %q", index, a.Collection)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for document", index)
		}
	case AssertSpecialDates:
	case AssertTotals:
		if a.Income == "" && a.Expenses == "" && a.Balance == "" {
			return fmt.Errorf("assertions[%d]: totals needs income, expenses or balance", index)
		}
	case AssertNotification:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for notification", index)
		}
	case AssertIndex:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for index", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
