package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shoal/internal/schema"
)

// Scenario defines a deterministic replay of client sessions against
// a fresh in-memory database.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Tables declares the schema the scenario runs against:
	// table name -> field name -> field spec.
	Tables map[string]map[string]FieldSpec `yaml:"tables"`

	// Steps is the ordered list of session actions.
	Steps []Step `yaml:"steps"`
}

// FieldSpec declares one schema field.
type FieldSpec struct {
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
}

// Step is a single session action. Exactly one of Connect, Disconnect,
// or Send must be set.
type Step struct {
	// Session names the acting session. Any string; the name becomes
	// the session id.
	Session string `yaml:"session"`

	// Connect registers the session.
	Connect bool `yaml:"connect,omitempty"`

	// Disconnect unregisters the session.
	Disconnect bool `yaml:"disconnect,omitempty"`

	// Send is a client message as a wire-shaped map, e.g.
	// {type: subscribe, requestId: r1, table: users}.
	Send map[string]any `yaml:"send,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// (typos) and structurally invalid scenarios are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and the session lifecycle:
// a session must connect before it sends, and connect/disconnect must
// alternate.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Tables) == 0 {
		return fmt.Errorf("tables is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for table, fields := range s.Tables {
		for field, spec := range fields {
			if spec.Type == "" {
				return fmt.Errorf("tables.%s.%s: type is required", table, field)
			}
			if !schema.ValidFieldType(schema.FieldType(spec.Type)) {
				return fmt.Errorf("tables.%s.%s: unknown field type %q", table, field, spec.Type)
			}
		}
	}

	connected := make(map[string]bool)
	for i, step := range s.Steps {
		if step.Session == "" {
			return fmt.Errorf("steps[%d]: session is required", i)
		}

		actions := 0
		if step.Connect {
			actions++
		}
		if step.Disconnect {
			actions++
		}
		if step.Send != nil {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("steps[%d]: exactly one of connect, disconnect, send is required", i)
		}

		switch {
		case step.Connect:
			if connected[step.Session] {
				return fmt.Errorf("steps[%d]: session %q is already connected", i, step.Session)
			}
			connected[step.Session] = true
		case step.Disconnect:
			if !connected[step.Session] {
				return fmt.Errorf("steps[%d]: session %q is not connected", i, step.Session)
			}
			connected[step.Session] = false
		default:
			if !connected[step.Session] {
				return fmt.Errorf("steps[%d]: session %q must connect before sending", i, step.Session)
			}
		}
	}

	return nil
}
