package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioFile drops YAML into a temp dir and returns its path.
func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenarioFile(t, `
name: basic
description: "Connect, subscribe, disconnect"
tables:
  users:
    name: { type: string, required: true }
    email: { type: string }
steps:
  - session: alice
    connect: true
  - session: alice
    send: { type: subscribe, requestId: r1, table: users }
  - session: alice
    disconnect: true
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "basic", scenario.Name)
	assert.Equal(t, "Connect, subscribe, disconnect", scenario.Description)

	require.Contains(t, scenario.Tables, "users")
	users := scenario.Tables["users"]
	assert.Equal(t, FieldSpec{Type: "string", Required: true}, users["name"])
	assert.Equal(t, FieldSpec{Type: "string"}, users["email"])

	require.Len(t, scenario.Steps, 3)
	assert.True(t, scenario.Steps[0].Connect)
	assert.Equal(t, "subscribe", scenario.Steps[1].Send["type"])
	assert.True(t, scenario.Steps[2].Disconnect)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenarioRejectsUnknownKeys(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
description: "Misspelled steps key"
tables:
  users:
    name: { type: string }
stepz:
  - session: alice
    connect: true
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestLoadScenarioInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing name",
			yaml: `
description: "No name"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    connect: true
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: no_description
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    connect: true
`,
			wantErr: "description is required",
		},
		{
			name: "missing tables",
			yaml: `
name: no_tables
description: "No tables declared"
steps:
  - session: alice
    connect: true
`,
			wantErr: "tables is required",
		},
		{
			name: "missing steps",
			yaml: `
name: no_steps
description: "No steps declared"
tables:
  users:
    name: { type: string }
`,
			wantErr: "steps list is required",
		},
		{
			name: "field without type",
			yaml: `
name: untyped_field
description: "Field spec without a type"
tables:
  users:
    name: { required: true }
steps:
  - session: alice
    connect: true
`,
			wantErr: "tables.users.name: type is required",
		},
		{
			name: "unknown field type",
			yaml: `
name: bad_field_type
description: "Field spec with a made-up type"
tables:
  users:
    name: { type: varchar }
steps:
  - session: alice
    connect: true
`,
			wantErr: `tables.users.name: unknown field type "varchar"`,
		},
		{
			name: "step without session",
			yaml: `
name: no_session
description: "Step missing its session"
tables:
  users:
    name: { type: string }
steps:
  - connect: true
`,
			wantErr: "steps[0]: session is required",
		},
		{
			name: "step with two actions",
			yaml: `
name: two_actions
description: "Connect and disconnect in one step"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    connect: true
    disconnect: true
`,
			wantErr: "steps[0]: exactly one of connect, disconnect, send",
		},
		{
			name: "step with no action",
			yaml: `
name: no_action
description: "Step naming a session but doing nothing"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
`,
			wantErr: "steps[0]: exactly one of connect, disconnect, send",
		},
		{
			name: "send before connect",
			yaml: `
name: send_first
description: "Send without connecting"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    send: { type: subscribe, requestId: r1, table: users }
`,
			wantErr: `steps[0]: session "alice" must connect before sending`,
		},
		{
			name: "double connect",
			yaml: `
name: double_connect
description: "Connecting twice without disconnecting"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    connect: true
  - session: alice
    connect: true
`,
			wantErr: `steps[1]: session "alice" is already connected`,
		},
		{
			name: "disconnect before connect",
			yaml: `
name: early_disconnect
description: "Disconnecting a session that never connected"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    disconnect: true
`,
			wantErr: `steps[0]: session "alice" is not connected`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenarioFile(t, tt.yaml)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioAllowsReconnect(t *testing.T) {
	path := writeScenarioFile(t, `
name: reconnect
description: "A session may reconnect after disconnecting"
tables:
  users:
    name: { type: string }
steps:
  - session: alice
    connect: true
  - session: alice
    disconnect: true
  - session: alice
    connect: true
  - session: alice
    disconnect: true
`)

	_, err := LoadScenario(path)
	require.NoError(t, err)
}
