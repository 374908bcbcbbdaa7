package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Golden traces pin the full wire-visible behavior of each scenario.
// Regenerate after intentional protocol changes with:
//
//	go test ./internal/harness -update
func TestScenarioGoldens(t *testing.T) {
	names := []string{
		"subscribe_insert",
		"broadcast",
		"rejects_and_ping",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			// The scenario name doubles as the golden file name.
			require.Equal(t, name, scenario.Name)

			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}
