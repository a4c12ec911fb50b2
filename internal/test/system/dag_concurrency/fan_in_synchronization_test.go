package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/conduit/internal/testutil"
)

// Test for: Fan-in synchronization waits for all parallel nodes.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	// --- Arrange ---
	graph := `
node "A" {
  kind = "sleeper"
}
node "B" {
  kind = "sleeper"
}
node "C" {
  kind = "sleeper"
}
node "D" {
  kind       = "sleeper"
  depends_on = ["A", "B", "C"]
}
`
	sleeper := testutil.NewMockSleeperModule(nil, 50*time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": graph}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	latestPrereqEnd := sleeper.Record("A").End
	for _, label := range []string{"B", "C"} {
		if end := sleeper.Record(label).End; end.After(latestPrereqEnd) {
			latestPrereqEnd = end
		}
	}
	d := sleeper.Record("D")
	require.NotNil(t, d)
	assert.False(t, d.Start.Before(latestPrereqEnd), "node D started before all of its predecessors were done")
}
