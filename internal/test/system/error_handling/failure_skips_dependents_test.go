package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/testutil"
)

// Test for: A failed node skips its descendants but not unrelated nodes.
func TestErrorHandling_FailureSkipsDependents(t *testing.T) {
	// --- Arrange ---
	injected := errors.New("handler failed as expected")
	graph := `
node "A" {
  kind = "failer"
}
node "B" {
  kind       = "spy"
  depends_on = ["A"]
}
node "C" {
  kind       = "spy"
  depends_on = ["B"]
}
node "independent" {
  kind = "spy"
}
`
	spy := &testutil.SpyModule{}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": graph}, &testutil.MockFailerModule{Err: injected}, spy)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, injected)

	var runErr *executor.RunError
	require.ErrorAs(t, result.Err, &runErr)
	assert.Equal(t, []string{"A"}, runErr.Failed)
	assert.ElementsMatch(t, []string{"B", "C"}, runErr.Skipped)

	assert.False(t, spy.Ran("B"), "a node depending on the failed node was executed")
	assert.False(t, spy.Ran("C"), "a transitive dependent of the failed node was executed")
	assert.True(t, spy.Ran("independent"), "an unrelated node was not executed")

	testutil.AssertNodeStatus(t, result, "A", node.StatusFailed)
	testutil.AssertNodeStatus(t, result, "B", node.StatusSkipped)
	testutil.AssertNodeStatus(t, result, "independent", node.StatusDone)
}
