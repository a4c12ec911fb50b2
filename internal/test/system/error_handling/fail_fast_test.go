package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/conduit/internal/app"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/testutil"
)

// Test for: With fail-fast, no new node starts after the first failure.
func TestErrorHandling_FailFast(t *testing.T) {
	// --- Arrange ---
	injected := errors.New("boom")
	graph := `
node "broken" {
  kind = "failer"
}
node "slow" {
  kind = "sleeper"
}
node "after_slow" {
  kind       = "spy"
  depends_on = ["slow"]
}
`
	sleeper := testutil.NewMockSleeperModule(nil, 150*time.Millisecond)
	spy := &testutil.SpyModule{}
	cfg := app.Config{FailFast: true}

	// --- Act ---
	result := testutil.RunIntegrationTestWithConfig(context.Background(), t, map[string]string{"main.hcl": graph}, cfg,
		&testutil.MockFailerModule{Err: injected}, sleeper, spy)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, injected)
	assert.Contains(t, result.Err.Error(), "fail fast")

	// The running node is not interrupted, but its successor never starts.
	assert.NotNil(t, sleeper.Record("slow"))
	assert.False(t, spy.Ran("after_slow"))
	testutil.AssertNodeStatus(t, result, "slow", node.StatusDone)
	testutil.AssertNodeStatus(t, result, "after_slow", node.StatusSkipped)
}
