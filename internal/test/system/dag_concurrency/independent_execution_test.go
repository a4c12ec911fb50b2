package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/conduit/internal/app"
	"github.com/specialistvlad/conduit/internal/testutil"
)

const independentGraph = `
node "A" {
  kind = "sleeper"
}
node "B" {
  kind = "sleeper"
}
node "C" {
  kind = "sleeper"
}
`

// Test for: Independent nodes run in parallel.
func TestDagConcurrency_IndependentExecution(t *testing.T) {
	// --- Arrange ---
	completions := make(chan string, 3)
	sleeper := testutil.NewMockSleeperModule(completions, 200*time.Millisecond)

	// --- Act ---
	start := time.Now()
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": independentGraph}, sleeper)
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Len(t, completions, 3)
	assert.Less(t, elapsed, 550*time.Millisecond, "independent nodes appear to have run one after another")
}

// Test for: A concurrency limit of one serializes independent nodes.
func TestDagConcurrency_ConcurrencyLimit(t *testing.T) {
	// --- Arrange ---
	sleeper := testutil.NewMockSleeperModule(nil, 30*time.Millisecond)
	cfg := app.Config{Concurrency: 1}

	// --- Act ---
	result := testutil.RunIntegrationTestWithConfig(context.Background(), t, map[string]string{"main.hcl": independentGraph}, cfg, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	labels := []string{"A", "B", "C"}
	for i, a := range labels {
		for _, b := range labels[i+1:] {
			ra, rb := sleeper.Record(a), sleeper.Record(b)
			overlap := ra.Start.Before(rb.End) && rb.Start.Before(ra.End)
			assert.False(t, overlap, "nodes %s and %s ran at the same time", a, b)
		}
	}
}
