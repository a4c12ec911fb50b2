package testutil

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/conduit/internal/node"
)

// AssertNodeStatus checks the rendered report in a HarnessResult for the
// final status of a node.
func AssertNodeStatus(t *testing.T, result *HarnessResult, label string, status node.Status) {
	t.Helper()

	row := regexp.MustCompile(fmt.Sprintf(`(?m)^%s\s+%s\s`, regexp.QuoteMeta(label), status))
	require.Regexp(t, row, result.Output,
		"expected node %q to be reported as %s", label, status,
	)
}
