package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestRun_PrintsInputsInOrder(t *testing.T) {
	// Arrange
	var out bytes.Buffer
	m := &Module{Out: &out}
	n, err := node.New("p", m.Run, node.WithParams(cty.ObjectVal(map[string]cty.Value{
		"message": cty.StringVal("hello"),
	})))
	require.NoError(t, err)

	// Act
	res, err := n.Invoke(context.Background(), node.PredecessorResults{
		"b": result.MustFromGo(2),
		"a": result.String("x"),
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, result.String("hello").Equal(res))
	assert.Equal(t, "[p] hello\n      a = \"x\"\n      b = 2\n", out.String())
}

func TestRun_NoParams(t *testing.T) {
	var out bytes.Buffer
	m := &Module{Out: &out}
	n, err := node.New("p", m.Run)
	require.NoError(t, err)

	res, err := n.Invoke(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, res.IsNull())
	assert.Equal(t, "[p]\n      (no inputs)\n", out.String())
}
