package value

import (
	"context"
	"testing"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestRun(t *testing.T) {
	params := cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(3)})
	n, err := node.New("v", Run, node.WithParams(params))
	require.NoError(t, err)

	res, err := n.Invoke(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, res.Value().RawEquals(params))
}

func TestRegister(t *testing.T) {
	reg := registry.New()
	reg.RegisterModules(&Module{})

	_, ok := reg.Lookup("value")
	assert.True(t, ok)
}
