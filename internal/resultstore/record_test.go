package resultstore

import (
	"testing"

	"github.com/specialistvlad/conduit/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_KeepsExactType(t *testing.T) {
	res := result.MustFromGo(map[string]any{"count": 3, "tags": []string{"a", "b"}})

	b, err := EncodeRecord("node", res)
	require.NoError(t, err)
	rec, err := DecodeRecord(b)

	require.NoError(t, err)
	assert.Equal(t, "node", rec.Label)
	assert.False(t, rec.StoredAt.IsZero())
	assert.True(t, res.Equal(rec.Result))
}

func TestDecodeRecord_Invalid(t *testing.T) {
	_, err := DecodeRecord([]byte("{not json"))
	assert.ErrorContains(t, err, "failed to decode result record")
}
