package memory

import (
	"testing"

	"github.com/prysmaticlabs/geth-sharding/shared/testutil/assert"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/require"
)

func TestStore_PutGetHasDelete(t *testing.T) {
	s := NewStore()
	defer func() {
		require.NoError(t, s.Close())
	}()

	v, err := s.Get([]byte("b"), []byte("k"))
	require.NoError(t, err)
	assert.IsNil(t, v)

	require.NoError(t, s.Put([]byte("b"), []byte("k"), []byte("v")))
	v, err = s.Get([]byte("b"), []byte("k"))
	require.NoError(t, err)
	assert.DeepEqual(t, []byte("v"), v)

	has, err := s.Has([]byte("b"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, true, has)

	require.NoError(t, s.Delete([]byte("b"), []byte("k")))
	has, err = s.Has([]byte("b"), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, false, has)
}

func TestStore_BucketsDoNotCollide(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put([]byte("ab"), []byte("c"), []byte("first")))
	require.NoError(t, s.Put([]byte("a"), []byte("bc"), []byte("second")))

	v, err := s.Get([]byte("ab"), []byte("c"))
	require.NoError(t, err)
	assert.DeepEqual(t, []byte("first"), v)
	v, err = s.Get([]byte("a"), []byte("bc"))
	require.NoError(t, err)
	assert.DeepEqual(t, []byte("second"), v)
}
