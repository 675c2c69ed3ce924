package olc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArena(t *testing.T) {
	a := getArena()
	refs := make([]ref, 0, chunkSize+10)
	for i := range chunkSize + 10 {
		r, n := a.alloc()
		n.value = []byte{byte(i)}
		refs = append(refs, r)
	}
	require.Equal(t, chunkSize+10, a.size())
	for i, r := range refs {
		require.NotZero(t, r)
		require.Equal(t, []byte{byte(i)}, a.get(r).value)
	}
	require.Panics(t, func() { a.get(0) })

	putArena(a)
	b := getArena()
	defer putArena(b)
	require.Equal(t, 0, b.size())
	require.Panics(t, func() { b.get(refs[0]) })

	r, n := b.alloc()
	require.Nil(t, n.value)
	require.Same(t, n, b.get(r))
}

func TestRetrier(t *testing.T) {
	r := newRetrier(2)
	for range 5 {
		r.wait()
	}
	require.Equal(t, 5, r.attempts)
	require.EqualValues(t, 5, r.total)
	require.NotNil(t, r.bo)

	r.reset()
	require.Equal(t, 0, r.attempts)
	require.EqualValues(t, 5, r.total)
}
