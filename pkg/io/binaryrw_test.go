package io

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type badRW struct{}

func (w *badRW) Write(p []byte) (int, error) {
	return 0, errors.New("it always fails")
}

func (w *badRW) Read(p []byte) (int, error) {
	return w.Write(p)
}

func TestWriteU64LE(t *testing.T) {
	var (
		val    uint64 = 0xbadc0de15a11dead
		bin           = []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}
		bw            = NewBufBinWriter()
	)
	bw.WriteU64LE(val)
	require.NoError(t, bw.Err)
	require.Equal(t, bin, bw.Bytes())
	br := NewBinReaderFromBuf(bin)
	require.Equal(t, val, br.ReadU64LE())
	require.NoError(t, br.Err)
}

func TestWriteU32LE(t *testing.T) {
	var (
		val uint32 = 0xdeadbeef
		bin        = []byte{0xef, 0xbe, 0xad, 0xde}
		bw         = NewBufBinWriter()
	)
	bw.WriteU32LE(val)
	require.NoError(t, bw.Err)
	require.Equal(t, bin, bw.Bytes())
	br := NewBinReaderFromBuf(bin)
	require.Equal(t, val, br.ReadU32LE())
	require.NoError(t, br.Err)
}

func TestVarUint(t *testing.T) {
	for _, tc := range []struct {
		val  uint64
		size int
	}{
		{0, 1},
		{0xfc, 1},
		{0xfd, 3},
		{0xfffe, 3},
		{0xffff, 5},
		{0xfffffffe, 5},
		{0xffffffff, 9},
		{1 << 40, 9},
	} {
		bw := NewBufBinWriter()
		bw.WriteVarUint(tc.val)
		require.NoError(t, bw.Err)
		require.Equal(t, tc.size, bw.Len())
		br := NewBinReaderFromBuf(bw.Bytes())
		require.Equal(t, tc.val, br.ReadVarUint())
		require.NoError(t, br.Err)
	}
}

func TestVarBytes(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteVarBytes([]byte("nibbles"))
	bw.WriteVarBytes(nil)
	require.NoError(t, bw.Err)
	data := bw.Bytes()

	br := NewBinReaderFromBuf(data)
	require.Equal(t, []byte("nibbles"), br.ReadVarBytes())
	require.Equal(t, []byte{}, br.ReadVarBytes())
	require.NoError(t, br.Err)

	t.Run("too big", func(t *testing.T) {
		br := NewBinReaderFromBuf(data)
		require.Nil(t, br.ReadVarBytes(3))
		require.Error(t, br.Err)
	})
	t.Run("truncated", func(t *testing.T) {
		br := NewBinReaderFromBuf(data[:4])
		br.ReadVarBytes()
		require.Error(t, br.Err)
	})
}

func TestOffsets(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteOffsets32([]int32{0, 3, 7})
	bw.WriteOffsets64([]int64{0, 1 << 33})
	require.NoError(t, bw.Err)

	br := NewBinReaderFromBuf(bw.Bytes())
	require.Equal(t, []int32{0, 3, 7}, br.ReadOffsets32())
	require.Equal(t, []int64{0, 1 << 33}, br.ReadOffsets64())
	require.NoError(t, br.Err)

	br = NewBinReaderFromBuf([]byte{2, 1, 0, 0, 0})
	require.Nil(t, br.ReadOffsets32())
	require.Error(t, br.Err)
}

func TestStickyErrors(t *testing.T) {
	bw := NewBinWriterFromIO(&badRW{})
	bw.WriteU32LE(1)
	require.Error(t, bw.Err)
	bw.WriteVarBytes([]byte{1, 2, 3})
	require.Error(t, bw.Err)

	br := NewBinReaderFromIO(&badRW{})
	require.Equal(t, uint64(0), br.ReadVarUint())
	require.Error(t, br.Err)
	require.Equal(t, byte(0), br.ReadB())
}

func TestBufBinWriterDrained(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteB(1)
	require.Equal(t, []byte{1}, bw.Bytes())
	require.Nil(t, bw.Bytes())
	bw.WriteB(2)
	require.Error(t, bw.Err)
}
