package gmpt

import (
	"testing"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/stretchr/testify/require"
)

func TestInput_Layouts(t *testing.T) {
	for _, layout := range []Layout{BoundaryLayout, RangeLayout} {
		t.Run(layout.String(), func(t *testing.T) {
			in := NewInput(layout, 3)
			in.Add([]byte{0xa, 0x1, 16}, []byte("first"))
			in.Add([]byte{0xa, 0x2}, nil)
			in.AddRaw([]byte{0xb1}, []byte("third"))
			require.Equal(t, 3, in.InsertNum)

			kvs, err := in.KeyValues(false)
			require.NoError(t, err)
			require.Equal(t, []mpt.KeyValue{
				{Path: []byte{0xa, 0x1}, Value: []byte("first")},
				{Path: []byte{0xa, 0x2}, Value: []byte{}},
				{Path: []byte{0xb, 0x1}, Value: []byte("third")},
			}, kvs)

			copied, err := in.KeyValues(true)
			require.NoError(t, err)
			require.Equal(t, kvs, copied)
			in.KeysHexs[0] = 0x5
			in.ValuesBytes[0] = 'F'
			require.Equal(t, []byte{0xa, 0x1}, copied[0].Path)
			require.Equal(t, []byte("first"), copied[0].Value)
		})
	}
}

func TestInput_RangeLayoutOffsets(t *testing.T) {
	in := NewInput(RangeLayout, 2)
	in.Add([]byte{1, 2}, []byte{7})
	in.Add(nil, []byte{8, 9})
	require.Equal(t, []int32{0, 1, 2, 1}, in.KeysHexsIndexs)
	require.Equal(t, []int64{0, 0, 1, 2}, in.ValuesBytesIndexs)

	k, err := in.Key(1)
	require.NoError(t, err)
	require.Empty(t, k)
	v, err := in.Value(1)
	require.NoError(t, err)
	require.Equal(t, []byte{8, 9}, v)
}

func TestInput_ValuesHPs(t *testing.T) {
	in := NewInput(BoundaryLayout, 2)
	in.Add([]byte{1}, []byte{1})
	in.Add([]byte{2}, []byte{2})
	borrowed := []byte("borrowed")
	in.ValuesHPs = [][]byte{nil, borrowed}

	v, err := in.Value(0)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, v)
	v, err = in.Value(1)
	require.NoError(t, err)
	require.Same(t, &borrowed[0], &v[0])

	flat, err := in.Flatten()
	require.NoError(t, err)
	require.Nil(t, flat.ValuesHPs)
	v, err = flat.Value(1)
	require.NoError(t, err)
	require.Equal(t, borrowed, v)

	t.Run("Dangling", func(t *testing.T) {
		in := &Input{
			KeysHexs:       []byte{1, 2},
			KeysHexsIndexs: []int32{0, 1, 2},
			ValuesHPs:      [][]byte{[]byte{1}},
			InsertNum:      2,
		}
		_, err := in.Value(0)
		require.NoError(t, err)
		_, err = in.Value(1)
		require.ErrorIs(t, err, ErrDanglingValueReference)
		_, err = in.KeyValues(false)
		require.ErrorIs(t, err, ErrDanglingValueReference)
	})
}

func TestInput_Malformed(t *testing.T) {
	valid := func() *Input {
		in := NewInput(BoundaryLayout, 2)
		in.Add([]byte{1, 2}, []byte{1})
		in.Add([]byte{3, 4}, []byte{2})
		return in
	}
	keyCases := map[string]func(in *Input){
		"negative count":    func(in *Input) { in.InsertNum = -1 },
		"short index":       func(in *Input) { in.KeysHexsIndexs = in.KeysHexsIndexs[:2] },
		"negative offset":   func(in *Input) { in.KeysHexsIndexs[0] = -1 },
		"decreasing":        func(in *Input) { in.KeysHexsIndexs[1] = 3; in.KeysHexsIndexs[2] = 2 },
		"beyond buffer":     func(in *Input) { in.KeysHexsIndexs[2] = 5 },
		"invalid nibble":    func(in *Input) { in.KeysHexs[1] = 17 },
		"inner terminator":  func(in *Input) { in.KeysHexs[0] = 16 },
		"unknown layout":    func(in *Input) { in.Layout = 7 },
		"more than present": func(in *Input) { in.InsertNum = 3 },
		"trailing bytes":    func(in *Input) { in.KeysHexs = append(in.KeysHexs, 5) },
		"short last offset": func(in *Input) { in.KeysHexsIndexs[2] = 3 },
	}
	for name, f := range keyCases {
		t.Run(name, func(t *testing.T) {
			in := valid()
			f(in)
			_, err := in.KeyValues(false)
			require.ErrorIs(t, err, ErrMalformedKey)
		})
	}
	valueCases := map[string]func(in *Input){
		"short index":     func(in *Input) { in.ValuesBytesIndexs = in.ValuesBytesIndexs[:2] },
		"negative offset": func(in *Input) { in.ValuesBytesIndexs[1] = -1 },
		"beyond buffer":   func(in *Input) { in.ValuesBytesIndexs[2] = 100 },
		"trailing bytes":  func(in *Input) { in.ValuesBytes = append(in.ValuesBytes, 3) },
		"short last":      func(in *Input) { in.ValuesBytesIndexs[2] = 1 },
	}
	for name, f := range valueCases {
		t.Run("value "+name, func(t *testing.T) {
			in := valid()
			f(in)
			_, err := in.KeyValues(false)
			require.ErrorIs(t, err, ErrMalformedValue)
		})
	}
	t.Run("range", func(t *testing.T) {
		in := NewInput(RangeLayout, 1)
		in.Add([]byte{1, 2}, []byte{1})
		in.KeysHexsIndexs[1] = 2
		_, err := in.KeyValues(false)
		require.ErrorIs(t, err, ErrMalformedKey)
	})
}

func TestTypes(t *testing.T) {
	for _, tt := range []TrieType{StateTrie, TransactionTrie, ReceiptTrie} {
		p, err := ParseTrieType(tt.String())
		require.NoError(t, err)
		require.Equal(t, tt, p)
		require.NoError(t, tt.Valid())
	}
	p, err := ParseTrieType("txs")
	require.NoError(t, err)
	require.Equal(t, TransactionTrie, p)
	_, err = ParseTrieType("storage")
	require.ErrorIs(t, err, ErrInvalidTrieType)
	require.ErrorIs(t, TrieType(3).Valid(), ErrInvalidTrieType)
	require.Equal(t, "unknown(3)", TrieType(3).String())

	for _, s := range []Strategy{TwoPhase, OLC} {
		p, err := ParseStrategy(s.String())
		require.NoError(t, err)
		require.Equal(t, s, p)
	}
	_, err = ParseStrategy("gpu")
	require.ErrorIs(t, err, ErrInvalidStrategy)
	require.ErrorIs(t, Strategy(2).Valid(), ErrInvalidStrategy)
}
