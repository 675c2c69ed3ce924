package gmpt

import (
	"fmt"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
)

// Layout defines the meaning of offset arrays of Input.
type Layout byte

const (
	// BoundaryLayout means offset arrays hold InsertNum+1 entries, item i
	// occupies [idx[i], idx[i+1]).
	BoundaryLayout Layout = iota
	// RangeLayout means offset arrays hold 2*InsertNum entries, item i
	// occupies [idx[2i], idx[2i+1]] (inclusive end).
	RangeLayout
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case BoundaryLayout:
		return "boundary"
	case RangeLayout:
		return "range"
	default:
		return fmt.Sprintf("unknown(%d)", byte(l))
	}
}

// Input is a batch of key-value pairs in the flat form: all keys (nibbles,
// optionally terminated by 16) are concatenated into KeysHexs and all values
// into ValuesBytes, offset arrays delimit items according to Layout.
// ValuesHPs[i], if not nil, overrides the value of the i-th item. Empty
// value means the key is absent, it's only checked for duplicates.
type Input struct {
	KeysHexs          []byte
	KeysHexsIndexs    []int32
	ValuesBytes       []byte
	ValuesBytesIndexs []int64
	ValuesHPs         [][]byte
	InsertNum         int
	Layout            Layout
}

// NewInput returns an empty input with the specified layout and capacity
// for n items.
func NewInput(layout Layout, n int) *Input {
	in := &Input{Layout: layout}
	switch layout {
	case RangeLayout:
		in.KeysHexsIndexs = make([]int32, 0, 2*n)
		in.ValuesBytesIndexs = make([]int64, 0, 2*n)
	default:
		in.KeysHexsIndexs = make([]int32, 1, n+1)
		in.ValuesBytesIndexs = make([]int64, 1, n+1)
	}
	return in
}

// Add appends nibble key and value to in. in must be created with NewInput
// or be empty.
func (in *Input) Add(hexKey, value []byte) {
	if in.Layout == BoundaryLayout && len(in.KeysHexsIndexs) == 0 {
		in.KeysHexsIndexs = append(in.KeysHexsIndexs, 0)
		in.ValuesBytesIndexs = append(in.ValuesBytesIndexs, 0)
	}
	ks, vs := len(in.KeysHexs), len(in.ValuesBytes)
	in.KeysHexs = append(in.KeysHexs, hexKey...)
	in.ValuesBytes = append(in.ValuesBytes, value...)
	switch in.Layout {
	case RangeLayout:
		in.KeysHexsIndexs = append(in.KeysHexsIndexs, int32(ks), int32(len(in.KeysHexs)-1))
		in.ValuesBytesIndexs = append(in.ValuesBytesIndexs, int64(vs), int64(len(in.ValuesBytes)-1))
	default:
		in.KeysHexsIndexs = append(in.KeysHexsIndexs, int32(len(in.KeysHexs)))
		in.ValuesBytesIndexs = append(in.ValuesBytesIndexs, int64(len(in.ValuesBytes)))
	}
	if in.ValuesHPs != nil {
		in.ValuesHPs = append(in.ValuesHPs, nil)
	}
	in.InsertNum++
}

// AddRaw appends raw byte key and value to in.
func (in *Input) AddRaw(key, value []byte) {
	in.Add(mpt.KeyBytesToHex(key), value)
}

// Key returns the nibble key of the i-th item as is.
func (in *Input) Key(i int) ([]byte, error) {
	if in.InsertNum < 0 {
		return nil, fmt.Errorf("%w: negative InsertNum", ErrMalformedKey)
	}
	if i < 0 || i >= in.InsertNum {
		return nil, fmt.Errorf("%w: item %d is out of range", ErrMalformedKey, i)
	}
	var start, end int64
	switch in.Layout {
	case BoundaryLayout:
		if len(in.KeysHexsIndexs) < in.InsertNum+1 {
			return nil, fmt.Errorf("%w: %d offsets for %d keys", ErrMalformedKey, len(in.KeysHexsIndexs), in.InsertNum)
		}
		if last := int64(in.KeysHexsIndexs[in.InsertNum]); last != int64(len(in.KeysHexs)) {
			return nil, fmt.Errorf("%w: last offset %d doesn't match %d key bytes", ErrMalformedKey, last, len(in.KeysHexs))
		}
		start, end = int64(in.KeysHexsIndexs[i]), int64(in.KeysHexsIndexs[i+1])
	case RangeLayout:
		if len(in.KeysHexsIndexs) < 2*in.InsertNum {
			return nil, fmt.Errorf("%w: %d offsets for %d keys", ErrMalformedKey, len(in.KeysHexsIndexs), in.InsertNum)
		}
		start, end = int64(in.KeysHexsIndexs[2*i]), int64(in.KeysHexsIndexs[2*i+1])+1
	default:
		return nil, fmt.Errorf("%w: unknown layout %d", ErrMalformedKey, in.Layout)
	}
	if start < 0 || end < start || end > int64(len(in.KeysHexs)) {
		return nil, fmt.Errorf("%w: key %d has invalid bounds [%d, %d)", ErrMalformedKey, i, start, end)
	}
	return in.KeysHexs[start:end:end], nil
}

// KeyValues validates in and returns its items with keys normalized to
// nibble paths without the terminator. Unless copyData is set, keys and
// values reference in's buffers.
func (in *Input) KeyValues(copyData bool) ([]mpt.KeyValue, error) {
	if copyData {
		flat, err := in.Flatten()
		if err != nil {
			return nil, err
		}
		in = flat
	}
	if in.InsertNum < 0 {
		return nil, fmt.Errorf("%w: negative InsertNum", ErrMalformedKey)
	}
	res := make([]mpt.KeyValue, in.InsertNum)
	for i := range res {
		k, err := in.Key(i)
		if err != nil {
			return nil, err
		}
		p, err := mpt.NormalizePath(k)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %w", ErrMalformedKey, i, err)
		}
		v, err := in.Value(i)
		if err != nil {
			return nil, err
		}
		res[i] = mpt.KeyValue{Path: p, Value: v}
	}
	return res, nil
}

// Flatten returns a copy of in in BoundaryLayout with all values (including
// the ones referenced by ValuesHPs) copied into the values buffer.
func (in *Input) Flatten() (*Input, error) {
	if in.InsertNum < 0 {
		return nil, fmt.Errorf("%w: negative InsertNum", ErrMalformedKey)
	}
	var (
		keys   = make([][]byte, in.InsertNum)
		values = make([][]byte, in.InsertNum)
		kl, vl int
	)
	for i := range in.InsertNum {
		k, err := in.Key(i)
		if err != nil {
			return nil, err
		}
		v, err := in.Value(i)
		if err != nil {
			return nil, err
		}
		keys[i], values[i] = k, v
		kl += len(k)
		vl += len(v)
	}
	res := &Input{
		KeysHexs:          make([]byte, 0, kl),
		KeysHexsIndexs:    make([]int32, 1, in.InsertNum+1),
		ValuesBytes:       make([]byte, 0, vl),
		ValuesBytesIndexs: make([]int64, 1, in.InsertNum+1),
	}
	for i := range keys {
		res.Add(keys[i], values[i])
	}
	return res, nil
}
