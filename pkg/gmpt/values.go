package gmpt

import "fmt"

// Value returns the value of the i-th item. The result references either
// ValuesBytes or ValuesHPs[i], it must not be modified.
func (in *Input) Value(i int) ([]byte, error) {
	if i < 0 || i >= in.InsertNum {
		return nil, fmt.Errorf("%w: item %d is out of range", ErrMalformedValue, i)
	}
	if i < len(in.ValuesHPs) && in.ValuesHPs[i] != nil {
		return in.ValuesHPs[i], nil
	}
	if len(in.ValuesBytesIndexs) == 0 {
		return nil, fmt.Errorf("%w: item %d", ErrDanglingValueReference, i)
	}

	var start, end int64
	switch in.Layout {
	case BoundaryLayout:
		if len(in.ValuesBytesIndexs) < in.InsertNum+1 {
			return nil, fmt.Errorf("%w: %d offsets for %d values", ErrMalformedValue, len(in.ValuesBytesIndexs), in.InsertNum)
		}
		if last := in.ValuesBytesIndexs[in.InsertNum]; last != int64(len(in.ValuesBytes)) {
			return nil, fmt.Errorf("%w: last offset %d doesn't match %d value bytes", ErrMalformedValue, last, len(in.ValuesBytes))
		}
		start, end = in.ValuesBytesIndexs[i], in.ValuesBytesIndexs[i+1]
	case RangeLayout:
		if len(in.ValuesBytesIndexs) < 2*in.InsertNum {
			return nil, fmt.Errorf("%w: %d offsets for %d values", ErrMalformedValue, len(in.ValuesBytesIndexs), in.InsertNum)
		}
		start, end = in.ValuesBytesIndexs[2*i], in.ValuesBytesIndexs[2*i+1]+1
	default:
		return nil, fmt.Errorf("%w: unknown layout %d", ErrMalformedValue, in.Layout)
	}
	if start < 0 || end < start || end > int64(len(in.ValuesBytes)) {
		return nil, fmt.Errorf("%w: value %d has invalid bounds [%d, %d)", ErrMalformedValue, i, start, end)
	}
	return in.ValuesBytes[start:end:end], nil
}
