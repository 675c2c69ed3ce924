package gmpt

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/TKONIY/gmpt/pkg/io"
	"github.com/pierrec/lz4"
)

const (
	batchMagic   = "GMPT"
	batchVersion = 1

	flagCompressed = 1 << 0

	// MaxBatchBodySize is the maximum size of uncompressed batch body.
	MaxBatchBodySize = 1 << 32
)

// Batch is an input with its trie role as it's stored in batch files.
type Batch struct {
	Role     TrieType
	Input    *Input
	Compress bool
}

var _ io.Serializable = (*Batch)(nil)

// EncodeBinary implements io.Serializable. Input is flattened, so
// ValuesHPs are stored as regular values.
func (b *Batch) EncodeBinary(w *io.BinWriter) {
	flat, err := b.Input.Flatten()
	if err != nil {
		w.Err = err
		return
	}
	body := io.NewBufBinWriter()
	body.WriteVarBytes(flat.KeysHexs)
	body.WriteOffsets32(flat.KeysHexsIndexs)
	body.WriteVarBytes(flat.ValuesBytes)
	body.WriteOffsets64(flat.ValuesBytesIndexs)
	if body.Err != nil {
		w.Err = body.Err
		return
	}
	if uint64(body.Len()) > MaxBatchBodySize {
		w.Err = fmt.Errorf("batch body is too big (%d)", body.Len())
		return
	}
	raw := body.Bytes()

	var flags byte
	if b.Compress {
		flags |= flagCompressed
	}
	w.WriteBytes([]byte(batchMagic))
	w.WriteB(batchVersion)
	w.WriteB(byte(b.Role))
	w.WriteB(flags)
	w.WriteVarUint(uint64(flat.InsertNum))
	if !b.Compress {
		w.WriteVarBytes(raw)
		return
	}
	c, err := compress(raw)
	if err != nil {
		w.Err = err
		return
	}
	w.WriteVarUint(uint64(len(raw)))
	w.WriteVarBytes(c)
}

// DecodeBinary implements io.Serializable.
func (b *Batch) DecodeBinary(r *io.BinReader) {
	var magic [len(batchMagic)]byte
	r.ReadBytes(magic[:])
	if r.Err == nil && string(magic[:]) != batchMagic {
		r.Err = errors.New("not a batch file")
		return
	}
	if v := r.ReadB(); r.Err == nil && v != batchVersion {
		r.Err = fmt.Errorf("unsupported batch version %d", v)
		return
	}
	role := TrieType(r.ReadB())
	flags := r.ReadB()
	n := r.ReadVarUint()
	if r.Err != nil {
		return
	}
	if err := role.Valid(); err != nil {
		r.Err = err
		return
	}

	var raw []byte
	if flags&flagCompressed != 0 {
		size := r.ReadVarUint()
		c := r.ReadVarBytes()
		if r.Err != nil {
			return
		}
		if size > MaxBatchBodySize {
			r.Err = fmt.Errorf("batch body is too big (%d)", size)
			return
		}
		raw, r.Err = decompress(c, int(size))
	} else {
		raw = r.ReadVarBytes(MaxBatchBodySize)
	}
	if r.Err != nil {
		return
	}

	body := io.NewBinReaderFromBuf(raw)
	in := &Input{
		KeysHexs:          body.ReadVarBytes(),
		KeysHexsIndexs:    body.ReadOffsets32(),
		ValuesBytes:       body.ReadVarBytes(),
		ValuesBytesIndexs: body.ReadOffsets64(),
		InsertNum:         int(n),
	}
	if body.Err != nil {
		r.Err = fmt.Errorf("malformed batch body: %w", body.Err)
		return
	}
	if n+1 != uint64(len(in.KeysHexsIndexs)) || n+1 != uint64(len(in.ValuesBytesIndexs)) {
		r.Err = fmt.Errorf("%w: %d items with %d/%d offsets", ErrMalformedKey, n,
			len(in.KeysHexsIndexs), len(in.ValuesBytesIndexs))
		return
	}
	b.Role = role
	b.Input = in
	b.Compress = flags&flagCompressed != 0
}

// WriteBatchFile stores the batch into the file at path.
func WriteBatchFile(path string, b *Batch) error {
	w := io.NewBufBinWriter()
	b.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	return os.WriteFile(path, w.Bytes(), 0o644)
}

// ReadBatchFile reads the batch from the file at path.
func ReadBatchFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b := new(Batch)
	r := io.NewBinReaderFromIO(bytes.NewReader(data))
	b.DecodeBinary(r)
	if r.Err != nil {
		return nil, fmt.Errorf("%s: %w", path, r.Err)
	}
	return b, nil
}

// compress compresses bytes using lz4.
func compress(source []byte) ([]byte, error) {
	dest := make([]byte, lz4.CompressBlockBound(len(source)))
	size, err := lz4.CompressBlock(source, dest, nil)
	if err != nil {
		return nil, err
	}
	return dest[:size], nil
}

// decompress decompresses bytes using lz4.
func decompress(source []byte, size int) ([]byte, error) {
	dest := make([]byte, size)
	n, err := lz4.UncompressBlock(source, dest)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("decompressed %d bytes instead of %d", n, size)
	}
	return dest, nil
}
