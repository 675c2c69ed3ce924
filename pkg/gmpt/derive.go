package gmpt

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/TKONIY/gmpt/pkg/crypto/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/sync/errgroup"
)

// deriveChunkMin is the minimal number of list items encoded by a single
// goroutine.
const deriveChunkMin = 64

// DeriveListInput returns the input for a transaction or receipt trie of
// list: item i is stored under the RLP encoding of i. Items are encoded in
// parallel chunks, the result uses RangeLayout.
func DeriveListInput(ctx context.Context, list types.DerivableList, workers int) (*Input, error) {
	n := list.Len()
	chunks := max(1, min(workers, n/deriveChunkMin))
	parts := make([]*Input, chunks)

	g, gctx := errgroup.WithContext(ctx)
	for c := range chunks {
		lo, hi := c*n/chunks, (c+1)*n/chunks
		g.Go(func() error {
			var (
				part     = NewInput(RangeLayout, hi-lo)
				indexBuf []byte
				valueBuf bytes.Buffer
			)
			for i := lo; i < hi; i++ {
				if i%deriveChunkMin == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				indexBuf = rlp.AppendUint64(indexBuf[:0], uint64(i))
				valueBuf.Reset()
				list.EncodeIndex(i, &valueBuf)
				part.AddRaw(indexBuf, valueBuf.Bytes())
			}
			parts[c] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeInputs(parts), nil
}

// mergeInputs concatenates RangeLayout inputs fixing up their offsets.
func mergeInputs(parts []*Input) *Input {
	if len(parts) == 1 {
		return parts[0]
	}
	var kl, vl, n int
	for _, p := range parts {
		kl += len(p.KeysHexs)
		vl += len(p.ValuesBytes)
		n += p.InsertNum
	}
	res := &Input{
		KeysHexs:          make([]byte, 0, kl),
		KeysHexsIndexs:    make([]int32, 0, 2*n),
		ValuesBytes:       make([]byte, 0, vl),
		ValuesBytesIndexs: make([]int64, 0, 2*n),
		InsertNum:         n,
		Layout:            RangeLayout,
	}
	for _, p := range parts {
		ko, vo := int32(len(res.KeysHexs)), int64(len(res.ValuesBytes))
		for _, off := range p.KeysHexsIndexs {
			res.KeysHexsIndexs = append(res.KeysHexsIndexs, off+ko)
		}
		for _, off := range p.ValuesBytesIndexs {
			res.ValuesBytesIndexs = append(res.ValuesBytesIndexs, off+vo)
		}
		res.KeysHexs = append(res.KeysHexs, p.KeysHexs...)
		res.ValuesBytes = append(res.ValuesBytes, p.ValuesBytes...)
	}
	return res
}

// StateInput returns the input for a state trie of accounts: every account
// is stored RLP-encoded under the hash of its address. Accounts are added in
// the order of addresses.
func StateInput(accounts map[common.Address]*types.StateAccount) (*Input, error) {
	in := NewInput(BoundaryLayout, len(accounts))
	for _, addr := range slices.SortedFunc(maps.Keys(accounts), func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	}) {
		enc, err := rlp.EncodeToBytes(accounts[addr])
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", addr, err)
		}
		in.AddRaw(hash.Keccak256Bytes(addr[:]), enc)
	}
	return in, nil
}

// DeriveSha returns the root of a transaction or receipt trie of list, it's
// the same value types.DeriveSha returns.
func (e *Engine) DeriveSha(ctx context.Context, list types.DerivableList, role TrieType, s Strategy) (common.Hash, error) {
	if role != TransactionTrie && role != ReceiptTrie {
		return common.Hash{}, fmt.Errorf("%w: %s can't be derived from a list", ErrInvalidTrieType, role)
	}
	if list.Len() == 0 {
		return mpt.EmptyRootHash, nil
	}
	in, err := DeriveListInput(ctx, list, e.workers)
	if err != nil {
		return common.Hash{}, err
	}
	return e.Build(ctx, s, role, in)
}

// StateRoot returns the state trie root of accounts.
func (e *Engine) StateRoot(ctx context.Context, accounts map[common.Address]*types.StateAccount, s Strategy) (common.Hash, error) {
	in, err := StateInput(accounts)
	if err != nil {
		return common.Hash{}, err
	}
	return e.Build(ctx, s, StateTrie, in)
}
