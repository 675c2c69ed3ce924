package random

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Transactions returns n unsigned transactions alternating between legacy
// and dynamic fee ones.
func Transactions(n int) types.Transactions {
	txs := make(types.Transactions, n)
	for i := range txs {
		to := Address()
		if i%2 == 0 {
			txs[i] = types.NewTx(&types.LegacyTx{
				Nonce:    uint64(i),
				GasPrice: big.NewInt(int64(Int(1, 1000))),
				Gas:      21000,
				To:       &to,
				Value:    big.NewInt(int64(i)),
				Data:     Bytes(Int(0, 100)),
				V:        big.NewInt(27),
				R:        big.NewInt(1),
				S:        big.NewInt(1),
			})
			continue
		}
		txs[i] = types.NewTx(&types.DynamicFeeTx{
			ChainID:   big.NewInt(1),
			Nonce:     uint64(i),
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(int64(Int(1, 1000))),
			Gas:       50000,
			To:        &to,
			Value:     big.NewInt(int64(i)),
			Data:      Bytes(Int(0, 100)),
			V:         big.NewInt(0),
			R:         big.NewInt(1),
			S:         big.NewInt(1),
		})
	}
	return txs
}

// Receipts returns n receipts, every third of them is typed and has no logs.
func Receipts(n int) types.Receipts {
	rs := make(types.Receipts, n)
	for i := range rs {
		rs[i] = &types.Receipt{
			Type:              types.LegacyTxType,
			Status:            types.ReceiptStatusSuccessful,
			CumulativeGasUsed: uint64(21000 * (i + 1)),
			Logs: []*types.Log{{
				Address: Address(),
				Topics:  []common.Hash{Hash()},
				Data:    Bytes(32),
			}},
		}
		if i%3 == 0 {
			rs[i].Type = types.DynamicFeeTxType
			rs[i].Logs = []*types.Log{}
		}
	}
	return rs
}

// Accounts returns n accounts with random addresses, every fifth of them
// has storage and code.
func Accounts(n int) map[common.Address]*types.StateAccount {
	res := make(map[common.Address]*types.StateAccount, n)
	for i := 0; len(res) < n; i++ {
		acc := &types.StateAccount{
			Nonce:    uint64(i),
			Balance:  uint256.NewInt(uint64(Int(0, 1<<30))),
			Root:     types.EmptyRootHash,
			CodeHash: types.EmptyCodeHash[:],
		}
		if i%5 == 0 {
			acc.Root = Hash()
			acc.CodeHash = Bytes(32)
		}
		res[Address()] = acc
	}
	return res
}
