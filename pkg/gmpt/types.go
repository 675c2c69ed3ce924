package gmpt

import (
	"fmt"
	"strings"
)

// TrieType is the role of a trie. It determines how keys and values are
// derived from block data, but not how the trie is hashed.
type TrieType byte

// Trie roles.
const (
	StateTrie       TrieType = 0
	TransactionTrie TrieType = 1
	ReceiptTrie     TrieType = 2
)

// String implements fmt.Stringer.
func (t TrieType) String() string {
	switch t {
	case StateTrie:
		return "state"
	case TransactionTrie:
		return "transaction"
	case ReceiptTrie:
		return "receipt"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Valid checks whether t is a known role.
func (t TrieType) Valid() error {
	if t > ReceiptTrie {
		return fmt.Errorf("%w: %d", ErrInvalidTrieType, byte(t))
	}
	return nil
}

// ParseTrieType parses trie role name.
func ParseTrieType(s string) (TrieType, error) {
	switch strings.ToLower(s) {
	case "state":
		return StateTrie, nil
	case "transaction", "transactions", "tx", "txs":
		return TransactionTrie, nil
	case "receipt", "receipts":
		return ReceiptTrie, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTrieType, s)
	}
}

// Strategy is a trie building algorithm.
type Strategy byte

// Build strategies.
const (
	// TwoPhase builds the skeleton from a sorted batch and hashes it
	// bottom-up afterwards.
	TwoPhase Strategy = iota
	// OLC inserts keys concurrently with optimistic lock coupling.
	OLC
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case TwoPhase:
		return "2phase"
	case OLC:
		return "olc"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// Valid checks whether s is a known strategy.
func (s Strategy) Valid() error {
	if s > OLC {
		return fmt.Errorf("%w: %d", ErrInvalidStrategy, byte(s))
	}
	return nil
}

// ParseStrategy parses strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "2phase", "twophase", "two-phase":
		return TwoPhase, nil
	case "olc":
		return OLC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}
