package gmpt

import (
	"errors"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
)

var (
	// ErrMalformedKey is returned for keys with invalid offsets or nibbles.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMalformedValue is returned for values with invalid offsets.
	ErrMalformedValue = errors.New("malformed value")
	// ErrDuplicateKey is returned when the same key is inserted twice.
	ErrDuplicateKey = mpt.ErrDuplicateKey
	// ErrUnresolvedHash is returned when a key has to be put into a subtree
	// that was collapsed into a hash node.
	ErrUnresolvedHash = mpt.ErrUnresolvedHash
	// ErrDanglingValueReference is returned for keys without a value
	// reference.
	ErrDanglingValueReference = errors.New("dangling value reference")
	// ErrBuildNotFinalized is returned when the root is requested before a
	// successful commit.
	ErrBuildNotFinalized = errors.New("build is not finalized")
	// ErrAlreadyInitialized is returned by Preprocess called again with a
	// different configuration.
	ErrAlreadyInitialized = errors.New("engine is already initialized")
	// ErrNotInitialized is returned by package-level builds before
	// Preprocess.
	ErrNotInitialized = errors.New("engine is not initialized")
	// ErrInvalidTrieType is returned for unknown or unsupported trie roles.
	ErrInvalidTrieType = errors.New("invalid trie type")
	// ErrInvalidStrategy is returned for unknown build strategies.
	ErrInvalidStrategy = errors.New("invalid build strategy")
	// ErrUnknownRoot is returned by Resume for roots that are not cached.
	ErrUnknownRoot = errors.New("unknown root")
)
