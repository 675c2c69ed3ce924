package io

// Serializable defines the binary encoding/decoding interface. Errors are
// returned via BinReader/BinWriter.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}
