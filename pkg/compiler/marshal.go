package compiler

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes a code object as canonical CBOR, so equal code objects
// always produce identical artifacts.
func Marshal(co *CodeObject) ([]byte, error) {
	if co == nil {
		return nil, fmt.Errorf("compiler: marshal nil code object")
	}
	return cborEncMode.Marshal(co)
}

// Unmarshal decodes an artifact produced by Marshal.
func Unmarshal(data []byte) (*CodeObject, error) {
	var co CodeObject
	if err := cbor.Unmarshal(data, &co); err != nil {
		return nil, fmt.Errorf("compiler: decode artifact: %w", err)
	}
	if co.Version != BytecodeVersion {
		return nil, fmt.Errorf("compiler: artifact version %d, want %d", co.Version, BytecodeVersion)
	}
	return &co, nil
}
