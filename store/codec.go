package store

import (
	"github.com/algorand/go-codec/codec"
)

// CodecHandle instantiates the msgpack encoders and decoders used for
// every entity persisted through this package. Canonical encoding is
// required: re-encoding an unchanged entity must produce identical
// bytes at every node.
var CodecHandle *codec.MsgpackHandle

func init() {
	CodecHandle = new(codec.MsgpackHandle)
	CodecHandle.ErrorIfNoField = true
	CodecHandle.Canonical = true
	CodecHandle.PositiveIntUnsigned = true
}

// Encode returns the canonical msgpack encoding of obj.
func Encode(obj interface{}) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, CodecHandle)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return b, nil
}

// Decode parses the canonical msgpack encoding in b into objptr.
func Decode(b []byte, objptr interface{}) error {
	dec := codec.NewDecoderBytes(b, CodecHandle)
	return dec.Decode(objptr)
}
