// Copyright 2026 The go-lume Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crypto

import (
	"encoding/binary"
	"errors"
	"strconv"

	b58 "github.com/mr-tron/base58/base58"
)

// PublicKeyLength is the canonical curve25519 public key size.
const PublicKeyLength = 32

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidAddress   = errors.New("invalid account address")
)

// AccountID derives the 64-bit account id from a public key: the
// little-endian interpretation of the first eight bytes of the
// sha256 digest of the key.
func AccountID(publicKey []byte) uint64 {
	digest := SHA256HashBytes(publicKey)
	return FullHashToID(digest[:])
}

// FullHashToID converts a 32-byte hash to the 64-bit id used to key
// entities derived from it.
func FullHashToID(hash []byte) uint64 {
	return binary.LittleEndian.Uint64(hash[:8])
}

// IsCanonicalPublicKey reports whether the key is in the canonical
// form accepted on the wire. Non-canonical encodings of the same
// curve point must be rejected to keep ids unambiguous.
func IsCanonicalPublicKey(publicKey []byte) bool {
	if len(publicKey) != PublicKeyLength {
		return false
	}
	return publicKey[31]&0x80 == 0
}

// EncodeAccountID renders an account id in the base58 address form
// used in logs and client-facing output.
func EncodeAccountID(id uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return "LUME" + b58.Encode(b[:])
}

// DecodeAccountID parses an address produced by EncodeAccountID.
func DecodeAccountID(address string) (uint64, error) {
	if len(address) <= 4 || address[:4] != "LUME" {
		return 0, ErrInvalidAddress
	}
	b, err := b58.Decode(address[4:])
	if err != nil || len(b) != 8 {
		return 0, ErrInvalidAddress
	}
	return binary.BigEndian.Uint64(b), nil
}

// AccountIDString renders an account id the way consensus-facing
// messages expect it, as an unsigned decimal.
func AccountIDString(id uint64) string {
	return strconv.FormatUint(id, 10)
}
