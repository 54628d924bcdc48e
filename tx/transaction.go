// Package tx implements the transaction-application state machine:
// transaction kinds keyed by (type, subtype), their appendages, and
// the two-phase apply/undo protocol mutating account balances.
package tx

import (
	"bytes"
	"encoding/binary"

	"github.com/lumechain/go-lume/crypto"
)

// Transaction is one balance-mutating operation. Wire parsing and
// signature verification live outside this core; the fields here are
// what the application state machine consumes.
type Transaction struct {
	Version         byte
	Type            Type
	SenderPublicKey []byte
	RecipientID     uint64
	Amount          int64
	Fee             int64
	Timestamp       int64

	// ReferencedTransactionFullHash chains this transaction to an
	// earlier one; carrying it costs an unconfirmed pool deposit
	// past the protocol activation timestamp.
	ReferencedTransactionFullHash []byte

	// Phased is true while the transaction is held for multi-party
	// approval; the phasing mechanism itself is outside this core.
	Phased bool

	Appendages []Appendix

	ID      uint64
	Height  int64
	BlockID uint64
}

// SenderID derives the sender account id from the public key.
func (t *Transaction) SenderID() uint64 {
	return crypto.AccountID(t.SenderPublicKey)
}

// AppendixSize is the total wire size of all appendages.
func (t *Transaction) AppendixSize() int {
	size := 0
	for _, a := range t.Appendages {
		size += a.Size()
	}
	return size
}

// MinimumFee is the fee required at the given height: the type's
// schedule plus every appendage's fee contribution.
func (t *Transaction) MinimumFee(height int64) int64 {
	fee := t.Type.BaselineFee(t)
	if height >= t.Type.NextFeeHeight() {
		fee = t.Type.NextFee(t)
	}
	total := fee.Calculate(t, nil)
	for _, a := range t.Appendages {
		total += a.BaselineFee(t).Calculate(t, a)
	}
	return total
}

// Bytes returns the canonical binary form of the transaction,
// including appendages. Multi-byte integers are little-endian.
func (t *Transaction) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(t.Type.Type())
	buf.WriteByte(t.Type.Subtype())
	buf.WriteByte(t.Version)
	binary.Write(buf, binary.LittleEndian, t.Timestamp)
	buf.Write(t.SenderPublicKey)
	binary.Write(buf, binary.LittleEndian, t.RecipientID)
	binary.Write(buf, binary.LittleEndian, t.Amount)
	binary.Write(buf, binary.LittleEndian, t.Fee)
	if t.ReferencedTransactionFullHash != nil {
		buf.Write(t.ReferencedTransactionFullHash)
	} else {
		buf.Write(make([]byte, 32))
	}
	for _, a := range t.Appendages {
		a.PutBytes(buf)
	}
	return buf.Bytes()
}

// ComputeID derives and stores the transaction id from its bytes.
func (t *Transaction) ComputeID() uint64 {
	digest := crypto.SHA256HashBytes(t.Bytes())
	t.ID = crypto.FullHashToID(digest[:])
	return t.ID
}
