package tx

import (
	"fmt"
	"math"

	"github.com/lumechain/go-lume/account"
	"github.com/lumechain/go-lume/ledger"
)

// Type defines one transaction kind: a stateless strategy object
// resolved by (type, subtype) that owns validation and the
// attachment-specific parts of apply/undo. Exactly one instance per
// kind exists per process.
type Type interface {
	Type() byte
	Subtype() byte
	Name() string
	LedgerEvent() ledger.Event

	CanHaveRecipient() bool
	MustHaveRecipient() bool
	IsPhasingSafe() bool
	IsPhasable() bool

	BaselineFee(t *Transaction) Fee
	BaselineFeeHeight() int64
	NextFee(t *Transaction) Fee
	NextFeeHeight() int64
	BackFees(t *Transaction) []int64

	ValidateAttachment(t *Transaction) error
	ApplyAttachmentUnconfirmed(m *account.Manager, t *Transaction, sender *account.Account) (bool, error)
	ApplyAttachment(m *account.Manager, t *Transaction, sender, recipient *account.Account) error
	UndoAttachmentUnconfirmed(m *account.Manager, t *Transaction, sender *account.Account) error

	IsDuplicate(t *Transaction, d *DuplicateTracker) bool
	IsBlockDuplicate(t *Transaction, d *DuplicateTracker) bool
	IsUnconfirmedDuplicate(t *Transaction, d *DuplicateTracker) bool
}

// baseType supplies the defaults shared by all transaction kinds.
type baseType struct{}

func (baseType) BaselineFee(t *Transaction) Fee { return DefaultFee }
func (baseType) BaselineFeeHeight() int64       { return 1 }
func (baseType) NextFee(t *Transaction) Fee     { return DefaultFee }
func (baseType) NextFeeHeight() int64           { return math.MaxInt64 }
func (baseType) BackFees(t *Transaction) []int64 {
	return nil
}
func (baseType) IsPhasable() bool { return true }

// Types without an attachment of their own carry no extra unconfirmed
// state; the generic fee and amount handling covers them.
func (baseType) ApplyAttachmentUnconfirmed(m *account.Manager, t *Transaction, sender *account.Account) (bool, error) {
	return true, nil
}
func (baseType) UndoAttachmentUnconfirmed(m *account.Manager, t *Transaction, sender *account.Account) error {
	return nil
}
func (baseType) IsDuplicate(t *Transaction, d *DuplicateTracker) bool {
	return false
}

// isBlockDuplicate and isDuplicate share the same tracker, but the
// block duplicate check runs first.
func (baseType) IsBlockDuplicate(t *Transaction, d *DuplicateTracker) bool {
	return false
}
func (baseType) IsUnconfirmedDuplicate(t *Transaction, d *DuplicateTracker) bool {
	return false
}

const (
	typePayment byte = 0

	subtypePaymentOrdinary byte = 0
)

// registry is the fixed (type, subtype) table, built at process
// start and append-only thereafter.
var registry = map[[2]byte]Type{
	{typePayment, subtypePaymentOrdinary}: OrdinaryPayment,
}

// FindType resolves a (type, subtype) pair. An unknown pair returns
// nil; callers treat it as a permanent validation failure, never as a
// fatal error.
func FindType(typ, subtype byte) Type {
	return registry[[2]byte{typ, subtype}]
}

// DuplicateTracker counts occurrences of type-defined keys across one
// validation scope (a block, or the unconfirmed pool) to enforce
// at-most-N rules.
type DuplicateTracker struct {
	counts map[Type]map[string]int
}

func NewDuplicateTracker() *DuplicateTracker {
	return &DuplicateTracker{counts: make(map[Type]map[string]int)}
}

// IsDuplicate counts an occurrence of key under the given type. An
// exclusive key admits a single occurrence; otherwise any number.
func (d *DuplicateTracker) IsDuplicate(typ Type, key string, exclusive bool) bool {
	maxCount := math.MaxInt32
	if exclusive {
		maxCount = 0
	}
	return d.IsDuplicateWithMax(typ, key, maxCount)
}

// IsDuplicateWithMax admits exactly maxCount occurrences of the key
// and rejects every one after that. A maxCount of zero is exclusive:
// the first occurrence is admitted, repeats never are.
func (d *DuplicateTracker) IsDuplicateWithMax(typ Type, key string, maxCount int) bool {
	typeCounts, ok := d.counts[typ]
	if !ok {
		typeCounts = make(map[string]int)
		d.counts[typ] = typeCounts
	}
	current, ok := typeCounts[key]
	if !ok {
		if maxCount > 0 {
			typeCounts[key] = 1
		} else {
			typeCounts[key] = 0
		}
		return false
	}
	if current == 0 {
		return true
	}
	if current < maxCount {
		typeCounts[key] = current + 1
		return false
	}
	return true
}

func typeString(t Type) string {
	return fmt.Sprintf("%s type: %d, subtype: %d", t.Name(), t.Type(), t.Subtype())
}
