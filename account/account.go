package account

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"

	"github.com/lumechain/go-lume/crypto"
)

// ControlType is a behavioral flag attached to an account.
type ControlType uint8

const (
	// ControlPhasingOnly restricts the account to phased
	// transactions.
	ControlPhasingOnly ControlType = 1
)

// Account is the balance-bearing entity of the ledger. All amounts
// are in quill. Balances are mutated only through the Manager; the
// struct itself carries no persistence logic.
type Account struct {
	ID                 uint64
	Balance            int64
	UnconfirmedBalance int64
	ForgedBalance      int64
	ActiveLesseeID     uint64
	Controls           mapset.Set
}

func newAccount(id uint64) *Account {
	return &Account{ID: id, Controls: mapset.NewSet()}
}

// HasControl reports whether the control flag is set.
func (a *Account) HasControl(c ControlType) bool {
	return a.Controls.Contains(c)
}

func (a *Account) empty() bool {
	return a.Balance == 0 && a.UnconfirmedBalance == 0 && a.ForgedBalance == 0 &&
		a.ActiveLesseeID == 0 && a.Controls.Cardinality() == 0
}

func (a *Account) String() string {
	return "Account " + crypto.AccountIDString(a.ID)
}

// storedAccount is the persisted form; the control set flattens to a
// byte slice for canonical encoding.
type storedAccount struct {
	ID                 uint64  `codec:"i"`
	Balance            int64   `codec:"b"`
	UnconfirmedBalance int64   `codec:"u"`
	ForgedBalance      int64   `codec:"f"`
	ActiveLesseeID     uint64  `codec:"l"`
	Controls           []uint8 `codec:"c"`
}

func (a *Account) toStored() *storedAccount {
	s := &storedAccount{
		ID:                 a.ID,
		Balance:            a.Balance,
		UnconfirmedBalance: a.UnconfirmedBalance,
		ForgedBalance:      a.ForgedBalance,
		ActiveLesseeID:     a.ActiveLesseeID,
	}
	for _, c := range a.Controls.ToSlice() {
		s.Controls = append(s.Controls, uint8(c.(ControlType)))
	}
	return s
}

func (s *storedAccount) toAccount() *Account {
	a := newAccount(s.ID)
	a.Balance = s.Balance
	a.UnconfirmedBalance = s.UnconfirmedBalance
	a.ForgedBalance = s.ForgedBalance
	a.ActiveLesseeID = s.ActiveLesseeID
	for _, c := range s.Controls {
		a.Controls.Add(ControlType(c))
	}
	return a
}

// PublicKey records the key bound to an account id and the height at
// which it was first bound. At most one key per account, immutable
// once set.
type PublicKey struct {
	AccountID uint64 `codec:"a"`
	Key       []byte `codec:"k"`
	Height    int64  `codec:"h"`
}

// DoubleSpendError reports a violated balance invariant. It is fatal:
// it can only result from a consensus bug or a malicious block that
// escaped validation, and processing of the enclosing block must be
// aborted.
type DoubleSpendError struct {
	Reason             string
	AccountID          uint64
	Balance            int64
	UnconfirmedBalance int64
}

func (e *DoubleSpendError) Error() string {
	return fmt.Sprintf("%s account: %s confirmed: %d unconfirmed: %d",
		e.Reason, crypto.AccountIDString(e.AccountID), e.Balance, e.UnconfirmedBalance)
}
