package account

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumechain/go-lume/chain"
	"github.com/lumechain/go-lume/crypto"
	"github.com/lumechain/go-lume/db/memdb"
	"github.com/lumechain/go-lume/ledger"
)

func newTestManager(t *testing.T) (*Manager, *chain.Manager) {
	database := memdb.New()
	c := chain.NewManager()
	l, err := ledger.NewLedger(database, c, ledger.Policy{LogAll: true, LogUnconfirmed: true})
	require.Nil(t, err)
	m, err := NewManager(&ManagerContext{
		Database: database,
		Chain:    c,
		Ledger:   l,
	})
	require.Nil(t, err)
	c.SetTip(1, 1001, 1)
	return m, c
}

func testPublicKey(b byte) []byte {
	k := make([]byte, crypto.PublicKeyLength)
	k[0] = b
	return k
}

func credit(t *testing.T, m *Manager, acc *Account, amount int64) {
	require.Nil(t, m.AddToBalanceAndUnconfirmedBalance(acc, ledger.EventBlockGenerated, 1, amount, 0))
}

func TestAddOrGetAccount(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.AddOrGetAccount(0)
	assert.True(t, errors.Is(err, ErrInvalidAccountID))

	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	assert.Equal(t, uint64(42), acc.ID)
	assert.Equal(t, int64(0), acc.Balance)
	assert.Equal(t, int64(0), acc.UnconfirmedBalance)

	// An account that never held funds or a key reads as absent.
	missing, err := m.Get(7)
	require.Nil(t, err)
	assert.Nil(t, missing)
}

func TestBalanceInvariant(t *testing.T) {
	m, _ := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	var dse *DoubleSpendError

	err = m.AddToBalance(acc, ledger.EventOrdinaryPayment, 2, -150, 0)
	require.True(t, errors.As(err, &dse))
	assert.Equal(t, uint64(42), dse.AccountID)

	acc, err = m.Get(42)
	require.Nil(t, err)
	err = m.AddToUnconfirmedBalance(acc, ledger.EventOrdinaryPayment, 3, -150, 0)
	assert.True(t, errors.As(err, &dse))

	// The unconfirmed balance may never exceed the confirmed one.
	acc, err = m.Get(42)
	require.Nil(t, err)
	err = m.AddToUnconfirmedBalance(acc, ledger.EventOrdinaryPayment, 4, 50, 0)
	assert.True(t, errors.As(err, &dse))
}

func TestBalanceOverflowLeavesAccountUntouched(t *testing.T) {
	m, _ := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	acc, err = m.Get(42)
	require.Nil(t, err)

	err = m.AddToBalance(acc, ledger.EventOrdinaryPayment, 2, math.MaxInt64, 0)
	require.NotNil(t, err)
	assert.Equal(t, int64(100), acc.Balance)

	err = m.AddToUnconfirmedBalance(acc, ledger.EventOrdinaryPayment, 3, math.MaxInt64, 0)
	require.NotNil(t, err)
	assert.Equal(t, int64(100), acc.UnconfirmedBalance)

	err = m.AddToForgedBalance(acc, math.MaxInt64)
	require.Nil(t, err)
	err = m.AddToForgedBalance(acc, math.MaxInt64)
	require.NotNil(t, err)
	assert.Equal(t, int64(math.MaxInt64), acc.ForgedBalance)

	// The stored copy never saw the failed mutations either.
	stored, err := m.Get(42)
	require.Nil(t, err)
	assert.Equal(t, int64(100), stored.Balance)
	assert.Equal(t, int64(100), stored.UnconfirmedBalance)
}

func TestEmptyAccountDeleted(t *testing.T) {
	m, _ := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	acc, err = m.Get(42)
	require.Nil(t, err)
	require.Nil(t, m.AddToBalanceAndUnconfirmedBalance(acc, ledger.EventOrdinaryPayment, 2, -100, 0))

	payload, err := m.accounts.Get(accountKey(42))
	require.Nil(t, err)
	assert.Nil(t, payload)
}

func TestGetAtHeight(t *testing.T) {
	m, c := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	c.SetTip(5, 1005, 5)
	acc, err = m.Get(42)
	require.Nil(t, err)
	credit(t, m, acc, 50)

	old, err := m.GetAt(42, 3)
	require.Nil(t, err)
	require.NotNil(t, old)
	assert.Equal(t, int64(100), old.Balance)

	now, err := m.GetAt(42, 5)
	require.Nil(t, err)
	assert.Equal(t, int64(150), now.Balance)
}

func TestRollbackRestoresBalances(t *testing.T) {
	m, c := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	c.SetTip(2, 1002, 2)
	acc, err = m.Get(42)
	require.Nil(t, err)
	credit(t, m, acc, 50)

	require.Nil(t, c.RollbackTo(1, 1001, 1, []uint64{42}))

	acc, err = m.Get(42)
	require.Nil(t, err)
	assert.Equal(t, int64(100), acc.Balance)
	assert.Equal(t, int64(100), acc.UnconfirmedBalance)
}

func TestGetByPublicKey(t *testing.T) {
	m, _ := newTestManager(t)
	key := testPublicKey(1)
	id := crypto.AccountID(key)

	acc, err := m.GetByPublicKey(key)
	require.Nil(t, err)
	assert.Nil(t, acc)

	created, err := m.AddOrGetAccount(id)
	require.Nil(t, err)
	credit(t, m, created, 10)
	_, err = m.SetOrVerifyPublicKey(id, key)
	require.Nil(t, err)

	acc, err = m.GetByPublicKey(key)
	require.Nil(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, id, acc.ID)
}

func TestForgedBalance(t *testing.T) {
	m, _ := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	require.Nil(t, m.AddToForgedBalance(acc, 25))
	acc, err = m.Get(42)
	require.Nil(t, err)
	assert.Equal(t, int64(25), acc.ForgedBalance)
}

func TestAccountControls(t *testing.T) {
	m, _ := newTestManager(t)
	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)

	assert.False(t, acc.HasControl(ControlPhasingOnly))
	require.Nil(t, m.AddControl(acc, ControlPhasingOnly))

	acc, err = m.Get(42)
	require.Nil(t, err)
	require.NotNil(t, acc)
	assert.True(t, acc.HasControl(ControlPhasingOnly))

	require.Nil(t, m.RemoveControl(acc, ControlPhasingOnly))
	acc, err = m.Get(42)
	require.Nil(t, err)
	if acc != nil {
		assert.False(t, acc.HasControl(ControlPhasingOnly))
	}
}

func TestBalanceListeners(t *testing.T) {
	m, _ := newTestManager(t)
	var confirmed, unconfirmed int
	m.OnBalanceChanged(func(*Account) { confirmed++ })
	m.OnUnconfirmedBalanceChanged(func(*Account) { unconfirmed++ })

	acc, err := m.AddOrGetAccount(42)
	require.Nil(t, err)
	credit(t, m, acc, 100)

	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, unconfirmed)

	// Zero deltas fire nothing.
	require.Nil(t, m.AddToBalance(acc, ledger.EventOrdinaryPayment, 2, 0, 0))
	assert.Equal(t, 1, confirmed)
}
