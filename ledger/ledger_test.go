package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumechain/go-lume/chain"
	"github.com/lumechain/go-lume/db/memdb"
)

func TestEnrollmentPolicy(t *testing.T) {
	memorydb := memdb.New()
	c := chain.NewManager()

	l, err := NewLedger(memorydb, c, Policy{Accounts: []uint64{7}})
	require.Nil(t, err)
	assert.True(t, l.MustLogEntry(7, false))
	assert.False(t, l.MustLogEntry(7, true))
	assert.False(t, l.MustLogEntry(8, false))

	l, err = NewLedger(memorydb, c, Policy{LogAll: true, LogUnconfirmed: true})
	require.Nil(t, err)
	assert.True(t, l.MustLogEntry(8, false))
	assert.True(t, l.MustLogEntry(8, true))
}

func TestLogEntryStampsAndOrders(t *testing.T) {
	memorydb := memdb.New()
	c := chain.NewManager()
	c.SetTip(5, 0xb10c, 12345)

	l, err := NewLedger(memorydb, c, Policy{LogAll: true})
	require.Nil(t, err)

	require.Nil(t, l.LogEntry(&Entry{
		Event: EventTransactionFee, EventID: 1, AccountID: 7,
		Holding: HoldingLumeBalance, Change: -10, Balance: 990,
	}))
	require.Nil(t, l.LogEntry(&Entry{
		Event: EventOrdinaryPayment, EventID: 1, AccountID: 7,
		Holding: HoldingLumeBalance, Change: -100, Balance: 890,
	}))

	entries, err := l.Entries(7)
	require.Nil(t, err)
	require.Equal(t, 2, len(entries))

	assert.Equal(t, EventTransactionFee, entries[0].Event)
	assert.Equal(t, EventOrdinaryPayment, entries[1].Event)
	assert.True(t, entries[0].LedgerID < entries[1].LedgerID)
	assert.Equal(t, int64(5), entries[0].Height)
	assert.Equal(t, uint64(0xb10c), entries[0].BlockID)
	assert.Equal(t, int64(12345), entries[0].Timestamp)

	entries, err = l.Entries(8)
	require.Nil(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestLedgerIDRestoredAfterReopen(t *testing.T) {
	memorydb := memdb.New()
	c := chain.NewManager()
	c.SetTip(1, 1, 1)

	l, err := NewLedger(memorydb, c, Policy{LogAll: true})
	require.Nil(t, err)
	require.Nil(t, l.LogEntry(&Entry{Event: EventOrdinaryPayment, AccountID: 7, Holding: HoldingLumeBalance}))

	reopened, err := NewLedger(memorydb, c, Policy{LogAll: true})
	require.Nil(t, err)
	require.Nil(t, reopened.LogEntry(&Entry{Event: EventOrdinaryPayment, AccountID: 7, Holding: HoldingLumeBalance}))

	entries, err := reopened.Entries(7)
	require.Nil(t, err)
	require.Equal(t, 2, len(entries))
	assert.Equal(t, entries[0].LedgerID+1, entries[1].LedgerID)
}

func TestRollbackDropsEntries(t *testing.T) {
	memorydb := memdb.New()
	c := chain.NewManager()

	l, err := NewLedger(memorydb, c, Policy{LogAll: true})
	require.Nil(t, err)

	c.SetTip(5, 1, 1)
	require.Nil(t, l.LogEntry(&Entry{Event: EventOrdinaryPayment, AccountID: 7, Holding: HoldingLumeBalance}))
	c.SetTip(9, 2, 2)
	require.Nil(t, l.LogEntry(&Entry{Event: EventOrdinaryPayment, AccountID: 7, Holding: HoldingLumeBalance}))

	require.Nil(t, l.Rollback(6))
	entries, err := l.Entries(7)
	require.Nil(t, err)
	require.Equal(t, 1, len(entries))
	assert.Equal(t, int64(5), entries[0].Height)
}
