package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/ledger"
	"github.com/lumechain/go-lume/params"
)

func newTestNode(t *testing.T) *Node {
	n, err := NewNode(&Config{
		DBBackend:    "memdb",
		DBPath:       "",
		LedgerPolicy: ledger.Policy{LogAll: true},
		TrimInterval: time.Minute,
	})
	require.Nil(t, err)
	return n
}

func TestBootstrapGenesis(t *testing.T) {
	n := newTestNode(t)

	created, err := n.bootstrapGenesis()
	require.Nil(t, err)
	require.True(t, created)

	// Every funded account holds its initial balance and the
	// balances sum to the total supply.
	var total int64
	for i, id := range genesis.Recipients {
		acc, err := n.am.Get(id)
		require.Nil(t, err)
		require.NotNil(t, acc)
		assert.Equal(t, genesis.Amounts[i], acc.Balance)
		assert.Equal(t, genesis.Amounts[i], acc.UnconfirmedBalance)
		total += acc.Balance
	}
	assert.Equal(t, params.MaxBalance, total)

	// The creator carries the negative total supply.
	creator, err := n.am.Get(genesis.CreatorID)
	require.Nil(t, err)
	require.NotNil(t, creator)
	assert.Equal(t, -params.MaxBalance, creator.Balance)

	// A second start must not fund anyone twice.
	created, err = n.bootstrapGenesis()
	require.Nil(t, err)
	assert.False(t, created)
}

func TestConfigDefaults(t *testing.T) {
	n := newTestNode(t)
	assert.NotNil(t, n.applier)
	assert.Equal(t, int64(0), n.cm.Height())
}
