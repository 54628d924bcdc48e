package node

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumechain/go-lume/crypto"
)

func TestNewConfig(t *testing.T) {
	v := viper.New()
	v.Set("network_id", "lume-test")
	v.Set("db_backend", "boltdb")
	v.Set("db_path", "/tmp/lume.db")
	v.Set("ledger_log_all", true)
	v.Set("ledger_accounts", []string{crypto.EncodeAccountID(42)})

	c, err := NewConfig(v)
	require.Nil(t, err)
	assert.Equal(t, "boltdb", c.DBBackend)
	assert.True(t, c.LedgerPolicy.LogAll)
	assert.Equal(t, []uint64{42}, c.LedgerPolicy.Accounts)
	assert.Equal(t, 10*time.Minute, c.TrimInterval)
}

func TestNewConfigMissingFields(t *testing.T) {
	v := viper.New()
	_, err := NewConfig(v)
	assert.NotNil(t, err)

	v.Set("network_id", "lume-test")
	_, err = NewConfig(v)
	assert.NotNil(t, err)

	v.Set("db_backend", "memdb")
	_, err = NewConfig(v)
	assert.NotNil(t, err)

	v.Set("db_path", "ignored")
	_, err = NewConfig(v)
	assert.Nil(t, err)
}
