package node

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/lumechain/go-lume/crypto"
	"github.com/lumechain/go-lume/ledger"
)

type Config struct {
	// network ID hash
	NetworkID [32]byte
	// database backend
	DBBackend string
	// database file path
	DBPath string
	// account ledger policy
	LedgerPolicy ledger.Policy
	// interval between derived table trims
	TrimInterval time.Duration
	// emit debug logs
	Debug bool
}

func NewConfig(v *viper.Viper) (*Config, error) {
	if v.GetString("network_id") == "" {
		return nil, errors.New("network ID is missing")
	}
	if v.GetString("db_backend") == "" {
		return nil, errors.New("db backend is empty")
	}
	if v.GetString("db_path") == "" {
		return nil, errors.New("db path is empty")
	}

	policy := ledger.Policy{
		LogAll:         v.GetBool("ledger_log_all"),
		LogUnconfirmed: v.GetBool("ledger_log_unconfirmed"),
	}
	for _, addr := range v.GetStringSlice("ledger_accounts") {
		id, err := crypto.DecodeAccountID(addr)
		if err != nil {
			return nil, fmt.Errorf("parse ledger account %q failed: %v", addr, err)
		}
		policy.Accounts = append(policy.Accounts, id)
	}

	trimInterval := v.GetDuration("trim_interval")
	if trimInterval == 0 {
		trimInterval = 10 * time.Minute
	}

	c := Config{
		NetworkID:    sha256.Sum256([]byte(v.GetString("network_id"))),
		DBBackend:    v.GetString("db_backend"),
		DBPath:       v.GetString("db_path"),
		LedgerPolicy: policy,
		TrimInterval: trimInterval,
		Debug:        v.GetBool("debug"),
	}

	return &c, nil
}
