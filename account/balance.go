package account

import (
	"fmt"

	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/params"
	"github.com/lumechain/go-lume/store"
	"github.com/lumechain/go-lume/util"
)

// additions accumulates the confirmed-balance increases of one
// account within one block.
type additions struct {
	Sum int64 `codec:"s"`
}

// addToGuaranteedBalance records a confirmed-balance increase in the
// delta log at the current height. Only positive deltas are recorded.
func (m *Manager) addToGuaranteedBalance(id uint64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	height := m.chain.Height()
	payload, err := m.guaranteed.Get(accountKey(id), height)
	if err != nil {
		return err
	}
	sum := amount
	if payload != nil {
		var a additions
		if err := store.Decode(payload, &a); err != nil {
			return fmt.Errorf("decode guaranteed balance additions failed: %v", err)
		}
		if sum, err = util.AddExactInt64(sum, a.Sum); err != nil {
			return fmt.Errorf("guaranteed balance overflow for account %d: %v", id, err)
		}
	}
	payload, err = store.Encode(&additions{Sum: sum})
	if err != nil {
		return fmt.Errorf("encode guaranteed balance additions failed: %v", err)
	}
	return m.guaranteed.Put(accountKey(id), height, payload)
}

// GuaranteedBalance returns the confirmed balance minus the additions
// recorded within the trailing confirmation window, floored at zero.
// The chain read lock is held for the whole query so that a rollback
// cannot move the height range mid-read.
func (m *Manager) GuaranteedBalance(acc *Account, confirmations, currentHeight int64) (int64, error) {
	m.chain.ReadLock()
	defer m.chain.ReadUnlock()
	return m.guaranteedBalance(acc, confirmations, currentHeight)
}

func (m *Manager) guaranteedBalance(acc *Account, confirmations, currentHeight int64) (int64, error) {
	height := currentHeight - confirmations
	if height+params.GuaranteedBalanceConfirmations < m.chain.MinRollbackHeight() ||
		height > m.chain.Height() {
		return 0, fmt.Errorf("height %d not available for guaranteed balance: %w",
			height, store.ErrHeightUnavailable)
	}
	records, err := m.guaranteed.Scan(accountKey(acc.ID))
	if err != nil {
		return 0, err
	}
	var sum int64
	seen := false
	for _, r := range records {
		if r.Height <= height || r.Height > currentHeight {
			continue
		}
		var a additions
		if err := store.Decode(r.Payload, &a); err != nil {
			return 0, fmt.Errorf("decode guaranteed balance additions failed: %v", err)
		}
		if sum, err = util.AddExactInt64(sum, a.Sum); err != nil {
			return 0, fmt.Errorf("guaranteed balance overflow for %s: %v", acc, err)
		}
		seen = true
	}
	if !seen {
		return acc.Balance, nil
	}
	return util.MaxInt64(acc.Balance-sum, 0), nil
}

// EffectiveBalance returns the stake weight of the account at the
// given height, in whole LUME.
func (m *Manager) EffectiveBalance(acc *Account, height int64) (int64, error) {
	if height >= params.KeyFreshnessActivationHeight {
		pk, err := m.publicKeyEntity(acc.ID)
		if err != nil {
			return 0, err
		}
		// A key revealed within the freshness window, or never
		// revealed at all, carries no forging weight.
		if pk == nil || pk.Key == nil || pk.Height == 0 ||
			height-pk.Height <= params.KeyFreshnessWindow {
			return 0, nil
		}
	}
	if height < params.KeyFreshnessActivationHeight {
		if genesis.IsRecipient(acc.ID) {
			return acc.Balance / params.OneLume, nil
		}
		var received int64
		if m.blocks != nil {
			var err error
			if received, err = m.blocks.ReceivedInBlock(acc.ID, height); err != nil {
				return 0, fmt.Errorf("read block at height %d failed: %v", height, err)
			}
		}
		return (acc.Balance - received) / params.OneLume, nil
	}
	m.chain.ReadLock()
	defer m.chain.ReadUnlock()
	effective, err := m.guaranteedBalance(acc, params.GuaranteedBalanceConfirmations, height)
	if err != nil {
		return 0, err
	}
	if effective < params.MinForgingBalance {
		return 0, nil
	}
	return effective / params.OneLume, nil
}

// Trim applies each table's retention window relative to the given
// chain height. The account manager is registered as a derived table
// with the chain manager.
func (m *Manager) Trim(height int64) error {
	if err := m.accounts.Trim(util.MaxInt64(height-params.MaxRollback, 0)); err != nil {
		return err
	}
	if err := m.publicKeys.Trim(height); err != nil {
		return err
	}
	return m.guaranteed.Trim(height - params.GuaranteedBalanceConfirmations)
}

// Rollback restores every table to its state at the target height.
func (m *Manager) Rollback(height int64) error {
	if err := m.accounts.Rollback(height); err != nil {
		return err
	}
	if err := m.publicKeys.Rollback(height); err != nil {
		return err
	}
	return m.guaranteed.Rollback(height)
}
