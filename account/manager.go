package account

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/lumechain/go-lume/chain"
	"github.com/lumechain/go-lume/crypto"
	"github.com/lumechain/go-lume/db"
	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/ledger"
	"github.com/lumechain/go-lume/log"
	"github.com/lumechain/go-lume/store"
	"github.com/lumechain/go-lume/util"
)

var (
	ErrInvalidAccountID = errors.New("invalid account id")
	ErrKeyMismatch      = errors.New("public key mismatch")
)

// BlockReader supplies the amount an account received in the block at
// a given height. Only the pre-activation effective balance rule
// needs it; block storage itself lives outside this core.
type BlockReader interface {
	ReceivedInBlock(accountID uint64, height int64) (int64, error)
}

// ManagerContext carries the collaborators a Manager needs.
type ManagerContext struct {
	Database db.Database
	Chain    *chain.Manager
	Ledger   *ledger.Ledger
	// Blocks may be nil; the pre-activation effective balance then
	// treats every block as empty.
	Blocks BlockReader
}

func ValidateManagerContext(mc *ManagerContext) error {
	if mc == nil {
		return fmt.Errorf("account manager context is nil")
	}
	if mc.Database == nil {
		return fmt.Errorf("database instance is nil")
	}
	if mc.Chain == nil {
		return fmt.Errorf("chain manager is nil")
	}
	if mc.Ledger == nil {
		return fmt.Errorf("account ledger is nil")
	}
	return nil
}

// Manager owns every account balance. Callers must serialize
// mutations to the same account; concurrent mutation of one account
// id is undefined.
type Manager struct {
	database db.Database
	chain    *chain.Manager
	ledger   *ledger.Ledger
	blocks   BlockReader

	accounts   *store.Versioned
	publicKeys *store.Versioned
	guaranteed *store.AppendLog

	// key cache is a pure optimization; correctness holds with it
	// disabled.
	keyCache *lru.Cache

	lmu                  sync.Mutex
	balanceListeners     []func(*Account)
	unconfirmedListeners []func(*Account)
}

// NewManager creates the account manager, opens its tables and hooks
// them into the chain rollback/trim fan-out.
func NewManager(ctx *ManagerContext) (*Manager, error) {
	if err := ValidateManagerContext(ctx); err != nil {
		return nil, err
	}
	m := &Manager{
		database: ctx.Database,
		chain:    ctx.Chain,
		ledger:   ctx.Ledger,
		blocks:   ctx.Blocks,
	}
	var err error
	if m.accounts, err = store.NewVersioned(ctx.Database, "ACCOUNT", ctx.Chain.Height); err != nil {
		return nil, err
	}
	if m.publicKeys, err = store.NewVersionedPersistent(ctx.Database, "PUBLIC_KEY", ctx.Chain.Height); err != nil {
		return nil, err
	}
	if m.guaranteed, err = store.NewAppendLog(ctx.Database, "GUARANTEED_BALANCE"); err != nil {
		return nil, err
	}
	if m.keyCache, err = lru.New(10000); err != nil {
		return nil, fmt.Errorf("create public key cache failed: %v", err)
	}
	ctx.Chain.RegisterDerived(m)
	ctx.Chain.OnRollback(m.invalidateKeys)
	ctx.Chain.OnRescan(func() { m.keyCache.Purge() })
	return m, nil
}

func accountKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// OnBalanceChanged registers a listener fired after every confirmed
// balance change.
func (m *Manager) OnBalanceChanged(fn func(*Account)) {
	m.lmu.Lock()
	m.balanceListeners = append(m.balanceListeners, fn)
	m.lmu.Unlock()
}

// OnUnconfirmedBalanceChanged registers a listener fired after every
// unconfirmed balance change.
func (m *Manager) OnUnconfirmedBalanceChanged(fn func(*Account)) {
	m.lmu.Lock()
	m.unconfirmedListeners = append(m.unconfirmedListeners, fn)
	m.lmu.Unlock()
}

func (m *Manager) notifyBalance(acc *Account) {
	m.lmu.Lock()
	listeners := m.balanceListeners
	m.lmu.Unlock()
	for _, fn := range listeners {
		fn(acc)
	}
}

func (m *Manager) notifyUnconfirmed(acc *Account) {
	m.lmu.Lock()
	listeners := m.unconfirmedListeners
	m.lmu.Unlock()
	for _, fn := range listeners {
		fn(acc)
	}
}

func (m *Manager) decodeAccount(payload []byte) (*Account, error) {
	var s storedAccount
	if err := store.Decode(payload, &s); err != nil {
		return nil, fmt.Errorf("decode account failed: %v", err)
	}
	return s.toAccount(), nil
}

// Get returns the account, or nil if it has never been referenced.
// An account with a bound public key but no balance row still
// materializes as an empty account.
func (m *Manager) Get(id uint64) (*Account, error) {
	payload, err := m.accounts.Get(accountKey(id))
	if err != nil {
		return nil, err
	}
	if payload != nil {
		return m.decodeAccount(payload)
	}
	pk, err := m.publicKeyEntity(id)
	if err != nil {
		return nil, err
	}
	if pk != nil {
		return newAccount(id), nil
	}
	return nil, nil
}

// GetAt returns the account exactly as it existed at the given
// height.
func (m *Manager) GetAt(id uint64, height int64) (*Account, error) {
	payload, err := m.accounts.GetAt(accountKey(id), height)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		return m.decodeAccount(payload)
	}
	pkPayload, err := m.publicKeys.GetAt(accountKey(id), height)
	if err != nil {
		return nil, err
	}
	if pkPayload != nil {
		return newAccount(id), nil
	}
	return nil, nil
}

// GetByPublicKey returns the account derived from the key. A bound
// key differing from the supplied one is a fatal inconsistency.
func (m *Manager) GetByPublicKey(publicKey []byte) (*Account, error) {
	id := crypto.AccountID(publicKey)
	acc, err := m.Get(id)
	if err != nil || acc == nil {
		return nil, err
	}
	pk, err := m.publicKeyEntity(id)
	if err != nil {
		return nil, err
	}
	if pk == nil || pk.Key == nil || bytes.Equal(pk.Key, publicKey) {
		return acc, nil
	}
	return nil, fmt.Errorf("duplicate key for account %s", crypto.AccountIDString(id))
}

// AddOrGetAccount materializes the account, creating an empty record
// and a public key placeholder on first reference.
func (m *Manager) AddOrGetAccount(id uint64) (*Account, error) {
	if id == 0 {
		return nil, ErrInvalidAccountID
	}
	payload, err := m.accounts.Get(accountKey(id))
	if err != nil {
		return nil, err
	}
	if payload != nil {
		return m.decodeAccount(payload)
	}
	pk, err := m.publicKeyEntity(id)
	if err != nil {
		return nil, err
	}
	if pk == nil {
		if err := m.savePublicKey(&PublicKey{AccountID: id}); err != nil {
			return nil, err
		}
	}
	return newAccount(id), nil
}

// save persists the account, deleting the current-height row when
// every field is back at its zero value.
func (m *Manager) save(acc *Account) error {
	if acc.empty() {
		return m.accounts.Delete(accountKey(acc.ID))
	}
	payload, err := store.Encode(acc.toStored())
	if err != nil {
		return fmt.Errorf("encode account failed: %v", err)
	}
	return m.accounts.Insert(accountKey(acc.ID), payload)
}

func checkBalance(id uint64, confirmed, unconfirmed int64) error {
	if id == genesis.CreatorID {
		return nil
	}
	if confirmed < 0 {
		return &DoubleSpendError{"negative balance:", id, confirmed, unconfirmed}
	}
	if unconfirmed < 0 {
		return &DoubleSpendError{"negative unconfirmed balance:", id, confirmed, unconfirmed}
	}
	if unconfirmed > confirmed {
		return &DoubleSpendError{"unconfirmed exceeds confirmed balance:", id, confirmed, unconfirmed}
	}
	return nil
}

// AddToBalance applies amount+fee to the confirmed balance.
func (m *Manager) AddToBalance(acc *Account, event ledger.Event, eventID uint64, amount, fee int64) error {
	if amount == 0 && fee == 0 {
		return nil
	}
	total, err := util.AddExactInt64(amount, fee)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	balance, err := util.AddExactInt64(acc.Balance, total)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	acc.Balance = balance
	if err := m.addToGuaranteedBalance(acc.ID, total); err != nil {
		return err
	}
	if err := checkBalance(acc.ID, acc.Balance, acc.UnconfirmedBalance); err != nil {
		return err
	}
	if err := m.save(acc); err != nil {
		return err
	}
	m.notifyBalance(acc)
	return m.logConfirmed(acc, event, eventID, amount, fee)
}

// AddToUnconfirmedBalance applies amount+fee to the unconfirmed
// balance.
func (m *Manager) AddToUnconfirmedBalance(acc *Account, event ledger.Event, eventID uint64, amount, fee int64) error {
	if amount == 0 && fee == 0 {
		return nil
	}
	total, err := util.AddExactInt64(amount, fee)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	unconfirmed, err := util.AddExactInt64(acc.UnconfirmedBalance, total)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	acc.UnconfirmedBalance = unconfirmed
	if err := checkBalance(acc.ID, acc.Balance, acc.UnconfirmedBalance); err != nil {
		return err
	}
	if err := m.save(acc); err != nil {
		return err
	}
	m.notifyUnconfirmed(acc)
	return m.logUnconfirmed(acc, event, eventID, amount, fee)
}

// AddToBalanceAndUnconfirmedBalance applies amount+fee to both
// balances at once.
func (m *Manager) AddToBalanceAndUnconfirmedBalance(acc *Account, event ledger.Event, eventID uint64, amount, fee int64) error {
	if amount == 0 && fee == 0 {
		return nil
	}
	total, err := util.AddExactInt64(amount, fee)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	balance, err := util.AddExactInt64(acc.Balance, total)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	unconfirmed, err := util.AddExactInt64(acc.UnconfirmedBalance, total)
	if err != nil {
		return fmt.Errorf("balance overflow for %s: %v", acc, err)
	}
	acc.Balance = balance
	acc.UnconfirmedBalance = unconfirmed
	if err := m.addToGuaranteedBalance(acc.ID, total); err != nil {
		return err
	}
	if err := checkBalance(acc.ID, acc.Balance, acc.UnconfirmedBalance); err != nil {
		return err
	}
	if err := m.save(acc); err != nil {
		return err
	}
	m.notifyBalance(acc)
	m.notifyUnconfirmed(acc)
	if err := m.logUnconfirmed(acc, event, eventID, amount, fee); err != nil {
		return err
	}
	return m.logConfirmed(acc, event, eventID, amount, fee)
}

// AddToForgedBalance credits forging rewards. Forged balance has no
// unconfirmed counterpart and no ledger coupling.
func (m *Manager) AddToForgedBalance(acc *Account, amount int64) error {
	if amount == 0 {
		return nil
	}
	forged, err := util.AddExactInt64(acc.ForgedBalance, amount)
	if err != nil {
		return fmt.Errorf("forged balance overflow for %s: %v", acc, err)
	}
	acc.ForgedBalance = forged
	return m.save(acc)
}

func (m *Manager) logConfirmed(acc *Account, event ledger.Event, eventID uint64, amount, fee int64) error {
	if !m.ledger.MustLogEntry(acc.ID, false) {
		return nil
	}
	if fee != 0 {
		err := m.ledger.LogEntry(&ledger.Entry{
			Event: ledger.EventTransactionFee, EventID: eventID, AccountID: acc.ID,
			Holding: ledger.HoldingLumeBalance, Change: fee, Balance: acc.Balance - amount,
		})
		if err != nil {
			return err
		}
	}
	if amount != 0 {
		err := m.ledger.LogEntry(&ledger.Entry{
			Event: event, EventID: eventID, AccountID: acc.ID,
			Holding: ledger.HoldingLumeBalance, Change: amount, Balance: acc.Balance,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) logUnconfirmed(acc *Account, event ledger.Event, eventID uint64, amount, fee int64) error {
	if !m.ledger.MustLogEntry(acc.ID, true) {
		return nil
	}
	if fee != 0 {
		err := m.ledger.LogEntry(&ledger.Entry{
			Event: ledger.EventTransactionFee, EventID: eventID, AccountID: acc.ID,
			Holding: ledger.HoldingUnconfirmedLumeBalance, Change: fee, Balance: acc.UnconfirmedBalance - amount,
		})
		if err != nil {
			return err
		}
	}
	if amount != 0 {
		err := m.ledger.LogEntry(&ledger.Entry{
			Event: event, EventID: eventID, AccountID: acc.ID,
			Holding: ledger.HoldingUnconfirmedLumeBalance, Change: amount, Balance: acc.UnconfirmedBalance,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AddControl sets a control flag and persists the account.
func (m *Manager) AddControl(acc *Account, c ControlType) error {
	if acc.HasControl(c) {
		return nil
	}
	acc.Controls.Add(c)
	payload, err := store.Encode(acc.toStored())
	if err != nil {
		return fmt.Errorf("encode account failed: %v", err)
	}
	return m.accounts.Insert(accountKey(acc.ID), payload)
}

// RemoveControl clears a control flag and persists the account.
func (m *Manager) RemoveControl(acc *Account, c ControlType) error {
	if !acc.HasControl(c) {
		return nil
	}
	acc.Controls.Remove(c)
	return m.save(acc)
}

func (m *Manager) invalidateKeys(touched []uint64) {
	for _, id := range touched {
		m.keyCache.Remove(id)
	}
	log.Debugf("invalidated %d cached public keys", len(touched))
}
