// Package chain tracks the chain tip and coordinates the derived
// tables that have to move with it: trimming retention windows and
// rolling every table back when blocks are popped.
package chain

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lumechain/go-lume/log"
	"github.com/lumechain/go-lume/params"
	"github.com/lumechain/go-lume/util"
)

// DerivedTable is storage whose content is a function of the chain
// and therefore must follow rollback and trimming of the tip.
type DerivedTable interface {
	Trim(height int64) error
	Rollback(height int64) error
}

// Manager owns the chain tip. Balance mutations are serialized by the
// block processor, which holds the write intent for the height being
// processed; multi-step reads (guaranteed balance) take ReadLock for
// their whole duration so that a concurrent rollback cannot move the
// tip under them.
type Manager struct {
	mu sync.RWMutex

	height         atomic.Int64
	blockID        atomic.Uint64
	blockTimestamp atomic.Int64
	lastTrimHeight atomic.Int64

	regMu             sync.Mutex
	derived           []DerivedTable
	rollbackListeners []func(touched []uint64)
	rescanListeners   []func()
}

func NewManager() *Manager {
	return &Manager{}
}

// ReadLock blocks tip movement until ReadUnlock. It must be held for
// the duration of any read spanning a height range.
func (m *Manager) ReadLock() {
	m.mu.RLock()
}

func (m *Manager) ReadUnlock() {
	m.mu.RUnlock()
}

// Height returns the current chain height.
func (m *Manager) Height() int64 {
	return m.height.Load()
}

// BlockID returns the id of the block at the tip.
func (m *Manager) BlockID() uint64 {
	return m.blockID.Load()
}

// BlockTimestamp returns the timestamp of the block at the tip.
func (m *Manager) BlockTimestamp() int64 {
	return m.blockTimestamp.Load()
}

// SetTip advances the tip to the given block.
func (m *Manager) SetTip(height int64, blockID uint64, timestamp int64) {
	m.mu.Lock()
	m.height.Store(height)
	m.blockID.Store(blockID)
	m.blockTimestamp.Store(timestamp)
	m.mu.Unlock()
}

// MinRollbackHeight is the lowest height the chain can still roll
// back to, bounded by the trim floor and the rollback window.
func (m *Manager) MinRollbackHeight() int64 {
	return util.MaxInt64(m.lastTrimHeight.Load(),
		util.MaxInt64(m.height.Load()-params.MaxRollback, 0))
}

// RegisterDerived adds a table to the rollback/trim fan-out.
func (m *Manager) RegisterDerived(t DerivedTable) {
	m.regMu.Lock()
	m.derived = append(m.derived, t)
	m.regMu.Unlock()
}

// OnRollback registers a listener invoked after a rollback with the
// accounts touched by the popped blocks (generators and senders), so
// that caches keyed by account can be invalidated.
func (m *Manager) OnRollback(fn func(touched []uint64)) {
	m.regMu.Lock()
	m.rollbackListeners = append(m.rollbackListeners, fn)
	m.regMu.Unlock()
}

// OnRescan registers a listener invoked when a full chain rescan
// begins.
func (m *Manager) OnRescan(fn func()) {
	m.regMu.Lock()
	m.rescanListeners = append(m.rescanListeners, fn)
	m.regMu.Unlock()
}

// RollbackTo pops the chain back to the target height: every derived
// table is restored to its state at that height and the tip moves.
// The caller supplies the block id and timestamp now at the tip and
// the accounts touched by the popped blocks.
func (m *Manager) RollbackTo(height int64, blockID uint64, timestamp int64, touched []uint64) error {
	if height > m.Height() {
		return fmt.Errorf("rollback target %d above height %d", height, m.Height())
	}
	if height < m.MinRollbackHeight() {
		return fmt.Errorf("rollback target %d below min rollback height %d", height, m.MinRollbackHeight())
	}
	m.mu.Lock()
	for _, t := range m.derived {
		if err := t.Rollback(height); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("rollback to height %d failed: %v", height, err)
		}
	}
	m.height.Store(height)
	m.blockID.Store(blockID)
	m.blockTimestamp.Store(timestamp)
	m.mu.Unlock()

	log.Infow("chain rolled back", "height", height)
	for _, fn := range m.rollbackListeners {
		fn(touched)
	}
	return nil
}

// TrimDerived trims every derived table relative to the given height.
// Each table applies its own retention window.
func (m *Manager) TrimDerived(height int64) error {
	for _, t := range m.derived {
		if err := t.Trim(height); err != nil {
			return fmt.Errorf("trim at height %d failed: %v", height, err)
		}
	}
	m.lastTrimHeight.Store(height)
	return nil
}

// BeginRescan notifies listeners that a full chain rescan is starting
// and all chain-derived caches must be dropped.
func (m *Manager) BeginRescan() {
	for _, fn := range m.rescanListeners {
		fn()
	}
}
