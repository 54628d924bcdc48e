// Package ledger keeps the account ledger: an append-only audit log
// with one entry per balance change of every enrolled account.
package ledger

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/lumechain/go-lume/chain"
	"github.com/lumechain/go-lume/db"
	"github.com/lumechain/go-lume/log"
	"github.com/lumechain/go-lume/params"
	"github.com/lumechain/go-lume/store"
)

// Event identifies what caused a balance change.
type Event uint8

const (
	EventTransactionFee Event = iota + 1
	EventOrdinaryPayment
	EventBlockGenerated
	EventAccountControl
)

func (e Event) String() string {
	switch e {
	case EventTransactionFee:
		return "TransactionFee"
	case EventOrdinaryPayment:
		return "OrdinaryPayment"
	case EventBlockGenerated:
		return "BlockGenerated"
	case EventAccountControl:
		return "AccountControl"
	}
	return fmt.Sprintf("Event(%d)", uint8(e))
}

// Holding identifies which balance of the account changed.
type Holding uint8

const (
	HoldingLumeBalance Holding = iota + 1
	HoldingUnconfirmedLumeBalance
)

func (h Holding) String() string {
	switch h {
	case HoldingLumeBalance:
		return "LumeBalance"
	case HoldingUnconfirmedLumeBalance:
		return "UnconfirmedLumeBalance"
	}
	return fmt.Sprintf("Holding(%d)", uint8(h))
}

// Entry is one immutable ledger record. Entries are never updated;
// they only disappear through the same height-based trim and rollback
// that governs accounts.
type Entry struct {
	LedgerID  uint64  `codec:"i"`
	Event     Event   `codec:"e"`
	EventID   uint64  `codec:"ei"`
	AccountID uint64  `codec:"a"`
	Holding   Holding `codec:"ho"`
	Change    int64   `codec:"c"`
	Balance   int64   `codec:"b"`
	BlockID   uint64  `codec:"bi"`
	Height    int64   `codec:"h"`
	Timestamp int64   `codec:"t"`
}

// Policy selects which accounts are enrolled for ledger logging.
type Policy struct {
	// LogAll enrolls every account.
	LogAll bool
	// Accounts enrolls a fixed subset when LogAll is false.
	Accounts []uint64
	// LogUnconfirmed additionally records unconfirmed balance
	// changes for enrolled accounts.
	LogUnconfirmed bool
}

// Ledger is the append-only account ledger.
type Ledger struct {
	chain    *chain.Manager
	logStore *store.AppendLog

	logAll         bool
	logUnconfirmed bool
	tracked        mapset.Set

	mu     sync.Mutex
	nextID uint64
}

// NewLedger opens the account ledger and restores the monotonic
// ledger id from the stored entries.
func NewLedger(d db.Database, c *chain.Manager, p Policy) (*Ledger, error) {
	logStore, err := store.NewAppendLog(d, "ACCOUNT_LEDGER")
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		chain:          c,
		logStore:       logStore,
		logAll:         p.LogAll,
		logUnconfirmed: p.LogUnconfirmed,
		tracked:        mapset.NewSet(),
	}
	for _, id := range p.Accounts {
		l.tracked.Add(id)
	}
	records, err := logStore.Scan(nil)
	if err != nil {
		return nil, fmt.Errorf("restore ledger id failed: %v", err)
	}
	for _, r := range records {
		id := binary.BigEndian.Uint64(r.Key)
		if id >= l.nextID {
			l.nextID = id + 1
		}
	}
	c.RegisterDerived(l)
	return l, nil
}

// MustLogEntry reports whether a balance change of the account has to
// be recorded. Unconfirmed changes are recorded only when the policy
// asks for them.
func (l *Ledger) MustLogEntry(accountID uint64, unconfirmed bool) bool {
	if !l.logAll && !l.tracked.Contains(accountID) {
		return false
	}
	if unconfirmed && !l.logUnconfirmed {
		return false
	}
	return true
}

// LogEntry appends the entry, stamping it with the next ledger id and
// the block at the tip. The caller fills event, account, holding and
// amounts.
func (l *Ledger) LogEntry(e *Entry) error {
	l.mu.Lock()
	e.LedgerID = l.nextID
	l.nextID++
	l.mu.Unlock()

	e.BlockID = l.chain.BlockID()
	e.Height = l.chain.Height()
	e.Timestamp = l.chain.BlockTimestamp()

	payload, err := store.Encode(e)
	if err != nil {
		return fmt.Errorf("encode ledger entry failed: %v", err)
	}
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], e.LedgerID)
	if err := l.logStore.Put(key[:], e.Height, payload); err != nil {
		return fmt.Errorf("append ledger entry failed: %v", err)
	}
	log.Debugw("ledger entry", "account", e.AccountID, "event", e.Event.String(),
		"holding", e.Holding.String(), "change", e.Change, "balance", e.Balance)
	return nil
}

// Entries returns the recorded entries of the account in ledger id
// order.
func (l *Ledger) Entries(accountID uint64) ([]*Entry, error) {
	records, err := l.logStore.Scan(nil)
	if err != nil {
		return nil, err
	}
	var entries []*Entry
	for _, r := range records {
		var e Entry
		if err := store.Decode(r.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode ledger entry failed: %v", err)
		}
		if e.AccountID == accountID {
			entries = append(entries, &e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LedgerID < entries[j].LedgerID })
	return entries, nil
}

// Trim discards entries older than the retention window.
func (l *Ledger) Trim(height int64) error {
	if height <= params.LedgerTrimKeep {
		return nil
	}
	return l.logStore.Trim(height - params.LedgerTrimKeep)
}

// Rollback removes entries above the target height.
func (l *Ledger) Rollback(height int64) error {
	return l.logStore.Rollback(height)
}
