package node

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/lumechain/go-lume/account"
	"github.com/lumechain/go-lume/chain"
	"github.com/lumechain/go-lume/crypto"
	"github.com/lumechain/go-lume/db"
	_ "github.com/lumechain/go-lume/db/boltdb"
	_ "github.com/lumechain/go-lume/db/memdb"
	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/ledger"
	"github.com/lumechain/go-lume/log"
	"github.com/lumechain/go-lume/tx"
)

// Node is the central controller of the running chain core: it opens
// the database, wires the managers together and owns the background
// maintenance loops.
type Node struct {
	database db.Database

	config *Config

	cm      *chain.Manager
	lg      *ledger.Ledger
	am      *account.Manager
	applier *tx.Applier

	// start time of the node
	startTime int64

	// channel for stopping all the subroutines
	stopChan chan struct{}
}

// NewNode wires a Node from the config. The account state is opened
// but not yet bootstrapped; Start does that.
func NewNode(conf *Config) (*Node, error) {
	if conf.Debug {
		log.OpenDebug()
	}

	ctor, err := db.GetDB(conf.DBBackend)
	if err != nil {
		return nil, fmt.Errorf("lookup db backend failed: %v", err)
	}
	database := ctor(conf.DBPath)

	cm := chain.NewManager()

	lg, err := ledger.NewLedger(database, cm, conf.LedgerPolicy)
	if err != nil {
		return nil, fmt.Errorf("create account ledger failed: %v", err)
	}

	am, err := account.NewManager(&account.ManagerContext{
		Database: database,
		Chain:    cm,
		Ledger:   lg,
	})
	if err != nil {
		return nil, fmt.Errorf("create account manager failed: %v", err)
	}

	node := &Node{
		database:  database,
		config:    conf,
		cm:        cm,
		lg:        lg,
		am:        am,
		applier:   tx.NewApplier(am),
		startTime: time.Now().Unix(),
		stopChan:  make(chan struct{}),
	}

	return node, nil
}

// Start bootstraps the genesis state if needed and runs the
// maintenance loops until Stop is called.
func (n *Node) Start() {
	bootstrapped, err := n.bootstrapGenesis()
	if err != nil {
		log.Fatalf("bootstrap genesis state failed: %v", err)
	}
	if bootstrapped {
		log.Infow("genesis state created", "recipients", len(genesis.Recipients))
	}

	go n.trimLoop()

	for {
		select {
		case <-n.stopChan:
			return
		}
	}
}

// Stop node by signaling all the goroutines to stop.
func (n *Node) Stop() {
	close(n.stopChan)
	if err := n.database.Close(); err != nil {
		log.Errorf("close database failed: %v", err)
	}
}

// genesisBlockID derives the id of the empty genesis block from the
// network id, so separate networks never share state.
func (n *Node) genesisBlockID() uint64 {
	return binary.LittleEndian.Uint64(n.config.NetworkID[:8])
}

// bootstrapGenesis creates the initial coin distribution on first
// start: one payment from the genesis creator to each funded account,
// pushed through the regular transaction protocol at height zero. It
// reports whether the state was created now.
func (n *Node) bootstrapGenesis() (bool, error) {
	n.cm.SetTip(0, n.genesisBlockID(), 0)

	creator, err := n.am.Get(genesis.CreatorID)
	if err != nil {
		return false, err
	}
	if creator != nil {
		return false, nil
	}

	for i, recipient := range genesis.Recipients {
		t := &tx.Transaction{
			Type:            tx.OrdinaryPayment,
			SenderPublicKey: genesis.CreatorPublicKey,
			RecipientID:     recipient,
			Amount:          genesis.Amounts[i],
			Timestamp:       0,
		}
		t.ComputeID()
		ok, err := n.applier.ApplyUnconfirmed(t)
		if err != nil {
			return false, fmt.Errorf("apply genesis payment to %s failed: %v",
				crypto.AccountIDString(recipient), err)
		}
		if !ok {
			return false, fmt.Errorf("genesis payment to %s rejected",
				crypto.AccountIDString(recipient))
		}
		if err := n.applier.Apply(t); err != nil {
			return false, fmt.Errorf("apply genesis payment to %s failed: %v",
				crypto.AccountIDString(recipient), err)
		}
	}
	return true, nil
}

// trimLoop periodically drops versioned rows that can no longer be
// reached by a rollback.
func (n *Node) trimLoop() {
	ticker := time.NewTicker(n.config.TrimInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			height := n.cm.Height()
			if err := n.cm.TrimDerived(height); err != nil {
				log.Errorf("trim derived tables failed: %v", err)
				continue
			}
			log.Debugw("derived tables trimmed", "height", height)
		case <-n.stopChan:
			log.Info("shutdown trim loop")
			return
		}
	}
}
