package tx

import (
	"github.com/lumechain/go-lume/account"
	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/ledger"
	"github.com/lumechain/go-lume/params"
)

// OrdinaryPayment moves an amount from sender to recipient with no
// attachment payload beyond the shared transaction fields.
var OrdinaryPayment Type = &ordinaryPayment{}

type ordinaryPayment struct {
	baseType
}

func (tp *ordinaryPayment) Type() byte    { return typePayment }
func (tp *ordinaryPayment) Subtype() byte { return subtypePaymentOrdinary }
func (tp *ordinaryPayment) Name() string  { return "OrdinaryPayment" }

func (tp *ordinaryPayment) LedgerEvent() ledger.Event {
	return ledger.EventOrdinaryPayment
}

func (tp *ordinaryPayment) CanHaveRecipient() bool  { return true }
func (tp *ordinaryPayment) MustHaveRecipient() bool { return true }
func (tp *ordinaryPayment) IsPhasingSafe() bool     { return true }

func (tp *ordinaryPayment) ValidateAttachment(t *Transaction) error {
	if t.Amount <= 0 || t.Amount >= params.MaxBalance {
		return notValidf("invalid ordinary payment amount %d", t.Amount)
	}
	return nil
}

func (tp *ordinaryPayment) ApplyAttachment(m *account.Manager, t *Transaction, sender, recipient *account.Account) error {
	if recipient == nil {
		// Payments to nonexistent accounts fall back to the
		// genesis creator so the total supply stays constant.
		creator, err := m.AddOrGetAccount(genesis.CreatorID)
		if err != nil {
			return err
		}
		return m.AddToBalanceAndUnconfirmedBalance(creator, tp.LedgerEvent(), t.ID, t.Amount, 0)
	}
	return nil
}
