package tx

import (
	"bytes"
	"fmt"

	"github.com/lumechain/go-lume/account"
	"github.com/lumechain/go-lume/genesis"
	"github.com/lumechain/go-lume/params"
	"github.com/lumechain/go-lume/util"
)

// Applier drives the two-phase transaction protocol against the
// account state: ApplyUnconfirmed reserves funds tentatively when a
// transaction enters a block candidate or the unconfirmed pool, Apply
// settles it on block acceptance, and UndoUnconfirmed releases the
// reservation when the transaction is dropped.
type Applier struct {
	AM *account.Manager
}

func NewApplier(am *account.Manager) *Applier {
	return &Applier{AM: am}
}

// deposit is the extra unconfirmed reservation charged while a
// transaction referencing an earlier one waits for its referent.
func (ap *Applier) deposit(t *Transaction) int64 {
	if t.ReferencedTransactionFullHash != nil && t.Timestamp > params.ReferencedTransactionDepositTimestamp {
		return params.UnconfirmedPoolDeposit
	}
	return 0
}

// isGenesisPayment reports whether t is one of the initial coin
// distribution payments, which are exempt from the funds check.
func isGenesisPayment(t *Transaction) bool {
	return t.Timestamp == 0 && bytes.Equal(t.SenderPublicKey, genesis.CreatorPublicKey)
}

// ApplyUnconfirmed reserves amount, fee and any referenced-transaction
// deposit against the sender's unconfirmed balance. It returns false
// without mutating state when the sender cannot cover the total; the
// transaction is not currently valid but may become so.
func (ap *Applier) ApplyUnconfirmed(t *Transaction) (bool, error) {
	sender, err := ap.AM.AddOrGetAccount(t.SenderID())
	if err != nil {
		return false, err
	}
	total, err := util.AddExactInt64(t.Amount, t.Fee)
	if err != nil {
		return false, fmt.Errorf("transaction total overflow: %v", err)
	}
	deposit := ap.deposit(t)
	required, err := util.AddExactInt64(total, deposit)
	if err != nil {
		return false, fmt.Errorf("transaction total overflow: %v", err)
	}
	if sender.UnconfirmedBalance < required && !isGenesisPayment(t) {
		return false, nil
	}
	event := t.Type.LedgerEvent()
	if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, -t.Amount, -t.Fee); err != nil {
		return false, err
	}
	if deposit > 0 {
		if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, 0, -deposit); err != nil {
			return false, err
		}
	}
	ok, err := t.Type.ApplyAttachmentUnconfirmed(ap.AM, t, sender)
	if err != nil {
		return false, err
	}
	if !ok {
		// The attachment reservation failed, so the generic one
		// must come back out before reporting not-yet-valid.
		if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, t.Amount, t.Fee); err != nil {
			return false, err
		}
		if deposit > 0 {
			if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, 0, deposit); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	return true, nil
}

// Apply settles the transaction on block acceptance: the sender's
// public key is bound, the confirmed balances move, and attachment
// and appendage effects run. The unconfirmed reservation made by
// ApplyUnconfirmed is consumed here, except the referenced deposit,
// which is held until the referent confirms.
func (ap *Applier) Apply(t *Transaction) error {
	sender, err := ap.AM.Get(t.SenderID())
	if err != nil {
		return err
	}
	if sender == nil {
		return fmt.Errorf("sender account %d missing at apply", t.SenderID())
	}
	if err := ap.AM.ApplyPublicKey(sender, t.SenderPublicKey); err != nil {
		return err
	}
	event := t.Type.LedgerEvent()
	fee := t.Fee
	if t.Phased {
		// The fee of a phased transaction is settled when it is
		// accepted into its block, before the phasing outcome.
		fee = 0
	}
	if err := ap.AM.AddToBalance(sender, event, t.ID, -t.Amount, -fee); err != nil {
		return err
	}
	var recipient *account.Account
	if t.RecipientID != 0 {
		recipient, err = ap.AM.AddOrGetAccount(t.RecipientID)
		if err != nil {
			return err
		}
		if t.Amount > 0 {
			if err := ap.AM.AddToBalanceAndUnconfirmedBalance(recipient, event, t.ID, t.Amount, 0); err != nil {
				return err
			}
		}
	}
	if err := t.Type.ApplyAttachment(ap.AM, t, sender, recipient); err != nil {
		return err
	}
	for _, a := range t.Appendages {
		if err := a.Apply(ap.AM, t, sender, recipient); err != nil {
			return err
		}
	}
	return nil
}

// UndoUnconfirmed releases the reservation made by ApplyUnconfirmed.
func (ap *Applier) UndoUnconfirmed(t *Transaction) error {
	sender, err := ap.AM.Get(t.SenderID())
	if err != nil {
		return err
	}
	if sender == nil {
		return fmt.Errorf("sender account %d missing at undo", t.SenderID())
	}
	if err := t.Type.UndoAttachmentUnconfirmed(ap.AM, t, sender); err != nil {
		return err
	}
	event := t.Type.LedgerEvent()
	if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, t.Amount, t.Fee); err != nil {
		return err
	}
	if deposit := ap.deposit(t); deposit > 0 {
		if err := ap.AM.AddToUnconfirmedBalance(sender, event, t.ID, 0, deposit); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs the stateless and stateful checks shared by every
// kind: type resolution, amount and fee ranges, recipient presence,
// the attachment rules, then each appendage.
func (ap *Applier) Validate(t *Transaction) error {
	if t.Type == nil {
		return notValidf("invalid transaction type")
	}
	if t.Amount < 0 || t.Amount >= params.MaxBalance {
		return notValidf("invalid transaction amount %d", t.Amount)
	}
	if t.Fee < 0 || t.Fee >= params.MaxBalance {
		return notValidf("invalid transaction fee %d", t.Fee)
	}
	if t.RecipientID == 0 && t.Type.MustHaveRecipient() {
		return notValidf("%s must have a recipient", typeString(t.Type))
	}
	if t.RecipientID != 0 && !t.Type.CanHaveRecipient() {
		return notValidf("%s cannot have a recipient", typeString(t.Type))
	}
	if err := t.Type.ValidateAttachment(t); err != nil {
		return err
	}
	for _, a := range t.Appendages {
		if err := a.Validate(ap.AM, t); err != nil {
			return err
		}
	}
	return nil
}
