// Package params holds the protocol constants of the LUME chain.
// Changing any value here is a consensus change.
package params

const (
	// OneLume is the number of quill, the smallest currency unit,
	// in one LUME.
	OneLume int64 = 100000000

	// MaxBalanceLume is the total supply in LUME.
	MaxBalanceLume int64 = 8888888888

	// MaxBalance is the total supply in quill.
	MaxBalance int64 = MaxBalanceLume * OneLume

	// MaxRollback is the deepest reorganization the node supports.
	MaxRollback int64 = 720

	// GuaranteedBalanceConfirmations is the trailing window over
	// which confirmed additions are subtracted from the balance to
	// obtain the guaranteed balance.
	GuaranteedBalanceConfirmations int64 = 1440

	// MinForgingBalance is the minimum guaranteed balance, in quill,
	// below which the effective balance is zero.
	MinForgingBalance int64 = 888 * OneLume

	// KeyFreshnessActivationHeight is the height at which the
	// fresh-key forging restriction activates.
	KeyFreshnessActivationHeight int64 = 2880

	// KeyFreshnessWindow is the number of blocks a public key must
	// have been bound before its account may forge.
	KeyFreshnessWindow int64 = 1440

	// UnconfirmedPoolDeposit is the surcharge, in quill, held from
	// the unconfirmed balance of transactions carrying a referenced
	// transaction hash.
	UnconfirmedPoolDeposit int64 = 100 * OneLume

	// ReferencedTransactionDepositTimestamp gates the pool deposit:
	// only transactions with a later timestamp pay it.
	ReferencedTransactionDepositTimestamp int64 = 1

	// MaxArbitraryMessageLength bounds the payload of a message
	// appendage, in bytes.
	MaxArbitraryMessageLength = 1000

	// LedgerTrimKeep is the number of trailing blocks of account
	// ledger entries retained when trimming.
	LedgerTrimKeep int64 = 30000
)
