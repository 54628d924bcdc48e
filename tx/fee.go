package tx

import (
	"github.com/lumechain/go-lume/params"
)

// Fee computes the fee contribution of a transaction or one of its
// appendages, in quill.
type Fee interface {
	Calculate(t *Transaction, a Appendix) int64
}

// ConstantFee charges a fixed amount.
type ConstantFee int64

func (f ConstantFee) Calculate(t *Transaction, a Appendix) int64 {
	return int64(f)
}

// NoFee charges nothing.
var NoFee = ConstantFee(0)

// DefaultFee is the baseline fee of ordinary transactions.
var DefaultFee = ConstantFee(params.OneLume)

// SizeBasedFee charges per started unit of payload size beyond a
// one-unit free allowance, on top of an optional constant part.
type SizeBasedFee struct {
	Constant   int64
	FeePerSize int64
	UnitSize   int
	// Size reports the payload size the fee is based on.
	Size func(t *Transaction, a Appendix) int
}

func (f *SizeBasedFee) Calculate(t *Transaction, a Appendix) int64 {
	size := f.Size(t, a)
	if size <= 0 {
		return f.Constant
	}
	return f.Constant + int64((size-1)/f.UnitSize)*f.FeePerSize
}
