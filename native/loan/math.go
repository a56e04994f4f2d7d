package loan

import "math/big"

var basisPoints = big.NewInt(10_000)

// interestOwed returns the interest due on a principal portion at the loan's
// term rate: portion * rateBps / 10_000, truncated.
func interestOwed(portion *big.Int, rateBps uint64) *big.Int {
	if portion == nil || portion.Sign() <= 0 || rateBps == 0 {
		return big.NewInt(0)
	}
	owed := new(big.Int).Mul(portion, new(big.Int).SetUint64(rateBps))
	return owed.Quo(owed, basisPoints)
}

// feeAmount returns amount * bps / 10_000, truncated. A nil or non-positive
// amount yields zero.
func feeAmount(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return fee.Quo(fee, basisPoints)
}
