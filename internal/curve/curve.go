// Package curve implements the constant-product pricing and share math.
//
// All functions are pure. Inputs and outputs are uint64 token amounts; every
// intermediate is computed in 128-bit unsigned arithmetic and checked, so a
// result either fits or the call fails. Nothing is silently truncated.
//
// Every division rounds so that the pool keeps the remainder: the fee-adjusted
// input rounds down, while the post-trade output reserve, the deposit ratio and
// the retained share of each reserve round up.
package curve

import (
	"github.com/holiman/uint256"

	"github.com/lugondev/go-cpamm/internal/errors"
)

const (
	// Precision is the fixed-point scale used for deposit and withdraw ratios.
	Precision uint64 = 1_000_000

	// FeeDenominator is the basis-point denominator. A fee must stay strictly below it.
	FeeDenominator uint64 = 10_000
)

// Curve errors. They are arithmetic-kind and are hidden behind errors.ErrInvalidData
// by the processors.
var (
	ErrOverflow    = errors.ErrOverflow
	ErrUnderflow   = errors.ErrUnderflow
	ErrZeroBalance = errors.ErrZeroBalance
)

// u128 wraps a uint256 and keeps every value within 128 bits.
type u128 struct {
	v uint256.Int
}

func from(x uint64) u128 {
	var r u128
	r.v.SetUint64(x)
	return r
}

func (a u128) mul(b u128) (u128, error) {
	var r u128
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow || r.v.BitLen() > 128 {
		return u128{}, ErrOverflow
	}
	return r, nil
}

func (a u128) add(b u128) (u128, error) {
	var r u128
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow || r.v.BitLen() > 128 {
		return u128{}, ErrOverflow
	}
	return r, nil
}

func (a u128) sub(b u128) (u128, error) {
	var r u128
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return u128{}, ErrUnderflow
	}
	return r, nil
}

func (a u128) div(b u128) (u128, error) {
	if b.v.IsZero() {
		return u128{}, ErrZeroBalance
	}
	var r u128
	r.v.Div(&a.v, &b.v)
	return r, nil
}

// divCeil returns ceil(a/b).
func (a u128) divCeil(b u128) (u128, error) {
	if b.v.IsZero() {
		return u128{}, ErrZeroBalance
	}
	var q, r u128
	q.v.DivMod(&a.v, &b.v, &r.v)
	if !r.v.IsZero() {
		q.v.AddUint64(&q.v, 1)
	}
	return q, nil
}

func (a u128) uint64() (uint64, error) {
	if !a.v.IsUint64() {
		return 0, ErrOverflow
	}
	return a.v.Uint64(), nil
}

// SwapOutput returns how many units of the output reserve a trader receives for
// amountIn units of the input reserve, after charging feeBps basis points.
func SwapOutput(reserveIn, reserveOut, amountIn uint64, feeBps uint16) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrZeroBalance
	}
	if uint64(feeBps) >= FeeDenominator {
		return 0, ErrOverflow
	}

	scaled, err := from(amountIn).mul(from(FeeDenominator - uint64(feeBps)))
	if err != nil {
		return 0, err
	}
	afterFee, err := scaled.div(from(FeeDenominator))
	if err != nil {
		return 0, err
	}

	k, err := from(reserveIn).mul(from(reserveOut))
	if err != nil {
		return 0, err
	}
	newIn, err := from(reserveIn).add(afterFee)
	if err != nil {
		return 0, err
	}
	newOut, err := k.divCeil(newIn)
	if err != nil {
		return 0, err
	}
	out, err := from(reserveOut).sub(newOut)
	if err != nil {
		return 0, err
	}
	return out.uint64()
}

// SwapOutputYToX is SwapOutput in the y→x direction for a pool with reserves x, y.
func SwapOutputYToX(x, y, amountIn uint64, feeBps uint16) (uint64, error) {
	return SwapOutput(y, x, amountIn, feeBps)
}

// DepositAmounts returns the reserve amounts required to mint shares new pool
// shares against reserves x, y and current supply l.
func DepositAmounts(x, y, l, shares uint64) (uint64, uint64, error) {
	if l == 0 {
		return 0, 0, ErrZeroBalance
	}
	total, err := from(l).add(from(shares))
	if err != nil {
		return 0, 0, err
	}
	ratio, err := scaledRatio(total, l)
	if err != nil {
		return 0, 0, err
	}

	dx, err := depositLeg(x, ratio)
	if err != nil {
		return 0, 0, err
	}
	dy, err := depositLeg(y, ratio)
	if err != nil {
		return 0, 0, err
	}
	return dx, dy, nil
}

// WithdrawAmounts returns the reserve amounts released when burned shares are
// redeemed against reserves x, y and current supply l.
func WithdrawAmounts(x, y, l, burned uint64) (uint64, uint64, error) {
	if l == 0 || burned > l {
		return 0, 0, ErrZeroBalance
	}
	ratio, err := scaledRatio(from(l-burned), l)
	if err != nil {
		return 0, 0, err
	}

	wx, err := withdrawLeg(x, ratio)
	if err != nil {
		return 0, 0, err
	}
	wy, err := withdrawLeg(y, ratio)
	if err != nil {
		return 0, 0, err
	}
	return wx, wy, nil
}

// InitialShares returns the share supply minted by the first deposit into an empty pool.
func InitialShares(ax, ay uint64) (uint64, error) {
	if ax == 0 || ay == 0 {
		return 0, ErrZeroBalance
	}
	return max(ax, ay), nil
}

// SpotPrice returns the marginal price of x in units of y, scaled by Precision.
func SpotPrice(x, y uint64) (uint64, error) {
	if x == 0 || y == 0 {
		return 0, ErrZeroBalance
	}
	scaled, err := from(y).mul(from(Precision))
	if err != nil {
		return 0, err
	}
	price, err := scaled.div(from(x))
	if err != nil {
		return 0, err
	}
	return price.uint64()
}

// scaledRatio returns ceil(num*Precision/l).
func scaledRatio(num u128, l uint64) (u128, error) {
	scaled, err := num.mul(from(Precision))
	if err != nil {
		return u128{}, err
	}
	return scaled.divCeil(from(l))
}

// depositLeg returns ceil(reserve*ratio/Precision) - reserve.
func depositLeg(reserve uint64, ratio u128) (uint64, error) {
	grown, err := from(reserve).mul(ratio)
	if err != nil {
		return 0, err
	}
	grown, err = grown.divCeil(from(Precision))
	if err != nil {
		return 0, err
	}
	d, err := grown.sub(from(reserve))
	if err != nil {
		return 0, err
	}
	return d.uint64()
}

// withdrawLeg returns reserve - ceil(reserve*ratio/Precision).
func withdrawLeg(reserve uint64, ratio u128) (uint64, error) {
	kept, err := from(reserve).mul(ratio)
	if err != nil {
		return 0, err
	}
	kept, err = kept.divCeil(from(Precision))
	if err != nil {
		return 0, err
	}
	w, err := from(reserve).sub(kept)
	if err != nil {
		return 0, err
	}
	return w.uint64()
}
