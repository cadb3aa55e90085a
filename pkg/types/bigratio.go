package types

import "math/big"

// BigRatio is an arbitrary-precision rational number used for the witness
// scheduler's virtual-time arithmetic (spec.md §4.5), which otherwise loses
// precision badly under repeated division by vote count across thousands of
// rounds if done in fixed-point.
type BigRatio struct {
	r *big.Rat
}

// NewBigRatio builds a BigRatio equal to num/den.
func NewBigRatio(num, den int64) *BigRatio {
	return &BigRatio{r: big.NewRat(num, den)}
}

// ZeroRatio returns the additive identity.
func ZeroRatio() *BigRatio { return &BigRatio{r: new(big.Rat)} }

// Add returns a+b as a new BigRatio.
func (a *BigRatio) Add(b *BigRatio) *BigRatio {
	return &BigRatio{r: new(big.Rat).Add(a.r, b.r)}
}

// Sub returns a-b as a new BigRatio.
func (a *BigRatio) Sub(b *BigRatio) *BigRatio {
	return &BigRatio{r: new(big.Rat).Sub(a.r, b.r)}
}

// Cmp compares a and b: -1, 0, +1.
func (a *BigRatio) Cmp(b *BigRatio) int { return a.r.Cmp(b.r) }

// DivInt64 returns a/n as a new BigRatio.
func (a *BigRatio) DivInt64(n int64) *BigRatio {
	return &BigRatio{r: new(big.Rat).Quo(a.r, big.NewRat(n, 1))}
}

func (a *BigRatio) String() string { return a.r.RatString() }
