// Package field provides scalar arithmetic helpers over the BN128 scalar
// field, the field every Poseidon hash, address, and proof public input in
// this module is an element of.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Modulus returns the BN128 scalar field prime.
func Modulus() *big.Int {
	return fr.Modulus()
}

// Zero returns the additive identity of the field.
func Zero() *big.Int {
	return new(big.Int)
}

// IsZero reports whether x is exactly zero.
func IsZero(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

// Add returns (a + b) mod the field modulus.
func Add(a, b *big.Int) *big.Int {
	z := new(big.Int).Add(a, b)
	return z.Mod(z, Modulus())
}

// Mul returns (a * b) mod the field modulus.
func Mul(a, b *big.Int) *big.Int {
	z := new(big.Int).Mul(a, b)
	return z.Mod(z, Modulus())
}

// Equal reports whether a and b represent the same field element, reducing
// both modulo the field modulus before comparing.
func Equal(a, b *big.Int) bool {
	return Reduce(a).Cmp(Reduce(b)) == 0
}

// Reduce returns x mod the field modulus as a new value, leaving x untouched.
func Reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, Modulus())
}

// InRange reports whether x is a canonical representative of the field,
// i.e. 0 <= x < modulus. Scalars read from external input are validated
// with this before use.
func InRange(x *big.Int) bool {
	if x == nil || x.Sign() < 0 {
		return false
	}
	return x.Cmp(Modulus()) < 0
}
