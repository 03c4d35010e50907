// Package eddsa wraps EdDSA-Poseidon signing and verification over the Baby
// Jubjub curve embedded in the BN128 scalar field, using the iden3 native
// implementation rather than a circuit-gadget one: every signature produced
// or checked out-of-circuit by this package is later re-verified inside
// StepCircuit using the gnark-native counterpart gadgets.
package eddsa

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/mach34/grapevine/apperrors"
)

// PrivateKey is a Baby Jubjub EdDSA signing key.
type PrivateKey = babyjub.PrivateKey

// PublicKey is a Baby Jubjub point used to verify EdDSA-Poseidon signatures.
type PublicKey = babyjub.PublicKey

// Signature is a decompressed EdDSA-Poseidon signature: the nonce commitment
// point R8 and the scalar response S.
type Signature struct {
	R8x, R8y *big.Int
	S        *big.Int
}

// GenerateKey samples a fresh, uniformly random private key.
func GenerateKey() *PrivateKey {
	sk := babyjub.NewRandPrivKey()
	return &sk
}

// Sign computes an EdDSA-Poseidon signature over a single field-element
// message, implementing spec operation eddsa_sign.
func Sign(sk *PrivateKey, msg *big.Int) (*Signature, error) {
	if sk == nil || msg == nil {
		return nil, fmt.Errorf("%w: nil signing key or message", apperrors.ErrMalformedInput)
	}
	sig := sk.SignPoseidon(msg)
	return &Signature{R8x: sig.R8.X, R8y: sig.R8.Y, S: sig.S}, nil
}

// Verify checks an EdDSA-Poseidon signature against a public key and
// message, implementing spec operation eddsa_verify. It returns an error
// (wrapping apperrors.ErrMalformedInput) for a public key or signature that
// fails to decode onto the curve, and a plain false (no error) for a
// well-formed signature that simply does not verify.
func Verify(pk *PublicKey, msg *big.Int, sig *Signature) (bool, error) {
	if pk == nil || msg == nil || sig == nil {
		return false, fmt.Errorf("%w: nil public key, message or signature", apperrors.ErrMalformedInput)
	}
	if !pointInCurve(pk.X, pk.Y) {
		return false, fmt.Errorf("%w: public key not on curve", apperrors.ErrMalformedInput)
	}
	if sig.S == nil || sig.S.Sign() < 0 || sig.S.Cmp(babyjub.SubOrder) >= 0 {
		return false, fmt.Errorf("%w: signature scalar out of subgroup order", apperrors.ErrMalformedInput)
	}
	if !pointInCurve(sig.R8x, sig.R8y) {
		return false, fmt.Errorf("%w: signature commitment not on curve", apperrors.ErrMalformedInput)
	}

	native := &babyjub.Signature{
		R8: &babyjub.Point{X: sig.R8x, Y: sig.R8y},
		S:  sig.S,
	}
	return pk.VerifyPoseidon(msg, native), nil
}

// Compress serializes a signature into its 64-byte canonical form.
func (s *Signature) Compress() [64]byte {
	native := &babyjub.Signature{R8: &babyjub.Point{X: s.R8x, Y: s.R8y}, S: s.S}
	return native.Compress()
}

// DecompressSignature parses a 64-byte compressed signature.
func DecompressSignature(buf [64]byte) (*Signature, error) {
	native, err := babyjub.DecompressSig(buf[:])
	if err != nil {
		return nil, fmt.Errorf("%w: decompress signature: %v", apperrors.ErrMalformedInput, err)
	}
	return &Signature{R8x: native.R8.X, R8y: native.R8.Y, S: native.S}, nil
}

func pointInCurve(x, y *big.Int) bool {
	if x == nil || y == nil {
		return false
	}
	p := babyjub.Point{X: x, Y: y}
	return p.InCurve()
}
