// Package identity implements the account key material and the derived
// values (addresses, nullifiers, authorization signatures) that the folding
// protocol's identity layer needs, per the contract of spec operation
// generate_account and its siblings.
package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/mach34/grapevine/apperrors"
	"github.com/mach34/grapevine/crypto/eddsa"
	"github.com/mach34/grapevine/crypto/field"
	"github.com/mach34/grapevine/crypto/poseidon"
)

// Account holds one participant's full key material: the EdDSA signing key,
// its derived public key, and a stable auth secret used to mint nullifiers
// for this account's relationships. It lives only on the owner's machine;
// nothing in this package ever serializes the secret fields.
type Account struct {
	sk         *eddsa.PrivateKey
	pk         *eddsa.PublicKey
	authSecret *big.Int
}

// GenerateAccount samples a uniform signing key and a uniform auth secret,
// implementing spec operation generate_account.
func GenerateAccount() (*Account, error) {
	sk := eddsa.GenerateKey()
	authSecret, err := rand.Int(rand.Reader, field.Modulus())
	if err != nil {
		return nil, fmt.Errorf("generate account: sample auth secret: %w", err)
	}
	return &Account{
		sk:         sk,
		pk:         sk.Public(),
		authSecret: authSecret,
	}, nil
}

// PublicKey returns the account's Baby Jubjub public key.
func (a *Account) PublicKey() *eddsa.PublicKey {
	return a.pk
}

// PrivateKey returns the account's signing key. Callers outside the owning
// process must never receive this value.
func (a *Account) PrivateKey() *eddsa.PrivateKey {
	return a.sk
}

// AuthSecret returns the account's stable per-lifetime auth secret.
func (a *Account) AuthSecret() *big.Int {
	return a.authSecret
}

// Address derives the compact Poseidon-2 identifier for a public key,
// implementing spec operation address.
func Address(pk *eddsa.PublicKey) (*big.Int, error) {
	if pk == nil {
		return nil, fmt.Errorf("%w: nil public key", apperrors.ErrMalformedInput)
	}
	return poseidon.Hash2(pk.X, pk.Y)
}

// Address is a convenience accessor equivalent to Address(a.PublicKey()).
func (a *Account) Address() (*big.Int, error) {
	return Address(a.pk)
}

// IssueNullifier derives the one-time ticket an issuer hands a recipient at
// relationship activation, implementing spec operation issue_nullifier.
func IssueNullifier(issuerAuthSecret, recipientAddr *big.Int) (*big.Int, error) {
	if issuerAuthSecret == nil || recipientAddr == nil {
		return nil, fmt.Errorf("%w: nil auth secret or recipient address", apperrors.ErrMalformedInput)
	}
	return poseidon.Hash2(issuerAuthSecret, recipientAddr)
}

// SignAuth signs the authorization message binding a nullifier to the
// recipient that may redeem it, implementing spec operation sign_auth.
func SignAuth(issuerSK *eddsa.PrivateKey, nullifier, recipientAddr *big.Int) (*eddsa.Signature, error) {
	msg, err := poseidon.Hash2(nullifier, recipientAddr)
	if err != nil {
		return nil, fmt.Errorf("sign auth: hash message: %w", err)
	}
	return eddsa.Sign(issuerSK, msg)
}

// SignScope signs the scope address a prover claims to be extending a proof
// for, implementing spec operation sign_scope. On the identity step the
// caller passes the prover's own address in place of a scope, per §4.3's
// multiplex on is_degree_step.
func SignScope(proverSK *eddsa.PrivateKey, scopeOrSelfAddr *big.Int) (*eddsa.Signature, error) {
	if scopeOrSelfAddr == nil {
		return nil, fmt.Errorf("%w: nil scope address", apperrors.ErrMalformedInput)
	}
	return eddsa.Sign(proverSK, scopeOrSelfAddr)
}

// UsernameHash derives the human-visible handle hash for an ASCII username
// of at most 30 bytes, per §6's username/address format. The username is
// packed into a single 31-byte field element (big-endian, zero-padded) and
// hashed against a zero domain tag so usernames and single-element phrase
// chunks never collide under Poseidon-2.
func UsernameHash(username string) (*big.Int, error) {
	if len(username) > 30 {
		return nil, fmt.Errorf("%w: username exceeds 30 bytes", apperrors.ErrMalformedInput)
	}
	for i := 0; i < len(username); i++ {
		if username[i] > 0x7f {
			return nil, fmt.Errorf("%w: username must be ASCII", apperrors.ErrMalformedInput)
		}
	}
	var buf [31]byte
	copy(buf[31-len(username):], username)
	elem := new(big.Int).SetBytes(buf[:])
	return poseidon.Hash2(elem, big.NewInt(0))
}
