package identity

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGenerateAccountDistinctKeys(t *testing.T) {
	c := qt.New(t)
	a, err := GenerateAccount()
	c.Assert(err, qt.IsNil)
	b, err := GenerateAccount()
	c.Assert(err, qt.IsNil)

	c.Assert(a.PublicKey().X.Cmp(b.PublicKey().X), qt.Not(qt.Equals), 0)
	c.Assert(a.AuthSecret().Cmp(b.AuthSecret()), qt.Not(qt.Equals), 0)
}

func TestAddressIsDeterministic(t *testing.T) {
	c := qt.New(t)
	a, err := GenerateAccount()
	c.Assert(err, qt.IsNil)

	addr1, err := a.Address()
	c.Assert(err, qt.IsNil)
	addr2, err := Address(a.PublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(addr1.Cmp(addr2), qt.Equals, 0)
}

func TestIssueNullifierAndAuthSignature(t *testing.T) {
	c := qt.New(t)
	issuer, err := GenerateAccount()
	c.Assert(err, qt.IsNil)
	recipient, err := GenerateAccount()
	c.Assert(err, qt.IsNil)

	recipientAddr, err := recipient.Address()
	c.Assert(err, qt.IsNil)

	nullifier, err := IssueNullifier(issuer.AuthSecret(), recipientAddr)
	c.Assert(err, qt.IsNil)
	c.Assert(nullifier, qt.Not(qt.IsNil))

	sig, err := SignAuth(issuer.PrivateKey(), nullifier, recipientAddr)
	c.Assert(err, qt.IsNil)
	c.Assert(sig, qt.Not(qt.IsNil))
}

func TestSignScopeRequiresNonNilAddress(t *testing.T) {
	c := qt.New(t)
	acc, err := GenerateAccount()
	c.Assert(err, qt.IsNil)
	_, err = SignScope(acc.PrivateKey(), nil)
	c.Assert(err, qt.ErrorMatches, "malformed input:.*")
}

func TestUsernameHash(t *testing.T) {
	c := qt.New(t)
	h1, err := UsernameHash("alice")
	c.Assert(err, qt.IsNil)
	h2, err := UsernameHash("alice")
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Equals, 0)

	h3, err := UsernameHash("bob")
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h3), qt.Not(qt.Equals), 0)

	_, err = UsernameHash("this username is definitely way too long for the budget")
	c.Assert(err, qt.ErrorMatches, "malformed input:.*")
}
