// Package session implements the proof session manager: the higher-level
// workflows of spec.md §4.5 built on top of circuit and ivc — creating a
// phrase-root proof, extending a proof from an authorization, verifying a
// claimed degree, issuing authorizations to a direct relation, and
// reconciling a shorter chain when one becomes available.
package session

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mach34/grapevine/apperrors"
	"github.com/mach34/grapevine/circuit"
	nativeeddsa "github.com/mach34/grapevine/crypto/eddsa"
	"github.com/mach34/grapevine/identity"
	"github.com/mach34/grapevine/ivc"
	"github.com/mach34/grapevine/log"
)

// AuthToken is the wire format a relation issuer hands a recipient, per
// spec.md §6: the issuer's public key and address, the nullifier it
// minted for the recipient, and the issuer's signature authorizing it.
type AuthToken struct {
	IssuerPK      [2]*big.Int `json:"issuer_pk"`
	IssuerAddress *big.Int    `json:"issuer_address"`
	Nullifier     *big.Int    `json:"nullifier"`
	AuthSig       [3]*big.Int `json:"auth_sig"`
}

func tokenToEddsa(t *AuthToken) (*nativeeddsa.PublicKey, *nativeeddsa.Signature) {
	pk := &nativeeddsa.PublicKey{X: t.IssuerPK[0], Y: t.IssuerPK[1]}
	sig := &nativeeddsa.Signature{R8x: t.AuthSig[0], R8y: t.AuthSig[1], S: t.AuthSig[2]}
	return pk, sig
}

// record is one owner's currently-held proof for one phrase scope.
type record struct {
	proof *ivc.FoldedProof
	state [circuit.StateWidth]*big.Int
	// relationAddr is the owner's own address, the value the proof's
	// terminal relation slot carries after the owner's real step.
	// Reconcile compares degrees only and does not read this field.
	relationAddr *big.Int
}

type storeKey struct {
	owner string
	scope string
}

// Manager holds the process-wide PublicParams and the local proof store,
// implementing spec.md §4.5. The only shared, mutated state is the store
// itself and the nullifier-reuse ledger; PublicParams is read-only after
// construction (spec.md §5).
type Manager struct {
	pp *ivc.PublicParams

	mu             sync.Mutex
	store          map[storeKey]*record
	usedNullifiers map[string]struct{}
}

// NewManager constructs a Manager bound to a single PublicParams instance.
func NewManager(pp *ivc.PublicParams) *Manager {
	return &Manager{
		pp:             pp,
		store:          make(map[storeKey]*record),
		usedNullifiers: make(map[string]struct{}),
	}
}

func key(owner, scope *big.Int) storeKey {
	return storeKey{owner: owner.String(), scope: scope.String()}
}

// CreatePhraseRootProof builds the identity-step-then-chaff proof for a
// phrase originator, implementing §4.5's "create phrase-root proof"
// workflow. The returned proof's terminal state has degree=0 and
// scope=relation=addr(owner).
func (m *Manager) CreatePhraseRootProof(owner *identity.Account) (*ivc.FoldedProof, [circuit.StateWidth]*big.Int, error) {
	corrID := uuid.New()
	ownerAddr, err := owner.Address()
	if err != nil {
		return nil, [circuit.StateWidth]*big.Int{}, fmt.Errorf("create phrase root proof: %w", err)
	}
	log.Infow("creating phrase-root proof", "correlation_id", corrID, "owner", ownerAddr)

	proof, state := ivc.Init()

	scopeSig, err := identity.SignScope(owner.PrivateKey(), ownerAddr)
	if err != nil {
		return nil, state, fmt.Errorf("create phrase root proof: sign scope: %w", err)
	}
	idWitness := &circuit.StepWitness{
		StepIn:         state,
		ProverPubkey:   owner.PublicKey(),
		ScopeSignature: scopeSig,
	}
	proof, state, err = ivc.Step(m.pp, proof, state, idWitness)
	if err != nil {
		return nil, state, fmt.Errorf("create phrase root proof: identity step: %w", err)
	}

	proof, state, err = m.chaff(proof, state)
	if err != nil {
		return nil, state, fmt.Errorf("create phrase root proof: %w", err)
	}

	m.mu.Lock()
	m.store[key(ownerAddr, ownerAddr)] = &record{proof: proof, state: state, relationAddr: ownerAddr}
	m.mu.Unlock()

	log.Debugw("phrase-root proof created", "correlation_id", corrID, "scope", ownerAddr)
	return proof, state, nil
}

// ExtendProof builds the degree-step-then-chaff extension described in
// §4.5's "extend proof as relation R of prior prover Q" workflow. prior is
// Q's published proof and priorState its terminal state; token is the
// authorization Q issued to recipient.
func (m *Manager) ExtendProof(recipient *identity.Account, prior *ivc.FoldedProof, priorState [circuit.StateWidth]*big.Int, token *AuthToken) (*ivc.FoldedProof, [circuit.StateWidth]*big.Int, error) {
	corrID := uuid.New()
	if prior == nil || token == nil {
		return nil, priorState, fmt.Errorf("%w: nil prior proof or authorization token", apperrors.ErrMalformedInput)
	}
	if priorState[0] == nil || priorState[0].Sign() != 0 {
		return nil, priorState, fmt.Errorf("%w: prior proof's terminal state is not chaff-terminated", apperrors.ErrProtocolViolation)
	}

	recipientAddr, err := recipient.Address()
	if err != nil {
		return nil, priorState, fmt.Errorf("extend proof: %w", err)
	}
	log.Infow("extending proof", "correlation_id", corrID, "recipient", recipientAddr, "issuer", token.IssuerAddress)

	nullifierKey := token.IssuerAddress.String() + ":" + token.Nullifier.String()
	m.mu.Lock()
	if _, used := m.usedNullifiers[nullifierKey]; used {
		m.mu.Unlock()
		return nil, priorState, fmt.Errorf("%w: nullifier already embedded in a proof", apperrors.ErrProtocolViolation)
	}
	m.mu.Unlock()

	relationPk, authSig := tokenToEddsa(token)
	scope := priorState[2]
	scopeSig, err := identity.SignScope(recipient.PrivateKey(), scope)
	if err != nil {
		return nil, priorState, fmt.Errorf("extend proof: sign scope: %w", err)
	}

	w := &circuit.StepWitness{
		StepIn:            priorState,
		RelationPubkey:    relationPk,
		ProverPubkey:      recipient.PublicKey(),
		RelationNullifier: token.Nullifier,
		AuthSignature:     authSig,
		ScopeSignature:    scopeSig,
	}
	proof, state, err := ivc.Step(m.pp, prior, priorState, w)
	if err != nil {
		return nil, priorState, fmt.Errorf("extend proof: degree step: %w", err)
	}

	proof, state, err = m.chaff(proof, state)
	if err != nil {
		return nil, state, fmt.Errorf("extend proof: %w", err)
	}

	m.mu.Lock()
	m.usedNullifiers[nullifierKey] = struct{}{}
	m.store[key(recipientAddr, scope)] = &record{proof: proof, state: state, relationAddr: recipientAddr}
	m.mu.Unlock()

	log.Debugw("proof extended", "correlation_id", corrID, "degree", state[1], "scope", scope)
	return proof, state, nil
}

// chaff applies the mandatory terminating no-op step (§4.3's chaff
// protocol), with no private witness values supplied, since no constraint
// binds them (circuit.Assign fills in the curve identity point and zero
// scalars). priorState already carries obfuscate=1, forced by the preceding
// real step's output, so it is passed through unmodified as this step's
// input.
func (m *Manager) chaff(prior *ivc.FoldedProof, priorState [circuit.StateWidth]*big.Int) (*ivc.FoldedProof, [circuit.StateWidth]*big.Int, error) {
	w := &circuit.StepWitness{StepIn: priorState, IsChaff: true}
	return ivc.Step(m.pp, prior, priorState, w)
}

// VerifyProof checks a proof against a claimed degree and scope,
// implementing §4.5's "verify a proof at claimed degree d from claimed
// scope S" workflow.
func (m *Manager) VerifyProof(proof *ivc.FoldedProof, degree int64, scope *big.Int) bool {
	var expected [circuit.StateWidth]*big.Int
	expected[0] = big.NewInt(0)
	expected[1] = big.NewInt(degree)
	expected[2] = scope
	for i := 3; i < circuit.StateWidth; i++ {
		if proof == nil || proof.State[i] == nil {
			expected[i] = big.NewInt(0)
			continue
		}
		expected[i] = proof.State[i]
	}
	return ivc.Verify(m.pp, proof, expected)
}

// IssueAuthorization mints the tuple a relation issuer hands a recipient
// at relationship activation, implementing §4.5's "issue authorization"
// workflow.
func (m *Manager) IssueAuthorization(issuer *identity.Account, recipientAddr *big.Int) (*AuthToken, error) {
	issuerAddr, err := issuer.Address()
	if err != nil {
		return nil, fmt.Errorf("issue authorization: %w", err)
	}
	nullifier, err := identity.IssueNullifier(issuer.AuthSecret(), recipientAddr)
	if err != nil {
		return nil, fmt.Errorf("issue authorization: %w", err)
	}
	sig, err := identity.SignAuth(issuer.PrivateKey(), nullifier, recipientAddr)
	if err != nil {
		return nil, fmt.Errorf("issue authorization: %w", err)
	}
	pk := issuer.PublicKey()
	log.Infow("issued authorization", "issuer", issuerAddr, "recipient", recipientAddr, "nullifier", nullifier)
	return &AuthToken{
		IssuerPK:      [2]*big.Int{pk.X, pk.Y},
		IssuerAddress: issuerAddr,
		Nullifier:     nullifier,
		AuthSig:       [3]*big.Int{sig.R8x, sig.R8y, sig.S},
	}, nil
}

// Candidate is one relation's currently published proof, offered as a
// possible shorter path during reconciliation.
type Candidate struct {
	RelationProof *ivc.FoldedProof
	RelationState [circuit.StateWidth]*big.Int
	Token         *AuthToken
}

// Reconcile rebuilds owner's proof for scope from candidate if candidate
// yields a strictly shorter chain, implementing §4.5's "reconcile"
// workflow and its invariant that the manager keeps at most one proof per
// (owner, scope).
func (m *Manager) Reconcile(owner *identity.Account, scope *big.Int, candidate *Candidate) (*ivc.FoldedProof, [circuit.StateWidth]*big.Int, bool, error) {
	ownerAddr, err := owner.Address()
	if err != nil {
		return nil, [circuit.StateWidth]*big.Int{}, false, fmt.Errorf("reconcile: %w", err)
	}

	m.mu.Lock()
	existing, ok := m.store[key(ownerAddr, scope)]
	m.mu.Unlock()
	if !ok {
		return nil, [circuit.StateWidth]*big.Int{}, false, fmt.Errorf("%w: no existing proof for scope", apperrors.ErrProtocolViolation)
	}
	if candidate == nil || candidate.RelationProof == nil {
		return existing.proof, existing.state, false, nil
	}
	if candidate.RelationState[2] == nil || candidate.RelationState[2].Cmp(scope) != 0 {
		return nil, existing.state, false, fmt.Errorf("%w: candidate proof has a different scope", apperrors.ErrProtocolViolation)
	}

	newDegree := new(big.Int).Add(candidate.RelationState[1], big.NewInt(1))
	if newDegree.Cmp(existing.state[1]) >= 0 {
		return existing.proof, existing.state, false, nil
	}

	log.Infow("reconciling shorter path", "owner", ownerAddr, "scope", scope, "old_degree", existing.state[1], "new_degree", newDegree)
	proof, state, err := m.ExtendProof(owner, candidate.RelationProof, candidate.RelationState, candidate.Token)
	if err != nil {
		return nil, existing.state, false, fmt.Errorf("reconcile: %w", err)
	}
	return proof, state, true, nil
}

// ReconcileAll runs Reconcile concurrently across independent (scope,
// candidate) pairs, implementing §5's permission for distinct accumulators
// to be stepped in parallel threads. Each entry's key is the phrase scope;
// its value is the best candidate known for that scope.
func (m *Manager) ReconcileAll(owner *identity.Account, candidates map[string]*Candidate) (map[string]bool, error) {
	results := make(map[string]bool, len(candidates))
	var mu sync.Mutex

	g := new(errgroup.Group)
	for scopeStr, candidate := range candidates {
		scope, ok := new(big.Int).SetString(scopeStr, 10)
		if !ok {
			return nil, fmt.Errorf("%w: scope key %q is not a decimal integer", apperrors.ErrMalformedInput, scopeStr)
		}
		candidate := candidate
		g.Go(func() error {
			_, _, replaced, err := m.Reconcile(owner, scope, candidate)
			if err != nil {
				return fmt.Errorf("reconcile scope %s: %w", scopeStr, err)
			}
			mu.Lock()
			results[scopeStr] = replaced
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Proof returns the currently stored proof for (owner, scope), if any.
func (m *Manager) Proof(ownerAddr, scope *big.Int) (*ivc.FoldedProof, [circuit.StateWidth]*big.Int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[key(ownerAddr, scope)]
	if !ok {
		return nil, [circuit.StateWidth]*big.Int{}, false
	}
	return r.proof, r.state, true
}
