// Package circuit defines the per-step arithmetic relation the folding
// protocol enforces: StepCircuit, its public StepState vectors, its private
// witness, and the native (out-of-circuit) mirror of the same marshalling
// rules the IVC driver needs to compute new_state without re-running the
// prover.
package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/poseidon2"
	"github.com/consensys/gnark/std/signature/eddsa"

	"github.com/mach34/grapevine/apperrors"
	nativeeddsa "github.com/mach34/grapevine/crypto/eddsa"
	"github.com/mach34/grapevine/crypto/poseidon"
)

// StateWidth is the width of a StepState public vector (spec.md §3).
const StateWidth = 12

// MaxDegree is the highest degree of separation a proof may claim.
const MaxDegree = 8

// dummyX, dummyY, dummyS are the Baby Jubjub identity point's coordinates
// and a zero scalar. Substituting these for a real public key, signature
// commitment and scalar leaves any EdDSA verification equation of the form
// [S]B == R + [H]A trivially satisfied, since scalar multiplication and
// addition of the identity element are both absorbing. This lets a
// disabled sub-relation's eddsa.Verify call — which gnark's native package
// always executes, with no boolean return to gate on — receive constants
// instead of the step's real (and possibly unrelated) witness values.
var (
	dummyX = big.NewInt(0)
	dummyY = big.NewInt(1)
	dummyS = big.NewInt(0)
)

// StepCircuit is the per-step relation R of §4.3. StepIn and StepOut are
// the public twelve-scalar StepState vectors; every other field is the
// step's private witness.
type StepCircuit struct {
	StepIn  [StateWidth]frontend.Variable `gnark:",public"`
	StepOut [StateWidth]frontend.Variable `gnark:",public"`

	RelationPubkey    eddsa.PublicKey
	ProverPubkey      eddsa.PublicKey
	RelationNullifier frontend.Variable
	AuthSignature     eddsa.Signature
	ScopeSignature    eddsa.Signature
}

// Define implements frontend.Circuit.
func (c *StepCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, twistededwards.BN254)
	if err != nil {
		return fmt.Errorf("step circuit: instantiate curve: %w", err)
	}
	hasher, err := poseidon2.NewMerkleDamgardHasher(api)
	if err != nil {
		return fmt.Errorf("step circuit: instantiate hasher: %w", err)
	}

	obfuscate := c.StepIn[0]
	degree := c.StepIn[1]
	scope := c.StepIn[2]
	relation := c.StepIn[3]

	api.AssertIsBoolean(obfuscate)
	notObfuscate := api.Sub(1, obfuscate)

	scopeIsZero := api.IsZero(scope)
	isIdentityStep := api.Mul(scopeIsZero, notObfuscate)
	isDegreeStep := api.Mul(api.Sub(1, scopeIsZero), notObfuscate)

	// degree <= MaxDegree when this is a degree step.
	cmp := api.Cmp(degree, MaxDegree)
	degreeExceeded := api.IsZero(api.Sub(cmp, 1))
	api.AssertIsEqual(api.Select(isDegreeStep, degreeExceeded, 0), 0)

	// every step_in[i] == 0 when this is the identity step.
	for i := 0; i < StateWidth; i++ {
		api.AssertIsEqual(api.Select(isIdentityStep, c.StepIn[i], 0), 0)
	}

	proverAddr := hashPoint(api, hasher, c.ProverPubkey.A)

	// relation-pubkey binding: only meaningful on a degree step.
	relationAddr := hashPoint(api, hasher, c.RelationPubkey.A)
	api.AssertIsEqual(api.Select(isDegreeStep, api.Sub(relationAddr, relation), 0), 0)

	// scope signature: required whenever this step is not chaff. The
	// signed message multiplexes on is_degree_step per §4.3.
	scopeMsg := api.Select(isDegreeStep, scope, proverAddr)
	scopeSig, scopePk := selectSignature(api, notObfuscate, c.ScopeSignature, c.ProverPubkey)
	scopeMsg = api.Select(notObfuscate, scopeMsg, 0)
	if err := eddsa.Verify(curve, scopeSig, scopeMsg, scopePk, hasher); err != nil {
		return fmt.Errorf("step circuit: scope signature gadget: %w", err)
	}

	// auth signature: required only on a degree step.
	authMsg := hashPair(api, hasher, c.RelationNullifier, proverAddr)
	authSig, authPk := selectSignature(api, isDegreeStep, c.AuthSignature, c.RelationPubkey)
	authMsg = api.Select(isDegreeStep, authMsg, 0)
	if err := eddsa.Verify(curve, authSig, authMsg, authPk, hasher); err != nil {
		return fmt.Errorf("step circuit: auth signature gadget: %w", err)
	}

	// output marshalling, §4.3.
	api.AssertIsEqual(c.StepOut[0], notObfuscate)
	api.AssertIsEqual(c.StepOut[1], api.Add(degree, isDegreeStep))
	api.AssertIsEqual(c.StepOut[2], api.Select(isIdentityStep, proverAddr, scope))
	api.AssertIsEqual(c.StepOut[3], api.Select(notObfuscate, proverAddr, relation))
	for slot := 0; slot < MaxDegree; slot++ {
		atSlot := api.IsZero(api.Sub(degree, slot))
		writeHere := api.Mul(isDegreeStep, atSlot)
		api.AssertIsEqual(c.StepOut[4+slot], api.Select(writeHere, c.RelationNullifier, c.StepIn[4+slot]))
	}

	return nil
}

func hashPoint(api frontend.API, h interface {
	Write(...frontend.Variable)
	Sum() frontend.Variable
	Reset()
}, p twistededwards.Point) frontend.Variable {
	h.Reset()
	h.Write(p.X, p.Y)
	return h.Sum()
}

func hashPair(api frontend.API, h interface {
	Write(...frontend.Variable)
	Sum() frontend.Variable
	Reset()
}, a, b frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(a, b)
	return h.Sum()
}

// selectSignature multiplexes between the step's real (signature, public
// key) witness and the universally-valid identity dummy, keyed on enable.
func selectSignature(api frontend.API, enable frontend.Variable, sig eddsa.Signature, pk eddsa.PublicKey) (eddsa.Signature, eddsa.PublicKey) {
	selected := eddsa.Signature{
		R: twistededwards.Point{
			X: api.Select(enable, sig.R.X, dummyX),
			Y: api.Select(enable, sig.R.Y, dummyY),
		},
		S: api.Select(enable, sig.S, dummyS),
	}
	selectedPk := eddsa.PublicKey{
		A: twistededwards.Point{
			X: api.Select(enable, pk.A.X, dummyX),
			Y: api.Select(enable, pk.A.Y, dummyY),
		},
	}
	return selected, selectedPk
}

// StepWitness is the out-of-circuit description of one step's private
// witness, prior to being assigned into a StepCircuit instance.
type StepWitness struct {
	StepIn  [StateWidth]*big.Int
	IsChaff bool

	RelationPubkey    *nativeeddsa.PublicKey
	ProverPubkey      *nativeeddsa.PublicKey
	RelationNullifier *big.Int
	AuthSignature     *nativeeddsa.Signature
	ScopeSignature    *nativeeddsa.Signature
}

// Assign builds a fully-populated StepCircuit (public and private fields)
// from a StepWitness, computing StepOut natively via NativeStepOut so the
// returned circuit can be handed directly to witness construction.
func Assign(w *StepWitness) (*StepCircuit, [StateWidth]*big.Int, error) {
	if w == nil {
		return nil, [StateWidth]*big.Int{}, fmt.Errorf("%w: nil step witness", apperrors.ErrMalformedInput)
	}

	stepOut, err := NativeStepOut(w)
	if err != nil {
		return nil, [StateWidth]*big.Int{}, err
	}

	relPk := w.RelationPubkey
	provPk := w.ProverPubkey
	authSig := w.AuthSignature
	scopeSig := w.ScopeSignature
	nullifier := w.RelationNullifier
	if w.IsChaff {
		relPk, provPk = identityPubkey(), identityPubkey()
		authSig, scopeSig = identitySignature(), identitySignature()
		nullifier = big.NewInt(0)
	}
	// Fields a step leaves unset (the relation side of an identity step, or
	// any missing signature) are filled with the same identity placeholders;
	// the circuit's constraints decide whether the step is satisfiable.
	if relPk == nil {
		relPk = identityPubkey()
	}
	if authSig == nil {
		authSig = identitySignature()
	}
	if scopeSig == nil {
		scopeSig = identitySignature()
	}
	if nullifier == nil {
		nullifier = big.NewInt(0)
	}

	circ := &StepCircuit{
		RelationPubkey:    eddsaPublicKeyVar(relPk),
		ProverPubkey:      eddsaPublicKeyVar(provPk),
		RelationNullifier: nullifier,
		AuthSignature:     eddsaSignatureVar(authSig),
		ScopeSignature:    eddsaSignatureVar(scopeSig),
	}
	for i := 0; i < StateWidth; i++ {
		circ.StepIn[i] = w.StepIn[i]
		circ.StepOut[i] = stepOut[i]
	}
	return circ, stepOut, nil
}

func identityPubkey() *nativeeddsa.PublicKey {
	return &nativeeddsa.PublicKey{X: new(big.Int).Set(dummyX), Y: new(big.Int).Set(dummyY)}
}

func identitySignature() *nativeeddsa.Signature {
	return &nativeeddsa.Signature{R8x: new(big.Int).Set(dummyX), R8y: new(big.Int).Set(dummyY), S: new(big.Int).Set(dummyS)}
}

func eddsaPublicKeyVar(pk *nativeeddsa.PublicKey) eddsa.PublicKey {
	return eddsa.PublicKey{A: twistededwards.Point{X: pk.X, Y: pk.Y}}
}

func eddsaSignatureVar(sig *nativeeddsa.Signature) eddsa.Signature {
	return eddsa.Signature{R: twistededwards.Point{X: sig.R8x, Y: sig.R8y}, S: sig.S}
}

// NativeStepOut executes the §4.3 output-marshalling rules out of circuit,
// mirroring exactly what StepCircuit.Define constrains in-circuit. The IVC
// driver uses this to produce new_state without re-deriving it from a
// freshly verified proof.
func NativeStepOut(w *StepWitness) ([StateWidth]*big.Int, error) {
	var out [StateWidth]*big.Int
	if w == nil {
		return out, fmt.Errorf("%w: nil step witness", apperrors.ErrMalformedInput)
	}
	for i, v := range w.StepIn {
		if v == nil {
			return out, fmt.Errorf("%w: nil step_in[%d]", apperrors.ErrMalformedInput, i)
		}
	}

	obfuscate := w.StepIn[0]
	degree := w.StepIn[1]
	scope := w.StepIn[2]
	relation := w.StepIn[3]

	notObfuscate := obfuscate.Sign() == 0
	scopeIsZero := scope.Sign() == 0
	isIdentityStep := scopeIsZero && notObfuscate
	isDegreeStep := !scopeIsZero && notObfuscate

	if w.IsChaff != !notObfuscate {
		// obfuscate is the authoritative flag; IsChaff is caller-supplied
		// bookkeeping and must agree with it.
		return out, fmt.Errorf("%w: witness IsChaff disagrees with step_in[0]", apperrors.ErrMalformedInput)
	}

	if isDegreeStep && degree.Cmp(big.NewInt(MaxDegree)) >= 0 {
		return out, fmt.Errorf("%w: degree %s exceeds maximum", apperrors.ErrConstraintViolation, degree)
	}
	if isIdentityStep {
		for i, v := range w.StepIn {
			if v.Sign() != 0 {
				return out, fmt.Errorf("%w: identity step requires zero step_in[%d]", apperrors.ErrConstraintViolation, i)
			}
		}
	}

	var proverAddr *big.Int
	var err error
	if isDegreeStep || isIdentityStep {
		if w.ProverPubkey == nil {
			return out, fmt.Errorf("%w: nil prover public key", apperrors.ErrMalformedInput)
		}
		proverAddr, err = poseidon.Hash2(w.ProverPubkey.X, w.ProverPubkey.Y)
		if err != nil {
			return out, fmt.Errorf("native step out: prover address: %w", err)
		}
	} else {
		proverAddr = big.NewInt(0)
	}

	if isDegreeStep {
		if w.RelationPubkey == nil {
			return out, fmt.Errorf("%w: nil relation public key", apperrors.ErrMalformedInput)
		}
		relationAddr, err := poseidon.Hash2(w.RelationPubkey.X, w.RelationPubkey.Y)
		if err != nil {
			return out, fmt.Errorf("native step out: relation address: %w", err)
		}
		if relationAddr.Cmp(relation) != 0 {
			return out, fmt.Errorf("%w: relation pubkey does not bind to step_in[3]", apperrors.ErrConstraintViolation)
		}
	}

	out[0] = boolBig(notObfuscate)
	if isDegreeStep {
		out[1] = new(big.Int).Add(degree, big.NewInt(1))
	} else {
		out[1] = new(big.Int).Set(degree)
	}
	if isIdentityStep {
		out[2] = proverAddr
	} else {
		out[2] = new(big.Int).Set(scope)
	}
	if notObfuscate {
		out[3] = proverAddr
	} else {
		out[3] = new(big.Int).Set(relation)
	}
	for slot := 0; slot < MaxDegree; slot++ {
		if isDegreeStep && degree.Cmp(big.NewInt(int64(slot))) == 0 {
			if w.RelationNullifier == nil {
				return out, fmt.Errorf("%w: nil relation nullifier on degree step", apperrors.ErrMalformedInput)
			}
			out[4+slot] = new(big.Int).Set(w.RelationNullifier)
		} else {
			out[4+slot] = new(big.Int).Set(w.StepIn[4+slot])
		}
	}
	return out, nil
}

func boolBig(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
