// Package ivc drives the recursive folding protocol: one-time parameter
// generation, stepping a proof forward by one StepCircuit application, and
// verifying a folded proof's terminal state, per spec.md §4.4.
package ivc

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/math/emulated"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/mach34/grapevine/apperrors"
	"github.com/mach34/grapevine/circuit"
)

// MaxFoldDepth bounds how many StepCircuit applications a single folded
// proof can ever compress: the identity step plus its mandatory chaff (2),
// plus up to circuit.MaxDegree further [degree step, chaff] pairs (2 each)
// — the same degree bound circuit.StepCircuit itself enforces in-circuit.
const MaxFoldDepth = 2 + 2*circuit.MaxDegree

// PublicParams holds the step circuit's and every wrap generation's
// constraint systems and Groth16 key pairs, produced once by Setup and
// shared, read-only, across every proof a process handles (spec.md §5).
//
// WrapCS[i]/WrapPK[i]/WrapVK[i] is the generation that folds a proof whose
// Depth is i+2 (Depth 1 is the genesis fold, with no wrap generation of its
// own): WrapCS[0]'s PriorWrapVK constant is GenesisVK, and for i>0 it is
// WrapVK[i-1]. See wrap.go's WrapCircuit doc comment for why this ladder of
// distinct generations — rather than one self-recursive circuit — is
// required.
type PublicParams struct {
	StepCS constraint.ConstraintSystem
	StepPK groth16.ProvingKey
	StepVK groth16.VerifyingKey

	GenesisCS constraint.ConstraintSystem
	GenesisPK groth16.ProvingKey
	GenesisVK groth16.VerifyingKey

	WrapCS []constraint.ConstraintSystem
	WrapPK []groth16.ProvingKey
	WrapVK []groth16.VerifyingKey
}

// FoldedProof is the IVC accumulator: a single constant-size BLS12-377
// proof compressing every step up to and including this one, the running
// terminal StepState, and Depth — the number of StepCircuit applications
// folded so far, which selects which generation's verifying key Verify must
// check the proof against (Depth 0 means no proof has been produced yet, as
// returned by Init).
type FoldedProof struct {
	WrapProof groth16.Proof
	State     [circuit.StateWidth]*big.Int
	Depth     int
}

// Setup compiles StepCircuit, the genesis wrap circuit, and the full ladder
// of WrapCircuit generations up to MaxFoldDepth, running Groth16's one-time
// key generation for each, implementing spec operation public_params_setup.
func Setup() (*PublicParams, error) {
	stepCS, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.StepCircuit{})
	if err != nil {
		return nil, fmt.Errorf("ivc setup: compile step circuit: %w", err)
	}
	stepPK, stepVK, err := groth16.Setup(stepCS)
	if err != nil {
		return nil, fmt.Errorf("ivc setup: step circuit keygen: %w", err)
	}

	stepVKFixed, err := stdgroth16.ValueOfVerifyingKeyFixed[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](stepVK)
	if err != nil {
		return nil, fmt.Errorf("ivc setup: fix step verifying key: %w", err)
	}
	stepProofPlaceholder := stdgroth16.PlaceholderProof[sw_bn254.G1Affine, sw_bn254.G2Affine](stepCS)

	genesisCS, err := frontend.Compile(ecc.BLS12_377.ScalarField(), r1cs.NewBuilder, &GenesisWrapCircuit{
		StepProof: stepProofPlaceholder,
		StepVK:    stepVKFixed,
	})
	if err != nil {
		return nil, fmt.Errorf("ivc setup: compile genesis wrap circuit: %w", err)
	}
	genesisPK, genesisVK, err := groth16.Setup(genesisCS)
	if err != nil {
		return nil, fmt.Errorf("ivc setup: genesis wrap circuit keygen: %w", err)
	}

	generations := MaxFoldDepth - 1
	wrapCS := make([]constraint.ConstraintSystem, generations)
	wrapPK := make([]groth16.ProvingKey, generations)
	wrapVK := make([]groth16.VerifyingKey, generations)

	priorCS, priorVK := genesisCS, genesisVK
	for i := 0; i < generations; i++ {
		priorVKFixed, err := stdgroth16.ValueOfVerifyingKeyFixed[sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT](priorVK)
		if err != nil {
			return nil, fmt.Errorf("ivc setup: fix wrap generation %d prior verifying key: %w", i, err)
		}
		cs, err := frontend.Compile(ecc.BLS12_377.ScalarField(), r1cs.NewBuilder, &WrapCircuit{
			StepProof:      stepProofPlaceholder,
			StepVK:         stepVKFixed,
			PriorWrapProof: stdgroth16.PlaceholderProof[sw_bls12377.G1Affine, sw_bls12377.G2Affine](priorCS),
			PriorWrapVK:    priorVKFixed,
		})
		if err != nil {
			return nil, fmt.Errorf("ivc setup: compile wrap generation %d: %w", i, err)
		}
		pk, vk, err := groth16.Setup(cs)
		if err != nil {
			return nil, fmt.Errorf("ivc setup: wrap generation %d keygen: %w", i, err)
		}
		wrapCS[i], wrapPK[i], wrapVK[i] = cs, pk, vk
		priorCS, priorVK = cs, vk
	}

	return &PublicParams{
		StepCS: stepCS, StepPK: stepPK, StepVK: stepVK,
		GenesisCS: genesisCS, GenesisPK: genesisPK, GenesisVK: genesisVK,
		WrapCS: wrapCS, WrapPK: wrapPK, WrapVK: wrapVK,
	}, nil
}

// Init returns the zero-state accumulator, implementing spec operation
// ivc_init: twelve zero scalars, no proof yet produced.
func Init() (*FoldedProof, [circuit.StateWidth]*big.Int) {
	var state [circuit.StateWidth]*big.Int
	for i := range state {
		state[i] = big.NewInt(0)
	}
	return &FoldedProof{State: state}, state
}

func stateElements(s [circuit.StateWidth]*big.Int) [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField] {
	var out [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField]
	for i := range s {
		out[i] = emulated.ValueOf[sw_bn254.ScalarField](s[i])
	}
	return out
}

// Step applies one StepCircuit application to prior, implementing spec
// operation ivc_step: it synthesizes the step witness, proves StepCircuit,
// natively recomputes new_state, and folds the new step proof — together
// with the prior wrap proof, for every depth past the first — into a new
// wrap proof one generation deeper than prior.
func Step(pp *PublicParams, prior *FoldedProof, priorState [circuit.StateWidth]*big.Int, w *circuit.StepWitness) (*FoldedProof, [circuit.StateWidth]*big.Int, error) {
	if pp == nil || prior == nil || w == nil {
		return nil, priorState, fmt.Errorf("%w: nil public params, prior proof or witness", apperrors.ErrMalformedInput)
	}
	for i := 0; i < circuit.StateWidth; i++ {
		if prior.State[i] == nil || priorState[i] == nil || prior.State[i].Cmp(priorState[i]) != 0 {
			return nil, priorState, fmt.Errorf("%w: prior_state does not match proof's terminal state", apperrors.ErrStateMismatch)
		}
	}
	for i := 0; i < circuit.StateWidth; i++ {
		if w.StepIn[i] == nil || w.StepIn[i].Cmp(priorState[i]) != 0 {
			return nil, priorState, fmt.Errorf("%w: witness step_in does not match prior_state", apperrors.ErrStateMismatch)
		}
	}
	newDepth := prior.Depth + 1
	if newDepth > MaxFoldDepth {
		return nil, priorState, fmt.Errorf("%w: folded chain would exceed max depth %d", apperrors.ErrProtocolViolation, MaxFoldDepth)
	}

	assigned, newState, err := circuit.Assign(w)
	if err != nil {
		return nil, priorState, err
	}
	stepWitness, err := frontend.NewWitness(assigned, ecc.BN254.ScalarField())
	if err != nil {
		return nil, priorState, fmt.Errorf("ivc step: build step witness: %w", err)
	}
	stepProof, err := groth16.Prove(pp.StepCS, pp.StepPK, stepWitness)
	if err != nil {
		return nil, priorState, fmt.Errorf("%w: prove step circuit: %v", apperrors.ErrConstraintViolation, err)
	}
	stepProofRec, err := stdgroth16.ValueOfProof[sw_bn254.G1Affine, sw_bn254.G2Affine](stepProof)
	if err != nil {
		return nil, priorState, fmt.Errorf("ivc step: convert step proof: %w", err)
	}

	var wrapProof groth16.Proof
	if newDepth == 1 {
		assignment := &GenesisWrapCircuit{State: stateElements(newState), StepProof: stepProofRec}
		witness, err := frontend.NewWitness(assignment, ecc.BLS12_377.ScalarField())
		if err != nil {
			return nil, priorState, fmt.Errorf("ivc step: build genesis wrap witness: %w", err)
		}
		wrapProof, err = groth16.Prove(pp.GenesisCS, pp.GenesisPK, witness)
		if err != nil {
			return nil, priorState, fmt.Errorf("%w: prove genesis wrap circuit: %v", apperrors.ErrConstraintViolation, err)
		}
	} else {
		if prior.WrapProof == nil {
			return nil, priorState, fmt.Errorf("%w: prior folded proof has depth %d but no wrap proof", apperrors.ErrMalformedInput, prior.Depth)
		}
		generation := newDepth - 2
		if generation < 0 || generation >= len(pp.WrapCS) {
			return nil, priorState, fmt.Errorf("%w: no wrap generation compiled for depth %d", apperrors.ErrProtocolViolation, newDepth)
		}
		priorWrapRec, err := stdgroth16.ValueOfProof[sw_bls12377.G1Affine, sw_bls12377.G2Affine](prior.WrapProof)
		if err != nil {
			return nil, priorState, fmt.Errorf("ivc step: convert prior wrap proof: %w", err)
		}
		assignment := &WrapCircuit{
			State:          stateElements(newState),
			PriorState:     stateElements(priorState),
			StepProof:      stepProofRec,
			PriorWrapProof: priorWrapRec,
		}
		witness, err := frontend.NewWitness(assignment, ecc.BLS12_377.ScalarField())
		if err != nil {
			return nil, priorState, fmt.Errorf("ivc step: build wrap witness: %w", err)
		}
		wrapProof, err = groth16.Prove(pp.WrapCS[generation], pp.WrapPK[generation], witness)
		if err != nil {
			return nil, priorState, fmt.Errorf("%w: prove wrap circuit generation %d: %v", apperrors.ErrConstraintViolation, generation, err)
		}
	}

	return &FoldedProof{WrapProof: wrapProof, State: newState, Depth: newDepth}, newState, nil
}

// Verify checks a folded proof against the public parameters and an
// expected terminal state, implementing spec operation ivc_verify. It
// returns false (never an error) on any failure, including a structurally
// malformed proof, per §4.4's failure semantics.
//
// A terminated proof's terminal obfuscate slot is 0: §4.3's sub-relation
// formulas (is_identity_step/is_degree_step gate on step_in[0]==0, a
// chaff step is forced to step_in[0]==1 by those same formulas) combined
// with the output toggle step_out[0] = 1 - step_in[0] leave the chaff
// step's own output at 0, not 1. This is recorded as an Open Question
// resolution in DESIGN.md: the formulas are followed over the
// conflicting "terminal obfuscate=1" prose.
func Verify(pp *PublicParams, proof *FoldedProof, expected [circuit.StateWidth]*big.Int) bool {
	if pp == nil || proof == nil || proof.WrapProof == nil || proof.Depth <= 0 {
		return false
	}
	if expected[0] == nil || expected[0].Sign() != 0 {
		return false
	}
	for i := 0; i < circuit.StateWidth; i++ {
		if proof.State[i] == nil || expected[i] == nil || proof.State[i].Cmp(expected[i]) != 0 {
			return false
		}
	}

	if proof.Depth == 1 {
		pub := &GenesisWrapCircuit{State: stateElements(proof.State)}
		wit, err := frontend.NewWitness(pub, ecc.BLS12_377.ScalarField(), frontend.PublicOnly())
		if err != nil {
			return false
		}
		return groth16.Verify(proof.WrapProof, pp.GenesisVK, wit) == nil
	}

	generation := proof.Depth - 2
	if generation < 0 || generation >= len(pp.WrapVK) {
		return false
	}
	pub := &WrapCircuit{State: stateElements(proof.State)}
	wit, err := frontend.NewWitness(pub, ecc.BLS12_377.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false
	}
	return groth16.Verify(proof.WrapProof, pp.WrapVK[generation], wit) == nil
}
