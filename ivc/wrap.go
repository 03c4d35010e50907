package ivc

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bn254"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/math/emulated"
	stdgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/mach34/grapevine/circuit"
)

// GenesisWrapCircuit folds the very first StepCircuit application — the
// identity step, whose step_in is the all-zero StepState — into a
// constant-size BLS12-377 proof, the base case of the folding chain that
// WrapCircuit extends. It has no prior wrap proof to recurse on: a
// WrapCircuit generation's PriorWrapVK is a constant baked in at compile
// time from an already-existing generation's verifying key (see Setup), and
// the genesis fold is the one point in the chain with no earlier generation
// to point at, so it is its own circuit rather than a degenerate WrapCircuit
// instance with a dummy prior.
//
// State is declared as an emulated BN254 scalar vector — not a native
// frontend.Variable, since this circuit is compiled over BLS12-377 but the
// values it carries are StepCircuit's BN254 outputs — mirroring
// circuits/voteverifier.go's VerifyVoteCircuit, which declares its own
// cross-curve domain data (InputsHash, Vote, ...) directly as
// emulated.Element[sw_bn254.ScalarField] fields.
type GenesisWrapCircuit struct {
	State [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField] `gnark:",public"`

	StepProof stdgroth16.Proof[sw_bn254.G1Affine, sw_bn254.G2Affine]
	StepVK    stdgroth16.VerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl] `gnark:"-"`
}

// Define implements frontend.Circuit. The step witness handed to the
// recursive verifier is built directly from State (the all-zero step_in
// constant, concatenated with State as step_out), not accepted as a
// separate free field, so State is definitionally the verified proof's
// output rather than an independent, unconstrained public input.
func (c *GenesisWrapCircuit) Define(api frontend.API) error {
	verifier, err := stdgroth16.NewVerifier[sw_bn254.ScalarField, sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](api)
	if err != nil {
		return err
	}
	public := make([]emulated.Element[sw_bn254.ScalarField], 0, 2*circuit.StateWidth)
	for i := 0; i < circuit.StateWidth; i++ {
		public = append(public, emulated.ValueOf[sw_bn254.ScalarField](0))
	}
	public = append(public, c.State[:]...)
	witness := stdgroth16.Witness[sw_bn254.ScalarField]{Public: public}
	return verifier.AssertProof(c.StepVK, c.StepProof, witness)
}

// WrapCircuit folds one new StepCircuit application together with the
// entire prior chain — already compressed into a single BLS12-377 proof by
// an earlier generation, genesis or wrap — into a new constant-size
// BLS12-377 proof.
//
// PriorWrapVK is fixed at compile time to one specific earlier generation's
// verifying key, never to this circuit's own (not yet computed) key:
// unbounded same-circuit Groth16 self-recursion isn't achievable this way,
// since a circuit's gnark:"-" verifying-key field must be a constant of the
// compiled circuit, but that key is only produced by running Setup on the
// circuit after it is compiled with the key already embedded. Setup instead
// compiles a fixed ladder of WrapCircuit generations up to MaxFoldDepth,
// each one's PriorWrapVK constant pointing at the previous rung's
// already-computed key — generalizing, to arbitrary bounded depth, the
// reference system's own fixed non-self-referential recursion pipeline
// (voteverifier -> aggregator -> statetransition in
// circuits/statetransition.go's VerifyAggregatorProof), where every tier's
// embedded verifying key likewise belongs to an already-compiled, strictly
// earlier circuit.
type WrapCircuit struct {
	State      [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField] `gnark:",public"`
	PriorState [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField]

	StepProof stdgroth16.Proof[sw_bn254.G1Affine, sw_bn254.G2Affine]
	StepVK    stdgroth16.VerifyingKey[sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl] `gnark:"-"`

	PriorWrapProof stdgroth16.Proof[sw_bls12377.G1Affine, sw_bls12377.G2Affine]
	PriorWrapVK    stdgroth16.VerifyingKey[sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT] `gnark:"-"`
}

// Define implements frontend.Circuit. Both recursive witnesses are built
// from this circuit's own State/PriorState fields rather than accepted as
// independent free fields, so State is bound to the newly verified step's
// output and PriorState to the recursively verified prior chain's terminal
// state — closing the soundness gap a free State field would otherwise
// leave open.
func (c *WrapCircuit) Define(api frontend.API) error {
	stepVerifier, err := stdgroth16.NewVerifier[sw_bn254.ScalarField, sw_bn254.G1Affine, sw_bn254.G2Affine, sw_bn254.GTEl](api)
	if err != nil {
		return err
	}
	stepPublic := make([]emulated.Element[sw_bn254.ScalarField], 0, 2*circuit.StateWidth)
	stepPublic = append(stepPublic, c.PriorState[:]...)
	stepPublic = append(stepPublic, c.State[:]...)
	stepWitness := stdgroth16.Witness[sw_bn254.ScalarField]{Public: stepPublic}
	if err := stepVerifier.AssertProof(c.StepVK, c.StepProof, stepWitness); err != nil {
		return err
	}

	wrapVerifier, err := stdgroth16.NewVerifier[sw_bls12377.ScalarField, sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT](api)
	if err != nil {
		return err
	}
	priorWitness := stdgroth16.Witness[sw_bls12377.ScalarField]{Public: flattenState(c.PriorState)}
	return wrapVerifier.AssertProof(c.PriorWrapVK, c.PriorWrapProof, priorWitness, stdgroth16.WithCompleteArithmetic())
}

// flattenState re-expresses a BN254-emulated state vector as a flat list of
// BLS12-377-emulated elements, one per limb, matching the public-input
// layout of an earlier generation's compiled GenesisWrapCircuit/WrapCircuit
// (whose own State field has this identical BN254-emulated shape, so its
// real Groth16 public-input vector is exactly this many raw BLS12-377
// limbs). Mirrors circuits/aggregator.go's calculateWitnesses, which
// re-packs a single limb into a fresh emulated element the same way
// (Limbs: []frontend.Variable{v, 0, 0, 0}) to cross from one value's native
// representation into another field's emulated one.
func flattenState(state [circuit.StateWidth]emulated.Element[sw_bn254.ScalarField]) []emulated.Element[sw_bls12377.ScalarField] {
	flattened := make([]emulated.Element[sw_bls12377.ScalarField], 0, circuit.StateWidth*4)
	for i := range state {
		for _, limb := range state[i].Limbs {
			flattened = append(flattened, emulated.Element[sw_bls12377.ScalarField]{Limbs: []frontend.Variable{limb, 0, 0, 0}})
		}
	}
	return flattened
}
