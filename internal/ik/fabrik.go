// Package ik implements Forward-And-Backward Reaching Inverse Kinematics
// (FABRIK) for bone chains, plus the conversion from solved joint
// positions back to per-joint rotations.
package ik

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/pose"
)

// ErrChainTooShort is returned when a chain has fewer than two joints;
// there is nothing to solve.
var ErrChainTooShort = errors.New("ik: chain needs at least two joints")

// Config controls a single Solve call.
type Config struct {
	// MaxIterations bounds the forward/backward pass count. Values < 1 fall
	// back to DefaultMaxIterations.
	MaxIterations int
	// Tolerance is the tip-to-target distance at which iteration stops.
	Tolerance float64
	// Pole, when HasPole is set, biases mid-chain joints toward a hint
	// direction before the length-preserving passes run. Used to pick the
	// bend plane of elbows and knees.
	Pole    mgl64.Vec3
	HasPole bool
}

// DefaultMaxIterations is used when Config.MaxIterations is not positive.
const DefaultMaxIterations = 10

// DefaultTolerance is used when Config.Tolerance is not positive.
const DefaultTolerance = 1e-3

// Result is the outcome of one Solve call. Positions aliases the slice
// passed in; the solve is in-place.
type Result struct {
	Positions  []mgl64.Vec3
	Err        float64 // final tip-to-target distance
	Reached    bool
	Iterations int
}

// Solve runs FABRIK over the joint positions in place. positions holds the
// chain root to tip; lengths holds the rest length of each segment, so
// len(lengths) == len(positions)-1.
//
// An out-of-reach target is a defined, non-error outcome: the chain is laid
// out as a straight line toward the target with no iterations spent, and
// Reached reports whether full extension put the tip within tolerance.
// Callers decide whether that counts as failure.
func Solve(positions []mgl64.Vec3, lengths []float64, target mgl64.Vec3, cfg Config) (Result, error) {
	if len(positions) < 2 {
		return Result{}, ErrChainTooShort
	}
	if len(lengths) != len(positions)-1 {
		return Result{}, fmt.Errorf("ik: %d segments for %d joints", len(lengths), len(positions))
	}

	maxIter := cfg.MaxIterations
	if maxIter < 1 {
		maxIter = DefaultMaxIterations
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	root := positions[0]
	reach := 0.0
	for _, l := range lengths {
		reach += l
	}

	toTarget := target.Sub(root)
	if toTarget.Len() >= reach {
		// Degenerate case: fully extend toward the target without
		// iterating. A target exactly at full reach lands the tip on it,
		// so Reached follows the measured error, not the branch.
		dir := pose.SafeNormalize(toTarget, fallbackDirection(positions))
		at := root
		for i := 1; i < len(positions); i++ {
			at = at.Add(dir.Mul(lengths[i-1]))
			positions[i] = at
		}
		err := target.Sub(positions[len(positions)-1]).Len()
		return Result{
			Positions: positions,
			Err:       err,
			Reached:   err <= tolerance,
		}, nil
	}

	if cfg.HasPole {
		applyPoleBias(positions, cfg.Pole)
	}

	result := Result{Positions: positions}
	for iter := 0; iter < maxIter; iter++ {
		forwardPass(positions, lengths, target)
		backwardPass(positions, lengths, root)
		result.Iterations = iter + 1

		result.Err = target.Sub(positions[len(positions)-1]).Len()
		if result.Err <= tolerance {
			result.Reached = true
			break
		}
	}
	return result, nil
}

// forwardPass pins the tip to the target and reprojects each preceding
// joint at its fixed distance from its (already moved) neighbor, working
// toward the root.
func forwardPass(positions []mgl64.Vec3, lengths []float64, target mgl64.Vec3) {
	n := len(positions)
	positions[n-1] = target
	for i := n - 2; i >= 0; i-- {
		dir := positions[i].Sub(positions[i+1])
		dir = pose.SafeNormalize(dir, fallbackDirection(positions))
		positions[i] = positions[i+1].Add(dir.Mul(lengths[i]))
	}
}

// backwardPass re-pins the root to its original location and reprojects
// outward to the tip, restoring exact segment lengths.
func backwardPass(positions []mgl64.Vec3, lengths []float64, root mgl64.Vec3) {
	positions[0] = root
	for i := 1; i < len(positions); i++ {
		dir := positions[i].Sub(positions[i-1])
		dir = pose.SafeNormalize(dir, fallbackDirection(positions))
		positions[i] = positions[i-1].Add(dir.Mul(lengths[i-1]))
	}
}

// applyPoleBias rotates the interior joints about the root-to-tip axis so
// they sit on the same side as the pole target. Joints and pole are
// projected onto the plane perpendicular to the axis and the angular
// difference is applied per joint. The length passes that follow restore
// exact segment lengths; bias-then-reproject is the reference behavior.
func applyPoleBias(positions []mgl64.Vec3, pole mgl64.Vec3) {
	n := len(positions)
	if n < 3 {
		return // no interior joints to bias
	}
	root := positions[0]
	axis := positions[n-1].Sub(root)
	if axis.Len() < 1e-9 {
		return
	}
	axis = axis.Normalize()

	polePlanar := projectOntoPlane(pole.Sub(root), axis)
	if polePlanar.Len() < 1e-9 {
		return // pole lies on the chain axis, no side to prefer
	}

	for i := 1; i < n-1; i++ {
		offset := positions[i].Sub(root)
		along := axis.Mul(offset.Dot(axis))
		planar := offset.Sub(along)
		if planar.Len() < 1e-9 {
			continue
		}
		angle := signedAngle(planar, polePlanar, axis)
		rotated := mgl64.QuatRotate(angle, axis).Rotate(planar)
		positions[i] = root.Add(along).Add(rotated)
	}
}

func projectOntoPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(normal.Mul(v.Dot(normal)))
}

// signedAngle returns the angle rotating a onto b about axis, in radians.
func signedAngle(a, b, axis mgl64.Vec3) float64 {
	an := a.Normalize()
	bn := b.Normalize()
	cross := an.Cross(bn)
	sin := cross.Dot(axis)
	cos := an.Dot(bn)
	return math.Atan2(sin, cos)
}

// fallbackDirection picks a usable direction when a segment degenerates to
// zero length: the overall chain direction if it exists, else a fixed axis.
// Falling back keeps the solver NaN-free on fully collapsed chains.
func fallbackDirection(positions []mgl64.Vec3) mgl64.Vec3 {
	span := positions[len(positions)-1].Sub(positions[0])
	if span.Len() >= 1e-9 {
		return span.Normalize()
	}
	return mgl64.Vec3{0, 0, 1}
}
