package ik

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mottledev/marionette/internal/pose"
)

// PositionsToRotations derives a world-space orientation per joint from
// solved positions: each joint looks down its outgoing segment with the
// supplied up vector. The final joint has no outgoing segment and inherits
// the previous joint's rotation.
//
// prev, when non-nil, supplies the previous frame's rotations and is used
// as a fallback for joints whose outgoing segment has degenerated to zero
// length. out is written in place and must have len(positions) entries.
func PositionsToRotations(positions []mgl64.Vec3, up mgl64.Vec3, prev []mgl64.Quat, out []mgl64.Quat) {
	n := len(positions)
	if n == 0 || len(out) < n {
		return
	}
	last := mgl64.QuatIdent()
	for i := 0; i < n-1; i++ {
		dir := positions[i+1].Sub(positions[i])
		q, ok := pose.LookRotation(dir, up)
		if !ok {
			// Degenerate segment: hold the previous valid orientation.
			if prev != nil && i < len(prev) {
				q = prev[i]
			} else {
				q = last
			}
		}
		out[i] = q
		last = q
	}
	out[n-1] = last
}
