package ecs

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a similarity transform: scale, then rotate, then translate.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityTransform returns the transform that maps every point onto itself.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Mul returns t * local, the transform that first applies local and then t.
// This is how a child's global transform is derived from its parent's.
func (t Transform) Mul(local Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(mulComponents(t.Scale, local.Position))),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
		Scale:    mulComponents(t.Scale, local.Scale),
	}
}

// LocalTo returns the transform l such that parent.Mul(l) == t.
func (t Transform) LocalTo(parent Transform) Transform {
	inv := parent.Rotation.Inverse()
	return Transform{
		Position: divComponents(inv.Rotate(t.Position.Sub(parent.Position)), parent.Scale),
		Rotation: inv.Mul(t.Rotation).Normalize(),
		Scale:    divComponents(t.Scale, parent.Scale),
	}
}

// TransformPoint maps p from local into global space.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(mulComponents(t.Scale, p)))
}

// ApproxEqual reports whether every component of the two transforms is
// within epsilon of the other.
func (t Transform) ApproxEqual(o Transform, epsilon float64) bool {
	if !vec3Near(t.Position, o.Position, epsilon) || !vec3Near(t.Scale, o.Scale, epsilon) {
		return false
	}
	// q and -q describe the same rotation
	return quatNear(t.Rotation, o.Rotation, epsilon) || quatNear(t.Rotation, o.Rotation.Scale(-1), epsilon)
}

func vec3Near(a, b mgl64.Vec3, epsilon float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

func quatNear(a, b mgl64.Quat, epsilon float64) bool {
	return math.Abs(a.W-b.W) <= epsilon && vec3Near(a.V, b.V, epsilon)
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{safeDiv(a[0], b[0]), safeDiv(a[1], b[1]), safeDiv(a[2], b[2])}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
