// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func TestPrimitiveTypeString(t *testing.T) {
	if PrimBox.String() != "box" {
		t.Errorf("expected box, got %s", PrimBox.String())
	}
	if PrimHeightfield.String() != "heightfield" {
		t.Errorf("expected heightfield, got %s", PrimHeightfield.String())
	}
	if PrimitiveType(99).String() != "unknown" {
		t.Errorf("expected unknown for out-of-range type")
	}
}

func TestNewTriangleNormal(t *testing.T) {
	tri := NewTriangle(lin.V3{}, lin.V3{X: 1}, lin.V3{Y: 1})
	if math.Abs(tri.N.Z-1) > 1e-9 {
		t.Errorf("expected +Z normal, got %+v", tri.N)
	}
}

func TestNewPlaneNormalizesNormal(t *testing.T) {
	p := NewPlane(lin.V3{}, lin.V3{X: 3})
	if math.Abs(p.N.Len()-1) > 1e-9 {
		t.Errorf("expected unit normal, got len %f", p.N.Len())
	}
}

func TestBoxAabbAxisAligned(t *testing.T) {
	b := NewBox(lin.V3{X: 1, Y: 2, Z: 3}, *lin.NewM3I(), lin.V3{X: 1, Y: 1, Z: 1}, false)
	id := lin.NewT().SetI()
	ab := b.Aabb(id, 0)
	if ab.Sx != 0 || ab.Lx != 2 || ab.Sy != 1 || ab.Ly != 3 {
		t.Errorf("unexpected aabb %+v", ab)
	}
}

func TestSphereAabbMargin(t *testing.T) {
	s := NewSphere(lin.V3{}, 2)
	id := lin.NewT().SetI()
	ab := s.Aabb(id, 0.5)
	if ab.Sx != -2.5 || ab.Lx != 2.5 {
		t.Errorf("expected margin-grown aabb, got %+v", ab)
	}
}
