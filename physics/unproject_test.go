// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func TestSphereSphereUnprojectLinear(t *testing.T) {
	a := NewSphere(v3(0, 0, 0), 1)
	b := NewSphere(v3(1, 0, 0), 1)
	var out UnprojResult
	ok := DefaultUnprojector().Check(0, v3(1, 0, 0), 10, lin.V3{}, lin.V3{}, PrimSphere, PrimSphere, &a, &b, &out)
	if !ok {
		t.Fatalf("expected overlapping spheres to unproject")
	}
	if !approxEq(out.T, 1) {
		t.Errorf("expected separation distance 1, got %f", out.T)
	}
	if !approxV3(out.N, v3(1, 0, 0)) {
		t.Errorf("expected separating normal (1,0,0), got %+v", out.N)
	}
	if out.ModeUsed != 0 {
		t.Errorf("expected mode 0 (linear), got %d", out.ModeUsed)
	}
}

func TestSphereSphereUnprojectMiss(t *testing.T) {
	a := NewSphere(v3(0, 0, 0), 1)
	b := NewSphere(v3(5, 0, 0), 1)
	var out UnprojResult
	if DefaultUnprojector().Check(0, v3(1, 0, 0), 10, lin.V3{}, lin.V3{}, PrimSphere, PrimSphere, &a, &b, &out) {
		t.Errorf("expected distant spheres not to unproject")
	}
}

func TestSphereSphereUnprojectExceedsTmax(t *testing.T) {
	a := NewSphere(v3(0, 0, 0), 1)
	b := NewSphere(v3(1, 0, 0), 1)
	var out UnprojResult
	if DefaultUnprojector().Check(0, v3(1, 0, 0), 0.1, lin.V3{}, lin.V3{}, PrimSphere, PrimSphere, &a, &b, &out) {
		t.Errorf("expected separation distance beyond tmax to fail")
	}
}

func TestSphereSphereUnprojectDirAwayFromNormalFails(t *testing.T) {
	a := NewSphere(v3(0, 0, 0), 1)
	b := NewSphere(v3(1, 0, 0), 1)
	var out UnprojResult
	if DefaultUnprojector().Check(0, v3(-1, 0, 0), 10, lin.V3{}, lin.V3{}, PrimSphere, PrimSphere, &a, &b, &out) {
		t.Errorf("expected a dir pointing away from the MTD normal to fail")
	}
}

// convexUnproject routes box-box through the kept GJK+EPA engine; this
// exercises that path end to end without pinning an exact EPA normal.
func TestBoxBoxUnprojectConvexEngine(t *testing.T) {
	a := NewBox(v3(0, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	b := NewBox(v3(1, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	var out UnprojResult
	ok := DefaultUnprojector().Check(0, v3(1, 0, 0), 10, lin.V3{}, lin.V3{}, PrimBox, PrimBox, &a, &b, &out)
	if !ok {
		t.Fatalf("expected overlapping boxes to unproject via the convex engine")
	}
	if out.T <= 0 || out.T > 2 {
		t.Errorf("expected a modest positive separation distance, got %f", out.T)
	}
}

func TestBoxBoxUnprojectSeparatedMisses(t *testing.T) {
	a := NewBox(v3(0, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	b := NewBox(v3(10, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	var out UnprojResult
	if DefaultUnprojector().Check(0, v3(1, 0, 0), 10, lin.V3{}, lin.V3{}, PrimBox, PrimBox, &a, &b, &out) {
		t.Errorf("expected far-apart boxes not to unproject")
	}
}

func TestRotatePrimitiveAboutAxisPreservesSphereRadius(t *testing.T) {
	s := NewSphere(v3(1, 0, 0), 2)
	rotated := rotatePrimitiveAboutAxis(&s, v3(0, 0, 1), v3(0, 0, 0), math.Pi/2)
	if !approxEq(rotated.R, 2) {
		t.Errorf("expected radius preserved across rotation, got %f", rotated.R)
	}
	if !approxV3(rotated.Center, v3(0, 1, 0)) {
		t.Errorf("expected center rotated to (0,1,0), got %+v", rotated.Center)
	}
}
