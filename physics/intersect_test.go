// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func approxEq(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func approxV3(a, b lin.V3) bool {
	return approxEq(a.X, b.X) && approxEq(a.Y, b.Y) && approxEq(a.Z, b.Z)
}

// S1: sphere-sphere miss.
func TestSphereSphereMiss(t *testing.T) {
	s1 := NewSphere(v3(0, 0, 0), 1)
	s2 := NewSphere(v3(3, 0, 0), 1)
	var pi PrimIntersection
	if DefaultIntersector().Check(PrimSphere, PrimSphere, &s1, &s2, &pi) {
		t.Errorf("expected a miss for distant spheres")
	}
}

// S2: sphere-sphere hit.
func TestSphereSphereHit(t *testing.T) {
	s1 := NewSphere(v3(0, 0, 0), 1)
	s2 := NewSphere(v3(1.5, 0, 0), 1)
	var pi PrimIntersection
	if !DefaultIntersector().Check(PrimSphere, PrimSphere, &s1, &s2, &pi) {
		t.Fatalf("expected a hit")
	}
	if !approxV3(pi.N, v3(1, 0, 0)) {
		t.Errorf("expected normal (1,0,0), got %+v", pi.N)
	}
	if !approxV3(pi.Pt[0], v3(0.75, 0, 0)) {
		t.Errorf("expected contact at (0.75,0,0), got %+v", pi.Pt[0])
	}
}

// S3: ray into box.
func TestRayIntoBox(t *testing.T) {
	ray := NewRay(v3(-2, 0, 0), v3(4, 0, 0))
	box := NewBox(v3(0, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	var pi PrimIntersection
	if !DefaultIntersector().Check(PrimRay, PrimBox, &ray, &box, &pi) {
		t.Fatalf("expected ray to hit box")
	}
	if !approxV3(pi.Pt[0], v3(-1, 0, 0)) {
		t.Errorf("expected contact at (-1,0,0), got %+v", pi.Pt[0])
	}
	if !approxV3(pi.N, v3(1, 0, 0)) {
		t.Errorf("expected normal (1,0,0) (ray travel direction at hit), got %+v", pi.N)
	}
	if pi.IFeature[0][0] != featureEdgeOrSurface {
		t.Errorf("expected ray feature tag 0x20, got %#x", pi.IFeature[0][0])
	}
}

// S4: coplanar-edge triangle vs triangle.
func TestTriTriCoplanarEdge(t *testing.T) {
	t1 := NewTriangle(v3(0, 0, 0), v3(1, 0, 0), v3(0, 1, 0))
	t2 := NewTriangle(v3(0.5, -0.5, 0), v3(1.5, 0.5, 0), v3(0.5, 0.5, 0))
	var pi PrimIntersection
	if !DefaultIntersector().Check(PrimTriangle, PrimTriangle, &t1, &t2, &pi) {
		t.Fatalf("expected coplanar triangles to intersect")
	}
	if math.Abs(pi.Pt[0].Z) > 1e-6 || math.Abs(pi.Pt[1].Z) > 1e-6 {
		t.Errorf("expected both contact points on z=0, got %+v / %+v", pi.Pt[0], pi.Pt[1])
	}
}

// Invariant 1: swap symmetry for a representative analytic pair.
func TestSwapSymmetrySphereBox(t *testing.T) {
	s := NewSphere(v3(0.5, 0.5, 0.5), 1)
	b := NewBox(v3(0, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)

	var forward, backward PrimIntersection
	okF := DefaultIntersector().Check(PrimSphere, PrimBox, &s, &b, &forward)
	okB := DefaultIntersector().Check(PrimBox, PrimSphere, &b, &s, &backward)
	if okF != okB {
		t.Fatalf("expected swap symmetry in hit/miss, got %v vs %v", okF, okB)
	}
	if !okF {
		return
	}
	swapPrimIntersection(&backward)
	if !approxV3(forward.Pt[0], backward.Pt[0]) || !approxV3(forward.Pt[1], backward.Pt[1]) {
		t.Errorf("expected swapped points to match: %+v vs %+v", forward, backward)
	}
	if !approxV3(forward.N, backward.N) {
		t.Errorf("expected swapped normal to match: %+v vs %+v", forward.N, backward.N)
	}
}

func TestSupportsReflectsWiring(t *testing.T) {
	if !DefaultIntersector().Supports(PrimSphere, PrimSphere) {
		t.Errorf("expected sphere-sphere to be marked supported")
	}
	if DefaultIntersector().Supports(PrimHeightfield, PrimHeightfield) {
		t.Errorf("expected heightfield-heightfield to be unsupported")
	}
}

func TestAddBorderPointCapsAtCapacity(t *testing.T) {
	var pi PrimIntersection
	for i := 0; i < borderBufCap+5; i++ {
		pi.addBorderPoint(v3(float64(i), 0, 0))
	}
	if len(pi.BorderPoints) != borderBufCap {
		t.Errorf("expected border points capped at %d, got %d", borderBufCap, len(pi.BorderPoints))
	}
}
