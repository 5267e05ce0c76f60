// Copyright © 2024 Galvanized Logic Inc.

package physics

import "testing"

func TestOverlapAabbAabb(t *testing.T) {
	a := &BV{Type: BVAabb, Box: Abox{Sx: 0, Sy: 0, Sz: 0, Lx: 1, Ly: 1, Lz: 1}}
	b := &BV{Type: BVAabb, Box: Abox{Sx: 0.5, Sy: 0.5, Sz: 0.5, Lx: 2, Ly: 2, Lz: 2}}
	c := &BV{Type: BVAabb, Box: Abox{Sx: 10, Sy: 10, Sz: 10, Lx: 11, Ly: 11, Lz: 11}}
	if !DefaultOverlapper().Check(a, b) {
		t.Errorf("expected overlapping AABBs to report true")
	}
	if DefaultOverlapper().Check(a, c) {
		t.Errorf("expected distant AABBs to report false")
	}
}

func TestOverlapSphereSphere(t *testing.T) {
	a := &BV{Type: BVSphere, Center: v3(0, 0, 0), Radius: 1}
	b := &BV{Type: BVSphere, Center: v3(1.5, 0, 0), Radius: 1}
	c := &BV{Type: BVSphere, Center: v3(5, 0, 0), Radius: 1}
	if !DefaultOverlapper().Check(a, b) {
		t.Errorf("expected overlapping spheres to report true")
	}
	if DefaultOverlapper().Check(a, c) {
		t.Errorf("expected distant spheres to report false")
	}
}

func TestOverlapAabbSphereSymmetric(t *testing.T) {
	box := &BV{Type: BVAabb, Box: Abox{Sx: -1, Sy: -1, Sz: -1, Lx: 1, Ly: 1, Lz: 1}}
	sph := &BV{Type: BVSphere, Center: v3(2, 0, 0), Radius: 1.5}
	if !DefaultOverlapper().Check(box, sph) {
		t.Errorf("expected box-sphere overlap")
	}
	if !DefaultOverlapper().Check(sph, box) {
		t.Errorf("expected swapped sphere-box overlap to match")
	}
}

func TestOverlapDefaultMiss(t *testing.T) {
	a := &BV{Type: BVRay}
	b := &BV{Type: BVRay}
	if DefaultOverlapper().Check(a, b) {
		t.Errorf("expected unsupported BV pair to default to false")
	}
}
