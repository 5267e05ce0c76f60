// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func identityWorldData() *WorldData {
	return &WorldData{R: *lin.NewM3I(), Scale: 1}
}

func TestGeometryIntersectTreeBodies(t *testing.T) {
	a := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	b := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 2)

	wdA := identityWorldData()
	wdB := identityWorldData()
	wdB.Offset = v3(1.5, 0, 0)

	params := &IntersectionParams{VrelMin: 1e6, MaxUnproj: 10, TimeInterval: 1}
	var out []Contact
	n := a.Intersect(b, wdA, wdB, params, 0, &out)
	if n != 1 || len(out) != 1 {
		t.Fatalf("expected one contact, got n=%d len=%d", n, len(out))
	}
	if out[0].ID != [2]uint64{1, 2} {
		t.Errorf("expected contact IDs [1,2], got %+v", out[0].ID)
	}
}

func TestGeometryIntersectTreeBodiesMiss(t *testing.T) {
	a := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	b := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 2)

	wdA := identityWorldData()
	wdB := identityWorldData()
	wdB.Offset = v3(10, 0, 0)

	params := &IntersectionParams{VrelMin: 1e6, MaxUnproj: 10, TimeInterval: 1}
	var out []Contact
	if n := a.Intersect(b, wdA, wdB, params, 0, &out); n != 0 {
		t.Errorf("expected zero contacts for distant bodies, got %d", n)
	}
}

func TestGeometryIntersectPrimitiveFastPath(t *testing.T) {
	sa := NewSphere(v3(0, 0, 0), 1)
	sb := NewSphere(v3(0, 0, 0), 1)
	a := NewPrimitiveGeometry(&sa, 1, 1)
	b := NewPrimitiveGeometry(&sb, 1, 2)

	wdA := identityWorldData()
	wdB := identityWorldData()
	wdB.Offset = v3(1.5, 0, 0)

	params := &IntersectionParams{VrelMin: 1e6, MaxUnproj: 10, TimeInterval: 1}
	var out []Contact
	n := a.Intersect(b, wdA, wdB, params, 0, &out)
	if n != 1 || len(out) != 1 {
		t.Fatalf("expected one fast-path contact, got n=%d len=%d", n, len(out))
	}
}

func TestGeometryIntersectPrimitiveFastPathRayIntoBox(t *testing.T) {
	ray := NewRay(v3(-2, 0, 0), v3(4, 0, 0))
	box := NewBox(v3(0, 0, 0), *lin.NewM3I(), v3(1, 1, 1), false)
	rayGeo := NewPrimitiveGeometry(&ray, 0, 1)
	boxGeo := NewPrimitiveGeometry(&box, 1, 2)

	wdA := identityWorldData()
	wdB := identityWorldData()

	params := &IntersectionParams{VrelMin: 1e6, MaxUnproj: 10, TimeInterval: 1}
	var out []Contact
	n := rayGeo.Intersect(boxGeo, wdA, wdB, params, 0, &out)
	if n != 1 {
		t.Fatalf("expected the ray to hit the box, got %d", n)
	}
}

func TestGeometrySweepWrapper(t *testing.T) {
	moving := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	wall := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 2)

	wdA := identityWorldData()
	wdB := identityWorldData()
	wdB.Offset = v3(5, 0, 0)

	params := &IntersectionParams{
		VrelMin: 1e6, MaxUnproj: 10, TimeInterval: 10,
		AxisOfRotation: v3(1, 0, 0), // sweepDir() falls back to AxisOfRotation when set.
	}
	var out []Contact
	n := moving.Sweep(wall, wdA, wdB, params, 0, &out)
	if n != 1 {
		t.Fatalf("expected one sweep contact, got %d", n)
	}
	if !approxEq(out[0].T, 3) {
		t.Errorf("expected contact at travel distance 3, got %f", out[0].T)
	}
}

func TestGeometrySphereCheckTreeBody(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	if !g.SphereCheck(v3(1.5, 0, 0), 1, 0) {
		t.Errorf("expected overlapping sphere check to report true")
	}
	if g.SphereCheck(v3(10, 0, 0), 1, 0) {
		t.Errorf("expected distant sphere check to report false")
	}
}

func TestGeometrySphereCheckPrimitiveBody(t *testing.T) {
	s := NewSphere(v3(0, 0, 0), 1)
	g := NewPrimitiveGeometry(&s, 0, 1)
	if !g.SphereCheck(v3(1.5, 0, 0), 1, 0) {
		t.Errorf("expected overlapping sphere check to report true")
	}
	if g.SphereCheck(v3(10, 0, 0), 1, 0) {
		t.Errorf("expected distant sphere check to report false")
	}
}

func TestGeometryGetBboxTreeBody(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	box := g.GetBbox(nil)
	if !approxEq(box.Sx, -1) || !approxEq(box.Lx, 1) {
		t.Errorf("expected identity-pose AABB [-1,1], got %+v", box)
	}
}

func TestGeometryGetBboxAppliesWorldOffset(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	wd := identityWorldData()
	wd.Offset = v3(5, 0, 0)
	box := g.GetBbox(wd)
	if !approxEq(box.Sx, 4) || !approxEq(box.Lx, 6) {
		t.Errorf("expected AABB shifted to [4,6], got %+v", box)
	}
}

func TestGeometryGetExtentVolumeAndSurface(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	vol := g.GetExtent(GeomFormVolume, nil)
	if !approxEq(vol, 8) {
		t.Errorf("expected bounding-box volume 8 for a unit-radius sphere's AABB, got %f", vol)
	}
	surf := g.GetExtent(GeomFormSurface, nil)
	if !approxEq(surf, 24) {
		t.Errorf("expected bounding-box surface area 24, got %f", surf)
	}
}

func TestGeometryGetRandomPosVertexOnBoundary(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)}), 0, 1)
	pos, normal := g.GetRandomPos(GeomFormVertices, nil)
	if !approxEq(absf(pos.X), 1) || !approxEq(absf(pos.Y), 1) || !approxEq(absf(pos.Z), 1) {
		t.Errorf("expected a corner of the unit AABB, got %+v", pos)
	}
	if normal.LenSqr() < 0.9 {
		t.Errorf("expected a roughly unit normal, got %+v", normal)
	}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
