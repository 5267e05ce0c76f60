// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func TestCubeMapFaceUVSelectsDominantAxis(t *testing.T) {
	c := NewCubeMap(8, 10)
	cases := []struct {
		dir  lin.V3
		face int
	}{
		{lin.V3{X: 1}, cubeFacePX},
		{lin.V3{X: -1}, cubeFaceNX},
		{lin.V3{Y: 1}, cubeFacePY},
		{lin.V3{Y: -1}, cubeFaceNY},
		{lin.V3{Z: 1}, cubeFacePZ},
		{lin.V3{Z: -1}, cubeFaceNZ},
	}
	for _, tc := range cases {
		face, u, v := c.faceUV(tc.dir)
		if face != tc.face {
			t.Errorf("dir %+v: expected face %d, got %d", tc.dir, tc.face, face)
		}
		if u != c.N/2 || v != c.N/2 {
			t.Errorf("dir %+v: expected the center cell (%d,%d), got (%d,%d)", tc.dir, c.N/2, c.N/2, u, v)
		}
	}
}

func TestCubeMapMarkHitKeepsClosestDistance(t *testing.T) {
	c := NewCubeMap(8, 10)
	dir := lin.V3{X: 1}

	c.markHit(dir, 5)
	c.markHit(dir, 3)
	c.markHit(dir, 10)

	face, u, v := c.faceUV(dir)
	got := c.Cells[face][v*c.N+u]
	if !approxEq(got, 3) {
		t.Errorf("expected the closest hit (3) to win, got %f", got)
	}
}

func TestCubeMapGrowDilatesNeighborCells(t *testing.T) {
	c := NewCubeMap(5, 10)
	c.Cells[cubeFacePX][2*5+2] = 1 // the single center cell of the PX face.

	before := c.countOccupied()
	grown := c.grow(1)
	after := grown.countOccupied()

	if before != 1 {
		t.Fatalf("expected exactly one occupied cell before growing, got %d", before)
	}
	if after <= before {
		t.Errorf("expected growing by 1 to add neighbor cells, got %d occupied (was %d)", after, before)
	}
	if grown.Cells[cubeFacePX][2*5+2] != 1 {
		t.Errorf("expected the original cell to remain occupied after growing")
	}
	// Untouched faces must stay empty.
	if grown.countOccupied() != grown.sumFaceOccupied(cubeFacePX) {
		t.Errorf("expected growth to stay within the seeded face")
	}
}

func (c *CubeMap) sumFaceOccupied(face int) int {
	n := 0
	for _, d := range c.Cells[face] {
		if d != 0 {
			n++
		}
	}
	return n
}

func TestOcclusionFractionAllEmptyIsOne(t *testing.T) {
	c := NewCubeMap(4, 10)
	if f := occlusionFraction(c, nil); !approxEq(f, 1) {
		t.Errorf("expected an empty cube map to report fraction 1 (nothing occluded), got %f", f)
	}
}

func TestOcclusionFractionSinglePass(t *testing.T) {
	c := NewCubeMap(4, 10)
	c.Cells[cubeFacePX][0] = 5
	total := float64(c.totalCells())
	want := (total - 1) / total
	if f := occlusionFraction(c, nil); !approxEq(f, want) {
		t.Errorf("expected fraction %f for one occupied cell, got %f", want, f)
	}
}

func TestOcclusionFractionTwoPassRequiresBothHit(t *testing.T) {
	cube := NewCubeMap(4, 10)
	cube.Cells[cubeFacePX][0] = 5

	// Reference agrees at the same cell: counts as occluded.
	agree := NewCubeMap(4, 10)
	agree.Cells[cubeFacePX][0] = 1
	total := float64(cube.totalCells())
	wantAgree := (total - 1) / total
	if f := occlusionFraction(cube, agree); !approxEq(f, wantAgree) {
		t.Errorf("expected agreement fraction %f, got %f", wantAgree, f)
	}

	// An empty reference never agrees, so nothing counts as occluded.
	disagree := NewCubeMap(4, 10)
	if f := occlusionFraction(cube, disagree); !approxEq(f, 1) {
		t.Errorf("expected an empty reference to suppress all occlusion, got %f", f)
	}
}

func TestDrawToOcclusionCubemapMarksNearestFace(t *testing.T) {
	sph := NewSphere(v3(0, 0, 5), 1)
	cube := NewCubeMap(8, 10)

	drawToOcclusionCubemap(&sph, v3(0, 0, 0), cube)

	if cube.sumFaceOccupied(cubeFacePZ) == 0 {
		t.Errorf("expected the +Z face to have at least one hit for a sphere straight ahead on +Z")
	}
	for _, f := range []int{cubeFacePX, cubeFaceNX, cubeFacePY, cubeFaceNY, cubeFaceNZ} {
		if n := cube.sumFaceOccupied(f); n != 0 {
			t.Errorf("expected face %d to stay empty for a sphere directly on the +Z axis, got %d hits", f, n)
		}
	}
}

func TestBuildOcclusionCubemapPrimitiveBodyWithinRange(t *testing.T) {
	sph := NewSphere(v3(0, 0, 5), 1)
	g := NewPrimitiveGeometry(&sph, 0, 1)
	wd := identityWorldData()

	cube := NewCubeMap(8, 10)
	frac := g.BuildOcclusionCubemap(wd, 0, cube, nil, 0, 0)
	if frac >= 1 {
		t.Errorf("expected the nearby sphere to occlude at least one cell, got fraction %f", frac)
	}
}

func TestBuildOcclusionCubemapPrimitiveBodyCulledBeyondRMax(t *testing.T) {
	sph := NewSphere(v3(0, 0, 5), 1)
	g := NewPrimitiveGeometry(&sph, 0, 1)
	wd := identityWorldData()

	cube := NewCubeMap(8, 2)
	frac := g.BuildOcclusionCubemap(wd, 0, cube, nil, 0, 0)
	if !approxEq(frac, 1) {
		t.Errorf("expected a sphere beyond rmax to be culled entirely, got fraction %f", frac)
	}
}

func TestBuildOcclusionCubemapTreeBodyWithinRange(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 5), 1)}), 0, 1)
	wd := identityWorldData()

	cube := NewCubeMap(8, 10)
	frac := g.BuildOcclusionCubemap(wd, 0, cube, nil, 0, 0)
	if frac >= 1 {
		t.Errorf("expected the nearby tree-backed sphere to occlude at least one cell, got fraction %f", frac)
	}
}

func TestBuildOcclusionCubemapTreeBodyCulledBeyondRMax(t *testing.T) {
	g := NewGeometry(NewLeafTree([]Primitive{NewSphere(v3(0, 0, 5), 1)}), 0, 1)
	wd := identityWorldData()

	cube := NewCubeMap(8, 2)
	frac := g.BuildOcclusionCubemap(wd, 0, cube, nil, 0, 0)
	if !approxEq(frac, 1) {
		t.Errorf("expected the BV-level radius cull to skip a tree-backed body beyond rmax, got fraction %f", frac)
	}
}

func TestBuildOcclusionCubemapTwoPassRequiresAgreement(t *testing.T) {
	sph := NewSphere(v3(0, 0, 5), 1)
	g := NewPrimitiveGeometry(&sph, 0, 1)
	wd := identityWorldData()

	cube0 := NewCubeMap(8, 10)
	fracSingle := g.BuildOcclusionCubemap(wd, 0, cube0, nil, 0, 0)
	if fracSingle >= 1 {
		t.Fatalf("expected the sphere to occlude at least one cell, got fraction %f", fracSingle)
	}

	cube1 := NewCubeMap(8, 10)
	drawToOcclusionCubemap(&sph, wd.Offset, cube1)
	fracAgree := g.BuildOcclusionCubemap(wd, 1, cube0, cube1, 1, 0)
	if !approxEq(fracAgree, fracSingle) {
		t.Errorf("expected an agreeing (grown) reference to match the single-pass fraction: got %f, want %f", fracAgree, fracSingle)
	}

	emptyRef := NewCubeMap(8, 10)
	fracDisagree := g.BuildOcclusionCubemap(wd, 1, cube0, emptyRef, 1, 0)
	if !approxEq(fracDisagree, 1) {
		t.Errorf("expected an empty reference to suppress all occlusion, got %f", fracDisagree)
	}
}
