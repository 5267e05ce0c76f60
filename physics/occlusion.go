// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"

	"github.com/galvanized/narrowphase/math/lin"
)

// cube face indices, in the conventional +X,-X,+Y,-Y,+Z,-Z order.
const (
	cubeFacePX = iota
	cubeFaceNX
	cubeFacePY
	cubeFaceNY
	cubeFacePZ
	cubeFaceNZ
	cubeFaceCount
)

// CubeMap is one occlusion cube map: six N×N depth grids, centered on a
// geometry's pivot, used by BuildOcclusionCubemap to rasterize primitive
// silhouettes (spec §4.8). A zero cell means "no primitive rasterized
// there yet"; any positive value is the closest hit distance recorded.
type CubeMap struct {
	N     int
	RMax  float64
	Cells [cubeFaceCount][]float64
}

// NewCubeMap allocates an empty n×n six-face cube map with culling
// radius rmax (spec §4.8's `cubemap.rmax`).
func NewCubeMap(n int, rmax float64) *CubeMap {
	c := &CubeMap{N: n, RMax: rmax}
	for f := range c.Cells {
		c.Cells[f] = make([]float64, n*n)
	}
	return c
}

func (c *CubeMap) clear() {
	for f := range c.Cells {
		for i := range c.Cells[f] {
			c.Cells[f][i] = 0
		}
	}
}

// faceUV maps a direction (need not be unit) to a face index and the
// cell coordinates within that face, using the standard largest-axis
// cube-map projection.
func (c *CubeMap) faceUV(dir lin.V3) (face, u, v int) {
	ax, ay, az := math.Abs(dir.X), math.Abs(dir.Y), math.Abs(dir.Z)
	var s, t, m float64
	switch {
	case ax >= ay && ax >= az:
		m = ax
		if dir.X > 0 {
			face, s, t = cubeFacePX, -dir.Z, -dir.Y
		} else {
			face, s, t = cubeFaceNX, dir.Z, -dir.Y
		}
	case ay >= ax && ay >= az:
		m = ay
		if dir.Y > 0 {
			face, s, t = cubeFacePY, dir.X, dir.Z
		} else {
			face, s, t = cubeFaceNY, dir.X, -dir.Z
		}
	default:
		m = az
		if dir.Z > 0 {
			face, s, t = cubeFacePZ, dir.X, -dir.Y
		} else {
			face, s, t = cubeFaceNZ, -dir.X, -dir.Y
		}
	}
	if m < lin.Epsilon {
		m = lin.Epsilon
	}
	nf := float64(c.N)
	fu := (s/m*0.5 + 0.5) * nf
	fv := (t/m*0.5 + 0.5) * nf
	u = clampCell(int(fu), c.N)
	v = clampCell(int(fv), c.N)
	return face, u, v
}

func clampCell(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// markHit rasterizes a single hit in direction dirFromCenter, distance
// dist from center, keeping the closest hit per cell (a depth test).
func (c *CubeMap) markHit(dirFromCenter lin.V3, dist float64) {
	face, u, v := c.faceUV(dirFromCenter)
	idx := v*c.N + u
	cur := c.Cells[face][idx]
	if cur == 0 || dist < cur {
		c.Cells[face][idx] = dist
	}
}

// grow dilates every occupied cell by n_grow rings (a box-kernel
// morphological dilation), returning a new CubeMap so the source is
// left unmodified — the two-pass variant compares an un-grown current
// build against a grown reference (spec §4.8).
func (c *CubeMap) grow(nGrow int) *CubeMap {
	out := NewCubeMap(c.N, c.RMax)
	for f := range c.Cells {
		for v := 0; v < c.N; v++ {
			for u := 0; u < c.N; u++ {
				if c.Cells[f][v*c.N+u] == 0 {
					continue
				}
				for dv := -nGrow; dv <= nGrow; dv++ {
					for du := -nGrow; du <= nGrow; du++ {
						uu, vv := u+du, v+dv
						if uu < 0 || uu >= c.N || vv < 0 || vv >= c.N {
							continue
						}
						out.Cells[f][vv*c.N+uu] = 1
					}
				}
			}
		}
	}
	return out
}

func (c *CubeMap) countOccupied() int {
	n := 0
	for f := range c.Cells {
		for _, d := range c.Cells[f] {
			if d != 0 {
				n++
			}
		}
	}
	return n
}

// totalCells returns the cube map's cell count across all six faces.
func (c *CubeMap) totalCells() int { return cubeFaceCount * c.N * c.N }

// drawToOcclusionCubemap rasterizes one primitive's silhouette into
// cube, sampling a small fan of directions across the primitive's
// angular extent as seen from the cube map's center and recording the
// closest hit distance per touched cell (grounded on
// `geometry.draw_to_occlusion_cubemap`, spec §4.8).
func drawToOcclusionCubemap(p *Primitive, center lin.V3, cube *CubeMap) {
	c, radius := primBoundingSphere(p)
	toCenter := *lin.NewV3().Sub(&c, &center)
	dist := toCenter.Len()
	if dist < lin.Epsilon {
		return
	}
	half := math.Asin(clamp01(radius / dist))
	baseDir := *lin.NewV3().Scale(&toCenter, 1/dist)
	ortho1, ortho2 := orthoBasis(baseDir)

	const fanSteps = 3
	for i := -fanSteps; i <= fanSteps; i++ {
		for j := -fanSteps; j <= fanSteps; j++ {
			fi, fj := float64(i)/fanSteps*half, float64(j)/fanSteps*half
			d := *lin.NewV3().Add(&baseDir,
				lin.NewV3().Add(lin.NewV3().Scale(&ortho1, math.Sin(fi)), lin.NewV3().Scale(&ortho2, math.Sin(fj))))
			d.Unit()
			cube.markHit(d, dist)
		}
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func orthoBasis(n lin.V3) (lin.V3, lin.V3) {
	up := lin.V3{X: 0, Y: 1, Z: 0}
	if math.Abs(n.Y) > 0.99 {
		up = lin.V3{X: 1}
	}
	t1 := *lin.NewV3().Cross(&up, &n).Unit()
	t2 := *lin.NewV3().Cross(&n, &t1).Unit()
	return t1, t2
}

func primBoundingSphere(p *Primitive) (center lin.V3, radius float64) {
	id := lin.NewT().SetI()
	box := p.Aabb(id, 0)
	c := box.center()
	he := box.halfExtent()
	return c, math.Sqrt(he[0]*he[0] + he[1]*he[1] + he[2]*he[2])
}

// BuildOcclusionCubemap performs a radius-culled BV descent against a
// sphere of radius cube0.RMax centered at wd.Offset, rasterizing every
// surviving leaf primitive into cube0 (spec §4.8). When mode == 1 (the
// two-pass variant), the result is additionally compared against
// cube1 grown by nGrow cells: occlusion_fraction is computed only over
// cells the grown reference agrees are occluded, matching the source's
// intent of suppressing single-frame rasterization noise. Reuses the
// same BV arena/caller-ID discipline as intersectBVs (spec §5): every
// ChildBVs this function calls is paired with a ReleaseBVs before
// returning.
func (g *Geometry) BuildOcclusionCubemap(wd *WorldData, mode int, cube0, cube1 *CubeMap, nGrow int, caller int) float64 {
	g.lock.RLock()
	defer g.lock.RUnlock()

	cube0.clear()
	center := wd.Offset

	if g.IsAPrimitive() {
		wp := worldPrimitive(g.Prim, wd)
		c, r := primBoundingSphere(wp)
		if lin.NewV3().Sub(&c, &center).Len()-r <= cube0.RMax {
			drawToOcclusionCubemap(wp, center, cube0)
		}
	} else {
		occlusionDescend(g.Tree, center, cube0.RMax, cube0, wd, caller)
	}

	if mode != 1 || cube1 == nil {
		return occlusionFraction(cube0, nil)
	}
	grown := cube1.grow(nGrow)
	return occlusionFraction(cube0, grown)
}

func occlusionDescend(tree BVTree, center lin.V3, rmax float64, cube *CubeMap, wd *WorldData, caller int) {
	bv := tree.RootBVIn(lin.NewM3().Set(&wd.R), &wd.Offset, wd.Scale, caller)
	occlusionDescendBV(tree, center, rmax, cube, bv, caller)
}

func occlusionDescendBV(tree BVTree, center lin.V3, rmax float64, cube *CubeMap, bv *BV, caller int) {
	sphereBV := &BV{Type: BVSphere, Center: center, Radius: rmax}
	if !DefaultOverlapper().Check(bv, sphereBV) {
		return
	}
	if tree.SplitPriority(bv) > 0 {
		a, b := tree.ChildBVs(bv, caller)
		occlusionDescendBV(tree, center, rmax, cube, a, caller)
		occlusionDescendBV(tree, center, rmax, cube, b, caller)
		tree.ReleaseBVs(caller)
		return
	}
	gt := &GTest{}
	n := tree.LeafPrimitives(bv, nil, false, gt, 1)
	for i := 0; i < n; i++ {
		drawToOcclusionCubemap(gt.PrimBuf[i], center, cube)
	}
}

// occlusionFraction computes (n_cells − n_occluded_cells) / n_cells
// (spec §4.8). When reference is non-nil (two-pass mode), only cells
// occluded in both cube and the grown reference count as occluded — a
// documented design decision resolving the spec's otherwise-unspecified
// "grown-and-compared" comparison rule (see DESIGN.md).
func occlusionFraction(cube, reference *CubeMap) float64 {
	total := cube.totalCells()
	occluded := 0
	for f := range cube.Cells {
		for i, d := range cube.Cells[f] {
			hit := d != 0
			if reference != nil {
				hit = hit && reference.Cells[f][i] != 0
			}
			if hit {
				occluded++
			}
		}
	}
	return float64(total-occluded) / float64(total)
}
