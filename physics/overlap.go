// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"sync"

	"github.com/galvanized/narrowphase/math/lin"
)

// overlapFn is the Overlapper's function-pointer-table entry type,
// adapted from the teacher's physics/collision.go `collide` table
// (c.algorithms[SphereShape][BoxShape] = collideSphereBox) generalized
// from a 2x2 shape table to the spec's symmetric NPrims x NPrims
// Overlapper (spec §4.2).
type overlapFn func(a, b *BV) bool

// Overlapper is the symmetric BV-BV overlap dispatch table. Types that
// cannot be BVs at all resolve to defaultOverlap.
type Overlapper struct {
	table [NBVTypes][NBVTypes]overlapFn
}

var overlapOnce sync.Once
var defaultOverlapper Overlapper

// DefaultOverlapper returns the package-wide Overlapper singleton,
// built once (grounded on intersectionchecks.h's single g_Intersector
// global, generalized to a sync.Once-guarded value rather than mutable
// global state — see SPEC_FULL.md SUPPLEMENTED FEATURES).
func DefaultOverlapper() *Overlapper {
	overlapOnce.Do(func() {
		defaultOverlapper.init()
	})
	return &defaultOverlapper
}

// Init resets any table-internal caches before a top-level query (spec
// §4.2). This table carries no internal cache, so Init is a no-op kept
// for API-contract parity with the source convention.
func (o *Overlapper) Init() {}

func (o *Overlapper) init() {
	for i := range o.table {
		for j := range o.table[i] {
			o.table[i][j] = defaultOverlap
		}
	}
	o.table[BVAabb][BVAabb] = overlapAabbAabb
	o.table[BVSphere][BVSphere] = overlapSphereSphere
	o.table[BVAabb][BVSphere] = overlapAabbSphere
	o.table[BVSphere][BVAabb] = func(a, b *BV) bool { return overlapAabbSphere(b, a) }
	o.table[BVObb][BVObb] = overlapObbObb
	o.table[BVCapsule][BVCapsule] = overlapCapsuleCapsule
	o.table[BVSphere][BVCapsule] = overlapSphereCapsule
	o.table[BVCapsule][BVSphere] = func(a, b *BV) bool { return overlapSphereCapsule(b, a) }
}

// Check dispatches the overlap test for the ordered pair of BV types.
func (o *Overlapper) Check(bv1, bv2 *BV) bool {
	return o.table[bv1.Type][bv2.Type](bv1, bv2)
}

// defaultOverlap is the miss path for any (type1, type2) pair with no
// registered handler.
func defaultOverlap(a, b *BV) bool { return false }

func overlapAabbAabb(a, b *BV) bool {
	return a.Box.Overlaps(&b.Box)
}

func overlapSphereSphere(a, b *BV) bool {
	d := lin.NewV3().Sub(&a.Center, &b.Center)
	r := a.Radius + b.Radius
	return d.Dot(d) <= r*r
}

func overlapAabbSphere(a, b *BV) bool {
	cx := clamp(b.Center.X, a.Box.Sx, a.Box.Lx)
	cy := clamp(b.Center.Y, a.Box.Sy, a.Box.Ly)
	cz := clamp(b.Center.Z, a.Box.Sz, a.Box.Lz)
	dx, dy, dz := cx-b.Center.X, cy-b.Center.Y, cz-b.Center.Z
	return dx*dx+dy*dy+dz*dz <= b.Radius*b.Radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// overlapObbObb runs the standard 15-axis OBB-OBB separating-axis test
// (each box's 3 face normals plus their 9 pairwise cross products),
// matching the oriented-box BV type spec §3/§4.2 calls for. Box.center
// is the box's own center in its parent frame; Basis rows are the box's
// local axes.
func overlapObbObb(a, b *BV) bool {
	ac, bc := a.Box.center(), b.Box.center()
	t := *lin.NewV3().Sub(&bc, &ac)

	// R[i][j] = dot(a.axis_i, b.axis_j); t expressed along a's axes.
	var r, absR [3][3]float64
	aAxis := [3]lin.V3{m3Row(&a.Basis, 0), m3Row(&a.Basis, 1), m3Row(&a.Basis, 2)}
	bAxis := [3]lin.V3{m3Row(&b.Basis, 0), m3Row(&b.Basis, 1), m3Row(&b.Basis, 2)}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = aAxis[i].Dot(&bAxis[j])
			absR[i][j] = math.Abs(r[i][j]) + 1e-9
		}
	}
	tl := [3]float64{t.Dot(&aAxis[0]), t.Dot(&aAxis[1]), t.Dot(&aAxis[2])}

	ae := a.Box.halfExtent()
	be := b.Box.halfExtent()

	for i := 0; i < 3; i++ {
		rb := be[0]*absR[i][0] + be[1]*absR[i][1] + be[2]*absR[i][2]
		if math.Abs(tl[i]) > ae[i]+rb {
			return false
		}
	}
	for j := 0; j < 3; j++ {
		ra := ae[0]*absR[0][j] + ae[1]*absR[1][j] + ae[2]*absR[2][j]
		proj := tl[0]*r[0][j] + tl[1]*r[1][j] + tl[2]*r[2][j]
		if math.Abs(proj) > ra+be[j] {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		i1, i2 := (i+1)%3, (i+2)%3
		for j := 0; j < 3; j++ {
			j1, j2 := (j+1)%3, (j+2)%3
			ra := ae[i1]*absR[i2][j] + ae[i2]*absR[i1][j]
			rb := be[j1]*absR[i][j2] + be[j2]*absR[i][j1]
			if math.Abs(tl[i2]*r[i1][j]-tl[i1]*r[i2][j]) > ra+rb {
				return false
			}
		}
	}
	return true
}

func overlapCapsuleCapsule(a, b *BV) bool {
	p1, d1 := capsuleSeg(a)
	p2, d2 := capsuleSeg(b)
	dist2 := closestSegSegDist2(p1, d1, p2, d2)
	r := a.Radius + b.Radius
	return dist2 <= r*r
}

func overlapSphereCapsule(a, b *BV) bool {
	p2, d2 := capsuleSeg(b)
	dist2 := closestPtSegDist2(a.Center, p2, d2)
	r := a.Radius + b.Radius
	return dist2 <= r*r
}

// capsuleSeg returns the capsule's core segment as (start, direction)
// with direction scaled by 2*HH (axis is already unit).
func capsuleSeg(bv *BV) (p0, dir lin.V3) {
	half := *lin.NewV3().Scale(&bv.Axis, bv.HH)
	p0 = *lin.NewV3().Sub(&bv.Center, &half)
	dir = *lin.NewV3().Scale(&bv.Axis, 2*bv.HH)
	return p0, dir
}

// closestSegSegDist2 returns the squared distance between two segments
// given as (start, direction) pairs, clamping both parameters to [0,1].
func closestSegSegDist2(p1, d1, p2, d2 lin.V3) float64 {
	r := *lin.NewV3().Sub(&p1, &p2)
	a := d1.Dot(&d1)
	e := d2.Dot(&d2)
	f := d2.Dot(&r)
	var s, t float64
	const eps = 1e-12
	if a <= eps && e <= eps {
		s, t = 0, 0
	} else if a <= eps {
		s = 0
		t = clamp(f/e, 0, 1)
	} else {
		c := d1.Dot(&r)
		if e <= eps {
			t = 0
			s = clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(&d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clamp((b*f-c*e)/denom, 0, 1)
			} else {
				s = 0
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = clamp((b-c)/a, 0, 1)
			}
		}
	}
	c1 := *lin.NewV3().Add(&p1, lin.NewV3().Scale(&d1, s))
	c2 := *lin.NewV3().Add(&p2, lin.NewV3().Scale(&d2, t))
	diff := lin.NewV3().Sub(&c1, &c2)
	return diff.Dot(diff)
}

// m3Row extracts row i (0, 1, or 2) of m as a vector.
func m3Row(m *lin.M3, i int) lin.V3 {
	switch i {
	case 0:
		return lin.V3{X: m.Xx, Y: m.Xy, Z: m.Xz}
	case 1:
		return lin.V3{X: m.Yx, Y: m.Yy, Z: m.Yz}
	default:
		return lin.V3{X: m.Zx, Y: m.Zy, Z: m.Zz}
	}
}

func closestPtSegDist2(p, segP0, segD lin.V3) float64 {
	w := *lin.NewV3().Sub(&p, &segP0)
	len2 := segD.Dot(&segD)
	t := 0.0
	if len2 > 1e-12 {
		t = clamp(w.Dot(&segD)/len2, 0, 1)
	}
	c := *lin.NewV3().Add(&segP0, lin.NewV3().Scale(&segD, t))
	diff := lin.NewV3().Sub(&p, &c)
	return diff.Dot(diff)
}
