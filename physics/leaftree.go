// Copyright © 2024 Galvanized Logic Inc.

package physics

import "github.com/galvanized/narrowphase/math/lin"

// LeafTree is the simplest possible BVTree: every primitive lives in a
// single leaf, so SplitPriority never returns positive and descent.go
// dispatches the whole primitive list to the Intersector on the first
// leaf test. It is the BVTree a body with a handful of primitives and
// no real hierarchy needs, and it doubles as the reference
// implementation new BVTree authors can compare their split-priority
// heuristic against.
type LeafTree struct {
	Prims []Primitive
	ab    Abox
}

// NewLeafTree builds a LeafTree over prims, computing a single
// enclosing AABB in the identity frame.
func NewLeafTree(prims []Primitive) *LeafTree {
	t := &LeafTree{Prims: prims}
	id := lin.NewT().SetI()
	lo, hi := lin.NewV3().SetS(lin.Large, lin.Large, lin.Large), lin.NewV3().SetS(-lin.Large, -lin.Large, -lin.Large)
	for i := range prims {
		b := prims[i].Aabb(id, 0)
		lo.X, lo.Y, lo.Z = min3(lo.X, b.Sx), min3(lo.Y, b.Sy), min3(lo.Z, b.Sz)
		hi.X, hi.Y, hi.Z = max3(hi.X, b.Lx), max3(hi.Y, b.Ly), max3(hi.Z, b.Lz)
	}
	t.ab.set(*lo, *hi, 0)
	return t
}

func min3(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func max3(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (t *LeafTree) RootBV(caller int) *BV {
	return &BV{Type: BVAabb, NodeID: 0, Box: t.ab}
}

func (t *LeafTree) RootBVIn(R *lin.M3, loc *lin.V3, scale float64, caller int) *BV {
	// project the local AABB's 8 corners through (R,loc,scale) and
	// re-bound; a single leaf tree has no deeper nodes to be precise
	// about.
	corners := [8]lin.V3{
		{t.ab.Sx, t.ab.Sy, t.ab.Sz}, {t.ab.Lx, t.ab.Sy, t.ab.Sz},
		{t.ab.Sx, t.ab.Ly, t.ab.Sz}, {t.ab.Lx, t.ab.Ly, t.ab.Sz},
		{t.ab.Sx, t.ab.Sy, t.ab.Lz}, {t.ab.Lx, t.ab.Sy, t.ab.Lz},
		{t.ab.Sx, t.ab.Ly, t.ab.Lz}, {t.ab.Lx, t.ab.Ly, t.ab.Lz},
	}
	lo, hi := lin.NewV3().SetS(lin.Large, lin.Large, lin.Large), lin.NewV3().SetS(-lin.Large, -lin.Large, -lin.Large)
	for _, c := range corners {
		v := lin.NewV3().MultMv(R, &c)
		v.Scale(v, scale)
		v.Add(v, loc)
		lo.X, lo.Y, lo.Z = min3(lo.X, v.X), min3(lo.Y, v.Y), min3(lo.Z, v.Z)
		hi.X, hi.Y, hi.Z = max3(hi.X, v.X), max3(hi.Y, v.Y), max3(hi.Z, v.Z)
	}
	bv := &BV{Type: BVAabb, NodeID: 0}
	bv.Box.set(*lo, *hi, 0)
	return bv
}

// NodeBV ignores id: a LeafTree has only node 0, so any hint resolves
// to the same root BV.
func (t *LeafTree) NodeBV(id int, caller int) *BV {
	return t.RootBV(caller)
}

func (t *LeafTree) SplitPriority(bv *BV) float32 { return -1 } // always a leaf.

func (t *LeafTree) ChildBVs(bv *BV, caller int) (a, b *BV) {
	panic("LeafTree: ChildBVs called on a non-splittable tree")
}

func (t *LeafTree) ChildBVsRel(R *lin.M3, loc *lin.V3, scale float64, bv *BV, caller int) (a, b *BV) {
	panic("LeafTree: ChildBVsRel called on a non-splittable tree")
}

func (t *LeafTree) LeafPrimitives(bv *BV, peerBV *BV, peerNodeUsed bool, self *GTest, caller int) int {
	self.PrimBuf = self.PrimBuf[:0]
	self.IDBuf = self.IDBuf[:0]
	if caller == 0 {
		// bv0 was already projected into the peer's frame via RootBVIn/
		// ChildBVsRel; the leaf primitives must follow, or leaf-level
		// tests compare local coordinates across two different frames.
		self.PrimScratch = self.PrimScratch[:0]
		for i := range t.Prims {
			self.PrimScratch = append(self.PrimScratch, transformPrimitiveBy(&t.Prims[i], &self.RRel, &self.OffsetRel, self.ScaleRel))
		}
		for i := range self.PrimScratch {
			self.PrimBuf = append(self.PrimBuf, &self.PrimScratch[i])
			self.IDBuf = append(self.IDBuf, i)
		}
		return len(self.PrimBuf)
	}
	for i := range t.Prims {
		self.PrimBuf = append(self.PrimBuf, &t.Prims[i])
		self.IDBuf = append(self.IDBuf, i)
	}
	return len(self.PrimBuf)
}

func (t *LeafTree) ReleaseBVs(caller int)      {}
func (t *LeafTree) ReleaseSweptBVs(caller int) {}
