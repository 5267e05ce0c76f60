// Copyright © 2024 Galvanized Logic Inc.

package physics

import "github.com/galvanized/narrowphase/math/lin"

// BVTree is an opaque tree over one body's primitives (spec §3). It is
// never mutated during a query; child BVs are constructed into a
// per-caller arena and released on unwind (LIFO, spec §5).
//
// Implementations must pair every ChildBVs call with a ReleaseBVs call
// on the return path (invariant 3, spec §8) — descent.go enforces this
// by always deferring ReleaseBVs immediately after a successful
// ChildBVs.
type BVTree interface {
	// RootBV returns the tree's root BV in the tree's own local frame.
	RootBV(caller int) *BV

	// RootBVIn returns the root BV transformed into the peer's local
	// frame, for cross-body descent (spec §3).
	RootBVIn(R *lin.M3, t *lin.V3, scale float64, caller int) *BV

	// NodeBV returns the BV for node id in the tree's own local frame,
	// the same frame RootBV uses (spec §6's world_data.i_start_node:
	// descent may start at a hinted node instead of the root). A tree
	// with a single node (LeafTree) ignores id and returns the root.
	NodeBV(id int, caller int) *BV

	// SplitPriority reports whether bv is internal (positive: should be
	// split) or a leaf (non-positive).
	SplitPriority(bv *BV) float32

	// ChildBVs splits bv into its two children, both in the tree's own
	// local frame. Children are allocated from the caller's arena.
	ChildBVs(bv *BV, caller int) (a, b *BV)

	// ChildBVsRel is the transformed variant of ChildBVs, producing
	// children already expressed in the peer's local frame.
	ChildBVsRel(R *lin.M3, t *lin.V3, scale float64, bv *BV, caller int) (a, b *BV)

	// LeafPrimitives materializes the primitives owned by the leaf bv
	// into self's scratch buffers (PrimBuf/IDBuf), returning the count.
	// peerBV and peerNodeUsed let triangle-mesh trees apply a
	// mesh-local occlusion/coherence optimization; both may be ignored
	// by simpler trees (a single-box tree, for instance). caller is 0
	// for the side descent.go projects into the peer's frame via
	// RootBVIn/ChildBVsRel (self's own primitives must be transformed by
	// self.RRel/OffsetRel/ScaleRel to match) and 1 for the side that
	// stays in its own native frame (self's primitives are returned
	// as-is).
	LeafPrimitives(bv *BV, peerBV *BV, peerNodeUsed bool, self *GTest, caller int) int

	// ReleaseBVs pops the arena frame pushed by the most recent ChildBVs
	// or ChildBVsRel call for this caller.
	ReleaseBVs(caller int)

	// ReleaseSweptBVs is the swept-test counterpart, used by sweep_bvs
	// (spec §4.6) where the root BV was additionally expanded along the
	// sweep direction.
	ReleaseSweptBVs(caller int)
}
