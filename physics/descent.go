// Copyright © 2024 Galvanized Logic Inc.

package physics

import "github.com/galvanized/narrowphase/math/lin"

// intersectBVs is the dual BV descent entry point (spec §4.3). g0 and g1
// must already have RRel/OffsetRel/ScaleRel set to each other's relative
// pose, and bv0/bv1 must both be expressed in g1's tree frame: bv0 via
// g0.Tree.RootBVIn/ChildBVsRel, bv1 via g1.Tree.RootBV/ChildBVs natively.
// Adapted from the teacher's physics/broad.go pair-iteration control
// flow, generalized from a flat broadphase sweep into true recursive
// tree descent.
func intersectBVs(g0, g1 *GTest, bv0, bv1 *BV) int {
	if g0.Used.Get(bv0.NodeID) && g1.Used.Get(bv1.NodeID) {
		return 0
	}
	if !DefaultOverlapper().Check(bv0, bv1) {
		return 0
	}

	s0 := g0.Tree.SplitPriority(bv0)
	s1 := g1.Tree.SplitPriority(bv1)

	switch {
	case s0 > s1 && s0 > 0:
		a, b := g0.Tree.ChildBVsRel(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, bv0, 0)
		n := intersectBVs(g0, g1, a, bv1)
		if !stopDescent(g0, g1) {
			n += intersectBVs(g0, g1, b, bv1)
		}
		g0.Tree.ReleaseBVs(0)
		return n
	case s1 > 0:
		a, b := g1.Tree.ChildBVs(bv1, 1)
		n := intersectBVs(g0, g1, bv0, a)
		if !stopDescent(g0, g1) {
			n += intersectBVs(g0, g1, bv0, b)
		}
		g1.Tree.ReleaseBVs(1)
		return n
	}

	return leafDispatch(g0, g1, bv0, bv1)
}

func stopDescent(g0, g1 *GTest) bool {
	return g0.StopIntersection || g1.StopIntersection || (g0.CurNodeUsed && g1.CurNodeUsed)
}

// leafDispatch materializes both sides' leaf primitives and double-loops
// the Intersector over them (spec §4.3 step 4).
func leafDispatch(g0, g1 *GTest, bv0, bv1 *BV) int {
	n1 := g0.Tree.LeafPrimitives(bv0, bv1, g1.CurNodeUsed, g0, 0)
	n2 := g1.Tree.LeafPrimitives(bv1, bv0, g0.CurNodeUsed, g1, 1)

	intersector := DefaultIntersector()
	count := 0
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			if stopDescent(g0, g1) {
				return count
			}
			clientIsG1 := g1.CollPriority > g0.CollPriority
			var client, peer *GTest
			var clientPrim, peerPrim *Primitive
			var clientIdx, peerIdx int
			if clientIsG1 {
				client, peer = g1, g0
				clientPrim, peerPrim = g1.PrimBuf[j], g0.PrimBuf[i]
				clientIdx, peerIdx = g1.IDBuf[j], g0.IDBuf[i]
			} else {
				client, peer = g0, g1
				clientPrim, peerPrim = g0.PrimBuf[i], g1.PrimBuf[j]
				clientIdx, peerIdx = g0.IDBuf[i], g1.IDBuf[j]
			}

			var pi PrimIntersection
			pi.MinPtDist2 = minVtxDist2(g0, g1)

			if intersector.Check(clientPrim.Type, peerPrim.Type, clientPrim, peerPrim, &pi) {
				pi.INode[0], pi.INode[1] = bv0.NodeID, bv1.NodeID
				if registerIntersection(client, peer, &pi, clientPrim.Type, peerPrim.Type, clientPrim, peerPrim, client.ID, peer.ID, clientIdx, peerIdx) {
					count++
					client.CurNodeUsed, peer.CurNodeUsed = true, true
					g0.Used.Set(bv0.NodeID)
					g1.Used.Set(bv1.NodeID)
				}
			}
		}
	}
	return count
}

func minVtxDist2(g0, g1 *GTest) float64 {
	d := g0.Params.MinVtxDist
	if g1.Params.MinVtxDist < d {
		d = g1.Params.MinVtxDist
	}
	return d * d
}

// sweepBVs is the swept-test counterpart (spec §4.6): identical descent
// shape, but the leaf dispatch calls the Unprojector directly with a
// fixed linear mode along +SweepDir, and only the single earliest hit
// survives.
func sweepBVs(g0, g1 *GTest) *Contact {
	bv0 := g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
	bv0.Box.Expand(*lin.NewV3().Scale(&g0.SweepDirLoc, g0.SweepStepLoc))
	bv1 := g1.Tree.RootBV(1)

	var best *Contact
	sweepDescend(g0, g1, bv0, bv1, &best)
	g0.Tree.ReleaseSweptBVs(0)
	return best
}

func sweepDescend(g0, g1 *GTest, bv0, bv1 *BV, best **Contact) {
	if !DefaultOverlapper().Check(bv0, bv1) {
		return
	}
	s0 := g0.Tree.SplitPriority(bv0)
	s1 := g1.Tree.SplitPriority(bv1)
	switch {
	case s0 > s1 && s0 > 0:
		a, b := g0.Tree.ChildBVsRel(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, bv0, 0)
		sweepDescend(g0, g1, a, bv1, best)
		sweepDescend(g0, g1, b, bv1, best)
		g0.Tree.ReleaseBVs(0)
		return
	case s1 > 0:
		a, b := g1.Tree.ChildBVs(bv1, 1)
		sweepDescend(g0, g1, bv0, a, best)
		sweepDescend(g0, g1, bv0, b, best)
		g1.Tree.ReleaseBVs(1)
		return
	}

	n1 := g0.Tree.LeafPrimitives(bv0, bv1, g1.CurNodeUsed, g0, 0)
	n2 := g1.Tree.LeafPrimitives(bv1, bv0, g0.CurNodeUsed, g1, 1)
	unprojector := DefaultUnprojector()
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			a, b := g0.PrimBuf[i], g1.PrimBuf[j]
			var ur UnprojResult
			// dir = +SweepDir: a's own unprojectors resolve both the
			// already-overlapping-at-t=0 case (sphereSphereUnproject's
			// depth>0 branch / convexUnproject's gjk_collides hit) and
			// the common CCD case of two bodies separated at the start
			// of the sweep (sphereSphereSweepUnproject /
			// convexSweepUnproject), so a single forward-direction call
			// covers spec §4.6 without a separate overlap pre-check.
			if !unprojector.Check(0, g0.SweepDir, g0.SweepStep, lin.V3{}, lin.V3{}, a.Type, b.Type, a, b, &ur) {
				continue
			}
			if ur.T > g0.SweepStep {
				continue
			}
			if *best == nil || ur.T < (*best).T {
				*best = &Contact{
					Pt: ur.Pt, N: ur.N, Dir: ur.Dir, T: ur.T, UnprojMode: 0,
					ID:    [2]uint64{g0.ID, g1.ID},
					IPrim: [2]int{g0.IDBuf[i], g1.IDBuf[j]},
				}
			}
		}
	}
}
