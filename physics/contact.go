// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"log/slog"

	"github.com/galvanized/narrowphase/math/lin"
)

// ContactArea carries the optional area-contact payload for one Contact
// (spec §3's `area`): up to areaMaxPts points sharing a primary normal,
// plus the manifold's minimum edge length.
type ContactArea struct {
	Pts        []lin.V3
	N1         lin.V3
	MinEdgeLen float64
}

const areaMaxPts = 8

// Contact is one physically meaningful contact produced by
// register_intersection (spec §3's Contact record).
type Contact struct {
	Pt     lin.V3
	Center lin.V3
	N      lin.V3 // unit, points from body 1 to body 0 by convention pre-swap.

	Dir        lin.V3
	T          float64
	UnprojMode int // 0 linear, 1 rotational.
	Vel        float64

	ID       [2]uint64
	IPrim    [2]int
	IFeature [2][2]uint8
	INode    [2]int

	BorderPoints []lin.V3
	BorderIdx    [][2]int
	Area         *ContactArea
}

// relativeVelocityAt computes v_rel = v2 + w2x(pt-c2) - v1 - w1x(pt-c1)
// (spec §4.5 step 1), where g0 plays "body 1" and g1 plays "body 2".
func relativeVelocityAt(pt lin.V3, g0, g1 *GTest) lin.V3 {
	r0 := *lin.NewV3().Sub(&pt, &g0.CenterOfMass)
	r1 := *lin.NewV3().Sub(&pt, &g1.CenterOfMass)
	v0 := *lin.NewV3().Add(&g0.V, lin.NewV3().Cross(&g0.W, &r0))
	v1 := *lin.NewV3().Add(&g1.V, lin.NewV3().Cross(&g1.W, &r1))
	return *lin.NewV3().Sub(&v1, &v0)
}

// registerIntersection converts a raw Intersector hit into a Contact,
// invoking the Unprojector per spec §4.5. idA/idB and iPrimA/iPrimB are
// the cross-referenced body/primitive identifiers carried into
// Contact.ID/IPrim. Returns false (appending nothing) on any
// unprojector failure, matching "on failure, return without appending."
func registerIntersection(g0, g1 *GTest, pi *PrimIntersection, typeA, typeB PrimitiveType, a, b *Primitive, idA, idB uint64, iPrimA, iPrimB int) bool {
	params := g0.Params
	pt := pi.Pt[1]

	var dir lin.V3
	var center lin.V3
	vrel := relativeVelocityAt(pt, g0, g1)
	vrelLen := vrel.Len()

	switch params.UnprojMode {
	case 1:
		dir = *lin.NewV3().Sub(&g1.W, &g0.W).Unit()
		c0, c1 := g0.CenterOfRotation, g1.CenterOfRotation
		if c0.LenSqr() >= c1.LenSqr() {
			center = c0
		} else {
			center = c1
		}
	default:
		// Open question (spec §9): this branch's "fall back to inters.n"
		// is unconditional on vrel_min and must not be merged with the
		// separate t-bound retry below.
		if vrelLen < params.VrelMin {
			dir = pi.N
		} else {
			dir = *lin.NewV3().Scale(&vrel, -1/vrelLen)
		}
	}

	var ur UnprojResult
	unprojector := DefaultUnprojector()
	if !unprojector.Check(params.UnprojMode, dir, params.MaxUnproj, params.AxisOfRotation, center, typeA, typeB, a, b, &ur) {
		return false
	}

	vel := vrelLen
	if ur.T > params.TimeInterval*vrelLen {
		// Open question (spec §9): retry with dir = inters.n, vel = 0 —
		// a distinct, sequential fallback, not folded into the vrel_min
		// branch above.
		var retry UnprojResult
		if !unprojector.Check(params.UnprojMode, pi.N, params.MaxUnproj, params.AxisOfRotation, center, typeA, typeB, a, b, &retry) {
			return false
		}
		ur = retry
		vel = 0
	}

	if g0.Contacts == nil || g0.NMaxContacts <= 0 {
		slog.Error("registerIntersection: no contact buffer configured")
		return false
	}
	if len(*g0.Contacts) >= g0.NMaxContacts {
		g0.StopIntersection = true
		return false
	}

	c := Contact{
		Pt:         ur.Pt,
		Center:     *lin.NewV3().Scale(lin.NewV3().Add(&pi.Pt[0], &pi.Pt[1]), 0.5),
		N:          ur.N,
		Dir:        ur.Dir,
		T:          ur.T,
		UnprojMode: ur.ModeUsed,
		Vel:        vel,
		ID:         [2]uint64{idA, idB},
		IPrim:      [2]int{iPrimA, iPrimB},
		IFeature:   pi.IFeature,
		INode:      pi.INode,
	}
	if !params.NoAreaContacts && len(pi.BorderPoints) > 0 {
		c.BorderPoints = pi.BorderPoints
		c.BorderIdx = pi.BorderIdx
		c.Area = &ContactArea{N1: ur.N}
		n := len(pi.BorderPoints)
		if n > areaMaxPts {
			n = areaMaxPts
		}
		c.Area.Pts = append([]lin.V3(nil), pi.BorderPoints[:n]...)
		c.Area.MinEdgeLen = minEdgeLength(c.Area.Pts)
	}

	*g0.Contacts = append(*g0.Contacts, c)
	if len(*g0.Contacts) == g0.NMaxContacts {
		g0.StopIntersection = true
	}
	return true
}

func minEdgeLength(pts []lin.V3) float64 {
	if len(pts) < 2 {
		return 0
	}
	min := lin.Large
	for i := range pts {
		j := (i + 1) % len(pts)
		d := pts[i].Dist(&pts[j])
		if d < min {
			min = d
		}
	}
	return min
}

// applyPriorityNormalSwap runs the post-traversal normal-orientation
// normalization (spec §4.5): when the peer has higher collision
// priority than self, rewind pt/border points back along the pre-flip
// dir, flip dir, swap n/area.n1, and swap id/i_prim/i_feature/
// border_idx component-wise. pivot is the querying gtest's
// CenterOfRotation (geometry.cpp ~536/502), used only by rotational-mode
// contacts.
func applyPriorityNormalSwap(contacts []Contact, peerHasHigherPriority bool, pivot lin.V3) {
	if !peerHasHigherPriority {
		return
	}
	for i := range contacts {
		c := &contacts[i]

		// Rewind pt/border points with the pre-flip dir, matching the
		// source's `pt -= dir*t; ...; dir.Flip()` ordering (geometry.cpp
		// ~536-543) — dir must not be negated until after this.
		dir := c.Dir
		switch c.UnprojMode {
		case 1:
			rewindPoint := func(p lin.V3) lin.V3 {
				q := lin.NewQ().SetAa(dir.X, dir.Y, dir.Z, -c.T)
				rel := *lin.NewV3().Sub(&p, &pivot)
				rel = *lin.NewV3().MultvQ(&rel, q)
				return *lin.NewV3().Add(&rel, &pivot)
			}
			c.Pt = rewindPoint(c.Pt)
			for j := range c.BorderPoints {
				c.BorderPoints[j] = rewindPoint(c.BorderPoints[j])
			}
		default:
			back := *lin.NewV3().Scale(&dir, -c.T)
			c.Pt = *lin.NewV3().Add(&c.Pt, &back)
			for j := range c.BorderPoints {
				c.BorderPoints[j] = *lin.NewV3().Add(&c.BorderPoints[j], &back)
			}
		}

		c.Dir.Neg(&c.Dir)
		if c.Area != nil {
			// geometry.cpp ~487-490: n and area.n1 are exchanged via a
			// temp, not independently flipped.
			c.N, c.Area.N1 = c.Area.N1, c.N
		} else {
			c.N.Neg(&c.N)
		}

		c.ID[0], c.ID[1] = c.ID[1], c.ID[0]
		c.IPrim[0], c.IPrim[1] = c.IPrim[1], c.IPrim[0]
		c.INode[0], c.INode[1] = c.INode[1], c.INode[0]
		c.IFeature[0], c.IFeature[1] = c.IFeature[1], c.IFeature[0]
		for j := range c.BorderIdx {
			c.BorderIdx[j][0], c.BorderIdx[j][1] = c.BorderIdx[j][1], c.BorderIdx[j][0]
		}
	}
}

// sortContactsByDescendingT runs a selection sort over the bounded
// contact slice (spec §4.5: "sort ... in descending t (selection sort;
// contact count is bounded)"). A selection sort is used — not
// sort.Slice — to match the source's bounded, allocation-free pass over
// what is at most a handful of contacts.
func sortContactsByDescendingT(contacts []Contact) {
	for i := 0; i < len(contacts); i++ {
		max := i
		for j := i + 1; j < len(contacts); j++ {
			if contacts[j].T > contacts[max].T {
				max = j
			}
		}
		if max != i {
			contacts[i], contacts[max] = contacts[max], contacts[i]
		}
	}
}
