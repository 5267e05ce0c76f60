// Copyright © 2024 Galvanized Logic Inc.

// Package physics implements a narrow-phase collision and intersection
// kernel: dual-BVH descent, primitive-vs-primitive dispatch, contact
// manifold aggregation, swept (continuous) collision, minimum-separation
// unprojection, and occlusion cube-map rasterization. It is adapted from
// CryEngine/Lumberyard's CryPhysics geometry.cpp and
// intersectionchecks.cpp, file for file:
//
//	geometry.cpp                -> driver.go, descent.go, occlusion.go
//	intersectionchecks.cpp      -> intersect.go, unproject.go
//	(bounding volume helpers)   -> bv.go, overlap.go, bvtree.go, leaftree.go
//	(contact registration)      -> contact.go
//	(rational/sincos tables)    -> rational.go
//
// The package never allocates on the miss path; every routine
// documented as "false on miss" in the component design returns a
// plain bool, matching the source's error-taxonomy (spec §7): miss,
// budget-exhausted, degenerate-configuration, and lock-contention are
// the only outcomes, and none of them is an exception. The package does
// panic on internal-invariant failures: a degenerate or non-terminating
// EPA polytope (epa.go), and ChildBVs/ChildBVsRel called on a LeafTree.
package physics

import (
	"math/rand"
	"sync"

	"github.com/galvanized/narrowphase/math/lin"
)

// WorldData is one body's pose and kinematics for a single query (spec
// §6's `geom_world_data`): an orthonormal rotation, a translation
// offset, a uniform scale, linear/angular velocity, and the center of
// mass/rotation used by register_intersection's relative-velocity and
// rotational-unprojection math.
type WorldData struct {
	R                lin.M3
	Offset           lin.V3
	Scale            float64
	V, W             lin.V3
	CenterOfMass     lin.V3
	CenterOfRotation lin.V3

	// IStartNode optionally hints at a BVH node to start descent from
	// (both trees) before falling back to the root if nothing is found
	// (spec §6).
	IStartNode int
}

func (wd *WorldData) orDefault() *WorldData {
	if wd != nil {
		return wd
	}
	return &WorldData{R: *lin.NewM3I(), Scale: 1}
}

// Geometry is one collidable body: either a full BVTree, or — for the
// primitive-body fast path (spec §4.7) — a single bare Primitive with
// no tree at all.
type Geometry struct {
	Tree BVTree
	Prim *Primitive

	CollPriority int
	ID           uint64

	lock sync.RWMutex // guards Tree/Prim against concurrent mesh updates (spec §5 lock_update).
}

// NewGeometry wraps a BVTree as a queryable body.
func NewGeometry(tree BVTree, collPriority int, id uint64) *Geometry {
	return &Geometry{Tree: tree, CollPriority: collPriority, ID: id}
}

// NewPrimitiveGeometry wraps a single bare Primitive, enabling the
// primitive-body fast path (spec §4.7) instead of tree descent.
func NewPrimitiveGeometry(prim *Primitive, collPriority int, id uint64) *Geometry {
	return &Geometry{Prim: prim, CollPriority: collPriority, ID: id}
}

// IsAPrimitive reports whether g should take the fast path, matching
// the source's `IsAPrimitive()` query.
func (g *Geometry) IsAPrimitive() bool { return g.Tree == nil && g.Prim != nil }

// Intersect runs a static or swept intersection query against peer,
// appending results to *out and returning the count appended (spec §6's
// `geometry.intersect`; sweep is folded in via params.SweepTest). caller
// selects the per-thread scratch slot (spec §5); pass MaxPhysThreads to
// opt into the shared, lock-guarded slot.
func (g *Geometry) Intersect(peer *Geometry, selfData, peerData *WorldData, params *IntersectionParams, caller int, out *[]Contact) int {
	if params == nil {
		params = &IntersectionParams{}
	}
	selfData, peerData = selfData.orDefault(), peerData.orDefault()
	unlock := lockIfShared(caller)
	defer unlock()

	g.lock.RLock()
	defer g.lock.RUnlock()
	peer.lock.RLock()
	defer peer.lock.RUnlock()

	if g.IsAPrimitive() || peer.IsAPrimitive() {
		return g.intersectFastPath(peer, selfData, peerData, params, out)
	}

	scratch := getScratch(caller)
	g0, g1 := &scratch.g0, &scratch.g1
	setupGTest(g0, g, selfData, params)
	setupGTest(g1, peer, peerData, params)
	crossPose(g0, g1, selfData, peerData)

	g0.Contacts, g1.Contacts = out, out
	g0.NMaxContacts, g1.NMaxContacts = maxContacts(params), maxContacts(params)

	if params.SweepTest {
		g0.SweepDir, g0.SweepStep = params.sweepDir(), params.sweepStep()
		g0.SweepDirLoc = *lin.NewV3().MultMv(lin.NewM3().Transpose(&g0.R), &g0.SweepDir)
		g0.SweepStepLoc = g0.SweepStep / maxF(g0.Scale, lin.Epsilon)
		c := sweepBVs(g0, g1)
		if c == nil {
			return 0
		}
		*out = append(*out, *c)
		return 1
	}

	bv0 := startBV(g0, selfData.IStartNode, 0)
	bv1 := startBV(g1, peerData.IStartNode, 1)
	before := len(*out)
	intersectBVs(g0, g1, bv0, bv1)
	g0.Tree.ReleaseBVs(0)

	if len(*out) == before && (selfData.IStartNode != 0 || peerData.IStartNode != 0) {
		// The hinted node produced nothing; retry from the root (spec §6).
		bv0 = g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
		bv1 = g1.Tree.RootBV(1)
		intersectBVs(g0, g1, bv0, bv1)
		g0.Tree.ReleaseBVs(0)
	}

	applyPriorityNormalSwap((*out)[before:], g1.CollPriority > g0.CollPriority, g0.CenterOfRotation)
	sortContactsByDescendingT((*out)[before:])
	return len(*out) - before
}

// startBV resolves the BV to begin descent from for caller's side: the
// node hinted by world_data.i_start_node (spec §6), projected into the
// same frame RootBV/RootBVIn would use, or the root when no hint is
// given.
func startBV(g *GTest, startNode int, caller int) *BV {
	if startNode == 0 {
		if caller == 0 {
			return g.Tree.RootBVIn(&g.RRel, &g.OffsetRel, g.ScaleRel, caller)
		}
		return g.Tree.RootBV(caller)
	}
	node := g.Tree.NodeBV(startNode, caller)
	if caller == 0 {
		return projectBV(node, &g.RRel, &g.OffsetRel, g.ScaleRel)
	}
	return node
}

// projectBV re-bounds bv's box after applying (R, offset, scale), the
// same corner-projection RootBVIn uses, so a hinted non-root node can be
// expressed in the peer's frame like the root is.
func projectBV(bv *BV, R *lin.M3, offset *lin.V3, scale float64) *BV {
	b := bv.Box
	corners := [8]lin.V3{
		{b.Sx, b.Sy, b.Sz}, {b.Lx, b.Sy, b.Sz},
		{b.Sx, b.Ly, b.Sz}, {b.Lx, b.Ly, b.Sz},
		{b.Sx, b.Sy, b.Lz}, {b.Lx, b.Sy, b.Lz},
		{b.Sx, b.Ly, b.Lz}, {b.Lx, b.Ly, b.Lz},
	}
	lo, hi := lin.NewV3().SetS(lin.Large, lin.Large, lin.Large), lin.NewV3().SetS(-lin.Large, -lin.Large, -lin.Large)
	for _, c := range corners {
		v := lin.NewV3().MultMv(R, &c)
		v.Scale(v, scale)
		v.Add(v, offset)
		lo.X, lo.Y, lo.Z = min3(lo.X, v.X), min3(lo.Y, v.Y), min3(lo.Z, v.Z)
		hi.X, hi.Y, hi.Z = max3(hi.X, v.X), max3(hi.Y, v.Y), max3(hi.Z, v.Z)
	}
	out := &BV{Type: bv.Type, NodeID: bv.NodeID}
	out.Box.set(*lo, *hi, 0)
	return out
}

// Sweep is a named convenience wrapper setting params.SweepTest before
// delegating to Intersect (spec §6: "folded into intersect by
// params.sweep_test").
func (g *Geometry) Sweep(peer *Geometry, selfData, peerData *WorldData, params *IntersectionParams, caller int, out *[]Contact) int {
	p := *params
	p.SweepTest = true
	return g.Intersect(peer, selfData, peerData, &p, caller, out)
}

func maxContacts(params *IntersectionParams) int {
	return 64 // unbounded in practice; a real budget is set by the caller via a future params field.
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (p *IntersectionParams) sweepDir() lin.V3 {
	d := p.AxisOfRotation
	if d.LenSqr() < lin.Epsilon {
		return lin.V3{X: 1}
	}
	return d
}

func (p *IntersectionParams) sweepStep() float64 {
	if p.TimeInterval > 0 {
		return p.TimeInterval
	}
	return p.MaxUnproj
}

// setupGTest fills g from geo/world/params, leaving the peer-relative
// pose fields (RRel/OffsetRel/ScaleRel) zeroed for crossPose to fill in
// and keeping g's scratch buffers and Used bitmap from getScratch.
func setupGTest(g *GTest, geo *Geometry, wd *WorldData, params *IntersectionParams) {
	*g = GTest{
		R: wd.R, Offset: wd.Offset, Scale: wd.Scale, RScale: 1 / maxF(wd.Scale, lin.Epsilon),
		V: wd.V, W: wd.W, CenterOfMass: wd.CenterOfMass, CenterOfRotation: wd.CenterOfRotation,
		Geometry: geo, Tree: geo.Tree, CollPriority: geo.CollPriority, ID: geo.ID,
		Params:  params,
		PrimBuf: g.PrimBuf, IDBuf: g.IDBuf, FeatureBuf: g.FeatureBuf, PrimScratch: g.PrimScratch, Used: g.Used,
	}
}

// crossPose derives each GTest's pose relative to its peer. For g0, a
// point in g0's local frame maps into world as R0*v*s0+t0; expressed in
// g1's local frame that is R1^T*(R0*v*s0+t0-t1)/s1, so:
//
//	RRel(g0)    = R1^T * R0
//	ScaleRel(g0) = s0 / s1
//	OffsetRel(g0) = R1^T * (t0 - t1) / s1
//
// and symmetrically for g1 (spec §3's "pose relative to the peer gtest
// in this query").
func crossPose(g0, g1 *GTest, d0, d1 *WorldData) {
	rt0 := lin.NewM3().Transpose(&d0.R)
	rt1 := lin.NewM3().Transpose(&d1.R)
	s0, s1 := maxF(d0.Scale, lin.Epsilon), maxF(d1.Scale, lin.Epsilon)

	g0.RRel = *lin.NewM3().Mult(rt1, &d0.R)
	delta0 := *lin.NewV3().Sub(&d0.Offset, &d1.Offset)
	g0.OffsetRel = *lin.NewV3().Scale(lin.NewV3().MultMv(rt1, &delta0), 1/s1)
	g0.ScaleRel = s0 / s1
	g0.RScaleRel = s1 / s0

	g1.RRel = *lin.NewM3().Mult(rt0, &d1.R)
	delta1 := *lin.NewV3().Sub(&d1.Offset, &d0.Offset)
	g1.OffsetRel = *lin.NewV3().Scale(lin.NewV3().MultMv(rt0, &delta1), 1/s0)
	g1.ScaleRel = s1 / s0
	g1.RScaleRel = s0 / s1
}

// worldPrimitive returns a copy of p transformed by wd, used by the
// primitive-body fast path (spec §4.7's "preparing both primitives in
// world space") and by GetBbox.
func worldPrimitive(p *Primitive, wd *WorldData) *Primitive {
	out := transformPrimitiveBy(p, &wd.R, &wd.Offset, wd.Scale)
	return &out
}

// transformPrimitiveBy returns a copy of p with its geometry expressed in
// (R, offset, scale)'s frame. Shared by worldPrimitive (world-space fast
// path) and LeafTree.LeafPrimitives (projecting one tree's leaf
// primitives into its peer's frame for leaf-level dispatch, spec §4.3).
func transformPrimitiveBy(p *Primitive, R *lin.M3, offset *lin.V3, scale float64) Primitive {
	point := func(v lin.V3) lin.V3 {
		rv := *lin.NewV3().MultMv(R, &v)
		rv.Scale(&rv, scale)
		return *lin.NewV3().Add(&rv, offset)
	}
	dir := func(v lin.V3) lin.V3 { return *lin.NewV3().MultMv(R, &v) }

	out := *p
	switch p.Type {
	case PrimTriangle:
		out.V0, out.V1, out.V2 = point(p.V0), point(p.V1), point(p.V2)
		e1, e2 := lin.NewV3().Sub(&out.V1, &out.V0), lin.NewV3().Sub(&out.V2, &out.V0)
		out.N = *lin.NewV3().Cross(e1, e2).Unit()
	case PrimBox:
		out.Center = point(p.Center)
		out.Basis = *lin.NewM3().Mult(R, &p.Basis)
		out.HalfExtent = *lin.NewV3().Scale(&p.HalfExtent, scale)
	case PrimSphere:
		out.Center = point(p.Center)
		out.R = p.R * scale
	case PrimCylinder, PrimCapsule:
		out.Center = point(p.Center)
		out.Axis = dir(p.Axis)
		out.R = p.R * scale
		out.HH = p.HH * scale
	case PrimRay:
		out.Origin = point(p.Origin)
		dv := dir(p.Dir)
		out.Dir = *lin.NewV3().Scale(&dv, scale)
	case PrimPlane:
		out.Origin = point(p.Origin)
		out.N = dir(p.N)
	}
	return out
}

// intersectFastPath implements spec §4.7: both primitives prepared in
// world space, one Overlapper AABB prune, then direct Intersector/
// Unprojector dispatch, with the ray-into-body priority-0 convention and
// the sweep-pass-through retry.
func (g *Geometry) intersectFastPath(peer *Geometry, selfData, peerData *WorldData, params *IntersectionParams, out *[]Contact) int {
	pa := g.primitiveOrLeaf(selfData)
	pb := peer.primitiveOrLeaf(peerData)
	if pa == nil || pb == nil {
		return 0
	}

	id := lin.NewT().SetI()
	aboxA, aboxB := pa.Aabb(id, 0), pb.Aabb(id, 0)
	if !aboxA.Overlaps(aboxB) {
		return 0
	}

	var pi PrimIntersection
	pi.MinPtDist2 = params.MinVtxDist * params.MinVtxDist
	if !DefaultIntersector().Check(pa.Type, pb.Type, pa, pb, &pi) {
		return 0
	}

	g0, g1 := GTest{
		R: selfData.R, Offset: selfData.Offset, Scale: maxF(selfData.Scale, lin.Epsilon),
		V: selfData.V, W: selfData.W, CenterOfMass: selfData.CenterOfMass, CenterOfRotation: selfData.CenterOfRotation,
		CollPriority: g.CollPriority, ID: g.ID, Params: params,
	}, GTest{
		R: peerData.R, Offset: peerData.Offset, Scale: maxF(peerData.Scale, lin.Epsilon),
		V: peerData.V, W: peerData.W, CenterOfMass: peerData.CenterOfMass, CenterOfRotation: peerData.CenterOfRotation,
		CollPriority: peer.CollPriority, ID: peer.ID, Params: params,
	}
	buf := make([]Contact, 0, 1)
	g0.Contacts, g1.Contacts = &buf, &buf
	g0.NMaxContacts, g1.NMaxContacts = 1, 1

	idA, idB, iA, iB := g.ID, peer.ID, 0, 0
	ok := registerIntersection(&g0, &g1, &pi, pa.Type, pb.Type, pa, pb, idA, idB, iA, iB)
	if !ok || len(buf) == 0 {
		return 0
	}
	c := buf[0]

	if params.SweepTest && sweptPassThrough(&c, params) {
		advance := 0.1 * peerBoxExtent(pb)
		sweepDir := params.sweepDir()
		offset := *lin.NewV3().Add(&selfData.Offset, lin.NewV3().Scale(&sweepDir, advance))
		advancedData := *selfData
		advancedData.Offset = offset
		pa2 := g.primitiveOrLeaf(&advancedData)
		var pi2 PrimIntersection
		pi2.MinPtDist2 = pi.MinPtDist2
		if pa2 != nil && DefaultIntersector().Check(pa2.Type, pb.Type, pa2, pb, &pi2) {
			buf = buf[:0]
			if registerIntersection(&g0, &g1, &pi2, pa2.Type, pb.Type, pa2, pb, idA, idB, iA, iB) && len(buf) > 0 {
				c = buf[0]
				c.T += advance
			}
		}
	}

	if peer.CollPriority == 0 {
		c.N.Neg(&c.N)
		c.Dir.Neg(&c.Dir)
		c.IPrim[0] = c.IPrim[1]
	}

	*out = append(*out, c)
	return 1
}

// sweptPassThrough detects the "hit from the back side" case (spec
// §4.7): the contact normal opposes the direction of travel.
func sweptPassThrough(c *Contact, params *IntersectionParams) bool {
	return params.SweepTest && c.N.Dot(&c.Dir) > 0
}

func peerBoxExtent(p *Primitive) float64 {
	switch p.Type {
	case PrimBox:
		return p.HalfExtent.X + p.HalfExtent.Y + p.HalfExtent.Z
	case PrimSphere:
		return p.R
	case PrimCylinder, PrimCapsule:
		return p.R + p.HH
	default:
		return 1
	}
}

// primitiveOrLeaf returns g's single world-space primitive for the fast
// path: either g.Prim transformed, or, for a tree-backed body whose tree
// happens to expose exactly one primitive, that primitive's world copy.
func (g *Geometry) primitiveOrLeaf(wd *WorldData) *Primitive {
	if g.Prim != nil {
		return worldPrimitive(g.Prim, wd)
	}
	if lt, ok := g.Tree.(*LeafTree); ok && len(lt.Prims) == 1 {
		return worldPrimitive(&lt.Prims[0], wd)
	}
	return nil
}

// SphereCheck reports whether a world-space sphere overlaps g at all
// (spec §6's `geometry.sphere_check`): no contact is computed, just a
// BV-descent existence test, mirroring the source's SphereCheckBVs.
func (g *Geometry) SphereCheck(center lin.V3, r float64, caller int) bool {
	g.lock.RLock()
	defer g.lock.RUnlock()

	if g.IsAPrimitive() {
		id := lin.NewT().SetI()
		wd := &WorldData{R: *lin.NewM3I(), Scale: 1}
		p := worldPrimitive(g.Prim, wd)
		box := p.Aabb(id, 0)
		sphereBox := Abox{}
		sphereBox.set(
			lin.V3{X: center.X - r, Y: center.Y - r, Z: center.Z - r},
			lin.V3{X: center.X + r, Y: center.Y + r, Z: center.Z + r}, 0)
		return box.Overlaps(&sphereBox)
	}

	bv := g.Tree.RootBV(caller)
	return sphereCheckBVs(g.Tree, center, r, bv, caller)
}

func sphereCheckBVs(tree BVTree, center lin.V3, r float64, bv *BV, caller int) bool {
	sphereBV := &BV{Type: BVSphere, Center: center, Radius: r}
	if !DefaultOverlapper().Check(bv, sphereBV) {
		return false
	}
	if tree.SplitPriority(bv) > 0 {
		a, b := tree.ChildBVs(bv, caller)
		hit := sphereCheckBVs(tree, center, r, a, caller) || sphereCheckBVs(tree, center, r, b, caller)
		tree.ReleaseBVs(caller)
		return hit
	}
	return true
}

// GetBbox returns g's AABB in the given world pose (spec §6's pure
// accessor `geometry.get_bbox`).
func (g *Geometry) GetBbox(wd *WorldData) *Abox {
	wd = wd.orDefault()
	id := lin.NewT().SetI()
	if g.IsAPrimitive() {
		return worldPrimitive(g.Prim, wd).Aabb(id, 0)
	}
	bv := g.Tree.RootBVIn(&wd.R, &wd.Offset, wd.Scale, 0)
	return &bv.Box
}

// GeomForm selects which measure GetExtent/GetRandomPos report, mirroring
// CryPhysics's EGeomForm (vertex count, edge length, surface area, or
// volume).
type GeomForm int

const (
	GeomFormVertices GeomForm = iota
	GeomFormEdges
	GeomFormSurface
	GeomFormVolume
)

// GetExtent returns the default bounding-box-derived extent for form
// (spec §6: "default implementation uses the AABB"). A geometry with a
// richer surface (e.g. a mesh) may override this by measuring its own
// primitives instead; the default here only ever looks at the AABB.
func (g *Geometry) GetExtent(form GeomForm, wd *WorldData) float64 {
	box := g.GetBbox(wd)
	hx, hy, hz := (box.Lx-box.Sx)/2, (box.Ly-box.Sy)/2, (box.Lz-box.Sz)/2
	return boxExtent(form, hx, hy, hz)
}

func boxExtent(form GeomForm, hx, hy, hz float64) float64 {
	switch form {
	case GeomFormEdges:
		return 4 * (hx + hy + hz)
	case GeomFormSurface:
		return 8 * (hx*hy + hy*hz + hz*hx)
	case GeomFormVolume:
		return 8 * hx * hy * hz
	default: // GeomFormVertices
		return 8
	}
}

// GetRandomPos samples a uniformly random point (and outward normal)
// from g's bounding box per form, for particle-spawner use (spec §6).
func (g *Geometry) GetRandomPos(form GeomForm, wd *WorldData) (pos, normal lin.V3) {
	box := g.GetBbox(wd)
	c := box.center()
	he := box.halfExtent()

	switch form {
	case GeomFormVertices:
		sx, sy, sz := sign(), sign(), sign()
		pos = lin.V3{X: c.X + sx*he[0], Y: c.Y + sy*he[1], Z: c.Z + sz*he[2]}
		normal = *lin.NewV3().SetS(sx, sy, sz).Unit()
	case GeomFormVolume:
		pos = lin.V3{
			X: c.X + (rand.Float64()*2-1)*he[0],
			Y: c.Y + (rand.Float64()*2-1)*he[1],
			Z: c.Z + (rand.Float64()*2-1)*he[2],
		}
	default: // GeomFormEdges, GeomFormSurface: pick a random face, then a random point on it.
		axis := rand.Intn(3)
		s := sign()
		u, v := rand.Float64()*2-1, rand.Float64()*2-1
		switch axis {
		case 0:
			pos = lin.V3{X: c.X + s*he[0], Y: c.Y + u*he[1], Z: c.Z + v*he[2]}
			normal = lin.V3{X: s}
		case 1:
			pos = lin.V3{X: c.X + u*he[0], Y: c.Y + s*he[1], Z: c.Z + v*he[2]}
			normal = lin.V3{Y: s}
		default:
			pos = lin.V3{X: c.X + u*he[0], Y: c.Y + v*he[1], Z: c.Z + s*he[2]}
			normal = lin.V3{Z: s}
		}
	}
	return pos, normal
}

func sign() float64 {
	if rand.Intn(2) == 0 {
		return -1
	}
	return 1
}
