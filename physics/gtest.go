// Copyright © 2024 Galvanized Logic Inc.

package physics

import "github.com/galvanized/narrowphase/math/lin"

// IntersectionParams enumerates a query's configuration (spec §3). The
// zero value is a usable default: a static, non-swept, unbudgeted
// intersection test with area contacts enabled.
type IntersectionParams struct {
	SweepTest    bool
	TimeInterval float64
	VrelMin      float64 // below this, linear unprojection falls back to the contact normal.

	UnprojMode       int // 0 = linear, 1 = rotational.
	AxisOfRotation   lin.V3
	CenterOfRotation lin.V3
	PtOutsidePivot   [2]lin.V3

	MaxUnproj         float64
	MaxSurfaceGapAngle float64
	MinVtxDist        float64 // noise floor for vertex coincidence.

	NoAreaContacts    bool
	NoIntersection    bool
	KeepPrevContacts  bool
	BothConvex        bool // set by the driver, not the caller.
	ThreadSafeMesh    bool
}

// GTest (GeometryUnderTest) is the per-query, per-body descriptor
// threaded through the dual-tree descent (spec §3). Two GTests form a
// symmetric pair for one query; writes to Contacts/NContacts go through
// gtest[0] only (spec §3 invariant).
type GTest struct {
	// Pose.
	R                lin.M3
	Offset           lin.V3
	Scale            float64
	RScale           float64 // 1/Scale
	V, W             lin.V3  // linear/angular velocity
	CenterOfMass     lin.V3
	CenterOfRotation lin.V3

	// Pose relative to the peer gtest in this query.
	RRel      lin.M3
	OffsetRel lin.V3
	ScaleRel  float64
	RScaleRel float64

	Geometry *Geometry
	Tree     BVTree

	// Sweep parameters (spec §4.6).
	SweepDir     lin.V3 // unit, in world space.
	SweepStep    float64
	SweepDirLoc  lin.V3 // duplicated into this body's local space.
	SweepStepLoc float64

	// Scratch, reset once per top-level query via Scratch.Reset.
	PrimBuf     []*Primitive
	IDBuf       []int
	FeatureBuf  []uint8
	PrimScratch []Primitive // backing storage for PrimBuf entries transformed by RRel (caller 0 side).

	Used *UsedNodesMap

	// CollPriority decides, at each leaf pair, which side's geometry
	// owns register_intersection: the higher-priority side is the
	// client (spec §4.3 step 4a).
	CollPriority int
	ID           uint64 // this body's identifier, written into Contact.ID.

	// Result cursors. Only gtest[0]'s cursors are authoritative for a
	// given query; gtest[1] carries a pointer to the same slice/count.
	Contacts        *[]Contact
	NMaxContacts    int
	StopIntersection bool
	CurNodeUsed      bool

	Params *IntersectionParams
}

// reset clears the per-leaf scratch buffers and node-used flag at the
// start of each top-level query, matching
// reset_global_prim_buffers(caller_id) (spec §5).
func (g *GTest) reset() {
	g.PrimBuf = g.PrimBuf[:0]
	g.IDBuf = g.IDBuf[:0]
	g.FeatureBuf = g.FeatureBuf[:0]
	g.PrimScratch = g.PrimScratch[:0]
	g.StopIntersection = false
	g.CurNodeUsed = false
}
