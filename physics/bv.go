// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math/bits"

	"github.com/galvanized/narrowphase/math/lin"
)

// Abox is an axis-aligned bounding box stored as small/large corners,
// adapted from the teacher's shape.go Abox (Sx..Lz fields kept so the
// Overlapper's AABB-vs-AABB test reads exactly like the original).
type Abox struct {
	Sx, Sy, Sz float64 // small corner.
	Lx, Ly, Lz float64 // large corner.
}

// set normalizes lo/hi (which may arrive in either order) and grows the
// box by margin on every axis.
func (ab *Abox) set(lo, hi lin.V3, margin float64) {
	ab.Sx, ab.Lx = minmax(lo.X, hi.X)
	ab.Sy, ab.Ly = minmax(lo.Y, hi.Y)
	ab.Sz, ab.Lz = minmax(lo.Z, hi.Z)
	ab.Sx, ab.Sy, ab.Sz = ab.Sx-margin, ab.Sy-margin, ab.Sz-margin
	ab.Lx, ab.Ly, ab.Lz = ab.Lx+margin, ab.Ly+margin, ab.Lz+margin
}

func minmax(a, b float64) (lo, hi float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// center returns the box's midpoint.
func (ab *Abox) center() lin.V3 {
	return lin.V3{X: (ab.Sx + ab.Lx) / 2, Y: (ab.Sy + ab.Ly) / 2, Z: (ab.Sz + ab.Lz) / 2}
}

// halfExtent returns the box's half-width along each axis.
func (ab *Abox) halfExtent() [3]float64 {
	return [3]float64{(ab.Lx - ab.Sx) / 2, (ab.Ly - ab.Sy) / 2, (ab.Lz - ab.Sz) / 2}
}

// Overlaps returns true if ab and b, both axis-aligned boxes in the
// same frame, intersect or touch.
func (ab *Abox) Overlaps(b *Abox) bool {
	return ab.Sx <= b.Lx && b.Sx <= ab.Lx &&
		ab.Sy <= b.Ly && b.Sy <= ab.Ly &&
		ab.Sz <= b.Lz && b.Sz <= ab.Lz
}

// Expand grows the box in-place to also enclose d, used by the swept
// descent to grow body 0's root BV along sweep_dir by sweep_step
// (spec §4.6).
func (ab *Abox) Expand(d lin.V3) *Abox {
	if d.X < 0 {
		ab.Sx += d.X
	} else {
		ab.Lx += d.X
	}
	if d.Y < 0 {
		ab.Sy += d.Y
	} else {
		ab.Ly += d.Y
	}
	if d.Z < 0 {
		ab.Sz += d.Z
	} else {
		ab.Lz += d.Z
	}
	return ab
}

// BVType tags which kind of bounding volume a BV node carries.
type BVType int

const (
	BVAabb BVType = iota
	BVObb
	BVCapsule
	BVSphere
	BVRay
	NBVTypes
)

// BV is a bounding volume node: a tagged variant carrying the node's
// tree-local identity plus its volume parameters in the owning tree's
// local frame (spec §3's BoundingVolume).
type BV struct {
	Type   BVType
	NodeID int

	Box    Abox    // BVAabb, BVObb (Obb additionally uses Basis)
	Basis  lin.M3  // BVObb orientation
	Center lin.V3  // BVSphere, BVCapsule
	Radius float64 // BVSphere, BVCapsule
	Axis   lin.V3  // BVCapsule
	HH     float64 // BVCapsule half-height
}

// UsedNodesMap is a per-body, per-query bitmap asserting which BVH
// nodes have already contributed an authoritative contact (spec §3,
// §4.3). A nil *UsedNodesMap behaves as all-zero, matching "treating a
// null map as zero" in spec §4.3 step 1.
type UsedNodesMap struct {
	bits []uint64
}

// NewUsedNodesMap allocates a bitmap large enough for n node IDs.
func NewUsedNodesMap(n int) *UsedNodesMap {
	return &UsedNodesMap{bits: make([]uint64, (n+63)/64)}
}

// Get reports whether node id's bit is set. A nil receiver reads as
// all-zero.
func (m *UsedNodesMap) Get(id int) bool {
	if m == nil || id < 0 {
		return false
	}
	word := id / 64
	if word >= len(m.bits) {
		return false
	}
	return m.bits[word]&(1<<uint(id%64)) != 0
}

// Set marks node id as used, growing the bitmap if id is beyond its
// current capacity. No-op on a nil receiver (callers that pass no map
// opt out of the cache entirely).
func (m *UsedNodesMap) Set(id int) {
	if m == nil || id < 0 {
		return
	}
	word := id / 64
	if word >= len(m.bits) {
		grown := make([]uint64, word+1)
		copy(grown, m.bits)
		m.bits = grown
	}
	m.bits[word] |= 1 << uint(id%64)
}

// reset clears every bit without releasing the backing array, reused by
// callerScratch between queries so the bitmap need not grow again on
// the next query against the same geometry.
func (m *UsedNodesMap) reset() {
	if m == nil {
		return
	}
	for i := range m.bits {
		m.bits[i] = 0
	}
}

// Count returns the number of set bits, useful for tests asserting
// cache growth.
func (m *UsedNodesMap) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
