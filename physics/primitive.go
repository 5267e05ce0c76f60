// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"

	"github.com/galvanized/narrowphase/math/lin"
)

// PrimitiveType tags which variant of Primitive is populated. The values
// double as row/column indexes into the Overlapper, Intersector, and
// Unprojector dispatch tables, so they must stay dense and start at zero.
type PrimitiveType int

const (
	PrimTriangle PrimitiveType = iota
	PrimBox
	PrimCylinder
	PrimCapsule
	PrimSphere
	PrimRay
	PrimPlane
	PrimHeightfield
	NPrims // table dimension; not a valid tag on its own.
)

func (t PrimitiveType) String() string {
	switch t {
	case PrimTriangle:
		return "triangle"
	case PrimBox:
		return "box"
	case PrimCylinder:
		return "cylinder"
	case PrimCapsule:
		return "capsule"
	case PrimSphere:
		return "sphere"
	case PrimRay:
		return "ray"
	case PrimPlane:
		return "plane"
	case PrimHeightfield:
		return "heightfield"
	}
	return "unknown"
}

// Primitive is a tagged variant over the shapes the kernel tests against
// each other: Triangle, Box, Cylinder, Capsule, Sphere, Ray, and Plane.
// Heightfield is reserved as a table slot (it resolves to the default
// miss handler everywhere) since the source dump's heightfield routines
// sit outside geometry.cpp/intersectionchecks.cpp's 6,000-7,500 line core.
//
// Only the fields relevant to Type are meaningful; callers construct a
// Primitive with one of the New* helpers rather than setting fields
// directly.
type Primitive struct {
	Type PrimitiveType

	// Triangle
	V0, V1, V2 lin.V3 // vertices
	N          lin.V3 // precomputed unit normal

	// Box
	Center     lin.V3 // also used by Cylinder, Capsule, Sphere
	Basis      lin.M3 // orthonormal rows; identity for an axis-aligned box
	HalfExtent lin.V3 // non-negative
	Oriented   bool

	// Cylinder / Capsule
	Axis lin.V3 // unit
	R    float64
	HH   float64 // half-height, non-negative

	// Ray
	Origin lin.V3
	Dir    lin.V3 // not required to be unit; length encodes max parameter

	// Plane
	// Origin and N (above) double as the plane's origin and unit normal.
}

// NewTriangle builds a Triangle primitive, precomputing its unit normal
// from the vertex winding (v1-v0) x (v2-v0).
func NewTriangle(v0, v1, v2 lin.V3) Primitive {
	e1 := lin.NewV3().Sub(&v1, &v0)
	e2 := lin.NewV3().Sub(&v2, &v0)
	n := lin.NewV3().Cross(e1, e2).Unit()
	return Primitive{Type: PrimTriangle, V0: v0, V1: v1, V2: v2, N: *n}
}

// NewBox builds an axis-aligned or oriented Box primitive. Pass an
// identity lin.M3 for an axis-aligned box (Oriented is then false).
func NewBox(center lin.V3, basis lin.M3, halfExtent lin.V3, oriented bool) Primitive {
	return Primitive{Type: PrimBox, Center: center, Basis: basis, HalfExtent: halfExtent, Oriented: oriented}
}

// NewSphere builds a Sphere primitive.
func NewSphere(center lin.V3, radius float64) Primitive {
	return Primitive{Type: PrimSphere, Center: center, R: radius}
}

// NewCylinder builds a Cylinder primitive with the given unit axis,
// radius, and half-height.
func NewCylinder(center, axis lin.V3, radius, halfHeight float64) Primitive {
	return Primitive{Type: PrimCylinder, Center: center, Axis: axis, R: radius, HH: halfHeight}
}

// NewCapsule builds a Capsule primitive: a cylinder with hemispherical caps.
func NewCapsule(center, axis lin.V3, radius, halfHeight float64) Primitive {
	return Primitive{Type: PrimCapsule, Center: center, Axis: axis, R: radius, HH: halfHeight}
}

// NewRay builds a Ray primitive. The direction's length encodes the
// maximum intersection parameter; a unit direction means "parameter is
// world-space distance".
func NewRay(origin, dir lin.V3) Primitive {
	return Primitive{Type: PrimRay, Origin: origin, Dir: dir}
}

// NewPlane builds a Plane primitive from an origin point and a normal
// that is normalized on construction.
func NewPlane(origin, normal lin.V3) Primitive {
	return Primitive{Type: PrimPlane, Origin: origin, N: *lin.NewV3().Set(&normal).Unit()}
}

// Aabb computes the world-space axis-aligned bounding box of the
// primitive after applying the given transform and growing it by margin
// on every axis, matching the BVTree contract's expectation that leaf
// primitives can be conservatively bounded for the Overlapper's
// AABB-vs-AABB prune.
func (p *Primitive) Aabb(xform *lin.T, margin float64) *Abox {
	ab := &Abox{}
	switch p.Type {
	case PrimTriangle:
		pts := [3]lin.V3{p.V0, p.V1, p.V2}
		v0 := xform.App(lin.NewV3().Set(&pts[0]))
		lo, hi := lin.NewV3().Set(v0), lin.NewV3().Set(v0)
		for i := 1; i < 3; i++ {
			v := xform.App(lin.NewV3().Set(&pts[i]))
			lo.X, lo.Y, lo.Z = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z)
			hi.X, hi.Y, hi.Z = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z)
		}
		ab.set(*lo, *hi, margin)
	case PrimBox:
		c := xform.App(lin.NewV3().Set(&p.Center))
		if p.Oriented {
			// conservative sphere-radius bound for an oriented box; exact
			// face projection is unnecessary for a pruning AABB.
			extent := math.Sqrt(p.HalfExtent.X*p.HalfExtent.X + p.HalfExtent.Y*p.HalfExtent.Y + p.HalfExtent.Z*p.HalfExtent.Z)
			ab.set(*c, *c, extent+margin)
			break
		}
		// per-axis reach of the box's axes after the transform's rotation.
		var e [3]float64
		for i, h := range [3]float64{p.HalfExtent.X, p.HalfExtent.Y, p.HalfExtent.Z} {
			ax := m3Row(&p.Basis, i)
			x, y, z := xform.AppR(ax.X, ax.Y, ax.Z)
			e[0], e[1], e[2] = e[0]+h*math.Abs(x), e[1]+h*math.Abs(y), e[2]+h*math.Abs(z)
		}
		ab.set(lin.V3{X: c.X - e[0], Y: c.Y - e[1], Z: c.Z - e[2]}, lin.V3{X: c.X + e[0], Y: c.Y + e[1], Z: c.Z + e[2]}, margin)
	case PrimSphere:
		c := xform.App(lin.NewV3().Set(&p.Center))
		ab.set(*c, *c, p.R+margin)
	case PrimCylinder, PrimCapsule:
		c := xform.App(lin.NewV3().Set(&p.Center))
		extent := math.Sqrt(p.HH*p.HH + p.R*p.R)
		if p.Type == PrimCapsule {
			extent = p.HH + p.R
		}
		ab.set(*c, *c, extent+margin)
	case PrimRay:
		o := xform.App(lin.NewV3().Set(&p.Origin))
		dx, dy, dz := xform.AppR(p.Dir.X, p.Dir.Y, p.Dir.Z)
		e := lin.NewV3().SetS(o.X+dx, o.Y+dy, o.Z+dz)
		ab.set(*o, *e, margin)
	case PrimPlane:
		o := xform.App(lin.NewV3().Set(&p.Origin))
		ab.set(*o, *o, lin.Large)
	default:
		ab.set(lin.V3{}, lin.V3{}, lin.Large)
	}
	return ab
}

// Volume returns a coarse measure used only for split-priority/ordering
// heuristics, never for physical mass — mass/inertia belong to the
// solver, which is out of scope for this kernel.
func (p *Primitive) Volume() float64 {
	switch p.Type {
	case PrimBox:
		return 8 * p.HalfExtent.X * p.HalfExtent.Y * p.HalfExtent.Z
	case PrimSphere:
		return (4.0 / 3.0) * math.Pi * p.R * p.R * p.R
	case PrimCylinder:
		return math.Pi * p.R * p.R * (2 * p.HH)
	case PrimCapsule:
		return math.Pi*p.R*p.R*(2*p.HH) + (4.0/3.0)*math.Pi*p.R*p.R*p.R
	case PrimTriangle:
		e1 := lin.NewV3().Sub(&p.V1, &p.V0)
		e2 := lin.NewV3().Sub(&p.V2, &p.V0)
		return 0.5 * lin.NewV3().Cross(e1, e2).Len()
	}
	return 0
}
