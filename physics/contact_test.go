// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sphereSpherePI(t *testing.T, ca, cb lin.V3, ra, rb float64) (PrimIntersection, Primitive, Primitive) {
	t.Helper()
	a := NewSphere(ca, ra)
	b := NewSphere(cb, rb)
	var pi PrimIntersection
	if !DefaultIntersector().Check(PrimSphere, PrimSphere, &a, &b, &pi) {
		t.Fatalf("expected spheres to intersect for fixture setup")
	}
	return pi, a, b
}

func TestRegisterIntersectionAppendsContact(t *testing.T) {
	pi, a, b := sphereSpherePI(t, v3(0, 0, 0), v3(1.5, 0, 0), 1, 1)

	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{}
	g0 := &GTest{Params: params, Contacts: &contacts, NMaxContacts: 5}
	g1 := &GTest{Params: params}

	ok := registerIntersection(g0, g1, &pi, PrimSphere, PrimSphere, &a, &b, 1, 2, 0, 0)
	if !ok {
		t.Fatalf("expected registerIntersection to succeed")
	}
	if len(contacts) != 1 {
		t.Fatalf("expected one contact, got %d", len(contacts))
	}
	c := contacts[0]
	if c.ID != [2]uint64{1, 2} {
		t.Errorf("expected ID [1,2], got %+v", c.ID)
	}
	if g0.StopIntersection {
		t.Errorf("did not expect stop-intersection with room in the buffer")
	}
}

func TestRegisterIntersectionStopsAtCapacity(t *testing.T) {
	pi, a, b := sphereSpherePI(t, v3(0, 0, 0), v3(1.5, 0, 0), 1, 1)

	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{{}} // already at capacity.
	g0 := &GTest{Params: params, Contacts: &contacts, NMaxContacts: 1}
	g1 := &GTest{Params: params}

	ok := registerIntersection(g0, g1, &pi, PrimSphere, PrimSphere, &a, &b, 1, 2, 0, 0)
	if ok {
		t.Errorf("expected registerIntersection to refuse once the buffer is full")
	}
	if !g0.StopIntersection {
		t.Errorf("expected StopIntersection to be set once the buffer is full")
	}
	if len(contacts) != 1 {
		t.Errorf("expected contact count unchanged, got %d", len(contacts))
	}
}

func TestRegisterIntersectionMissingBufferFails(t *testing.T) {
	pi, a, b := sphereSpherePI(t, v3(0, 0, 0), v3(1.5, 0, 0), 1, 1)

	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	g0 := &GTest{Params: params} // no Contacts buffer configured.
	g1 := &GTest{Params: params}

	if registerIntersection(g0, g1, &pi, PrimSphere, PrimSphere, &a, &b, 1, 2, 0, 0) {
		t.Errorf("expected registerIntersection to fail without a contact buffer")
	}
}

func TestApplyPriorityNormalSwapFlipsAndSwaps(t *testing.T) {
	contacts := []Contact{{
		N:      v3(1, 0, 0),
		Dir:    v3(1, 0, 0),
		T:      0.5,
		Pt:     v3(2, 0, 0),
		Center: v3(1, 0, 0),
		ID:     [2]uint64{1, 2},
		IPrim:  [2]int{0, 1},
		INode:  [2]int{3, 4},
	}}
	applyPriorityNormalSwap(contacts, true, v3(0, 0, 0))

	// Pt is rewound using the pre-flip Dir: pt - dir*t = (2,0,0) -
	// (1,0,0)*0.5 = (1.5,0,0). Dir/N are flipped only after the rewind.
	want := Contact{
		N:      v3(-1, 0, 0),
		Dir:    v3(-1, 0, 0),
		T:      0.5,
		Pt:     v3(1.5, 0, 0),
		Center: v3(1, 0, 0),
		ID:     [2]uint64{2, 1},
		IPrim:  [2]int{1, 0},
		INode:  [2]int{4, 3},
	}
	if diff := cmp.Diff(want, contacts[0], cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("unexpected contact after priority swap (-want +got):\n%s", diff)
	}
}

func TestApplyPriorityNormalSwapAreaSwapsNormals(t *testing.T) {
	contacts := []Contact{{
		N:    v3(1, 0, 0),
		Dir:  v3(0, 0, 1),
		T:    0,
		Area: &ContactArea{N1: v3(0, 1, 0)},
	}}
	applyPriorityNormalSwap(contacts, true, v3(0, 0, 0))

	// geometry.cpp ~487-490: n and area.n1 are exchanged via a temp, not
	// independently negated.
	if !approxV3(contacts[0].N, v3(0, 1, 0)) {
		t.Errorf("expected N to take the area's former N1, got %+v", contacts[0].N)
	}
	if !approxV3(contacts[0].Area.N1, v3(1, 0, 0)) {
		t.Errorf("expected Area.N1 to take the former N, got %+v", contacts[0].Area.N1)
	}
}

func TestApplyPriorityNormalSwapNoOpWhenLowerPriority(t *testing.T) {
	contacts := []Contact{{N: v3(1, 0, 0), ID: [2]uint64{1, 2}}}
	applyPriorityNormalSwap(contacts, false, v3(0, 0, 0))
	if !approxV3(contacts[0].N, v3(1, 0, 0)) {
		t.Errorf("expected no change when peer does not have higher priority")
	}
	if contacts[0].ID != [2]uint64{1, 2} {
		t.Errorf("expected ID unchanged")
	}
}

func TestSortContactsByDescendingT(t *testing.T) {
	contacts := []Contact{{T: 0.1}, {T: 0.9}, {T: 0.5}}
	sortContactsByDescendingT(contacts)
	want := []float64{0.9, 0.5, 0.1}
	for i, w := range want {
		if !approxEq(contacts[i].T, w) {
			t.Errorf("expected contacts[%d].T = %f, got %f", i, w, contacts[i].T)
		}
	}
}

func TestMinEdgeLength(t *testing.T) {
	pts := []lin.V3{v3(0, 0, 0), v3(3, 0, 0), v3(3, 1, 0)}
	got := minEdgeLength(pts)
	if !approxEq(got, 1) {
		t.Errorf("expected minimum edge length 1, got %f", got)
	}
	if minEdgeLength(nil) != 0 {
		t.Errorf("expected zero for degenerate input")
	}
}
