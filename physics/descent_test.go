// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func newStaticGTest(tree BVTree, id uint64, contacts *[]Contact, nMax int, params *IntersectionParams) *GTest {
	return &GTest{
		Tree:         tree,
		ID:           id,
		RRel:         *lin.NewM3I(),
		ScaleRel:     1,
		RScaleRel:    1,
		Used:         NewUsedNodesMap(8),
		Contacts:     contacts,
		NMaxContacts: nMax,
		Params:       params,
	}
}

func TestIntersectBVsFindsOverlappingPair(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{}

	t0 := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)})
	t1 := NewLeafTree([]Primitive{NewSphere(v3(1.5, 0, 0), 1)})

	g0 := newStaticGTest(t0, 1, &contacts, 5, params)
	g1 := newStaticGTest(t1, 2, nil, 0, params)

	bv0 := g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
	bv1 := g1.Tree.RootBV(1)

	n := intersectBVs(g0, g1, bv0, bv1)
	if n != 1 {
		t.Fatalf("expected one intersection, got %d", n)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected one registered contact, got %d", len(contacts))
	}
}

func TestIntersectBVsMissReportsZero(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{}

	t0 := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)})
	t1 := NewLeafTree([]Primitive{NewSphere(v3(10, 0, 0), 1)})

	g0 := newStaticGTest(t0, 1, &contacts, 5, params)
	g1 := newStaticGTest(t1, 2, nil, 0, params)

	bv0 := g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
	bv1 := g1.Tree.RootBV(1)

	if n := intersectBVs(g0, g1, bv0, bv1); n != 0 {
		t.Errorf("expected zero intersections for distant bounding volumes, got %d", n)
	}
}

func TestIntersectBVsUsedNodesShortCircuit(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{}

	t0 := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)})
	t1 := NewLeafTree([]Primitive{NewSphere(v3(1.5, 0, 0), 1)})

	g0 := newStaticGTest(t0, 1, &contacts, 5, params)
	g1 := newStaticGTest(t1, 2, nil, 0, params)

	bv0 := g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
	bv1 := g1.Tree.RootBV(1)

	g0.Used.Set(bv0.NodeID)
	g1.Used.Set(bv1.NodeID)

	if n := intersectBVs(g0, g1, bv0, bv1); n != 0 {
		t.Errorf("expected the UsedNodes short-circuit to skip an already-visited pair, got %d", n)
	}
}

// S6: contact budget — n_max_contacts=3 against a source yielding 10.
func TestIntersectBVsRespectsContactBudget(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 1000, TimeInterval: 1, VrelMin: 1e6}
	contacts := []Contact{}

	big := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 100)})
	var smallPrims []Primitive
	for i := 0; i < 10; i++ {
		smallPrims = append(smallPrims, NewSphere(v3(float64(i)*0.01, 0, 0), 1))
	}
	small := NewLeafTree(smallPrims)

	g0 := newStaticGTest(big, 1, &contacts, 3, params)
	g1 := newStaticGTest(small, 2, nil, 0, params)

	bv0 := g0.Tree.RootBVIn(&g0.RRel, &g0.OffsetRel, g0.ScaleRel, 0)
	bv1 := g1.Tree.RootBV(1)

	n := intersectBVs(g0, g1, bv0, bv1)
	if n != 3 {
		t.Errorf("expected descent to stop after 3 contacts, got %d", n)
	}
	if len(contacts) != 3 {
		t.Errorf("expected exactly 3 registered contacts, got %d", len(contacts))
	}
	if !g0.StopIntersection {
		t.Errorf("expected StopIntersection once the contact budget is hit")
	}
}

// S5: sweep a moving sphere into a stationary one, expecting contact at
// the travel distance where their surfaces first touch.
func TestSweepBVsFindsFirstContact(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}

	moving := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)})
	wall := NewLeafTree([]Primitive{NewSphere(v3(5, 0, 0), 1)})

	g0 := newStaticGTest(moving, 1, nil, 0, params)
	g1 := newStaticGTest(wall, 2, nil, 0, params)
	g0.SweepDir = v3(1, 0, 0)
	g0.SweepStep = 10
	g0.SweepDirLoc = g0.SweepDir
	g0.SweepStepLoc = g0.SweepStep

	c := sweepBVs(g0, g1)
	if c == nil {
		t.Fatalf("expected a sweep contact")
	}
	if !approxEq(c.T, 3) {
		t.Errorf("expected contact at travel distance 3 (surfaces touch at gap 5-1-1), got %f", c.T)
	}
}

func TestSweepBVsMissWhenOutOfRange(t *testing.T) {
	params := &IntersectionParams{UnprojMode: 0, MaxUnproj: 10, TimeInterval: 1, VrelMin: 1e6}

	moving := NewLeafTree([]Primitive{NewSphere(v3(0, 0, 0), 1)})
	wall := NewLeafTree([]Primitive{NewSphere(v3(50, 0, 0), 1)})

	g0 := newStaticGTest(moving, 1, nil, 0, params)
	g1 := newStaticGTest(wall, 2, nil, 0, params)
	g0.SweepDir = v3(1, 0, 0)
	g0.SweepStep = 2
	g0.SweepDirLoc = g0.SweepDir
	g0.SweepStepLoc = g0.SweepStep

	if c := sweepBVs(g0, g1); c != nil {
		t.Errorf("expected no contact within a short sweep step, got %+v", c)
	}
}
