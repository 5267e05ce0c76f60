// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/narrowphase/math/lin"
)

func TestAboxOverlaps(t *testing.T) {
	a := Abox{Sx: 0, Sy: 0, Sz: 0, Lx: 1, Ly: 1, Lz: 1}
	b := Abox{Sx: 0.5, Sy: 0.5, Sz: 0.5, Lx: 2, Ly: 2, Lz: 2}
	c := Abox{Sx: 5, Sy: 5, Sz: 5, Lx: 6, Ly: 6, Lz: 6}
	if !a.Overlaps(&b) {
		t.Errorf("expected overlap")
	}
	if a.Overlaps(&c) {
		t.Errorf("expected no overlap")
	}
}

func TestAboxSetNormalizesOrder(t *testing.T) {
	ab := &Abox{}
	ab.set(lin.V3{X: 1, Y: 1, Z: 1}, lin.V3{X: -1, Y: -1, Z: -1}, 0)
	if ab.Sx != -1 || ab.Lx != 1 {
		t.Errorf("expected normalized bounds, got %+v", ab)
	}
}

func TestAboxExpand(t *testing.T) {
	ab := &Abox{Sx: 0, Sy: 0, Sz: 0, Lx: 1, Ly: 1, Lz: 1}
	ab.Expand(lin.V3{X: 2, Y: -2})
	if ab.Lx != 3 || ab.Sy != -2 {
		t.Errorf("expected directional expansion, got %+v", ab)
	}
}

func TestUsedNodesMapGetSet(t *testing.T) {
	m := NewUsedNodesMap(10)
	if m.Get(3) {
		t.Errorf("expected unset bit to read false")
	}
	m.Set(3)
	if !m.Get(3) {
		t.Errorf("expected set bit to read true")
	}
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}
}

func TestUsedNodesMapNilIsAllZero(t *testing.T) {
	var m *UsedNodesMap
	if m.Get(0) {
		t.Errorf("nil map should read all-zero")
	}
	m.Set(0) // must not panic
}

func TestUsedNodesMapGrows(t *testing.T) {
	m := &UsedNodesMap{}
	m.Set(200)
	if !m.Get(200) {
		t.Errorf("expected Set to grow backing storage")
	}
}

func TestUsedNodesMapReset(t *testing.T) {
	m := NewUsedNodesMap(10)
	m.Set(1)
	m.Set(5)
	m.reset()
	if m.Count() != 0 {
		t.Errorf("expected reset to clear all bits, got count %d", m.Count())
	}
}
