// Copyright © 2024 Galvanized Logic Inc.

package physics

// v2Int is a 2 element integer vector, used to index vertices/edges.
type v2Int struct {
	x uint32
	y uint32
}

// v3Int is a 3 element integer vector, used to index triangle faces.
type v3Int struct {
	x uint32
	y uint32
	z uint32
}

// v4Int is a 4 element integer vector, used to index paired edges
// (support1, neighbor1, support2, neighbor2) during edge-edge contact
// selection.
type v4Int struct {
	x uint32
	y uint32
	z uint32
	w uint32
}
