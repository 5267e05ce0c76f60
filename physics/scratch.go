// Copyright © 2024 Galvanized Logic Inc.

package physics

import "sync"

// MaxPhysThreads bounds the caller-id range (spec §5:
// `caller_id ∈ 0..=MAX_PHYS_THREADS`). Index MaxPhysThreads itself is
// reserved for callers that opt into the shared, lock-guarded buffer
// instead of a private per-thread one.
const MaxPhysThreads = 31

// callerScratch is one caller's reusable query state (spec §5's "one
// scratch state record per caller"): a pair of GTests whose PrimBuf/
// IDBuf/FeatureBuf slices and UsedNodesMap bitmaps are reused call over
// call instead of reallocated (the spin-lock guarding the MaxPhysThreads
// shared slot is the package-level sharedLock). Adapted from the teacher's physics/body.go
// scratch-field idiom (`v0, m0, m1, t0` per-struct scratch vectors kept
// around to avoid per-frame allocation), generalized here into a
// per-caller array indexed the same way the source indexes
// `g_idata[caller]`.
type callerScratch struct {
	g0, g1 GTest
	used0  UsedNodesMap
	used1  UsedNodesMap
}

var scratchPool [MaxPhysThreads + 1]callerScratch
var sharedLock sync.Mutex

// getScratch returns caller's reusable GTest pair, resetting their
// per-query scratch buffers (spec §5's `reset_global_prim_buffers`).
// The caller id is part of the exported API: Geometry's query methods
// take it as a parameter and pass it here; driver.go is the only caller
// of this function.
func getScratch(caller int) *callerScratch {
	if caller < 0 || caller > MaxPhysThreads {
		caller = MaxPhysThreads
	}
	s := &scratchPool[caller]
	s.g0.reset()
	s.g1.reset()
	s.used0.reset()
	s.used1.reset()
	s.g0.Used = &s.used0
	s.g1.Used = &s.used1
	return s
}

// lockIfShared takes the shared spin-lock (here, a mutex) when caller
// opted into the locked slot (spec §5's `g_lock_intersect`), matching
// "callers pass caller_id == MAX_PHYS_THREADS to opt into locking."
// Returns the unlock function to defer.
func lockIfShared(caller int) func() {
	if caller != MaxPhysThreads {
		return func() {}
	}
	sharedLock.Lock()
	return sharedLock.Unlock
}
