package ecs

import "strconv"

// Entity is an opaque identifier owning a set of components. Ids are allocated sequentially starting at 1 and never reused.
type Entity uint64

// InvalidEntity is the zero value and is never returned by CreateEntity.
const InvalidEntity Entity = 0

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// entityRecord is the per-entity bookkeeping kept by the world.
type entityRecord struct {
	signature Signature
	pending   bool
}
