package stepgen

// Pool is a process-wide free list of DriveMovement instances (spec.md
// §4.1). Instances are never deallocated; InitialAllocate pre-creates them
// at boot so the hot path never touches the general allocator.
type Pool struct {
	freeList  *DriveMovement
	numCreated uint64
}

// NewPool constructs an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// InitialAllocate pre-creates n instances and pushes them onto the free
// list.
func (p *Pool) InitialAllocate(n int) {
	for i := 0; i < n; i++ {
		dm := &DriveMovement{}
		p.numCreated++
		dm.next = p.freeList
		p.freeList = dm
	}
}

// Allocate pops a free instance (constructing one if the free list is
// empty) and initialises drive and state.
func (p *Pool) Allocate(drive uint8, state State) *DriveMovement {
	var dm *DriveMovement
	if p.freeList != nil {
		dm = p.freeList
		p.freeList = dm.next
	} else {
		dm = &DriveMovement{}
		p.numCreated++
	}
	*dm = DriveMovement{drive: drive, state: state}
	return dm
}

// Release pushes dm back onto the free list. The caller must not use dm
// again until a subsequent Allocate returns it.
func (p *Pool) Release(dm *DriveMovement) {
	dm.dda = nil
	dm.currentSegment = nil
	dm.next = p.freeList
	p.freeList = dm
}

// NumCreated reports the total number of instances ever constructed; it
// only ever grows (spec.md §8 pool-conservation property).
func (p *Pool) NumCreated() uint64 { return p.numCreated }
