package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// CacheLineSize is the guest instruction-cache line size (spec §6):
// invalidate_icache clears every mapping touching the 32-byte line
// containing the given address.
const CacheLineSize = 32

const regionPageShift = 12 // ~4 KiB dependency-index granularity (spec §3)

func regionPage(addr gekko.Address) uint32 { return uint32(addr) >> regionPageShift }

// mapping is one entry of the logical or physical block-mapping table:
// a guest interval and the block id compiled for it. The spec
// describes this table as a three-level radix trie split 12/8/10 bits;
// a Go map keyed by start address is the idiomatic equivalent of that
// trie for this workload (lookups by exact compiled-block start
// address, not arbitrary byte offsets into the interval), and every
// invariant the trie exists to provide — O(1)-ish lookup by start
// address, and a region-keyed dependency index for invalidation — is
// preserved below by mappingTable.deps.
type mapping struct {
	addr   gekko.Address
	length uint32
	id     blockID
}

func (m mapping) contains(addr gekko.Address) bool {
	return addr >= m.addr && uint32(addr-m.addr) < m.length
}

// mappingTable is one of the two (logical, physical) block-mapping
// tables plus its region-keyed dependency index.
type mappingTable struct {
	byAddr map[gekko.Address]*mapping
	deps   map[uint32][]*mapping // region page -> mappings overlapping it
}

func newMappingTable() *mappingTable {
	return &mappingTable{
		byAddr: make(map[gekko.Address]*mapping),
		deps:   make(map[uint32][]*mapping),
	}
}

func (t *mappingTable) lookup(addr gekko.Address) (*mapping, bool) {
	m, ok := t.byAddr[addr]
	return m, ok
}

func (t *mappingTable) insert(addr gekko.Address, length uint32, id blockID) *mapping {
	m := &mapping{addr: addr, length: length, id: id}
	t.byAddr[addr] = m
	start := regionPage(addr)
	end := regionPage(addr + gekko.Address(length) - 1)
	for p := start; p <= end; p++ {
		t.deps[p] = append(t.deps[p], m)
	}
	return m
}

// removeAt deletes the mapping starting at addr, if any, from byAddr
// and every dependency-index page it occupies.
func (t *mappingTable) removeAt(addr gekko.Address) (*mapping, bool) {
	m, ok := t.byAddr[addr]
	if !ok {
		return nil, false
	}
	delete(t.byAddr, addr)
	start := regionPage(m.addr)
	end := regionPage(m.addr + gekko.Address(m.length) - 1)
	for p := start; p <= end; p++ {
		list := t.deps[p]
		for i, candidate := range list {
			if candidate == m {
				t.deps[p] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(t.deps[p]) == 0 {
			delete(t.deps, p)
		}
	}
	return m, true
}

// invalidateAddr removes and returns every mapping in this table whose
// interval contains addr, per spec §4.4.7: consult the dependency index
// for the region page, then confirm containment before removing.
func (t *mappingTable) invalidateAddr(addr gekko.Address) []*mapping {
	page := regionPage(addr)
	var removed []*mapping
	for _, m := range append([]*mapping(nil), t.deps[page]...) {
		if m.contains(addr) {
			if _, ok := t.removeAt(m.addr); ok {
				removed = append(removed, m)
			}
		}
	}
	return removed
}

// invalidateLine removes every mapping overlapping the CacheLineSize-
// aligned line containing addr.
func (t *mappingTable) invalidateLine(addr gekko.Address) []*mapping {
	lineStart := gekko.Address(uint32(addr) &^ (CacheLineSize - 1))
	var removed []*mapping
	for off := gekko.Address(0); off < CacheLineSize; off++ {
		removed = append(removed, t.invalidateAddr(lineStart+off)...)
	}
	return removed
}

// clear drops every mapping, used for the IBAT "blanket clear" case
// (spec §4.4.7: "Rebuilding the IBAT invalidates all mappings").
func (t *mappingTable) clear() []*mapping {
	var all []*mapping
	for _, m := range t.byAddr {
		all = append(all, m)
	}
	t.byAddr = make(map[gekko.Address]*mapping)
	t.deps = make(map[uint32][]*mapping)
	return all
}
