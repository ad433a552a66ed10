package jit

import "github.com/hemisphere-go/hemisphere/internal/gekko"

// blockID is the dense arena index described in spec §9: invalidation
// nulls link slots but never frees the arena slot itself, since a
// link slot elsewhere might still hold a raw reference to it.
type blockID uint32

// LinkSlot is the mutable cell a block's terminator consults to decide
// whether to jump straight into a successor block without a runtime
// call. Populated by Hooks.TryLink, consulted by Hooks.FollowLink,
// cleared to its zero value on invalidation of the target.
type LinkSlot struct {
	Filled        bool
	TargetID      blockID
	TargetEntry   jitOp
	TargetPattern Pattern
}

func (s *LinkSlot) clear() { *s = LinkSlot{} }

// jitOp is one decoded guest instruction's compiled form: a closure
// over its fixed operand fields, closing over nothing but Ins-derived
// constants. It mutates ctx and returns whether the block should keep
// running (false means the terminator fired).
type jitOp func(ctx *Context) bool

// Block is a compiled sequence of guest instructions sharing a single
// entry point and a single deferred-terminator exit (spec glossary).
type Block struct {
	ID      blockID
	Addr    gekko.Address
	Logical bool
	Length  uint32 // guest bytes spanned
	Instrs  int
	Weight  Cycles // static cycle cost, summed at compile time

	Pattern Pattern
	Ops     []jitOp

	// Link is this block's own outgoing link slot for a statically
	// known successor (spec §4.4.2's "direct link attempt"). Blocks
	// ending in dynamic dispatch leave it unused (Filled stays false
	// and is never populated by TryLink).
	Link LinkSlot

	// BackRefs lists every link slot — in this block or any other —
	// that currently names this block as its target. Invalidating this
	// block clears every one of them.
	BackRefs []*LinkSlot

	// CallTarget is set for Pattern==PatternCall blocks: the guest
	// address the call's terminator branches to, used to discover
	// whether the callee is tagged GetMailboxStatusFunc (spec §4.4.3).
	CallTarget gekko.Address
}

func (b *Block) addBackRef(slot *LinkSlot) {
	b.BackRefs = append(b.BackRefs, slot)
}

// invalidateLinks clears every slot that points into b, per spec
// §4.4.7 step 2 ("zeros every back-referenced link slot").
func (b *Block) invalidateLinks() {
	for _, slot := range b.BackRefs {
		slot.clear()
	}
	b.BackRefs = nil
}
