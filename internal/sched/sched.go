// Package sched implements the cycle scheduler (spec component C3): a
// min-heap of (deadline, handler) events driven by a monotonic cycle
// accumulator.
//
// The ordering and cancellation semantics are grounded on
// rcornwell-S370/emu/event/event.go, but that repo's delta-linked-list is
// replaced with container/heap — the idiomatic Go min-heap — because the
// spec requires deadline ordering with FIFO tie-break and cheap
// best-effort cancellation by handler identity, which a heap plus a
// monotonically increasing sequence number gives directly.
package sched

import "container/heap"

// Handler is invoked when its event's deadline is reached. iarg carries
// caller-defined context (mirrors rcornwell-S370's Callback(iarg int)).
type Handler func(iarg int)

// handlerID is the identity used for cancellation: handlers are compared
// by pointer since Go function values aren't otherwise comparable.
type handlerID = uintptr

type event struct {
	deadline int64
	seq      uint64
	handler  Handler
	iarg     int
	id       handlerID
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler drives timed events off a cycle counter shared with the JIT
// driver loop.
type Scheduler struct {
	now   int64
	heap  eventHeap
	seq   uint64
}

// New returns an empty scheduler with now = 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Now returns the current cycle count.
func (s *Scheduler) Now() int64 { return s.now }

func handlerIdentity(h Handler) handlerID {
	// Function values cannot be compared directly in Go; reflect.Value's
	// Pointer() gives us the code pointer, which is stable for named
	// functions and method values bound to the same receiver — the only
	// forms this scheduler's callers use for cancellable handlers.
	return funcPointer(h)
}

// Schedule inserts an event to fire delay cycles from now.
func (s *Scheduler) Schedule(delay int64, handler Handler, iarg int) {
	s.seq++
	heap.Push(&s.heap, &event{
		deadline: s.now + delay,
		seq:      s.seq,
		handler:  handler,
		iarg:     iarg,
		id:       handlerIdentity(handler),
	})
}

// ScheduleNow inserts an event with delay 0 — it will be delivered on the
// next PopReady burst at the current `now`, not executed synchronously,
// so callers that truly need immediate execution should call the handler
// directly instead.
func (s *Scheduler) ScheduleNow(handler Handler, iarg int) {
	s.Schedule(0, handler, iarg)
}

// Cancel removes the first still-pending event whose handler matches, by
// identity. Best-effort: duplicate schedules of the same handler beyond
// the first remain queued, and callers that multi-schedule a handler must
// tolerate duplicate fires, per spec.
func (s *Scheduler) Cancel(handler Handler) {
	id := handlerIdentity(handler)
	for i, e := range s.heap {
		if e.id == id {
			heap.Remove(&s.heap, i)
			return
		}
	}
}

// Advance moves the clock forward. It does not itself deliver events —
// callers drain them with PopReady, matching the spec's separation of
// "advance time" from "deliver due events" so a driver can batch many
// PopReady calls against one Advance.
func (s *Scheduler) Advance(delta int64) {
	s.now += delta
}

// PopReady returns and removes the earliest event whose deadline is at
// or before now, or ok=false if none is due. Handlers may reschedule
// events with a deadline <= now; those are delivered within the same
// burst by the caller looping PopReady until it returns ok=false.
func (s *Scheduler) PopReady() (handler Handler, iarg int, ok bool) {
	if s.heap.Len() == 0 {
		return nil, 0, false
	}
	if s.heap[0].deadline > s.now {
		return nil, 0, false
	}
	e := heap.Pop(&s.heap).(*event)
	return e.handler, e.iarg, true
}

// RunReady pops and invokes every currently-due event, including ones
// newly scheduled by earlier handlers in the same burst.
func (s *Scheduler) RunReady() {
	for {
		h, iarg, ok := s.PopReady()
		if !ok {
			return
		}
		h(iarg)
	}
}

// Pending reports how many events are queued (used by tests and the
// debugger, not by the hot path).
func (s *Scheduler) Pending() int { return s.heap.Len() }
