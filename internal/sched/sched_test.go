package sched

import "testing"

func TestScheduleOrdering(t *testing.T) {
	s := New()
	var order []string

	s.Schedule(10, func(i int) { order = append(order, "ten") }, 0)
	s.Schedule(5, func(i int) { order = append(order, "five") }, 0)
	s.Schedule(5, func(i int) { order = append(order, "five-again") }, 0)

	s.Advance(10)
	s.RunReady()

	want := []string{"five", "five-again", "ten"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestPopReadyRespectsNow(t *testing.T) {
	s := New()
	fired := false
	s.Schedule(100, func(i int) { fired = true }, 0)

	s.Advance(50)
	s.RunReady()
	if fired {
		t.Fatal("event fired before its deadline")
	}

	s.Advance(50)
	s.RunReady()
	if !fired {
		t.Fatal("event did not fire at its deadline")
	}
}

func TestRescheduleWithinBurst(t *testing.T) {
	s := New()
	count := 0
	var tick Handler
	tick = func(i int) {
		count++
		if count < 3 {
			s.Schedule(0, tick, 0)
		}
	}
	s.Schedule(0, tick, 0)
	s.RunReady()
	if count != 3 {
		t.Fatalf("expected handler to re-fire within the same burst, got count=%d", count)
	}
}

func TestCancelBestEffort(t *testing.T) {
	s := New()
	fired := 0
	h := func(i int) { fired++ }

	s.Schedule(5, h, 0)
	s.Schedule(5, h, 1)
	s.Cancel(h)

	s.Advance(5)
	s.RunReady()

	if fired != 1 {
		t.Fatalf("expected exactly one duplicate to remain after Cancel, got %d", fired)
	}
}
