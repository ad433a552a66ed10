package sched

import "reflect"

// funcPointer extracts a stable identity for a function value so it can
// be compared for cancellation. Go forbids comparing func values
// directly; reflect's code pointer is the accepted workaround for
// handler-identity bookkeeping like this.
func funcPointer(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}
