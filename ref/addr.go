package ref

import "unsafe"

// fieldPtr computes a field's address by pure pointer arithmetic on the
// aggregate's base address and materializes the typed reference only at
// the final conversion. No intermediate reference to the whole
// aggregate is formed, so field references obtained through disjoint
// access states never travel through each other's storage. This is the
// soundness-sensitive primitive of the accessor path; keep it the only
// place the package touches raw memory.
func fieldPtr[F any, T any](target *T, offset uintptr) *F {
	return (*F)(unsafe.Add(unsafe.Pointer(target), offset))
}
