// Package ref implements partial references: handles pairing the
// address of an aggregate instance with an access state naming the
// parts reachable through the handle and their modes. A root reference
// covering every part is created once per aggregate instance; narrower
// or partitioned references are derived from it through the state
// algebra, and field references are obtained only through the accessor
// functions. Every operation verifies its (part, mode) requirements
// against the handle's state and fails deterministically on violation.
//
// The engine models single-threaded reference discipline. It has no
// locks and no suspension points; validity of a derived reference is
// bounded by the release of the reborrow that produced it.
package ref

import "partref/parts"

// Ref is a partial reference over an aggregate of type T. Refs are
// created by Mut or Shared root conversion and thereafter only derived
// through the algebra; no path widens a state beyond what the root
// conferred.
type Ref[T any] struct {
	target *T
	reg    *parts.Registry[T]
	tr     *tracker
	id     holderID
	state  parts.Set
}

// Mut converts an aggregate the caller holds exclusively into the root
// partial reference, granting exclusive access to every declared part.
func Mut[T any](reg *parts.Registry[T], target *T) *Ref[T] {
	return newRoot(reg, target, reg.All())
}

// Shared converts a shared aggregate reference into the root partial
// reference, granting shared access to every declared part.
func Shared[T any](reg *parts.Registry[T], target *T) *Ref[T] {
	return newRoot(reg, target, reg.AllShared())
}

func newRoot[T any](reg *parts.Registry[T], target *T, state parts.Set) *Ref[T] {
	if reg == nil || target == nil {
		panic("partref: nil registry or target")
	}
	tr := newTracker()
	id, _, ok := tr.admit(state, nil)
	if !ok {
		panic("partref: fresh tracker rejected the root state")
	}
	return &Ref[T]{target: target, reg: reg, tr: tr, id: id, state: state}
}

// State returns the access state currently granted through the ref.
func (r *Ref[T]) State() parts.Set {
	if r == nil {
		return parts.Set{}
	}
	return r.state
}

// Registry returns the part table of the referenced aggregate type.
func (r *Ref[T]) Registry() *parts.Registry[T] {
	if r == nil {
		return nil
	}
	return r.reg
}

// Active reports whether the ref may currently be used: not suspended
// behind a live reborrow and not released or consumed.
func (r *Ref[T]) Active() bool {
	return r.active("") == nil
}

// active returns the violation blocking use of the ref, if any. op is
// stamped onto the violation for the caller.
func (r *Ref[T]) active(op string) *Violation {
	if r == nil || r.tr == nil {
		return &Violation{Op: op, Kind: IssueReleased}
	}
	info := r.tr.info(r.id)
	if info == nil {
		return &Violation{Op: op, Kind: IssueReleased}
	}
	switch info.status {
	case holderSuspended:
		return &Violation{Op: op, Kind: IssueSuspended}
	case holderReleased:
		return &Violation{Op: op, Kind: IssueReleased}
	}
	return nil
}

// derive wraps a freshly admitted holder in a Ref sharing the
// receiver's target and tracker.
func (r *Ref[T]) derive(id holderID, state parts.Set) *Ref[T] {
	return &Ref[T]{target: r.target, reg: r.reg, tr: r.tr, id: id, state: state}
}
