// Package parts defines the part tables and access states used by
// partial references. A part names exactly one field of one aggregate
// type; an access state records which parts a handle may reach and
// whether the access is shared or exclusive.
package parts

// ID identifies a declared part within one aggregate's registry.
type ID uint32

// NoID marks the absence of a part.
const NoID ID = 0

// MaxParts bounds how many parts one aggregate may declare. Access
// states are a pair of 64-bit masks, so the cap is fixed.
const MaxParts = 64

// Mode differentiates shared vs exclusive access to a part.
type Mode uint8

const (
	ModeShared Mode = iota
	ModeMut
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeMut:
		return "mut"
	default:
		return "invalid"
	}
}

// Claim pairs a part with the access mode requested for it.
type Claim struct {
	Part ID
	Mode Mode
}

// Shared builds a shared claim on the part.
func Shared(id ID) Claim {
	return Claim{Part: id, Mode: ModeShared}
}

// Mut builds an exclusive claim on the part.
func Mut(id ID) Claim {
	return Claim{Part: id, Mode: ModeMut}
}

// Key is a typed handle for one part of aggregate T whose field holds
// an F. Keys are produced by registry builders, usually from generated
// code; the type parameters make it a Go compile error to use a key
// against a foreign aggregate or to read a field at the wrong type.
type Key[T any, F any] struct {
	id ID
}

// ID returns the raw part identifier.
func (k Key[T, F]) ID() ID {
	return k.id
}

// IsValid reports whether the key was issued by a builder.
func (k Key[T, F]) IsValid() bool {
	return k.id != NoID
}

// Shared returns a shared claim on the keyed part.
func (k Key[T, F]) Shared() Claim {
	return Shared(k.id)
}

// Mut returns an exclusive claim on the keyed part.
func (k Key[T, F]) Mut() Claim {
	return Mut(k.id)
}
