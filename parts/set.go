package parts

import (
	"math/bits"
	"strings"
)

// Set is an access state: the parts a partial reference may currently
// reach and in which mode. A part appears in at most one of the two
// masks; exclusive membership subsumes what shared membership would
// allow.
type Set struct {
	mut    uint64
	shared uint64
}

func bit(id ID) uint64 {
	if id == NoID || id > MaxParts {
		return 0
	}
	return 1 << (id - 1)
}

// NewSet builds a state from claims. An exclusive claim on a part
// absorbs any shared claim on the same part.
func NewSet(claims ...Claim) Set {
	var s Set
	for _, c := range claims {
		s = s.Insert(c)
	}
	return s
}

// Insert returns s extended by the claim.
func (s Set) Insert(c Claim) Set {
	b := bit(c.Part)
	if b == 0 {
		return s
	}
	switch c.Mode {
	case ModeMut:
		s.mut |= b
		s.shared &^= b
	case ModeShared:
		if s.mut&b == 0 {
			s.shared |= b
		}
	}
	return s
}

// Contains reports whether the state satisfies a claim. Exclusive
// membership satisfies a shared claim, not the other way around.
func (s Set) Contains(id ID, m Mode) bool {
	b := bit(id)
	if b == 0 {
		return false
	}
	if m == ModeMut {
		return s.mut&b != 0
	}
	return (s.mut|s.shared)&b != 0
}

// Has reports whether the part is present in any mode.
func (s Set) Has(id ID) bool {
	return (s.mut|s.shared)&bit(id) != 0
}

// Mode returns the mode granted for the part.
func (s Set) Mode(id ID) (Mode, bool) {
	b := bit(id)
	if s.mut&b != 0 {
		return ModeMut, true
	}
	if s.shared&b != 0 {
		return ModeShared, true
	}
	return ModeShared, false
}

// Covers reports whether every claim of sub is implied by s.
func (s Set) Covers(sub Set) bool {
	return sub.mut&^s.mut == 0 && sub.shared&^(s.mut|s.shared) == 0
}

// Missing returns a claim of sub that s does not imply. ok is false
// when sub is fully covered.
func (s Set) Missing(sub Set) (Claim, bool) {
	if m := sub.mut &^ s.mut; m != 0 {
		return Mut(ID(bits.TrailingZeros64(m) + 1)), true
	}
	if m := sub.shared &^ (s.mut | s.shared); m != 0 {
		return Shared(ID(bits.TrailingZeros64(m) + 1)), true
	}
	return Claim{}, false
}

// Union merges two states. Exclusive wins where the modes differ.
func (s Set) Union(o Set) Set {
	mut := s.mut | o.mut
	return Set{mut: mut, shared: (s.shared | o.shared) &^ mut}
}

// Minus removes every part of o from s regardless of mode.
func (s Set) Minus(o Set) Set {
	all := o.mut | o.shared
	return Set{mut: s.mut &^ all, shared: s.shared &^ all}
}

// Overlaps reports whether any part is present in both states.
func (s Set) Overlaps(o Set) bool {
	return (s.mut|s.shared)&(o.mut|o.shared) != 0
}

// FirstCommon returns a part present in both states.
func (s Set) FirstCommon(o Set) (ID, bool) {
	common := (s.mut | s.shared) & (o.mut | o.shared)
	if common == 0 {
		return NoID, false
	}
	return ID(bits.TrailingZeros64(common) + 1), true
}

// Downgrade converts every exclusive part to shared.
func (s Set) Downgrade() Set {
	return Set{shared: s.mut | s.shared}
}

// SharedOnly keeps just the parts held in shared mode.
func (s Set) SharedOnly() Set {
	return Set{shared: s.shared}
}

// MutOnly keeps just the parts held in exclusive mode.
func (s Set) MutOnly() Set {
	return Set{mut: s.mut}
}

// Empty reports whether no part is present.
func (s Set) Empty() bool {
	return s.mut == 0 && s.shared == 0
}

// Len counts the parts present in the state.
func (s Set) Len() int {
	return bits.OnesCount64(s.mut | s.shared)
}

// Equal reports whether two states grant exactly the same access.
func (s Set) Equal(o Set) bool {
	return s == o
}

// Claims lists the state's claims in part order.
func (s Set) Claims() []Claim {
	if s.Empty() {
		return nil
	}
	out := make([]Claim, 0, s.Len())
	rest := s.mut | s.shared
	for rest != 0 {
		i := bits.TrailingZeros64(rest)
		rest &^= 1 << i
		id := ID(i + 1)
		if s.mut&(1<<i) != 0 {
			out = append(out, Mut(id))
		} else {
			out = append(out, Shared(id))
		}
	}
	return out
}

// Parts lists the part identifiers present in the state.
func (s Set) Parts() []ID {
	claims := s.Claims()
	if claims == nil {
		return nil
	}
	out := make([]ID, len(claims))
	for i, c := range claims {
		out[i] = c.Part
	}
	return out
}

// String renders the state with raw part numbers. Use the registry's
// PartName for user-facing diagnostics.
func (s Set) String() string {
	if s.Empty() {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range s.Claims() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Mode.String())
		b.WriteByte(' ')
		b.WriteByte('#')
		writeUint(&b, uint64(c.Part))
	}
	b.WriteByte('}')
	return b.String()
}

func writeUint(b *strings.Builder, v uint64) {
	if v >= 10 {
		writeUint(b, v/10)
	}
	b.WriteByte(byte('0' + v%10))
}
