package parts

import "testing"

func TestSetInsertAndContains(t *testing.T) {
	s := NewSet(Shared(1), Mut(2))

	if !s.Contains(1, ModeShared) {
		t.Fatalf("expected part 1 to satisfy shared")
	}
	if s.Contains(1, ModeMut) {
		t.Fatalf("shared part 1 must not satisfy mut")
	}
	if !s.Contains(2, ModeMut) {
		t.Fatalf("expected part 2 to satisfy mut")
	}
	if !s.Contains(2, ModeShared) {
		t.Fatalf("mut part 2 must satisfy shared")
	}
	if s.Has(3) {
		t.Fatalf("part 3 was never inserted")
	}
}

func TestSetMutAbsorbsShared(t *testing.T) {
	s := NewSet(Shared(1), Mut(1))
	mode, ok := s.Mode(1)
	if !ok || mode != ModeMut {
		t.Fatalf("expected mut for part 1, got %v (present=%v)", mode, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 part, got %d", s.Len())
	}

	// Insertion order must not matter.
	if !s.Equal(NewSet(Mut(1), Shared(1))) {
		t.Fatalf("mut claim must absorb shared regardless of order")
	}
}

func TestSetCoversAndMissing(t *testing.T) {
	s := NewSet(Mut(1), Shared(2))

	if !s.Covers(NewSet(Shared(1))) {
		t.Fatalf("mut membership must cover a shared claim")
	}
	if !s.Covers(NewSet(Mut(1), Shared(2))) {
		t.Fatalf("state must cover itself")
	}
	if s.Covers(NewSet(Mut(2))) {
		t.Fatalf("shared membership must not cover a mut claim")
	}

	c, bad := s.Missing(NewSet(Mut(2)))
	if !bad || c.Part != 2 || c.Mode != ModeMut {
		t.Fatalf("expected missing mut claim on part 2, got %v (bad=%v)", c, bad)
	}
	c, bad = s.Missing(NewSet(Shared(3)))
	if !bad || c.Part != 3 {
		t.Fatalf("expected missing part 3, got %v (bad=%v)", c, bad)
	}
	if _, bad := s.Missing(NewSet(Shared(1), Shared(2))); bad {
		t.Fatalf("covered state reported as missing")
	}
}

func TestSetUnionMinus(t *testing.T) {
	a := NewSet(Mut(1), Shared(2))
	b := NewSet(Shared(1), Mut(3))

	u := a.Union(b)
	if mode, _ := u.Mode(1); mode != ModeMut {
		t.Fatalf("union must keep part 1 exclusive")
	}
	if u.Len() != 3 {
		t.Fatalf("expected 3 parts in union, got %d", u.Len())
	}

	m := u.Minus(NewSet(Shared(1), Shared(3)))
	if m.Has(1) || m.Has(3) {
		t.Fatalf("minus must remove parts regardless of mode")
	}
	if !m.Contains(2, ModeShared) {
		t.Fatalf("minus dropped an unrelated part")
	}
}

func TestSetOverlapAndDisjoint(t *testing.T) {
	a := NewSet(Mut(1))
	b := NewSet(Shared(1))
	c := NewSet(Shared(2))

	if !a.Overlaps(b) {
		t.Fatalf("same part in different modes still overlaps")
	}
	if a.Overlaps(c) {
		t.Fatalf("distinct parts must not overlap")
	}
	if id, common := a.FirstCommon(b); !common || id != 1 {
		t.Fatalf("expected common part 1, got %d (common=%v)", id, common)
	}
	if _, common := a.FirstCommon(c); common {
		t.Fatalf("disjoint states reported a common part")
	}
}

func TestSetDowngrade(t *testing.T) {
	s := NewSet(Mut(1), Shared(2)).Downgrade()
	if s.Contains(1, ModeMut) {
		t.Fatalf("downgrade left part 1 exclusive")
	}
	if !s.Contains(1, ModeShared) || !s.Contains(2, ModeShared) {
		t.Fatalf("downgrade lost a part")
	}
}

func TestSetClaimsOrdered(t *testing.T) {
	s := NewSet(Mut(5), Shared(2), Mut(9))
	claims := s.Claims()
	want := []Claim{Shared(2), Mut(5), Mut(9)}
	if len(claims) != len(want) {
		t.Fatalf("expected %d claims, got %d", len(want), len(claims))
	}
	for i := range want {
		if claims[i] != want[i] {
			t.Fatalf("claim %d: expected %v, got %v", i, want[i], claims[i])
		}
	}
}

func TestSetString(t *testing.T) {
	if got := (Set{}).String(); got != "{}" {
		t.Fatalf("expected {}, got %q", got)
	}
	got := NewSet(Mut(1), Shared(3)).String()
	if got != "{mut #1, shared #3}" {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestSetIgnoresInvalidIDs(t *testing.T) {
	s := NewSet(Shared(NoID), Mut(MaxParts+1))
	if !s.Empty() {
		t.Fatalf("invalid part ids must not enter the state")
	}
}
