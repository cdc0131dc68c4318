package ref

import "partref/parts"

// Narrow derives a reference restricted to want, which must be implied
// by the current state (exclusive membership implies either mode,
// shared membership implies shared only). The receiver is suspended
// until the derived reference is released; this is the call-boundary
// operation for passing fewer permissions into a callee.
func (r *Ref[T]) Narrow(want parts.Set) (*Ref[T], error) {
	if v := r.active("narrow"); v != nil {
		return nil, v
	}
	if c, bad := r.state.Missing(want); bad {
		return nil, r.coverageViolation("narrow", c)
	}
	return r.reborrow("narrow", want)
}

// Borrow reborrows the whole state with exclusive parts downgraded to
// shared. The receiver is suspended until the result is released.
func (r *Ref[T]) Borrow() (*Ref[T], error) {
	if v := r.active("borrow"); v != nil {
		return nil, v
	}
	return r.reborrow("borrow", r.state.Downgrade())
}

// BorrowMut reborrows the whole state with modes unchanged. The
// receiver is suspended until the result is released.
func (r *Ref[T]) BorrowMut() (*Ref[T], error) {
	if v := r.active("borrow_mut"); v != nil {
		return nil, v
	}
	return r.reborrow("borrow_mut", r.state)
}

func (r *Ref[T]) reborrow(op string, want parts.Set) (*Ref[T], error) {
	r.tr.suspend(r.id)
	id, p, ok := r.tr.admit(want, []holderID{r.id})
	if !ok {
		r.tr.resume(r.id)
		return nil, &Violation{Op: op, Kind: IssueConflict, Part: r.reg.PartName(p)}
	}
	return r.derive(id, want), nil
}

// Release ends a derived reference. A parent suspended by the reborrow
// that produced it becomes usable again once no other reference still
// owes it rights; references split or partitioned out of the reborrow
// carry that obligation with them. Releasing a reference that is itself
// suspended behind a live reborrow, or already released, is rejected.
func (r *Ref[T]) Release() error {
	if r == nil || r.tr == nil {
		return &Violation{Op: "release", Kind: IssueReleased}
	}
	info := r.tr.info(r.id)
	if info == nil || info.status == holderReleased {
		return &Violation{Op: "release", Kind: IssueReleased}
	}
	if info.status == holderSuspended {
		return &Violation{Op: "release", Kind: IssueSuspended}
	}
	r.tr.drop(r.id)
	return nil
}

// Partition splits the designated parts of the receiver into two
// references with pairwise-disjoint states. Each side must be non-empty
// and implied by the current state; the sides may not name a common
// part. Parts mentioned by neither side stay with the receiver, which
// remains usable for them; Join reverses the split.
func (r *Ref[T]) Partition(a, b parts.Set) (*Ref[T], *Ref[T], error) {
	if v := r.active("split"); v != nil {
		return nil, nil, v
	}
	if a.Empty() || b.Empty() {
		return nil, nil, &Violation{Op: "split", Kind: IssueEmptySide}
	}
	if id, common := a.FirstCommon(b); common {
		return nil, nil, &Violation{Op: "split", Kind: IssueOverlap, Part: r.reg.PartName(id)}
	}
	if c, bad := r.state.Missing(a); bad {
		return nil, nil, r.coverageViolation("split", c)
	}
	if c, bad := r.state.Missing(b); bad {
		return nil, nil, r.coverageViolation("split", c)
	}
	rest := r.state.Minus(a.Union(b))
	parents := r.tr.parentsOf(r.id)
	r.tr.rebind(r.id, rest)
	r.state = rest
	refA, err := r.admitDerived("split", a, a, parents)
	if err != nil {
		return nil, nil, err
	}
	refB, err := r.admitDerived("split", b, b, parents)
	if err != nil {
		return nil, nil, err
	}
	return refA, refB, nil
}

// Split derives want out of the receiver alongside a remainder that
// keeps everything still usable next to it: exclusive parts taken by
// want leave the remainder, exclusive parts reborrowed shared are
// shared on both sides, untouched parts carry over unchanged. The
// receiver is consumed.
func (r *Ref[T]) Split(want parts.Set) (*Ref[T], *Ref[T], error) {
	if v := r.active("split_borrow"); v != nil {
		return nil, nil, v
	}
	if c, bad := r.state.Missing(want); bad {
		return nil, nil, r.coverageViolation("split_borrow", c)
	}
	rest := r.state.Minus(want).Union(want.SharedOnly())
	parents := r.tr.parentsOf(r.id)
	r.tr.suspend(r.id)
	child, err := r.admitDerived("split_borrow", want, want, parents)
	if err != nil {
		r.tr.resume(r.id)
		return nil, nil, err
	}
	remainder, err := r.admitDerived("split_borrow", rest, rest, parents)
	if err != nil {
		r.tr.drop(child.id)
		r.tr.resume(r.id)
		return nil, nil, err
	}
	r.tr.drop(r.id)
	return child, remainder, nil
}

// SplitPart materializes a read-only reference to the keyed field and
// returns it with the remainder reference; the part stays shared in the
// remainder, so further shared access to it remains possible. The
// receiver is consumed. The field reference is valid until the
// remainder is released.
func SplitPart[T, F any](r *Ref[T], k parts.Key[T, F]) (*F, *Ref[T], error) {
	if v := r.active("split_part"); v != nil {
		return nil, nil, v
	}
	id := k.ID()
	if !r.state.Contains(id, parts.ModeShared) {
		return nil, nil, &Violation{Op: "split_part", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	info, ok := r.reg.Field(id)
	if !ok {
		return nil, nil, &Violation{Op: "split_part", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	shared := parts.NewSet(parts.Shared(id))
	rest := r.state.Minus(shared).Union(shared)
	parents := r.tr.parentsOf(r.id)
	r.tr.suspend(r.id)
	remainder, err := r.admitDerived("split_part", rest, rest, parents)
	if err != nil {
		r.tr.resume(r.id)
		return nil, nil, err
	}
	r.tr.drop(r.id)
	return fieldPtr[F](r.target, info.Offset), remainder, nil
}

// SplitPartMut materializes an exclusive reference to the keyed field
// and returns it with the remainder reference; the part leaves the
// remainder entirely. The receiver is consumed. The field reference is
// valid until the remainder is released; the tracker keeps the part
// claimed on the remainder's behalf for that long.
func SplitPartMut[T, F any](r *Ref[T], k parts.Key[T, F]) (*F, *Ref[T], error) {
	if v := r.active("split_part_mut"); v != nil {
		return nil, nil, v
	}
	id := k.ID()
	if !r.state.Contains(id, parts.ModeMut) {
		kind := IssueMissingPart
		if r.state.Has(id) {
			kind = IssueSharedOnly
		}
		return nil, nil, &Violation{Op: "split_part_mut", Kind: kind, Part: r.reg.PartName(id)}
	}
	info, ok := r.reg.Field(id)
	if !ok {
		return nil, nil, &Violation{Op: "split_part_mut", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	taken := parts.NewSet(parts.Mut(id))
	rest := r.state.Minus(taken)
	parents := r.tr.parentsOf(r.id)
	r.tr.suspend(r.id)
	remainder, err := r.admitDerived("split_part_mut", rest.Union(taken), rest, parents)
	if err != nil {
		r.tr.resume(r.id)
		return nil, nil, err
	}
	r.tr.drop(r.id)
	return fieldPtr[F](r.target, info.Offset), remainder, nil
}

// Join recombines two references over the same aggregate instance whose
// states are disjoint, consuming both. Typically reverses a Partition.
func Join[T any](a, b *Ref[T]) (*Ref[T], error) {
	if v := a.active("join"); v != nil {
		return nil, v
	}
	if v := b.active("join"); v != nil {
		return nil, v
	}
	if a.tr != b.tr || a.target != b.target {
		return nil, &Violation{Op: "join", Kind: IssueForeignRef}
	}
	if id, common := a.state.FirstCommon(b.state); common {
		return nil, &Violation{Op: "join", Kind: IssueNotDisjoint, Part: a.reg.PartName(id)}
	}
	union := a.state.Union(b.state)
	parents := mergeParents(a.tr.parentsOf(a.id), b.tr.parentsOf(b.id))
	a.tr.suspend(a.id)
	a.tr.suspend(b.id)
	joined, err := a.admitDerived("join", union, union, parents)
	if err != nil {
		a.tr.resume(a.id)
		a.tr.resume(b.id)
		return nil, err
	}
	a.tr.drop(a.id)
	a.tr.drop(b.id)
	return joined, nil
}

// admitDerived registers claims with the tracker and wraps the holder
// in a Ref whose visible state may be narrower than the claims (the
// split-part case). Admission failing after the algebra's own checks
// passed means the engine is broken, so surface it as IssueConflict.
func (r *Ref[T]) admitDerived(op string, claims, visible parts.Set, parents []holderID) (*Ref[T], error) {
	id, p, ok := r.tr.admit(claims, parents)
	if !ok {
		return nil, &Violation{Op: op, Kind: IssueConflict, Part: r.reg.PartName(p)}
	}
	return r.derive(id, visible), nil
}

func mergeParents(a, b []holderID) []holderID {
	out := a
	for _, p := range b {
		dup := false
		for _, q := range out {
			if q == p {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// coverageViolation translates a failed coverage check into the
// diagnostic naming the part, distinguishing a part that is absent
// from one that is only held shared.
func (r *Ref[T]) coverageViolation(op string, c parts.Claim) *Violation {
	kind := IssueMissingPart
	if c.Mode == parts.ModeMut && r.state.Has(c.Part) {
		kind = IssueSharedOnly
	}
	return &Violation{Op: op, Kind: kind, Part: r.reg.PartName(c.Part)}
}
