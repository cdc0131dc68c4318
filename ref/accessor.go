package ref

import "partref/parts"

// Part yields a read-only reference to the keyed field. The ref must
// hold the part in shared or exclusive mode. The storage is untouched;
// only the reference is produced.
func Part[T, F any](r *Ref[T], k parts.Key[T, F]) (*F, error) {
	if v := r.active("part"); v != nil {
		return nil, v
	}
	id := k.ID()
	if !r.state.Contains(id, parts.ModeShared) {
		return nil, &Violation{Op: "part", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	info, ok := r.reg.Field(id)
	if !ok {
		return nil, &Violation{Op: "part", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	return fieldPtr[F](r.target, info.Offset), nil
}

// PartMut yields an exclusive reference to the keyed field. The ref
// must hold the part in exclusive mode; shared membership is not
// enough.
func PartMut[T, F any](r *Ref[T], k parts.Key[T, F]) (*F, error) {
	if v := r.active("part_mut"); v != nil {
		return nil, v
	}
	id := k.ID()
	if !r.state.Contains(id, parts.ModeMut) {
		kind := IssueMissingPart
		if r.state.Has(id) {
			kind = IssueSharedOnly
		}
		return nil, &Violation{Op: "part_mut", Kind: kind, Part: r.reg.PartName(id)}
	}
	info, ok := r.reg.Field(id)
	if !ok {
		return nil, &Violation{Op: "part_mut", Kind: IssueMissingPart, Part: r.reg.PartName(id)}
	}
	return fieldPtr[F](r.target, info.Offset), nil
}
