package ref

import (
	"fmt"

	"fortio.org/safecast"

	"partref/parts"
)

// holderID identifies one live partial reference within a root's
// tracker.
type holderID uint32

// noHolder marks the absence of a holder.
const noHolder holderID = 0

type holderStatus uint8

const (
	holderActive holderStatus = iota
	holderSuspended
	holderReleased
)

// holderInfo stores per-reference tracking state. claims is what the
// holder reaches in storage; it can exceed the state visible on the
// Ref when a field reference was split out of it. parents lists the
// suspended ancestors owed this holder's rights; kids counts the live
// holders owing rights to this one. A suspended holder resumes only
// when kids reaches zero.
type holderInfo struct {
	claims  parts.Set
	status  holderStatus
	parents []holderID
	kids    int
}

// partHold records which active holders currently reach one part.
type partHold struct {
	shared []holderID
	mut    holderID
}

// tracker verifies that the references derived from one root never hold
// conflicting claims at the same time. One tracker exists per root
// conversion; like the rest of the engine it assumes the single-thread
// reference discipline of its callers.
type tracker struct {
	holders []holderInfo // index 0 reserved as sentinel
	holds   map[parts.ID]partHold
}

func newTracker() *tracker {
	return &tracker{
		holders: make([]holderInfo, 1),
		holds:   make(map[parts.ID]partHold, 8),
	}
}

func (tr *tracker) info(id holderID) *holderInfo {
	if tr == nil || id == noHolder || int(id) >= len(tr.holders) {
		return nil
	}
	return &tr.holders[id]
}

// conflict returns the first part of claims already reached by another
// active holder.
func (tr *tracker) conflict(claims parts.Set) (parts.ID, bool) {
	for _, c := range claims.Claims() {
		hold := tr.holds[c.Part]
		switch c.Mode {
		case parts.ModeMut:
			if hold.mut != noHolder || len(hold.shared) > 0 {
				return c.Part, true
			}
		case parts.ModeShared:
			if hold.mut != noHolder {
				return c.Part, true
			}
		}
	}
	return parts.NoID, false
}

// commit records every claim for the holder. Callers check conflict
// first; commit assumes a clear table.
func (tr *tracker) commit(id holderID, claims parts.Set) {
	for _, c := range claims.Claims() {
		hold := tr.holds[c.Part]
		switch c.Mode {
		case parts.ModeMut:
			hold.mut = id
		case parts.ModeShared:
			hold.shared = append(hold.shared, id)
		}
		tr.holds[c.Part] = hold
	}
}

// retract drops every claim the holder has on the table.
func (tr *tracker) retract(id holderID, claims parts.Set) {
	for _, c := range claims.Claims() {
		hold, ok := tr.holds[c.Part]
		if !ok {
			continue
		}
		switch c.Mode {
		case parts.ModeMut:
			if hold.mut == id {
				hold.mut = noHolder
			}
		case parts.ModeShared:
			hold.shared = dropHolder(hold.shared, id)
		}
		if hold.mut == noHolder && len(hold.shared) == 0 {
			delete(tr.holds, c.Part)
		} else {
			tr.holds[c.Part] = hold
		}
	}
}

// admit registers a new active holder after checking its claims against
// every other active holder. parents are the holders that may not
// resume while this one lives.
func (tr *tracker) admit(claims parts.Set, parents []holderID) (holderID, parts.ID, bool) {
	if p, bad := tr.conflict(claims); bad {
		return noHolder, p, false
	}
	raw, err := safecast.Conv[uint32](len(tr.holders))
	if err != nil {
		panic(fmt.Errorf("partref: holder overflow: %w", err))
	}
	id := holderID(raw)
	tr.holders = append(tr.holders, holderInfo{
		claims:  claims,
		parents: append([]holderID(nil), parents...),
	})
	tr.commit(id, claims)
	for _, p := range parents {
		if info := tr.info(p); info != nil {
			info.kids++
		}
	}
	return id, parts.NoID, true
}

// parentsOf returns a copy of the holder's parent set, for holders that
// inherit its obligations.
func (tr *tracker) parentsOf(id holderID) []holderID {
	info := tr.info(id)
	if info == nil || len(info.parents) == 0 {
		return nil
	}
	return append([]holderID(nil), info.parents...)
}

// suspend parks an active holder, dropping its claims until resume.
func (tr *tracker) suspend(id holderID) {
	info := tr.info(id)
	if info == nil || info.status != holderActive {
		return
	}
	tr.retract(id, info.claims)
	info.status = holderSuspended
}

// resume reactivates a suspended holder. Its claims were vacated by the
// releasing child, so recommitting cannot conflict unless the algebra
// itself is broken.
func (tr *tracker) resume(id holderID) {
	info := tr.info(id)
	if info == nil || info.status != holderSuspended {
		return
	}
	if p, bad := tr.conflict(info.claims); bad {
		panic(fmt.Errorf("partref: resume reclaimed a held part #%d", p))
	}
	tr.commit(id, info.claims)
	info.status = holderActive
}

// drop releases a holder's claims, marks it dead and resumes any
// suspended parent left with no live descendant.
func (tr *tracker) drop(id holderID) {
	info := tr.info(id)
	if info == nil || info.status == holderReleased {
		return
	}
	if info.status == holderActive {
		tr.retract(id, info.claims)
	}
	info.status = holderReleased
	for _, p := range info.parents {
		pi := tr.info(p)
		if pi == nil {
			continue
		}
		pi.kids--
		if pi.kids == 0 && pi.status == holderSuspended {
			tr.resume(p)
		}
	}
}

// rebind replaces an active holder's claims, used when a partition
// vacates part of a reference's rights while leaving the rest with it.
func (tr *tracker) rebind(id holderID, claims parts.Set) {
	info := tr.info(id)
	if info == nil || info.status != holderActive {
		return
	}
	tr.retract(id, info.claims)
	info.claims = claims
	tr.commit(id, claims)
}

func dropHolder(ids []holderID, target holderID) []holderID {
	for i, id := range ids {
		if id == target {
			ids[i] = ids[len(ids)-1]
			return ids[:len(ids)-1]
		}
	}
	return ids
}
