package ref

import "fmt"

// IssueKind enumerates the reasons an access-state operation is
// rejected.
type IssueKind uint8

const (
	IssueNone IssueKind = iota
	// IssueMissingPart marks a request for a part the state lacks.
	IssueMissingPart
	// IssueSharedOnly marks an exclusive request on a part the state
	// only holds shared.
	IssueSharedOnly
	// IssueEmptySide marks a partition side naming no parts.
	IssueEmptySide
	// IssueOverlap marks partition sides naming a common part.
	IssueOverlap
	// IssueNotDisjoint marks join inputs claiming a common part.
	IssueNotDisjoint
	// IssueForeignRef marks join inputs over different aggregates.
	IssueForeignRef
	// IssueSuspended marks use of a reference parked behind a live
	// reborrow.
	IssueSuspended
	// IssueReleased marks use of a released or consumed reference.
	IssueReleased
	// IssueConflict marks a second live claim detected by the tracker.
	// The algebra should make this unreachable; seeing it means a
	// defect in the algebra, not in the caller.
	IssueConflict
)

func (k IssueKind) String() string {
	switch k {
	case IssueNone:
		return "ok"
	case IssueMissingPart:
		return "part not granted"
	case IssueSharedOnly:
		return "part granted shared only"
	case IssueEmptySide:
		return "empty partition side"
	case IssueOverlap:
		return "partition sides overlap"
	case IssueNotDisjoint:
		return "states are not disjoint"
	case IssueForeignRef:
		return "references target different aggregates"
	case IssueSuspended:
		return "reference suspended by a live reborrow"
	case IssueReleased:
		return "reference released"
	case IssueConflict:
		return "conflicting live claim"
	default:
		return "unknown issue"
	}
}

// Violation reports a rejected operation. Rejections are deterministic:
// the same call on the same states always fails the same way, naming
// the offending part when there is one.
type Violation struct {
	Op   string
	Kind IssueKind
	Part string
}

func (v *Violation) Error() string {
	if v.Part != "" {
		return fmt.Sprintf("partref: %s: %s (%s)", v.Op, v.Kind, v.Part)
	}
	return fmt.Sprintf("partref: %s: %s", v.Op, v.Kind)
}
