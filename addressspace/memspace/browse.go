package memspace

import (
	"context"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// FindNode implements addressspace.AddressSpace.
func (s *Space) FindNode(_ context.Context, id ua.NodeID) (addressspace.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// BrowseSingleNode implements addressspace.AddressSpace. References are
// returned in insertion order. A null ReferenceTypeID matches every type.
func (s *Space) BrowseSingleNode(_ context.Context, id ua.NodeID, desc ua.BrowseDescription) ua.BrowseResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return ua.BrowseResult{StatusCode: ua.BadNodeIDUnknown}
	}
	if !desc.BrowseDirection.IsValid() {
		return ua.BrowseResult{StatusCode: ua.BadBrowseDirectionInvalid}
	}
	if !desc.ReferenceTypeID.IsNull() && !s.isReferenceTypeLocked(desc.ReferenceTypeID) {
		return ua.BrowseResult{StatusCode: ua.BadReferenceTypeIDInvalid}
	}

	out := make([]ua.ReferenceDescription, 0, len(n.refs))
	for _, r := range n.refs {
		if !directionMatches(desc.BrowseDirection, r.forward) {
			continue
		}
		if !s.typeMatchesLocked(r.typeID, desc.ReferenceTypeID, desc.IncludeSubtypes) {
			continue
		}
		target := s.nodes[r.target]
		if desc.NodeClassMask != 0 && (target == nil || target.class&desc.NodeClassMask == 0) {
			continue
		}
		out = append(out, s.describeLocked(r, target, desc.ResultMask))
	}
	return ua.BrowseResult{StatusCode: ua.Good, References: out}
}

// BrowsePath implements addressspace.AddressSpace. Every hop is followed from
// every node reached by the previous hop; targets are de-duplicated in
// discovery order.
func (s *Space) BrowsePath(_ context.Context, path ua.BrowsePath) ua.BrowsePathResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[path.StartingNode]; !ok {
		return ua.BrowsePathResult{StatusCode: ua.BadNodeIDUnknown}
	}
	if len(path.RelativePath) == 0 {
		return ua.BrowsePathResult{StatusCode: ua.BadNothingToDo}
	}

	current := []ua.NodeID{path.StartingNode}
	for _, elem := range path.RelativePath {
		if elem.TargetName.IsZero() {
			return ua.BrowsePathResult{StatusCode: ua.BadBrowseNameInvalid}
		}
		if !elem.ReferenceTypeID.IsNull() && !s.isReferenceTypeLocked(elem.ReferenceTypeID) {
			return ua.BrowsePathResult{StatusCode: ua.BadReferenceTypeIDInvalid}
		}
		seen := make(map[ua.NodeID]struct{})
		var next []ua.NodeID
		for _, id := range current {
			for _, r := range s.nodes[id].refs {
				if r.forward == elem.IsInverse {
					continue
				}
				if !s.typeMatchesLocked(r.typeID, elem.ReferenceTypeID, elem.IncludeSubtypes) {
					continue
				}
				target, ok := s.nodes[r.target]
				if !ok || target.browseName != elem.TargetName {
					continue
				}
				if _, dup := seen[r.target]; dup {
					continue
				}
				seen[r.target] = struct{}{}
				next = append(next, r.target)
			}
		}
		if len(next) == 0 {
			return ua.BrowsePathResult{StatusCode: ua.BadNoMatch}
		}
		current = next
	}

	targets := make([]ua.BrowsePathTarget, len(current))
	for i, id := range current {
		targets[i] = ua.BrowsePathTarget{TargetID: id, RemainingPathIndex: ua.MaxRemainingPathIndex}
	}
	return ua.BrowsePathResult{StatusCode: ua.Good, Targets: targets}
}

func directionMatches(d ua.BrowseDirection, forward bool) bool {
	switch d {
	case ua.BrowseDirectionForward:
		return forward
	case ua.BrowseDirectionInverse:
		return !forward
	default:
		return true
	}
}

func (s *Space) typeMatchesLocked(refType, want ua.NodeID, includeSubtypes bool) bool {
	if want.IsNull() || refType == want {
		return true
	}
	return includeSubtypes && s.isSubtypeLocked(refType, want)
}

// describeLocked builds the ReferenceDescription for r, populating only the
// fields selected by mask. target is nil for references leaving the space.
func (s *Space) describeLocked(r reference, target *node, mask ua.BrowseResultMask) ua.ReferenceDescription {
	rd := ua.ReferenceDescription{NodeID: r.target}
	if mask&ua.ResultMaskReferenceType != 0 {
		rd.ReferenceTypeID = r.typeID
	}
	if mask&ua.ResultMaskIsForward != 0 {
		rd.IsForward = r.forward
	}
	if target == nil {
		return rd
	}
	if mask&ua.ResultMaskNodeClass != 0 {
		rd.NodeClass = target.class
	}
	if mask&ua.ResultMaskBrowseName != 0 {
		rd.BrowseName = target.browseName
	}
	if mask&ua.ResultMaskDisplayName != 0 {
		rd.DisplayName = target.displayName
	}
	if mask&ua.ResultMaskTypeDefinition != 0 && (target.class == ua.NodeClassObject || target.class == ua.NodeClassVariable) {
		rd.TypeDefinition = target.typeDefinitionLocked()
	}
	return rd
}
