package pseudosession

import (
	"context"
	"fmt"

	"github.com/ggoodman/opcua-pseudosession-go/batch"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// Browse returns the references of each described node. Results longer than
// Config.MaxReferencesPerNode carry a continuation point for BrowseNext.
func (s *Session) Browse(ctx context.Context, req batch.Request[ua.BrowseDescription]) *scheduler.Future[batch.Response[ua.BrowseResult]] {
	return submit(s, ctx, "browse", req, func(ctx context.Context, req batch.Request[ua.BrowseDescription]) (batch.Response[ua.BrowseResult], error) {
		for i, desc := range req.Items() {
			if desc.NodeID.IsNull() {
				return batch.Response[ua.BrowseResult]{}, fmt.Errorf("%w: browse description %d has no node id", ErrInvalidRequest, i)
			}
		}

		// A call that aborts part way returns no results, so the tokens it
		// already minted would have no owner.
		var minted []ua.ContinuationPoint
		done := false
		defer func() {
			if done {
				return
			}
			for _, cp := range minted {
				s.cps.Cancel(ctx, cp)
			}
		}()

		res, err := batch.MapErr(req, func(_ int, desc ua.BrowseDescription) (ua.BrowseResult, error) {
			r, err := s.browseOne(ctx, desc)
			if r.ContinuationPoint != nil {
				minted = append(minted, r.ContinuationPoint)
			}
			return r, err
		})
		done = err == nil
		return res, err
	})
}

// BrowseNext continues the browses behind cps. With releaseOnly set the
// continuation points are released instead and no references are returned.
func (s *Session) BrowseNext(ctx context.Context, cps batch.Request[ua.ContinuationPoint], releaseOnly bool) *scheduler.Future[batch.Response[ua.BrowseResult]] {
	op := "browse_next"
	if releaseOnly {
		op = "browse_next_release"
	}
	return submit(s, ctx, op, cps, func(ctx context.Context, req batch.Request[ua.ContinuationPoint]) (batch.Response[ua.BrowseResult], error) {
		return batch.Map(req, func(_ int, cp ua.ContinuationPoint) ua.BrowseResult {
			if releaseOnly {
				return s.cps.Cancel(ctx, cp)
			}
			return s.cps.GetNext(ctx, cp)
		}), nil
	})
}

func (s *Session) browseOne(ctx context.Context, desc ua.BrowseDescription) (ua.BrowseResult, error) {
	refType, ok := s.resolveReferenceType(ctx, desc)
	if !ok {
		return ua.BrowseResult{StatusCode: ua.BadReferenceTypeIDInvalid, References: []ua.ReferenceDescription{}}, nil
	}
	desc.ReferenceTypeID = refType
	desc.ReferenceTypeName = ""

	full := s.space.BrowseSingleNode(ctx, desc.NodeID, desc)
	res, err := s.cps.Register(ctx, s.cfg.MaxReferencesPerNode, full)
	if err != nil {
		return ua.BrowseResult{}, fmt.Errorf("browse %s: %w", desc.NodeID, err)
	}
	if res.References == nil {
		res.References = []ua.ReferenceDescription{}
	}
	return res, nil
}

// resolveReferenceType returns the reference type filter of desc. A null
// result with ok set means no filter.
func (s *Session) resolveReferenceType(ctx context.Context, desc ua.BrowseDescription) (ua.NodeID, bool) {
	if !desc.ReferenceTypeID.IsNull() || desc.ReferenceTypeName == "" {
		return desc.ReferenceTypeID, true
	}
	if s.resolver != nil {
		if id, ok := s.resolver.ResolveReferenceType(ctx, desc.ReferenceTypeName); ok {
			return id, true
		}
	}
	return ua.LookupReferenceType(desc.ReferenceTypeName)
}
