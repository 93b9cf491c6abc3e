package pseudosession

import (
	"context"
	"fmt"

	"github.com/ggoodman/opcua-pseudosession-go/batch"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// Read returns one DataValue per item. An unknown node yields
// BadNodeIDUnknown for that item only. A zero AttributeID reads the Value
// attribute.
func (s *Session) Read(ctx context.Context, req batch.Request[ua.ReadValueID]) *scheduler.Future[batch.Response[ua.DataValue]] {
	return submit(s, ctx, "read", req, func(ctx context.Context, req batch.Request[ua.ReadValueID]) (batch.Response[ua.DataValue], error) {
		return batch.MapErr(req, func(i int, item ua.ReadValueID) (ua.DataValue, error) {
			if item.NodeID.IsNull() {
				return ua.DataValue{}, fmt.Errorf("%w: read item %d has no node id", ErrInvalidRequest, i)
			}
			attr := item.AttributeID
			if attr == 0 {
				attr = ua.AttributeValue
			}
			n, ok := s.space.FindNode(ctx, item.NodeID)
			if !ok {
				return ua.NewStatusDataValue(ua.BadNodeIDUnknown), nil
			}
			return n.ReadAttribute(ctx, attr, item.IndexRange, item.DataEncoding), nil
		})
	})
}

// TranslateBrowsePath resolves each browse path to its target nodes.
func (s *Session) TranslateBrowsePath(ctx context.Context, req batch.Request[ua.BrowsePath]) *scheduler.Future[batch.Response[ua.BrowsePathResult]] {
	return submit(s, ctx, "translate_browse_path", req, func(ctx context.Context, req batch.Request[ua.BrowsePath]) (batch.Response[ua.BrowsePathResult], error) {
		return batch.MapErr(req, func(i int, path ua.BrowsePath) (ua.BrowsePathResult, error) {
			if path.StartingNode.IsNull() {
				return ua.BrowsePathResult{}, fmt.Errorf("%w: browse path %d has no starting node", ErrInvalidRequest, i)
			}
			return s.space.BrowsePath(ctx, path), nil
		})
	})
}
