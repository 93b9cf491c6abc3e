// Package addressspace defines the collaborators the pseudo session delegates
// to: the address-space graph, its nodes, and the method invocation service.
// The session never reaches into node storage itself; anything satisfying
// these interfaces can back it.
//
// Implementations
//
//	memspace : in-memory reference graph and method registry
//	nodeset  : loads a memspace from a TOML file and keeps it in sync
//
// Session identity reaches collaborators through the context
// (SessionFromContext) so the interfaces stay free of per-call parameter
// structs.
package addressspace

import (
	"context"

	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// AddressSpace is the graph the session browses and reads.
type AddressSpace interface {
	// BrowseSingleNode returns every reference of nodeID matching desc, in
	// traversal order. The result is never paginated and never carries a
	// continuation point.
	BrowseSingleNode(ctx context.Context, nodeID ua.NodeID, desc ua.BrowseDescription) ua.BrowseResult

	// FindNode looks a node up by id.
	FindNode(ctx context.Context, nodeID ua.NodeID) (Node, bool)

	// BrowsePath resolves a relative path from its starting node.
	BrowsePath(ctx context.Context, path ua.BrowsePath) ua.BrowsePathResult
}

// Node is a single node of an AddressSpace.
type Node interface {
	NodeID() ua.NodeID
	NodeClass() ua.NodeClass
	BrowseName() ua.QualifiedName

	// ReadAttribute returns the attribute value. Failures are reported in
	// the DataValue's status, never as a Go error.
	ReadAttribute(ctx context.Context, attributeID ua.AttributeID, indexRange string, encoding ua.QualifiedName) ua.DataValue
}

// MethodService executes method calls.
//
// A returned error is a fault: the session converts it to BadInternalError.
// To report a protocol outcome instead, return a ua.StatusCode as the error
// or set StatusCode on the result.
type MethodService interface {
	Call(ctx context.Context, req ua.CallMethodRequest) (ua.CallMethodResult, error)
}

// ReferenceTypeResolver is an optional AddressSpace capability for reference
// types beyond the standard namespace 0 hierarchy. The session consults it
// before falling back to ua.LookupReferenceType.
type ReferenceTypeResolver interface {
	ResolveReferenceType(ctx context.Context, name string) (ua.NodeID, bool)
}

// SessionInfo identifies the session on whose behalf a collaborator runs.
type SessionInfo struct {
	SessionID string
}

type sessionInfoKey struct{}

// WithSession attaches info to ctx.
func WithSession(ctx context.Context, info SessionInfo) context.Context {
	return context.WithValue(ctx, sessionInfoKey{}, info)
}

// SessionFromContext returns the session the call runs for, if any.
func SessionFromContext(ctx context.Context) (SessionInfo, bool) {
	info, ok := ctx.Value(sessionInfoKey{}).(SessionInfo)
	return info, ok
}
