// Package pseudosession lets server-side code run address-space services
// through the same request/response contract a remote client would use,
// without any wire encoding in between.
//
// A Session exposes five operations:
//
//	Browse              references of one or more nodes, paginated
//	BrowseNext          next page of, or release of, continuation points
//	Read                node attributes
//	Call                methods
//	TranslateBrowsePath browse-name paths to node ids
//
// Every operation accepts a batch.Request built with batch.One (scalar) or
// batch.Of (sequence) and answers with a batch.Response of the same shape,
// in request order. Results are delivered through a scheduler.Future that is
// never complete when the operation returns; completion always happens on a
// later turn of the session's scheduler.
//
// Failure model
//
// Problems with a single item (unknown node, invalid continuation point,
// failing method) are reported in that item's status code and never affect
// its siblings. Malformed requests, such as an item without a node id, are
// programming errors: the whole call fails with ErrInvalidRequest and no
// partial result.
//
// Quick start:
//
//	space, _ := nodeset.Load("plant.toml")
//	sess, _ := pseudosession.New(space, pseudosession.WithMaxReferencesPerNode(100))
//	defer sess.Close(ctx)
//
//	res, err := sess.Browse(ctx, batch.One(ua.BrowseDescription{
//		NodeID:     ua.ObjectsFolderID,
//		ResultMask: ua.ResultMaskAll,
//	})).Await(ctx)
package pseudosession
