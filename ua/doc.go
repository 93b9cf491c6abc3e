// Package ua contains the protocol data types and constants shared by the
// pseudo session, its continuation-point manager and the address-space
// collaborators. It mirrors the request/response structures a remote OPC UA
// client exchanges with a server for the View, Attribute and Method service
// sets while keeping the surface Go-friendly (comparable value types, exported
// structs with json tags, typed enumerations).
//
// The package is intentionally free of transport logic: there is no binary
// encoder here. Higher-level packages construct requests and results with
// these concrete types and hand them to an address space or to a caller.
//
// # Node identifiers
//
// NodeID is a comparable value so it can key maps directly. Its text form
// follows the usual notation:
//
//	i=85                 numeric, namespace 0
//	ns=2;s=Boiler.Temp   string
//	ns=1;g=<uuid>        GUID
//	ns=3;b=<base64>      opaque
//
// # Status codes
//
// StatusCode values implement error so collaborators can return a protocol
// status from a Go function and have it surface as a per-item result rather
// than an internal fault.
//
// # Pagination
//
// Browse results may be truncated. The remainder is addressed by an opaque
// ContinuationPoint that is handed back to BrowseNext.
package ua
