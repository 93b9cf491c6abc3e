package ua

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Basic types

// QualifiedName is a browse name qualified by a namespace index.
type QualifiedName struct {
	NamespaceIndex uint16 `json:"namespaceIndex,omitzero"`
	Name           string `json:"name"`
}

// NewQualifiedName is a convenience constructor.
func NewQualifiedName(ns uint16, name string) QualifiedName {
	return QualifiedName{NamespaceIndex: ns, Name: name}
}

// IsZero reports whether q carries no name.
func (q QualifiedName) IsZero() bool { return q.NamespaceIndex == 0 && q.Name == "" }

// String formats q as "<ns>:<name>", omitting namespace 0.
func (q QualifiedName) String() string {
	if q.NamespaceIndex == 0 {
		return q.Name
	}
	return strconv.FormatUint(uint64(q.NamespaceIndex), 10) + ":" + q.Name
}

// ParseQualifiedName parses the "<ns>:<name>" notation. Input without a
// numeric prefix is a namespace 0 name.
func ParseQualifiedName(s string) QualifiedName {
	if i := strings.IndexByte(s, ':'); i > 0 {
		if ns, err := strconv.ParseUint(s[:i], 10, 16); err == nil {
			return QualifiedName{NamespaceIndex: uint16(ns), Name: s[i+1:]}
		}
	}
	return QualifiedName{Name: s}
}

// LocalizedText is human readable text with an optional locale.
type LocalizedText struct {
	Locale string `json:"locale,omitzero"`
	Text   string `json:"text"`
}

// NewLocalizedText returns a LocalizedText without a locale.
func NewLocalizedText(text string) LocalizedText { return LocalizedText{Text: text} }

// Variant holds any attribute or argument value.
type Variant = any

// NodeClass is a bit in the node class mask.
type NodeClass uint32

const (
	NodeClassUnspecified   NodeClass = 0
	NodeClassObject        NodeClass = 1
	NodeClassVariable      NodeClass = 2
	NodeClassMethod        NodeClass = 4
	NodeClassObjectType    NodeClass = 8
	NodeClassVariableType  NodeClass = 16
	NodeClassReferenceType NodeClass = 32
	NodeClassDataType      NodeClass = 64
	NodeClassView          NodeClass = 128
)

var nodeClassNames = map[NodeClass]string{
	NodeClassUnspecified:   "Unspecified",
	NodeClassObject:        "Object",
	NodeClassVariable:      "Variable",
	NodeClassMethod:        "Method",
	NodeClassObjectType:    "ObjectType",
	NodeClassVariableType:  "VariableType",
	NodeClassReferenceType: "ReferenceType",
	NodeClassDataType:      "DataType",
	NodeClassView:          "View",
}

func (c NodeClass) String() string {
	if s, ok := nodeClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("NodeClass(%d)", uint32(c))
}

// ParseNodeClass maps a node class name (as produced by String) to its value.
func ParseNodeClass(s string) (NodeClass, bool) {
	for c, name := range nodeClassNames {
		if strings.EqualFold(name, s) {
			return c, true
		}
	}
	return NodeClassUnspecified, false
}

// AttributeID selects a node attribute for Read.
type AttributeID uint32

const (
	AttributeNodeID      AttributeID = 1
	AttributeNodeClass   AttributeID = 2
	AttributeBrowseName  AttributeID = 3
	AttributeDisplayName AttributeID = 4
	AttributeDescription AttributeID = 5
	AttributeValue       AttributeID = 13
	AttributeDataType    AttributeID = 14
)

// BrowseDirection selects which references are followed.
type BrowseDirection uint32

const (
	BrowseDirectionForward BrowseDirection = 0
	BrowseDirectionInverse BrowseDirection = 1
	BrowseDirectionBoth    BrowseDirection = 2
)

// IsValid reports whether d is one of the defined directions.
func (d BrowseDirection) IsValid() bool { return d <= BrowseDirectionBoth }

// BrowseResultMask selects which ReferenceDescription fields are populated.
type BrowseResultMask uint32

const (
	ResultMaskReferenceType  BrowseResultMask = 1
	ResultMaskIsForward      BrowseResultMask = 2
	ResultMaskNodeClass      BrowseResultMask = 4
	ResultMaskBrowseName     BrowseResultMask = 8
	ResultMaskDisplayName    BrowseResultMask = 16
	ResultMaskTypeDefinition BrowseResultMask = 32
	ResultMaskAll            BrowseResultMask = 63
)

// ContinuationPoint is an opaque server-side handle for the remainder of a
// truncated browse. A nil ContinuationPoint means "no more data".
type ContinuationPoint []byte

// String returns the hex form used as a storage key.
func (cp ContinuationPoint) String() string { return hex.EncodeToString(cp) }

// View service set

// BrowseDescription describes a single node to browse. ReferenceTypeName is
// an alternative to ReferenceTypeID for callers that address reference types
// symbolically ("Organizes", "HasComponent"); it is resolved before the
// address space sees the request.
type BrowseDescription struct {
	NodeID            NodeID           `json:"nodeId"`
	BrowseDirection   BrowseDirection  `json:"browseDirection"`
	ReferenceTypeID   NodeID           `json:"referenceTypeId,omitzero"`
	ReferenceTypeName string           `json:"referenceTypeName,omitzero"`
	IncludeSubtypes   bool             `json:"includeSubtypes"`
	NodeClassMask     NodeClass        `json:"nodeClassMask"`
	ResultMask        BrowseResultMask `json:"resultMask"`
}

// ReferenceDescription is one reference discovered by a browse.
type ReferenceDescription struct {
	ReferenceTypeID NodeID        `json:"referenceTypeId,omitzero"`
	IsForward       bool          `json:"isForward"`
	NodeID          NodeID        `json:"nodeId"`
	BrowseName      QualifiedName `json:"browseName,omitzero"`
	DisplayName     LocalizedText `json:"displayName,omitzero"`
	NodeClass       NodeClass     `json:"nodeClass,omitzero"`
	TypeDefinition  NodeID        `json:"typeDefinition,omitzero"`
}

// BrowseResult is the outcome of browsing one node.
type BrowseResult struct {
	StatusCode        StatusCode             `json:"statusCode"`
	ContinuationPoint ContinuationPoint      `json:"continuationPoint,omitempty"`
	References        []ReferenceDescription `json:"references"`
}

// RelativePathElement is one hop of a browse path.
type RelativePathElement struct {
	ReferenceTypeID NodeID        `json:"referenceTypeId,omitzero"`
	IsInverse       bool          `json:"isInverse"`
	IncludeSubtypes bool          `json:"includeSubtypes"`
	TargetName      QualifiedName `json:"targetName"`
}

// BrowsePath is a starting node plus a sequence of browse-name hops.
type BrowsePath struct {
	StartingNode NodeID                `json:"startingNode"`
	RelativePath []RelativePathElement `json:"relativePath"`
}

// BrowsePathTarget is one node a browse path resolved to. RemainingPathIndex
// is MaxRemainingPathIndex when the path was followed completely.
type BrowsePathTarget struct {
	TargetID           NodeID `json:"targetId"`
	RemainingPathIndex uint32 `json:"remainingPathIndex"`
}

// MaxRemainingPathIndex marks a fully resolved browse path target.
const MaxRemainingPathIndex = ^uint32(0)

// BrowsePathResult is the outcome of translating one browse path.
type BrowsePathResult struct {
	StatusCode StatusCode         `json:"statusCode"`
	Targets    []BrowsePathTarget `json:"targets"`
}

// Attribute service set

// ReadValueID selects one attribute of one node.
type ReadValueID struct {
	NodeID       NodeID        `json:"nodeId"`
	AttributeID  AttributeID   `json:"attributeId"`
	IndexRange   string        `json:"indexRange,omitzero"`
	DataEncoding QualifiedName `json:"dataEncoding,omitzero"`
}

// DataValue is an attribute value with its status and timestamps.
type DataValue struct {
	Value           Variant    `json:"value,omitempty"`
	StatusCode      StatusCode `json:"statusCode"`
	SourceTimestamp time.Time  `json:"sourceTimestamp,omitzero"`
	ServerTimestamp time.Time  `json:"serverTimestamp,omitzero"`
}

// NewDataValue returns a Good DataValue stamped with the current time.
func NewDataValue(v Variant) DataValue {
	now := time.Now()
	return DataValue{Value: v, StatusCode: Good, SourceTimestamp: now, ServerTimestamp: now}
}

// NewStatusDataValue returns a value-less DataValue carrying only a status.
func NewStatusDataValue(code StatusCode) DataValue {
	return DataValue{StatusCode: code}
}

// Method service set

// CallMethodRequest invokes MethodID on ObjectID.
type CallMethodRequest struct {
	ObjectID       NodeID    `json:"objectId"`
	MethodID       NodeID    `json:"methodId"`
	InputArguments []Variant `json:"inputArguments,omitempty"`
}

// CallMethodResult is the outcome of one method invocation.
type CallMethodResult struct {
	StatusCode           StatusCode   `json:"statusCode"`
	InputArgumentResults []StatusCode `json:"inputArgumentResults,omitempty"`
	OutputArguments      []Variant    `json:"outputArguments,omitempty"`
}
