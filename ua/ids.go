package ua

import "strings"

// Well-known nodes of namespace 0.
var (
	RootFolderID    = NewNumericNodeID(0, 84)
	ObjectsFolderID = NewNumericNodeID(0, 85)
	TypesFolderID   = NewNumericNodeID(0, 86)
	ViewsFolderID   = NewNumericNodeID(0, 87)
	ServerID        = NewNumericNodeID(0, 2253)

	BaseObjectTypeID       = NewNumericNodeID(0, 58)
	FolderTypeID           = NewNumericNodeID(0, 61)
	BaseDataVariableTypeID = NewNumericNodeID(0, 63)
	PropertyTypeID         = NewNumericNodeID(0, 68)
)

// Standard reference types.
var (
	ReferencesID                = NewNumericNodeID(0, 31)
	NonHierarchicalReferencesID = NewNumericNodeID(0, 32)
	HierarchicalReferencesID    = NewNumericNodeID(0, 33)
	HasChildID                  = NewNumericNodeID(0, 34)
	OrganizesID                 = NewNumericNodeID(0, 35)
	HasEventSourceID            = NewNumericNodeID(0, 36)
	HasModellingRuleID          = NewNumericNodeID(0, 37)
	HasEncodingID               = NewNumericNodeID(0, 38)
	HasDescriptionID            = NewNumericNodeID(0, 39)
	HasTypeDefinitionID         = NewNumericNodeID(0, 40)
	GeneratesEventID            = NewNumericNodeID(0, 41)
	AggregatesID                = NewNumericNodeID(0, 44)
	HasSubtypeID                = NewNumericNodeID(0, 45)
	HasPropertyID               = NewNumericNodeID(0, 46)
	HasComponentID              = NewNumericNodeID(0, 47)
	HasNotifierID               = NewNumericNodeID(0, 48)
	HasOrderedComponentID       = NewNumericNodeID(0, 49)
)

// ReferenceType describes a reference type node of the standard hierarchy.
type ReferenceType struct {
	ID          NodeID
	Name        string
	InverseName string
	Supertype   NodeID
}

// StandardReferenceTypes is the namespace 0 reference type hierarchy, parents
// before children.
var StandardReferenceTypes = []ReferenceType{
	{ID: ReferencesID, Name: "References"},
	{ID: HierarchicalReferencesID, Name: "HierarchicalReferences", Supertype: ReferencesID},
	{ID: NonHierarchicalReferencesID, Name: "NonHierarchicalReferences", Supertype: ReferencesID},
	{ID: HasChildID, Name: "HasChild", Supertype: HierarchicalReferencesID},
	{ID: OrganizesID, Name: "Organizes", InverseName: "OrganizedBy", Supertype: HierarchicalReferencesID},
	{ID: HasEventSourceID, Name: "HasEventSource", InverseName: "EventSourceOf", Supertype: HierarchicalReferencesID},
	{ID: HasNotifierID, Name: "HasNotifier", InverseName: "NotifierOf", Supertype: HasEventSourceID},
	{ID: AggregatesID, Name: "Aggregates", Supertype: HasChildID},
	{ID: HasSubtypeID, Name: "HasSubtype", InverseName: "SubtypeOf", Supertype: HasChildID},
	{ID: HasPropertyID, Name: "HasProperty", InverseName: "PropertyOf", Supertype: AggregatesID},
	{ID: HasComponentID, Name: "HasComponent", InverseName: "ComponentOf", Supertype: AggregatesID},
	{ID: HasOrderedComponentID, Name: "HasOrderedComponent", InverseName: "OrderedComponentOf", Supertype: HasComponentID},
	{ID: HasModellingRuleID, Name: "HasModellingRule", InverseName: "ModellingRuleOf", Supertype: NonHierarchicalReferencesID},
	{ID: HasEncodingID, Name: "HasEncoding", InverseName: "EncodingOf", Supertype: NonHierarchicalReferencesID},
	{ID: HasDescriptionID, Name: "HasDescription", InverseName: "DescriptionOf", Supertype: NonHierarchicalReferencesID},
	{ID: HasTypeDefinitionID, Name: "HasTypeDefinition", InverseName: "TypeDefinitionOf", Supertype: NonHierarchicalReferencesID},
	{ID: GeneratesEventID, Name: "GeneratesEvent", InverseName: "GeneratedBy", Supertype: NonHierarchicalReferencesID},
}

// LookupReferenceType resolves a standard reference type by browse name
// (case-insensitive) or by node id text.
func LookupReferenceType(name string) (NodeID, bool) {
	name = strings.TrimSpace(name)
	for _, rt := range StandardReferenceTypes {
		if strings.EqualFold(rt.Name, name) {
			return rt.ID, true
		}
	}
	if id, err := ParseNodeID(name); err == nil {
		return id, true
	}
	return NodeID{}, false
}
