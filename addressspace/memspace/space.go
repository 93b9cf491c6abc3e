// Package memspace provides an in-memory addressspace.AddressSpace and
// addressspace.MethodService suitable for tests, simulators and
// single-process servers. All state is ephemeral.
//
// A new Space already contains the namespace 0 skeleton a client expects:
// the Root, Objects, Types and Views folders, the standard reference type
// hierarchy, and the base object/variable types. Application nodes are added
// with AddNode and AddReference, and method behaviour with RegisterMethod.
//
// Example:
//
//	space := memspace.New()
//	_ = space.AddNode(memspace.NodeSpec{
//		ID:         ua.NewStringNodeID(1, "Boiler"),
//		Class:      ua.NodeClassObject,
//		BrowseName: ua.NewQualifiedName(1, "Boiler"),
//		Parent:     ua.ObjectsFolderID,
//	})
package memspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

var (
	// ErrDuplicateNode is returned when a node id is already in use.
	ErrDuplicateNode = errors.New("memspace: duplicate node id")
	// ErrUnknownNode is returned when a referenced node does not exist.
	ErrUnknownNode = errors.New("memspace: unknown node")
	// ErrUnknownReferenceType is returned for references of an undefined type.
	ErrUnknownReferenceType = errors.New("memspace: unknown reference type")
	// ErrNotAMethod is returned by RegisterMethod for non-method nodes.
	ErrNotAMethod = errors.New("memspace: node is not a method")
)

var (
	_ addressspace.AddressSpace          = (*Space)(nil)
	_ addressspace.MethodService         = (*Space)(nil)
	_ addressspace.ReferenceTypeResolver = (*Space)(nil)
)

// Space is an in-memory address space. It is safe for concurrent use.
type Space struct {
	mu sync.RWMutex

	nodes map[ua.NodeID]*node
	// supertypes maps each reference type to its parent type.
	supertypes map[ua.NodeID]ua.NodeID
	// refTypeNames maps lower-cased reference type browse names to ids.
	refTypeNames map[string]ua.NodeID

	methodsMu sync.RWMutex
	methods   map[ua.NodeID]MethodHandler
}

// NodeSpec describes a node to add.
type NodeSpec struct {
	ID          ua.NodeID
	Class       ua.NodeClass
	BrowseName  ua.QualifiedName
	DisplayName ua.LocalizedText // defaults to BrowseName.Name
	Description ua.LocalizedText

	// TypeDefinition adds a HasTypeDefinition reference. Objects default to
	// BaseObjectType and variables to BaseDataVariableType.
	TypeDefinition ua.NodeID
	DataType       ua.NodeID
	Value          ua.Variant

	// Parent, when set, adds Parent -[ReferenceType]-> node. ReferenceType
	// defaults to HasComponent.
	Parent        ua.NodeID
	ReferenceType ua.NodeID
}

// New returns a Space pre-populated with the namespace 0 skeleton.
func New() *Space {
	s := &Space{methods: make(map[ua.NodeID]MethodHandler)}
	s.reset()
	return s
}

func (s *Space) reset() {
	s.nodes = make(map[ua.NodeID]*node)
	s.supertypes = make(map[ua.NodeID]ua.NodeID)
	s.refTypeNames = make(map[string]ua.NodeID)

	for _, rt := range ua.StandardReferenceTypes {
		s.addReferenceTypeLocked(rt.ID, ua.NewQualifiedName(0, rt.Name), rt.Supertype)
	}

	folders := []struct {
		id   ua.NodeID
		name string
	}{
		{ua.RootFolderID, "Root"},
		{ua.ObjectsFolderID, "Objects"},
		{ua.TypesFolderID, "Types"},
		{ua.ViewsFolderID, "Views"},
	}
	types := []struct {
		id    ua.NodeID
		name  string
		class ua.NodeClass
	}{
		{ua.BaseObjectTypeID, "BaseObjectType", ua.NodeClassObjectType},
		{ua.FolderTypeID, "FolderType", ua.NodeClassObjectType},
		{ua.BaseDataVariableTypeID, "BaseDataVariableType", ua.NodeClassVariableType},
		{ua.PropertyTypeID, "PropertyType", ua.NodeClassVariableType},
	}
	for _, t := range types {
		s.nodes[t.id] = s.newNode(NodeSpec{ID: t.id, Class: t.class, BrowseName: ua.NewQualifiedName(0, t.name)})
	}
	s.linkLocked(ua.BaseObjectTypeID, ua.HasSubtypeID, ua.FolderTypeID)
	s.linkLocked(ua.BaseDataVariableTypeID, ua.HasSubtypeID, ua.PropertyTypeID)

	for _, f := range folders {
		s.nodes[f.id] = s.newNode(NodeSpec{ID: f.id, Class: ua.NodeClassObject, BrowseName: ua.NewQualifiedName(0, f.name)})
		s.linkLocked(f.id, ua.HasTypeDefinitionID, ua.FolderTypeID)
	}
	for _, f := range folders[1:] {
		s.linkLocked(ua.RootFolderID, ua.OrganizesID, f.id)
	}
}

func (s *Space) newNode(spec NodeSpec) *node {
	n := &node{
		id:          spec.ID,
		class:       spec.Class,
		browseName:  spec.BrowseName,
		displayName: spec.DisplayName,
		description: spec.Description,
		dataType:    spec.DataType,
		value:       spec.Value,
	}
	if n.displayName == (ua.LocalizedText{}) {
		n.displayName = ua.NewLocalizedText(spec.BrowseName.Name)
	}
	return n
}

// AddNode adds a node and, if Parent is set, links it under its parent.
func (s *Space) AddNode(spec NodeSpec) error {
	if spec.ID.IsNull() {
		return fmt.Errorf("%w: null node id", ErrUnknownNode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[spec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, spec.ID)
	}
	if !spec.Parent.IsNull() {
		if _, ok := s.nodes[spec.Parent]; !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownNode, spec.Parent)
		}
	}
	refType := spec.ReferenceType
	if refType.IsNull() {
		refType = ua.HasComponentID
	}
	if !spec.Parent.IsNull() {
		if !s.isReferenceTypeLocked(refType) {
			return fmt.Errorf("%w: %s", ErrUnknownReferenceType, refType)
		}
	}
	typeDef := spec.TypeDefinition
	if typeDef.IsNull() {
		switch spec.Class {
		case ua.NodeClassObject:
			typeDef = ua.BaseObjectTypeID
		case ua.NodeClassVariable:
			typeDef = ua.BaseDataVariableTypeID
		}
	}
	if !typeDef.IsNull() {
		if _, ok := s.nodes[typeDef]; !ok {
			return fmt.Errorf("%w: type definition %s", ErrUnknownNode, typeDef)
		}
	}

	s.nodes[spec.ID] = s.newNode(spec)
	if !spec.Parent.IsNull() {
		s.linkLocked(spec.Parent, refType, spec.ID)
	}
	if !typeDef.IsNull() {
		s.linkLocked(spec.ID, ua.HasTypeDefinitionID, typeDef)
	}
	return nil
}

// AddReference adds source -[refType]-> target and its inverse.
func (s *Space) AddReference(source, refType, target ua.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[source]; !ok {
		return fmt.Errorf("%w: source %s", ErrUnknownNode, source)
	}
	if _, ok := s.nodes[target]; !ok {
		return fmt.Errorf("%w: target %s", ErrUnknownNode, target)
	}
	if !s.isReferenceTypeLocked(refType) {
		return fmt.Errorf("%w: %s", ErrUnknownReferenceType, refType)
	}
	s.linkLocked(source, refType, target)
	return nil
}

// AddReferenceType defines a custom reference type below supertype.
func (s *Space) AddReferenceType(id ua.NodeID, browseName ua.QualifiedName, supertype ua.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	if !s.isReferenceTypeLocked(supertype) {
		return fmt.Errorf("%w: supertype %s", ErrUnknownReferenceType, supertype)
	}
	s.addReferenceTypeLocked(id, browseName, supertype)
	return nil
}

// SetValue replaces the value of a variable node.
func (s *Space) SetValue(id ua.NodeID, v ua.Variant) error {
	s.mu.RLock()
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.mu.Lock()
	n.value = v
	n.mu.Unlock()
	return nil
}

// Len returns the number of nodes.
func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// ReplaceGraph atomically swaps this space's nodes and reference types for
// those of src. Registered methods are kept. src must not be used afterwards.
func (s *Space) ReplaceGraph(src *Space) {
	src.mu.Lock()
	nodes, supertypes, names := src.nodes, src.supertypes, src.refTypeNames
	src.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes, s.supertypes, s.refTypeNames = nodes, supertypes, names
}

// ResolveReferenceType implements addressspace.ReferenceTypeResolver.
func (s *Space) ResolveReferenceType(_ context.Context, name string) (ua.NodeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.refTypeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, true
	}
	if id, err := ua.ParseNodeID(name); err == nil && s.isReferenceTypeLocked(id) {
		return id, true
	}
	return ua.NodeID{}, false
}

func (s *Space) addReferenceTypeLocked(id ua.NodeID, browseName ua.QualifiedName, supertype ua.NodeID) {
	s.nodes[id] = s.newNode(NodeSpec{ID: id, Class: ua.NodeClassReferenceType, BrowseName: browseName})
	s.supertypes[id] = supertype
	s.refTypeNames[strings.ToLower(browseName.Name)] = id
	if !supertype.IsNull() {
		s.linkLocked(supertype, ua.HasSubtypeID, id)
	}
}

func (s *Space) isReferenceTypeLocked(id ua.NodeID) bool {
	_, ok := s.supertypes[id]
	return ok
}

// isSubtypeLocked reports whether t equals parent or derives from it.
func (s *Space) isSubtypeLocked(t, parent ua.NodeID) bool {
	for seen := 0; seen < len(s.supertypes)+1; seen++ {
		if t == parent {
			return true
		}
		next, ok := s.supertypes[t]
		if !ok || next.IsNull() {
			return false
		}
		t = next
	}
	return false
}

func (s *Space) linkLocked(source, refType, target ua.NodeID) {
	if src, ok := s.nodes[source]; ok {
		src.refs = append(src.refs, reference{typeID: refType, target: target, forward: true})
	}
	if dst, ok := s.nodes[target]; ok {
		dst.refs = append(dst.refs, reference{typeID: refType, target: source, forward: false})
	}
}
