// Package nodeset builds a memspace.Space from a TOML description and keeps
// it in sync with the file on disk.
//
// File layout:
//
//	[[reference_type]]
//	id        = "ns=1;i=5000"
//	name      = "Feeds"
//	supertype = "NonHierarchicalReferences"
//
//	[[node]]
//	id             = "ns=1;s=Boiler"
//	class          = "Object"
//	browse_name    = "Boiler"          # "2:Boiler" selects another namespace
//	parent         = "i=85"
//	reference_type = "Organizes"       # defaults to HasComponent
//
//	[[node]]
//	id          = "ns=1;s=Boiler.Temperature"
//	class       = "Variable"
//	browse_name = "Temperature"
//	parent      = "ns=1;s=Boiler"
//	value       = 21.5
//
//	[[reference]]
//	source = "ns=1;s=Valve"
//	type   = "Feeds"
//	target = "ns=1;s=Boiler"
//
// Reference types are added first, then nodes in file order, then extra
// references. A node must be declared after its parent and type definition.
// Reference types may be given by browse name or node id.
package nodeset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ggoodman/opcua-pseudosession-go/addressspace/memspace"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// ErrInvalidNodeset is returned for structurally valid TOML that does not
// describe a valid address space.
var ErrInvalidNodeset = errors.New("nodeset: invalid nodeset")

type file struct {
	ReferenceTypes []referenceTypeEntry `toml:"reference_type"`
	Nodes          []nodeEntry          `toml:"node"`
	References     []referenceEntry     `toml:"reference"`
}

type referenceTypeEntry struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	Supertype string `toml:"supertype"`
}

type nodeEntry struct {
	ID             string `toml:"id"`
	Class          string `toml:"class"`
	BrowseName     string `toml:"browse_name"`
	DisplayName    string `toml:"display_name"`
	Description    string `toml:"description"`
	Parent         string `toml:"parent"`
	ReferenceType  string `toml:"reference_type"`
	TypeDefinition string `toml:"type_definition"`
	DataType       string `toml:"data_type"`
	Value          any    `toml:"value"`
}

type referenceEntry struct {
	Source string `toml:"source"`
	Type   string `toml:"type"`
	Target string `toml:"target"`
}

// Load reads and builds the nodeset at path.
func Load(path string) (*memspace.Space, error) {
	var f file
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("load nodeset %s: %w", path, err)
	}
	return build(f, meta)
}

// Parse builds a nodeset from TOML text.
func Parse(data string) (*memspace.Space, error) {
	var f file
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parse nodeset: %w", err)
	}
	return build(f, meta)
}

func build(f file, meta toml.MetaData) (*memspace.Space, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidNodeset, undecoded[0].String())
	}

	s := memspace.New()
	for i, rt := range f.ReferenceTypes {
		id, err := parseID(rt.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: reference_type[%d]: %v", ErrInvalidNodeset, i, err)
		}
		super := ua.ReferencesID
		if rt.Supertype != "" {
			var ok bool
			if super, ok = s.ResolveReferenceType(context.Background(), rt.Supertype); !ok {
				return nil, fmt.Errorf("%w: reference_type[%d]: unknown supertype %q", ErrInvalidNodeset, i, rt.Supertype)
			}
		}
		if strings.TrimSpace(rt.Name) == "" {
			return nil, fmt.Errorf("%w: reference_type[%d]: missing name", ErrInvalidNodeset, i)
		}
		if err := s.AddReferenceType(id, browseName(rt.Name, id), super); err != nil {
			return nil, fmt.Errorf("reference_type[%d]: %w", i, err)
		}
	}

	for i, n := range f.Nodes {
		spec, err := nodeSpec(s, n)
		if err != nil {
			return nil, fmt.Errorf("%w: node[%d]: %v", ErrInvalidNodeset, i, err)
		}
		if err := s.AddNode(spec); err != nil {
			return nil, fmt.Errorf("node[%d]: %w", i, err)
		}
	}

	for i, r := range f.References {
		src, err := parseID(r.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: reference[%d]: source: %v", ErrInvalidNodeset, i, err)
		}
		dst, err := parseID(r.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: reference[%d]: target: %v", ErrInvalidNodeset, i, err)
		}
		refType, ok := s.ResolveReferenceType(context.Background(), r.Type)
		if !ok {
			return nil, fmt.Errorf("%w: reference[%d]: unknown type %q", ErrInvalidNodeset, i, r.Type)
		}
		if err := s.AddReference(src, refType, dst); err != nil {
			return nil, fmt.Errorf("reference[%d]: %w", i, err)
		}
	}
	return s, nil
}

func nodeSpec(s *memspace.Space, n nodeEntry) (memspace.NodeSpec, error) {
	id, err := parseID(n.ID)
	if err != nil {
		return memspace.NodeSpec{}, err
	}
	class, ok := ua.ParseNodeClass(n.Class)
	if !ok {
		return memspace.NodeSpec{}, fmt.Errorf("unknown class %q", n.Class)
	}
	if strings.TrimSpace(n.BrowseName) == "" {
		return memspace.NodeSpec{}, errors.New("missing browse_name")
	}
	spec := memspace.NodeSpec{
		ID:          id,
		Class:       class,
		BrowseName:  browseName(n.BrowseName, id),
		DisplayName: ua.NewLocalizedText(n.DisplayName),
		Description: ua.NewLocalizedText(n.Description),
		Value:       n.Value,
	}
	if spec.Parent, err = parseOptionalID(n.Parent); err != nil {
		return memspace.NodeSpec{}, fmt.Errorf("parent: %w", err)
	}
	if spec.TypeDefinition, err = parseOptionalID(n.TypeDefinition); err != nil {
		return memspace.NodeSpec{}, fmt.Errorf("type_definition: %w", err)
	}
	if spec.DataType, err = parseOptionalID(n.DataType); err != nil {
		return memspace.NodeSpec{}, fmt.Errorf("data_type: %w", err)
	}
	if n.ReferenceType != "" {
		if spec.ReferenceType, ok = s.ResolveReferenceType(context.Background(), n.ReferenceType); !ok {
			return memspace.NodeSpec{}, fmt.Errorf("unknown reference_type %q", n.ReferenceType)
		}
	}
	return spec, nil
}

func parseID(s string) (ua.NodeID, error) {
	if strings.TrimSpace(s) == "" {
		return ua.NodeID{}, errors.New("missing node id")
	}
	return ua.ParseNodeID(strings.TrimSpace(s))
}

func parseOptionalID(s string) (ua.NodeID, error) {
	if strings.TrimSpace(s) == "" {
		return ua.NodeID{}, nil
	}
	return ua.ParseNodeID(strings.TrimSpace(s))
}

// browseName qualifies an unprefixed name with the node's namespace.
func browseName(s string, id ua.NodeID) ua.QualifiedName {
	q := ua.ParseQualifiedName(strings.TrimSpace(s))
	if q.NamespaceIndex == 0 && !strings.HasPrefix(strings.TrimSpace(s), "0:") {
		q.NamespaceIndex = id.Namespace
	}
	return q
}
