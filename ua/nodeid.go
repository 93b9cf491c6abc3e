package ua

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDType identifies which identifier form a NodeID carries.
type IDType uint8

const (
	IDTypeNumeric IDType = iota
	IDTypeString
	IDTypeGUID
	IDTypeOpaque
)

// ErrInvalidNodeID is returned by ParseNodeID for malformed input.
var ErrInvalidNodeID = errors.New("ua: invalid node id")

// NodeID identifies a node in an address space. The zero value is the null
// node id (ns=0;i=0).
//
// NodeID is comparable: two ids are equal when namespace, identifier type and
// identifier are equal. GUID identifiers are stored in canonical lowercase
// form and opaque identifiers as their raw bytes.
type NodeID struct {
	Namespace uint16
	Type      IDType
	numeric   uint32
	ident     string
}

// NewNumericNodeID returns a numeric node id.
func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeNumeric, numeric: id}
}

// NewStringNodeID returns a string node id.
func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeString, ident: id}
}

// NewGUIDNodeID returns a GUID node id.
func NewGUIDNodeID(ns uint16, id uuid.UUID) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeGUID, ident: id.String()}
}

// NewOpaqueNodeID returns an opaque (byte string) node id.
func NewOpaqueNodeID(ns uint16, id []byte) NodeID {
	return NodeID{Namespace: ns, Type: IDTypeOpaque, ident: string(id)}
}

// IsNull reports whether n is the null node id.
func (n NodeID) IsNull() bool {
	switch n.Type {
	case IDTypeNumeric:
		return n.Namespace == 0 && n.numeric == 0
	case IDTypeGUID:
		return n.Namespace == 0 && n.ident == uuid.Nil.String()
	default:
		return n.Namespace == 0 && n.ident == ""
	}
}

// Numeric returns the numeric identifier; zero for other id types.
func (n NodeID) Numeric() uint32 { return n.numeric }

// StringID returns the string identifier; empty for other id types.
func (n NodeID) StringID() string {
	if n.Type != IDTypeString {
		return ""
	}
	return n.ident
}

// String formats n in the ns=<n>;<t>=<id> notation. Namespace 0 is omitted.
func (n NodeID) String() string {
	var b strings.Builder
	if n.Namespace != 0 {
		b.WriteString("ns=")
		b.WriteString(strconv.FormatUint(uint64(n.Namespace), 10))
		b.WriteByte(';')
	}
	switch n.Type {
	case IDTypeNumeric:
		b.WriteString("i=")
		b.WriteString(strconv.FormatUint(uint64(n.numeric), 10))
	case IDTypeString:
		b.WriteString("s=")
		b.WriteString(n.ident)
	case IDTypeGUID:
		b.WriteString("g=")
		b.WriteString(n.ident)
	case IDTypeOpaque:
		b.WriteString("b=")
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(n.ident)))
	}
	return b.String()
}

// ParseNodeID parses the text notation produced by NodeID.String.
func ParseNodeID(s string) (NodeID, error) {
	rest := strings.TrimSpace(s)
	var ns uint16
	if strings.HasPrefix(rest, "ns=") {
		sep := strings.IndexByte(rest, ';')
		if sep < 0 {
			return NodeID{}, fmt.Errorf("%w: %q: missing ';' after namespace", ErrInvalidNodeID, s)
		}
		v, err := strconv.ParseUint(rest[3:sep], 10, 16)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q: namespace: %v", ErrInvalidNodeID, s, err)
		}
		ns = uint16(v)
		rest = rest[sep+1:]
	}
	if len(rest) < 2 || rest[1] != '=' {
		return NodeID{}, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	id := rest[2:]
	switch rest[0] {
	case 'i':
		v, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q: numeric identifier: %v", ErrInvalidNodeID, s, err)
		}
		return NewNumericNodeID(ns, uint32(v)), nil
	case 's':
		return NewStringNodeID(ns, id), nil
	case 'g':
		u, err := uuid.Parse(id)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q: guid identifier: %v", ErrInvalidNodeID, s, err)
		}
		return NewGUIDNodeID(ns, u), nil
	case 'b':
		raw, err := base64.StdEncoding.DecodeString(id)
		if err != nil {
			return NodeID{}, fmt.Errorf("%w: %q: opaque identifier: %v", ErrInvalidNodeID, s, err)
		}
		return NewOpaqueNodeID(ns, raw), nil
	default:
		return NodeID{}, fmt.Errorf("%w: %q: unknown identifier type %q", ErrInvalidNodeID, s, rest[0])
	}
}

// MustParseNodeID is like ParseNodeID but panics on error. It is meant for
// package-level tables and tests.
func MustParseNodeID(s string) NodeID {
	n, err := ParseNodeID(s)
	if err != nil {
		panic(err)
	}
	return n
}

// MarshalText implements encoding.TextMarshaler.
func (n NodeID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NodeID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*n = NodeID{}
		return nil
	}
	v, err := ParseNodeID(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
