package memspace

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

var _ addressspace.Node = (*node)(nil)

type reference struct {
	typeID  ua.NodeID
	target  ua.NodeID
	forward bool
}

type node struct {
	id          ua.NodeID
	class       ua.NodeClass
	browseName  ua.QualifiedName
	displayName ua.LocalizedText
	description ua.LocalizedText
	dataType    ua.NodeID

	mu    sync.RWMutex
	value ua.Variant

	refs []reference
}

func (n *node) NodeID() ua.NodeID { return n.id }

func (n *node) NodeClass() ua.NodeClass { return n.class }

func (n *node) BrowseName() ua.QualifiedName { return n.browseName }

// ReadAttribute implements addressspace.Node.
func (n *node) ReadAttribute(_ context.Context, attr ua.AttributeID, indexRange string, encoding ua.QualifiedName) ua.DataValue {
	if !encoding.IsZero() {
		if attr != ua.AttributeValue {
			return ua.NewStatusDataValue(ua.BadDataEncodingInvalid)
		}
		return ua.NewStatusDataValue(ua.BadDataEncodingUnsupported)
	}
	if indexRange != "" && attr != ua.AttributeValue {
		return ua.NewStatusDataValue(ua.BadIndexRangeNoData)
	}

	switch attr {
	case ua.AttributeNodeID:
		return ua.NewDataValue(n.id)
	case ua.AttributeNodeClass:
		return ua.NewDataValue(n.class)
	case ua.AttributeBrowseName:
		return ua.NewDataValue(n.browseName)
	case ua.AttributeDisplayName:
		return ua.NewDataValue(n.displayName)
	case ua.AttributeDescription:
		return ua.NewDataValue(n.description)
	case ua.AttributeDataType:
		if !n.hasValue() {
			return ua.NewStatusDataValue(ua.BadAttributeIDInvalid)
		}
		return ua.NewDataValue(n.dataType)
	case ua.AttributeValue:
		if !n.hasValue() {
			return ua.NewStatusDataValue(ua.BadAttributeIDInvalid)
		}
		n.mu.RLock()
		v := n.value
		n.mu.RUnlock()
		if indexRange == "" {
			return ua.NewDataValue(v)
		}
		sub, code := applyIndexRange(v, indexRange)
		if code != ua.Good {
			return ua.NewStatusDataValue(code)
		}
		return ua.NewDataValue(sub)
	default:
		return ua.NewStatusDataValue(ua.BadAttributeIDInvalid)
	}
}

func (n *node) hasValue() bool {
	return n.class == ua.NodeClassVariable || n.class == ua.NodeClassVariableType
}

// typeDefinitionLocked returns the target of the first HasTypeDefinition
// reference, if any.
func (n *node) typeDefinitionLocked() ua.NodeID {
	for _, r := range n.refs {
		if r.forward && r.typeID == ua.HasTypeDefinitionID {
			return r.target
		}
	}
	return ua.NodeID{}
}

// parseIndexRange parses a one-dimensional range "i" or "lo:hi" (lo < hi).
func parseIndexRange(s string) (lo, hi int, ok bool) {
	if strings.Contains(s, ",") {
		return 0, 0, false
	}
	a, b, isRange := strings.Cut(s, ":")
	lo, err := strconv.Atoi(a)
	if err != nil || lo < 0 {
		return 0, 0, false
	}
	if !isRange {
		return lo, lo, true
	}
	hi, err = strconv.Atoi(b)
	if err != nil || hi <= lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// applyIndexRange slices strings, byte strings and arrays. The upper bound is
// clamped to the value's length.
func applyIndexRange(v ua.Variant, indexRange string) (ua.Variant, ua.StatusCode) {
	lo, hi, ok := parseIndexRange(indexRange)
	if !ok {
		return nil, ua.BadIndexRangeInvalid
	}
	if v == nil {
		return nil, ua.BadIndexRangeNoData
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array:
	default:
		return nil, ua.BadIndexRangeNoData
	}
	if lo >= rv.Len() {
		return nil, ua.BadIndexRangeNoData
	}
	if hi >= rv.Len() {
		hi = rv.Len() - 1
	}
	if rv.Kind() == reflect.String {
		return rv.Slice(lo, hi+1).Interface(), ua.Good
	}
	if rv.Kind() == reflect.Array {
		arr := reflect.New(rv.Type()).Elem()
		arr.Set(rv)
		rv = arr
	}
	out := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), hi-lo+1, hi-lo+1)
	reflect.Copy(out, rv.Slice(lo, hi+1))
	return out.Interface(), ua.Good
}
