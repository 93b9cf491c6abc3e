package memspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

// MethodHandler implements one method. Returning a ua.StatusCode as the
// error reports that status on the call result; any other error is a fault.
type MethodHandler func(ctx context.Context, objectID ua.NodeID, args []ua.Variant) ([]ua.Variant, error)

// RegisterMethod binds h to the method node id, replacing any previous
// handler. The node must already exist with class Method.
func (s *Space) RegisterMethod(id ua.NodeID, h MethodHandler) error {
	s.mu.RLock()
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if n.class != ua.NodeClassMethod {
		return fmt.Errorf("%w: %s is %s", ErrNotAMethod, id, n.class)
	}

	s.methodsMu.Lock()
	s.methods[id] = h
	s.methodsMu.Unlock()
	return nil
}

// Call implements addressspace.MethodService.
func (s *Space) Call(ctx context.Context, req ua.CallMethodRequest) (ua.CallMethodResult, error) {
	s.mu.RLock()
	_, objectOK := s.nodes[req.ObjectID]
	s.mu.RUnlock()
	if !objectOK {
		return ua.CallMethodResult{StatusCode: ua.BadNodeIDUnknown}, nil
	}

	s.methodsMu.RLock()
	h, ok := s.methods[req.MethodID]
	s.methodsMu.RUnlock()
	if !ok {
		return ua.CallMethodResult{StatusCode: ua.BadMethodInvalid}, nil
	}

	out, err := h(ctx, req.ObjectID, req.InputArguments)
	if err != nil {
		var code ua.StatusCode
		if errors.As(err, &code) {
			return ua.CallMethodResult{StatusCode: code}, nil
		}
		return ua.CallMethodResult{}, err
	}
	return ua.CallMethodResult{StatusCode: ua.Good, OutputArguments: out}, nil
}

// CheckArgumentCount returns BadArgumentsMissing or BadTooManyArguments when
// args does not hold exactly n values. Handlers can return it directly.
func CheckArgumentCount(args []ua.Variant, n int) error {
	switch {
	case len(args) < n:
		return ua.BadArgumentsMissing
	case len(args) > n:
		return ua.BadTooManyArguments
	}
	return nil
}
