// Package batch normalizes the two request shapes every session operation
// accepts: a single item or an ordered sequence of items. Operations work on
// the sequence form internally and hand back a Response that remembers
// whether the caller asked with a scalar, so the result can be unwrapped to
// the same shape.
package batch

// Request is a tagged Single(T) | Batch([]T) variant. The zero value is an
// empty batch.
type Request[T any] struct {
	items  []T
	scalar bool
}

// One builds a scalar request.
func One[T any](item T) Request[T] {
	return Request[T]{items: []T{item}, scalar: true}
}

// Of builds a batch request. The slice is copied; later mutation by the
// caller does not affect the request.
func Of[T any](items ...T) Request[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return Request[T]{items: cp}
}

// Items returns the request items in order.
func (r Request[T]) Items() []T { return r.items }

// Len returns the number of items.
func (r Request[T]) Len() int { return len(r.items) }

// IsScalar reports whether the request was built with One.
func (r Request[T]) IsScalar() bool { return r.scalar }

// Response carries one result per request item, in request order, tagged
// with the shape of the originating request.
//
// Results is never nil for a batch response; an empty request yields an
// empty, non-nil slice.
type Response[R any] struct {
	results []R
	scalar  bool
}

// IsScalar reports whether the originating request was scalar.
func (r Response[R]) IsScalar() bool { return r.scalar }

// Len returns the number of results.
func (r Response[R]) Len() int { return len(r.results) }

// All returns every result in request order.
func (r Response[R]) All() []R { return r.results }

// Single returns the first result. It is the unwrapped form for scalar
// requests; for batches it returns the zero value when there are no results.
func (r Response[R]) Single() R {
	if len(r.results) == 0 {
		var zero R
		return zero
	}
	return r.results[0]
}

// Value returns the shape-preserving form: R for scalar requests, []R for
// batches. It exists for boundary adapters that must return "whatever the
// caller sent".
func (r Response[R]) Value() any {
	if r.scalar {
		return r.Single()
	}
	return r.results
}

// Map runs fn once per item in request order and collects the results into a
// Response of the same shape.
func Map[T, R any](req Request[T], fn func(i int, item T) R) Response[R] {
	out := make([]R, len(req.items))
	for i, item := range req.items {
		out[i] = fn(i, item)
	}
	return Response[R]{results: out, scalar: req.scalar}
}

// MapErr is Map for passes that can abort. The first error stops the pass
// and no partial response is returned.
func MapErr[T, R any](req Request[T], fn func(i int, item T) (R, error)) (Response[R], error) {
	out := make([]R, len(req.items))
	for i, item := range req.items {
		r, err := fn(i, item)
		if err != nil {
			return Response[R]{}, err
		}
		out[i] = r
	}
	return Response[R]{results: out, scalar: req.scalar}, nil
}

// Collect wraps results computed elsewhere (for example by a fan-out that
// wrote into an indexed slice) into a Response shaped like req. It panics if
// the lengths differ since that breaks the one-result-per-item contract.
func Collect[T, R any](req Request[T], results []R) Response[R] {
	if len(results) != len(req.items) {
		panic("batch: result count does not match request item count")
	}
	if results == nil {
		results = make([]R, 0)
	}
	return Response[R]{results: results, scalar: req.scalar}
}
