// Package storetest provides a conformance suite for continuation.Store
// implementations. Backends call RunStoreTests from their own _test.go file
// with a factory returning a fresh, empty store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
	"github.com/google/uuid"
)

// StoreFactory creates a new Store instance for testing.
type StoreFactory func(t *testing.T) continuation.Store

// RunStoreTests runs the complete Store test suite against the provided factory.
func RunStoreTests(t *testing.T, factory StoreFactory) {
	t.Run("PutThenTake", func(t *testing.T) { testPutThenTake(t, factory) })
	t.Run("TakeIsSingleUse", func(t *testing.T) { testTakeIsSingleUse(t, factory) })
	t.Run("TakeUnknown", func(t *testing.T) { testTakeUnknown(t, factory) })
	t.Run("ConcurrentTakeOneWinner", func(t *testing.T) { testConcurrentTakeOneWinner(t, factory) })
	t.Run("DeletePrefixScopesToNamespace", func(t *testing.T) { testDeletePrefix(t, factory) })
	t.Run("ManagerPaginationRoundTrip", func(t *testing.T) { testManagerRoundTrip(t, factory) })
}

// uniqueKey avoids collisions between runs against a shared backend.
func uniqueKey(name string) string {
	return "storetest-" + uuid.NewString() + ":" + name
}

func sampleEntry(n int) continuation.Entry {
	refs := make([]ua.ReferenceDescription, n)
	for i := range refs {
		refs[i] = ua.ReferenceDescription{
			ReferenceTypeID: ua.HasComponentID,
			IsForward:       true,
			NodeID:          ua.NewNumericNodeID(1, uint32(1000+i)),
			BrowseName:      ua.NewQualifiedName(1, fmt.Sprintf("Item%d", i)),
			DisplayName:     ua.NewLocalizedText(fmt.Sprintf("Item %d", i)),
			NodeClass:       ua.NodeClassVariable,
		}
	}
	return continuation.Entry{References: refs, MaxPerPage: 3}
}

func testPutThenTake(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := uniqueKey("a")
	want := sampleEntry(5)
	if err := s.Put(ctx, key, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Take(ctx, key)
	if err != nil || !ok {
		t.Fatalf("take: ok=%v err=%v", ok, err)
	}
	if got.MaxPerPage != want.MaxPerPage {
		t.Fatalf("MaxPerPage = %d, want %d", got.MaxPerPage, want.MaxPerPage)
	}
	if len(got.References) != len(want.References) {
		t.Fatalf("len(References) = %d, want %d", len(got.References), len(want.References))
	}
	for i := range want.References {
		if got.References[i] != want.References[i] {
			t.Fatalf("reference %d = %#v, want %#v", i, got.References[i], want.References[i])
		}
	}
}

func testTakeIsSingleUse(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := uniqueKey("once")
	if err := s.Put(ctx, key, sampleEntry(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, err := s.Take(ctx, key); err != nil || !ok {
		t.Fatalf("first take: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Take(ctx, key); err != nil || ok {
		t.Fatalf("second take: ok=%v err=%v, want ok=false", ok, err)
	}
}

func testTakeUnknown(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, ok, err := s.Take(ctx, uniqueKey("missing")); err != nil || ok {
		t.Fatalf("take unknown: ok=%v err=%v", ok, err)
	}
}

func testConcurrentTakeOneWinner(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := uniqueKey("race")
	if err := s.Put(ctx, key, sampleEntry(2)); err != nil {
		t.Fatalf("put: %v", err)
	}

	const racers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, err := s.Take(ctx, key); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("winners = %d, want exactly 1", got)
	}
}

func testDeletePrefix(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nsA := "storetest-" + uuid.NewString() + ":"
	nsB := "storetest-" + uuid.NewString() + ":"
	for i := 0; i < 3; i++ {
		if err := s.Put(ctx, fmt.Sprintf("%s%d", nsA, i), sampleEntry(1)); err != nil {
			t.Fatalf("put a: %v", err)
		}
	}
	keyB := nsB + "0"
	if err := s.Put(ctx, keyB, sampleEntry(1)); err != nil {
		t.Fatalf("put b: %v", err)
	}

	if err := s.DeletePrefix(ctx, nsA); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, ok, _ := s.Take(ctx, fmt.Sprintf("%s%d", nsA, i)); ok {
			t.Fatalf("key %d of deleted namespace still present", i)
		}
	}
	if _, ok, err := s.Take(ctx, keyB); err != nil || !ok {
		t.Fatalf("other namespace affected: ok=%v err=%v", ok, err)
	}
}

func testManagerRoundTrip(t *testing.T, factory StoreFactory) {
	s := factory(t)
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := continuation.NewManager(s)
	full := sampleEntry(10).References

	res, err := m.Register(ctx, 4, ua.BrowseResult{StatusCode: ua.Good, References: full})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var got []ua.ReferenceDescription
	got = append(got, res.References...)
	for res.ContinuationPoint != nil {
		res = m.GetNext(ctx, res.ContinuationPoint)
		if res.StatusCode != ua.Good {
			t.Fatalf("GetNext status = %v", res.StatusCode)
		}
		got = append(got, res.References...)
	}
	if len(got) != len(full) {
		t.Fatalf("collected %d references, want %d", len(got), len(full))
	}
	for i := range full {
		if got[i] != full[i] {
			t.Fatalf("reference %d out of order", i)
		}
	}
}
