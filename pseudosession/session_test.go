package pseudosession_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ggoodman/opcua-pseudosession-go/addressspace"
	"github.com/ggoodman/opcua-pseudosession-go/addressspace/memspace"
	"github.com/ggoodman/opcua-pseudosession-go/batch"
	"github.com/ggoodman/opcua-pseudosession-go/continuation"
	"github.com/ggoodman/opcua-pseudosession-go/continuation/memorystore"
	"github.com/ggoodman/opcua-pseudosession-go/pseudosession"
	"github.com/ggoodman/opcua-pseudosession-go/scheduler"
	"github.com/ggoodman/opcua-pseudosession-go/ua"
)

var (
	plantID      = ua.NewStringNodeID(1, "Plant")
	controllerID = ua.NewStringNodeID(1, "Controller")
	okMethodID   = ua.NewStringNodeID(1, "Controller.Echo")
	errMethodID  = ua.NewStringNodeID(1, "Controller.Fail")
	panicID      = ua.NewStringNodeID(1, "Controller.Panic")
	argsMethodID = ua.NewStringNodeID(1, "Controller.NeedsArgs")
	whoAmIID     = ua.NewStringNodeID(1, "Controller.WhoAmI")
	slowMethodID = ua.NewStringNodeID(1, "Controller.Slow")
)

func itemID(i int) ua.NodeID { return ua.NewNumericNodeID(1, uint32(100+i)) }

func newSpace(t *testing.T) *memspace.Space {
	t.Helper()
	s := memspace.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.AddNode(memspace.NodeSpec{ID: plantID, Class: ua.NodeClassObject, BrowseName: ua.NewQualifiedName(1, "Plant"), Parent: ua.ObjectsFolderID, ReferenceType: ua.OrganizesID}))
	for i := 0; i < 10; i++ {
		must(s.AddNode(memspace.NodeSpec{
			ID:            itemID(i),
			Class:         ua.NodeClassVariable,
			BrowseName:    ua.NewQualifiedName(1, fmt.Sprintf("Item%d", i)),
			Parent:        plantID,
			ReferenceType: ua.OrganizesID,
			Value:         int32(i),
		}))
	}

	must(s.AddNode(memspace.NodeSpec{ID: controllerID, Class: ua.NodeClassObject, BrowseName: ua.NewQualifiedName(1, "Controller"), Parent: ua.ObjectsFolderID}))
	methods := map[ua.NodeID]memspace.MethodHandler{
		okMethodID: func(_ context.Context, _ ua.NodeID, args []ua.Variant) ([]ua.Variant, error) {
			return args, nil
		},
		errMethodID: func(context.Context, ua.NodeID, []ua.Variant) ([]ua.Variant, error) {
			return nil, errors.New("actuator offline")
		},
		panicID: func(context.Context, ua.NodeID, []ua.Variant) ([]ua.Variant, error) {
			panic("nil actuator")
		},
		argsMethodID: func(_ context.Context, _ ua.NodeID, args []ua.Variant) ([]ua.Variant, error) {
			if err := memspace.CheckArgumentCount(args, 2); err != nil {
				return nil, err
			}
			return nil, nil
		},
		whoAmIID: func(ctx context.Context, _ ua.NodeID, _ []ua.Variant) ([]ua.Variant, error) {
			info, ok := addressspace.SessionFromContext(ctx)
			if !ok {
				return nil, errors.New("no session in context")
			}
			return []ua.Variant{info.SessionID}, nil
		},
		slowMethodID: func(_ context.Context, _ ua.NodeID, args []ua.Variant) ([]ua.Variant, error) {
			d, _ := args[0].(time.Duration)
			time.Sleep(d)
			return args, nil
		},
	}
	for id, h := range methods {
		must(s.AddNode(memspace.NodeSpec{ID: id, Class: ua.NodeClassMethod, BrowseName: ua.NewQualifiedName(1, id.StringID()), Parent: controllerID}))
		must(s.RegisterMethod(id, h))
	}
	return s
}

func newSession(t *testing.T, space addressspace.AddressSpace, opts ...pseudosession.Option) (*pseudosession.Session, *scheduler.Manual) {
	t.Helper()
	m := scheduler.NewManual()
	sess, err := pseudosession.New(space, append([]pseudosession.Option{pseudosession.WithScheduler(m)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close(context.Background())
		m.Drain()
	})
	return sess, m
}

// settle asserts that f is still pending, runs the scheduler and returns the
// outcome.
func settle[T any](t *testing.T, m *scheduler.Manual, f *scheduler.Future[T]) (T, error) {
	t.Helper()
	if _, _, ok := f.Result(); ok {
		t.Fatal("future completed synchronously")
	}
	m.Drain()
	v, err, ok := f.Result()
	if !ok {
		t.Fatal("future not completed after scheduler drain")
	}
	return v, err
}

func plantBrowse() ua.BrowseDescription {
	return ua.BrowseDescription{
		NodeID:          plantID,
		BrowseDirection: ua.BrowseDirectionForward,
		ReferenceTypeID: ua.OrganizesID,
		ResultMask:      ua.ResultMaskAll,
	}
}

func TestNoSynchronousCompletion(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t))

	f := sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(1)}))
	if m.Pending() != 1 {
		t.Fatalf("pending tasks = %d, want 1", m.Pending())
	}
	called := false
	f.Then(func(batch.Response[ua.DataValue], error) { called = true })
	if called {
		t.Fatal("callback ran inside Then")
	}
	m.Step()
	if !called {
		t.Fatal("callback did not run on the completion turn")
	}
	v, err, ok := f.Result()
	if !ok || err != nil || v.Single().Value != int32(1) {
		t.Fatalf("result = %v %v %v", v.Single(), err, ok)
	}

	// Callbacks attached after completion still wait for a turn.
	late := false
	f.Then(func(batch.Response[ua.DataValue], error) { late = true })
	if late {
		t.Fatal("late callback ran synchronously")
	}
	m.Drain()
	if !late {
		t.Fatal("late callback never ran")
	}
}

func TestShapePreservation(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t))

	one, err := settle(t, m, sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(3)})))
	if err != nil {
		t.Fatal(err)
	}
	if !one.IsScalar() || one.Single().Value != int32(3) {
		t.Fatalf("scalar read = %#v", one)
	}

	many, err := settle(t, m, sess.Read(ctx, batch.Of(
		ua.ReadValueID{NodeID: itemID(5)},
		ua.ReadValueID{NodeID: itemID(0)},
		ua.ReadValueID{NodeID: itemID(9)},
	)))
	if err != nil {
		t.Fatal(err)
	}
	if many.IsScalar() || many.Len() != 3 {
		t.Fatalf("batch read shape: scalar=%v len=%d", many.IsScalar(), many.Len())
	}
	for i, want := range []int32{5, 0, 9} {
		if got := many.All()[i].Value; got != want {
			t.Fatalf("item %d = %v, want %d", i, got, want)
		}
	}

	single, err := settle(t, m, sess.Read(ctx, batch.Of(ua.ReadValueID{NodeID: itemID(2)})))
	if err != nil {
		t.Fatal(err)
	}
	if single.IsScalar() || single.Len() != 1 {
		t.Fatal("one-element batch collapsed to a scalar")
	}
}

func TestBrowseTenByFour(t *testing.T) {
	ctx := context.Background()
	space := newSpace(t)
	sess, m := newSession(t, space, pseudosession.WithMaxReferencesPerNode(4))

	full := space.BrowseSingleNode(ctx, plantID, plantBrowse()).References
	if len(full) != 10 {
		t.Fatalf("fixture has %d references", len(full))
	}

	first, err := settle(t, m, sess.Browse(ctx, batch.One(plantBrowse())))
	if err != nil {
		t.Fatal(err)
	}
	a := first.Single()
	if a.StatusCode != ua.Good || len(a.References) != 4 || a.ContinuationPoint == nil {
		t.Fatalf("first page: %v refs=%d cp=%v", a.StatusCode, len(a.References), a.ContinuationPoint)
	}

	second, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(a.ContinuationPoint), false))
	b := second.Single()
	if b.StatusCode != ua.Good || len(b.References) != 4 || b.ContinuationPoint == nil {
		t.Fatalf("second page: %v refs=%d cp=%v", b.StatusCode, len(b.References), b.ContinuationPoint)
	}

	reuse, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(a.ContinuationPoint), false))
	if reuse.Single().StatusCode != ua.BadContinuationPointInvalid {
		t.Fatalf("token A reuse = %v", reuse.Single().StatusCode)
	}

	third, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(b.ContinuationPoint), false))
	c := third.Single()
	if c.StatusCode != ua.Good || len(c.References) != 2 || c.ContinuationPoint != nil {
		t.Fatalf("third page: %v refs=%d cp=%v", c.StatusCode, len(c.References), c.ContinuationPoint)
	}

	var got []ua.ReferenceDescription
	got = append(got, a.References...)
	got = append(got, b.References...)
	got = append(got, c.References...)
	if !reflect.DeepEqual(got, full) {
		t.Fatalf("pages do not reassemble the full result")
	}

	drained, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(b.ContinuationPoint), false))
	if drained.Single().StatusCode != ua.BadContinuationPointInvalid {
		t.Fatalf("token B reuse = %v", drained.Single().StatusCode)
	}
}

func TestBrowseWithoutPagination(t *testing.T) {
	ctx := context.Background()
	for _, limit := range []int{0, 10, 50} {
		sess, m := newSession(t, newSpace(t), pseudosession.WithMaxReferencesPerNode(limit))
		res, err := settle(t, m, sess.Browse(ctx, batch.One(plantBrowse())))
		if err != nil {
			t.Fatal(err)
		}
		if r := res.Single(); r.StatusCode != ua.Good || len(r.References) != 10 || r.ContinuationPoint != nil {
			t.Fatalf("limit %d: %v refs=%d cp=%v", limit, r.StatusCode, len(r.References), r.ContinuationPoint)
		}
	}
}

func TestBrowseNextReleaseOnly(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithMaxReferencesPerNode(3))

	res, _ := settle(t, m, sess.Browse(ctx, batch.Of(plantBrowse(), plantBrowse())))
	cp1, cp2 := res.All()[0].ContinuationPoint, res.All()[1].ContinuationPoint
	if cp1 == nil || cp2 == nil || reflect.DeepEqual(cp1, cp2) {
		t.Fatalf("expected two distinct tokens, got %v and %v", cp1, cp2)
	}

	rel, err := settle(t, m, sess.BrowseNext(ctx, batch.Of(cp1, ua.ContinuationPoint{0xba, 0xd0}, cp2), true))
	if err != nil {
		t.Fatal(err)
	}
	want := []ua.StatusCode{ua.Good, ua.BadContinuationPointInvalid, ua.Good}
	for i, r := range rel.All() {
		if r.StatusCode != want[i] {
			t.Fatalf("release %d = %v, want %v", i, r.StatusCode, want[i])
		}
		if len(r.References) != 0 || r.ContinuationPoint != nil {
			t.Fatalf("release %d returned data: %#v", i, r)
		}
	}

	again, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(cp1), true))
	if again.Single().StatusCode != ua.BadContinuationPointInvalid {
		t.Fatalf("second release = %v", again.Single().StatusCode)
	}
	next, _ := settle(t, m, sess.BrowseNext(ctx, batch.One(cp2), false))
	if next.Single().StatusCode != ua.BadContinuationPointInvalid {
		t.Fatalf("GetNext after release = %v", next.Single().StatusCode)
	}
}

func TestBrowseReferenceTypeName(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t))

	desc := ua.BrowseDescription{NodeID: controllerID, ReferenceTypeName: "HasComponent", ResultMask: ua.ResultMaskAll}
	bad := ua.BrowseDescription{NodeID: controllerID, ReferenceTypeName: "IsConnectedTo"}
	res, err := settle(t, m, sess.Browse(ctx, batch.Of(desc, bad)))
	if err != nil {
		t.Fatal(err)
	}
	if r := res.All()[0]; r.StatusCode != ua.Good || len(r.References) != 6 {
		t.Fatalf("HasComponent browse: %v refs=%d", r.StatusCode, len(r.References))
	}
	if r := res.All()[1]; r.StatusCode != ua.BadReferenceTypeIDInvalid || r.References == nil {
		t.Fatalf("unknown name browse: %#v", r)
	}
}

func TestBrowseBadStatusPassesThrough(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithMaxReferencesPerNode(1))
	res, err := settle(t, m, sess.Browse(ctx, batch.Of(
		ua.BrowseDescription{NodeID: ua.NewNumericNodeID(4, 4)},
		plantBrowse(),
	)))
	if err != nil {
		t.Fatal(err)
	}
	if r := res.All()[0]; r.StatusCode != ua.BadNodeIDUnknown || r.ContinuationPoint != nil {
		t.Fatalf("unknown node browse: %#v", r)
	}
	if r := res.All()[1]; r.StatusCode != ua.Good || r.ContinuationPoint == nil {
		t.Fatalf("sibling browse affected: %#v", r)
	}
}

func TestReadMissIsolation(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t))

	res, err := settle(t, m, sess.Read(ctx, batch.Of(
		ua.ReadValueID{NodeID: itemID(4)},
		ua.ReadValueID{NodeID: ua.NewStringNodeID(1, "Nowhere")},
		ua.ReadValueID{NodeID: itemID(7), AttributeID: ua.AttributeBrowseName},
	)))
	if err != nil {
		t.Fatal(err)
	}
	got := res.All()
	if got[0].StatusCode != ua.Good || got[0].Value != int32(4) {
		t.Fatalf("item 0 = %#v", got[0])
	}
	if got[1].StatusCode != ua.BadNodeIDUnknown || got[1].Value != nil {
		t.Fatalf("item 1 = %#v", got[1])
	}
	if got[2].StatusCode != ua.Good || got[2].Value != ua.NewQualifiedName(1, "Item7") {
		t.Fatalf("item 2 = %#v", got[2])
	}
}

func TestInvalidRequestFailsWholeCall(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithMaxReferencesPerNode(2))

	browse, err := settle(t, m, sess.Browse(ctx, batch.Of(plantBrowse(), ua.BrowseDescription{})))
	if !errors.Is(err, pseudosession.ErrInvalidRequest) || browse.Len() != 0 {
		t.Fatalf("browse: len=%d err=%v", browse.Len(), err)
	}
	_, err = settle(t, m, sess.Read(ctx, batch.Of(ua.ReadValueID{NodeID: itemID(1)}, ua.ReadValueID{})))
	if !errors.Is(err, pseudosession.ErrInvalidRequest) {
		t.Fatalf("read err = %v", err)
	}
	_, err = settle(t, m, sess.TranslateBrowsePath(ctx, batch.One(ua.BrowsePath{})))
	if !errors.Is(err, pseudosession.ErrInvalidRequest) {
		t.Fatalf("translate err = %v", err)
	}
}

type leakyCPSpace struct{ addressspace.AddressSpace }

func (leakyCPSpace) BrowseSingleNode(context.Context, ua.NodeID, ua.BrowseDescription) ua.BrowseResult {
	return ua.BrowseResult{StatusCode: ua.Good, ContinuationPoint: ua.ContinuationPoint{1}}
}

func TestCollaboratorContinuationPointIsDefect(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, leakyCPSpace{newSpace(t)})
	_, err := settle(t, m, sess.Browse(ctx, batch.One(plantBrowse())))
	if !errors.Is(err, continuation.ErrContinuationPointPresent) {
		t.Fatalf("err = %v, want ErrContinuationPointPresent", err)
	}
}

// faultySpace misbehaves for one node: it either panics or reports a
// continuation point of its own.
type faultySpace struct {
	addressspace.AddressSpace
	bad    ua.NodeID
	panics bool
}

func (f faultySpace) BrowseSingleNode(ctx context.Context, id ua.NodeID, desc ua.BrowseDescription) ua.BrowseResult {
	if id == f.bad {
		if f.panics {
			panic("corrupt reference table")
		}
		return ua.BrowseResult{StatusCode: ua.Good, ContinuationPoint: ua.ContinuationPoint{1}}
	}
	return f.AddressSpace.BrowseSingleNode(ctx, id, desc)
}

func (f faultySpace) FindNode(ctx context.Context, id ua.NodeID) (addressspace.Node, bool) {
	if f.panics && id == f.bad {
		panic("corrupt node table")
	}
	return f.AddressSpace.FindNode(ctx, id)
}

func TestAbortedBrowseLeavesNoTokens(t *testing.T) {
	ctx := context.Background()
	controllerBrowse := ua.BrowseDescription{NodeID: controllerID, BrowseDirection: ua.BrowseDirectionForward}

	tests := []struct {
		name   string
		space  addressspace.AddressSpace
		second ua.BrowseDescription
		want   error
	}{
		{"missing node id", newSpace(t), ua.BrowseDescription{}, pseudosession.ErrInvalidRequest},
		{"continuation point from address space", faultySpace{AddressSpace: newSpace(t), bad: controllerID}, controllerBrowse, continuation.ErrContinuationPointPresent},
		{"address space panic", faultySpace{AddressSpace: newSpace(t), bad: controllerID, panics: true}, controllerBrowse, pseudosession.ErrCollaboratorPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memorystore.New(memorystore.Options{})
			defer store.Close()
			sess, m := newSession(t, tt.space, pseudosession.WithContinuationStore(store), pseudosession.WithMaxReferencesPerNode(2))

			_, err := settle(t, m, sess.Browse(ctx, batch.Of(plantBrowse(), tt.second)))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if store.Len() != 0 {
				t.Fatalf("store holds %d tokens after aborted browse, want 0", store.Len())
			}
		})
	}
}

func TestAddressSpacePanicDoesNotWedgeSession(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, faultySpace{AddressSpace: newSpace(t), bad: itemID(3), panics: true})

	_, err := settle(t, m, sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(3)})))
	if !errors.Is(err, pseudosession.ErrCollaboratorPanic) {
		t.Fatalf("err = %v, want ErrCollaboratorPanic", err)
	}

	res, err := settle(t, m, sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(4)})))
	if err != nil || res.Single().Value != int32(4) {
		t.Fatalf("read after panic = %v, %v", res.Single(), err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCallFaultContainment(t *testing.T) {
	ctx := context.Background()
	for _, conc := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", conc), func(t *testing.T) {
			sess, m := newSession(t, newSpace(t), pseudosession.WithCallConcurrency(conc))
			res, err := settle(t, m, sess.Call(ctx, batch.Of(
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: okMethodID, InputArguments: []ua.Variant{"hi"}},
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: errMethodID},
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: panicID},
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: argsMethodID, InputArguments: []ua.Variant{1}},
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: itemID(0)},
				ua.CallMethodRequest{ObjectID: controllerID, MethodID: okMethodID, InputArguments: []ua.Variant{"bye"}},
			)))
			if err != nil {
				t.Fatalf("call must not fail: %v", err)
			}
			want := []ua.StatusCode{ua.Good, ua.BadInternalError, ua.BadInternalError, ua.BadArgumentsMissing, ua.BadMethodInvalid, ua.Good}
			for i, r := range res.All() {
				if r.StatusCode != want[i] {
					t.Fatalf("call %d = %v, want %v", i, r.StatusCode, want[i])
				}
			}
			if out := res.All()[0].OutputArguments; !reflect.DeepEqual(out, []ua.Variant{"hi"}) {
				t.Fatalf("call 0 output = %v", out)
			}
			if out := res.All()[5].OutputArguments; !reflect.DeepEqual(out, []ua.Variant{"bye"}) {
				t.Fatalf("call 5 output = %v", out)
			}
		})
	}
}

func TestCallOrderUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithCallConcurrency(8))

	delays := []time.Duration{40, 5, 30, 0, 20, 10, 35, 1}
	reqs := make([]ua.CallMethodRequest, len(delays))
	for i, d := range delays {
		reqs[i] = ua.CallMethodRequest{ObjectID: controllerID, MethodID: slowMethodID, InputArguments: []ua.Variant{d * time.Millisecond}}
	}
	res, err := settle(t, m, sess.Call(ctx, batch.Of(reqs...)))
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range res.All() {
		if r.StatusCode != ua.Good || r.OutputArguments[0] != delays[i]*time.Millisecond {
			t.Fatalf("result %d out of order: %#v", i, r)
		}
	}
}

func TestCallWithoutMethodService(t *testing.T) {
	ctx := context.Background()
	// Embedding only the AddressSpace interface hides memspace's Call.
	sess, m := newSession(t, struct{ addressspace.AddressSpace }{newSpace(t)})
	res, err := settle(t, m, sess.Call(ctx, batch.One(ua.CallMethodRequest{ObjectID: controllerID, MethodID: okMethodID})))
	if err != nil {
		t.Fatal(err)
	}
	if res.Single().StatusCode != ua.BadNotImplemented {
		t.Fatalf("status = %v", res.Single().StatusCode)
	}
}

func TestSessionIdentityReachesCollaborators(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithSessionID("line-3"))
	res, err := settle(t, m, sess.Call(ctx, batch.One(ua.CallMethodRequest{ObjectID: controllerID, MethodID: whoAmIID})))
	if err != nil {
		t.Fatal(err)
	}
	if out := res.Single().OutputArguments; len(out) != 1 || out[0] != "line-3" || sess.ID() != "line-3" {
		t.Fatalf("output = %v, id = %s", out, sess.ID())
	}
}

func TestTranslateBrowsePath(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t))

	hop := func(name string) ua.RelativePathElement {
		return ua.RelativePathElement{ReferenceTypeID: ua.HierarchicalReferencesID, IncludeSubtypes: true, TargetName: ua.NewQualifiedName(1, name)}
	}
	res, err := settle(t, m, sess.TranslateBrowsePath(ctx, batch.Of(
		ua.BrowsePath{StartingNode: ua.ObjectsFolderID, RelativePath: []ua.RelativePathElement{hop("Plant"), hop("Item6")}},
		ua.BrowsePath{StartingNode: ua.ObjectsFolderID, RelativePath: []ua.RelativePathElement{hop("Plant"), hop("Item60")}},
		ua.BrowsePath{StartingNode: ua.ObjectsFolderID},
	)))
	if err != nil {
		t.Fatal(err)
	}
	got := res.All()
	if got[0].StatusCode != ua.Good || len(got[0].Targets) != 1 || got[0].Targets[0].TargetID != itemID(6) {
		t.Fatalf("path 0 = %#v", got[0])
	}
	if got[1].StatusCode != ua.BadNoMatch {
		t.Fatalf("path 1 = %v", got[1].StatusCode)
	}
	if got[2].StatusCode != ua.BadNothingToDo {
		t.Fatalf("path 2 = %v", got[2].StatusCode)
	}
}

func TestCloseReleasesContinuationPoints(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(memorystore.Options{})
	defer store.Close()

	space := newSpace(t)
	other, om := newSession(t, space, pseudosession.WithContinuationStore(store), pseudosession.WithMaxReferencesPerNode(2))
	sess, m := newSession(t, space, pseudosession.WithContinuationStore(store), pseudosession.WithMaxReferencesPerNode(2))

	kept, _ := settle(t, om, other.Browse(ctx, batch.One(plantBrowse())))
	res, _ := settle(t, m, sess.Browse(ctx, batch.Of(plantBrowse(), plantBrowse())))
	if store.Len() != 3 {
		t.Fatalf("store holds %d tokens, want 3", store.Len())
	}

	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d tokens after close, want 1", store.Len())
	}

	_, err := settle(t, m, sess.BrowseNext(ctx, batch.One(res.All()[0].ContinuationPoint), false))
	if !errors.Is(err, pseudosession.ErrSessionClosed) {
		t.Fatalf("err after close = %v", err)
	}

	next, _ := settle(t, om, other.BrowseNext(ctx, batch.One(kept.Single().ContinuationPoint), false))
	if next.Single().StatusCode != ua.Good {
		t.Fatalf("other session's token lost: %v", next.Single().StatusCode)
	}
}

func TestSharedStoreIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New(memorystore.Options{})
	defer store.Close()

	space := newSpace(t)
	a, am := newSession(t, space, pseudosession.WithContinuationStore(store), pseudosession.WithMaxReferencesPerNode(2))
	b, bm := newSession(t, space, pseudosession.WithContinuationStore(store), pseudosession.WithMaxReferencesPerNode(2))

	res, _ := settle(t, am, a.Browse(ctx, batch.One(plantBrowse())))
	foreign, _ := settle(t, bm, b.BrowseNext(ctx, batch.One(res.Single().ContinuationPoint), false))
	if foreign.Single().StatusCode != ua.BadContinuationPointInvalid {
		t.Fatalf("foreign session used token: %v", foreign.Single().StatusCode)
	}
	own, _ := settle(t, am, a.BrowseNext(ctx, batch.One(res.Single().ContinuationPoint), false))
	if own.Single().StatusCode != ua.Good {
		t.Fatalf("owner lost token: %v", own.Single().StatusCode)
	}
}

func TestBoundedContinuationPoints(t *testing.T) {
	ctx := context.Background()
	sess, m := newSession(t, newSpace(t), pseudosession.WithConfig(pseudosession.Config{
		MaxReferencesPerNode:  1,
		MaxContinuationPoints: 2,
	}))

	res, _ := settle(t, m, sess.Browse(ctx, batch.Of(plantBrowse(), plantBrowse(), plantBrowse())))
	cps := make([]ua.ContinuationPoint, 0, 3)
	for _, r := range res.All() {
		cps = append(cps, r.ContinuationPoint)
	}
	next, _ := settle(t, m, sess.BrowseNext(ctx, batch.Of(cps...), true))
	want := []ua.StatusCode{ua.BadContinuationPointInvalid, ua.Good, ua.Good}
	for i, r := range next.All() {
		if r.StatusCode != want[i] {
			t.Fatalf("token %d = %v, want %v", i, r.StatusCode, want[i])
		}
	}
}

func TestDefaultLoopScheduler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := pseudosession.New(newSpace(t))
	if err != nil {
		t.Fatal(err)
	}
	res, err := sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(8)})).Await(ctx)
	if err != nil || res.Single().Value != int32(8) {
		t.Fatalf("read = %v, %v", res.Single(), err)
	}

	done := make(chan error, 1)
	sess.Browse(ctx, batch.One(plantBrowse())).Then(func(_ batch.Response[ua.BrowseResult], err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("callback never delivered")
	}

	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(8)})).Await(ctx); !errors.Is(err, pseudosession.ErrSessionClosed) {
		t.Fatalf("read after close err = %v", err)
	}
}

func TestCloseFromCallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := pseudosession.New(newSpace(t))
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	sess.Read(ctx, batch.One(ua.ReadValueID{NodeID: itemID(1)})).Then(func(_ batch.Response[ua.DataValue], _ error) {
		done <- sess.Close(ctx)
	})
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Close from a callback did not return")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := pseudosession.New(nil); err == nil {
		t.Fatal("expected error for nil address space")
	}
	if _, err := pseudosession.New(memspace.New(), pseudosession.WithMaxReferencesPerNode(-1)); err == nil {
		t.Fatal("expected error for negative page size")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PSEUDOSESSION_MAX_REFERENCES_PER_NODE", "25")
	t.Setenv("PSEUDOSESSION_CONTINUATION_POINT_TTL", "90s")
	t.Setenv("PSEUDOSESSION_CALL_CONCURRENCY", "4")

	cfg, err := pseudosession.ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	want := pseudosession.Config{
		MaxReferencesPerNode:  25,
		MaxContinuationPoints: 1024,
		ContinuationPointTTL:  90 * time.Second,
		CallConcurrency:       4,
	}
	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
}
