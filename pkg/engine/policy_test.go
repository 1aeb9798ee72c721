// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
	"github.com/listen-rs/listen-engine/pkg/store"
)

func TestDispatchFailure_SwapFailsPipeline(t *testing.T) {
	d := &fakeDispatcher{fail: map[pipeline.ActionKind]error{pipeline.KindSwap: errors.New("slippage exceeded")}}
	h := startEngine(t, store.NewMemoryStore(), d)

	p := pipeline.New("p", "user-1", testNow)
	p.AddStep(pipeline.NewStep("buy", swapAction(), above("SOL", 100)).Then("tell"))
	p.AddStep(pipeline.NewStep("tell", notify("bought"), above("SOL", 200)))
	h.add(p.Start("buy"))

	h.price("SOL", 150)
	h.eventually("pipeline failure", func() bool { return h.get("p").Status == pipeline.StatusFailed })

	got := h.get("p")
	buy := got.Steps["buy"]
	if buy.Status != pipeline.StatusCompleted {
		t.Errorf("buy status = %s, a failed dispatch must not re-arm the step", buy.Status)
	}
	if buy.Dispatch.State != pipeline.DispatchFailed || buy.Dispatch.Error == "" {
		t.Errorf("dispatch = %+v", buy.Dispatch)
	}
	if len(got.Failures) != 1 || got.Failures[0].StepID != "buy" {
		t.Errorf("Failures = %+v", got.Failures)
	}

	// Failed is terminal: later events are ignored
	h.price("SOL", 250)
	if got := h.get("p"); got.Steps["tell"].Status == pipeline.StatusCompleted {
		t.Error("failed pipeline kept evaluating")
	}
	if n := len(d.Calls()); n != 1 {
		t.Errorf("dispatched %d times, expected 1", n)
	}
}

func TestDispatchFailure_NotificationIsRecordedOnly(t *testing.T) {
	d := &fakeDispatcher{fail: map[pipeline.ActionKind]error{pipeline.KindNotification: errors.New("smtp down")}}
	h := startEngine(t, store.NewMemoryStore(), d)
	h.add(alertPipeline("p", "X", 100))

	h.price("X", 101)
	h.eventually("completion", func() bool { return h.get("p").Status == pipeline.StatusCompleted })

	got := h.get("p")
	if len(got.Failures) != 1 {
		t.Errorf("Failures = %+v, expected the notification failure", got.Failures)
	}
	if got.Steps["alert"].Dispatch.State != pipeline.DispatchFailed {
		t.Errorf("dispatch state = %s", got.Steps["alert"].Dispatch.State)
	}
}

func TestCompletionWaitsForOutstandingDispatch(t *testing.T) {
	gate := make(chan struct{})
	d := &fakeDispatcher{gate: gate}
	h := startEngine(t, store.NewMemoryStore(), d)
	h.add(alertPipeline("p", "X", 100))

	h.price("X", 101)
	got := h.get("p")
	if got.Status != pipeline.StatusActive {
		t.Fatalf("Status = %s while dispatch is pending, expected Active", got.Status)
	}
	if got.Steps["alert"].Dispatch.State != pipeline.DispatchPending {
		t.Fatalf("dispatch state = %s, expected pending", got.Steps["alert"].Dispatch.State)
	}

	close(gate)
	h.eventually("completion", func() bool { return h.get("p").Status == pipeline.StatusCompleted })
}

func TestSlowDispatchDoesNotBlockEvaluation(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	d := &fakeDispatcher{gate: gate}
	h := startEngine(t, store.NewMemoryStore(), d)
	h.add(alertPipeline("slow", "X", 100))
	h.add(alertPipeline("other", "Y", 100))

	h.price("X", 101) // dispatch blocks forever
	h.price("Y", 101)

	if got := h.get("other"); got.Steps["alert"].Status != pipeline.StatusCompleted {
		t.Errorf("other pipeline stalled behind a blocked dispatch: %s", got.Steps["alert"].Status)
	}
}

func TestPanicIsolation(t *testing.T) {
	d := &fakeDispatcher{}
	e := New(store.NewMemoryStore(), d, testOptions()...)
	t.Cleanup(e.dispatchWG.Wait)

	// a typed nil guard cannot be admitted; plant it the way a corrupt
	// snapshot would land in the registry
	bad := pipeline.New("bad", "user-1", testNow)
	bad.AddStep(pipeline.NewStep("alert", notify("x"), pipeline.NewCondition((*pipeline.PriceAbove)(nil))))
	e.registry["bad"] = bad.Start("alert")
	e.registry["good"] = alertPipeline("good", "X", 100)

	e.onPrice(pipeline.PriceEvent{Asset: "X", Price: 150, Timestamp: testNow})

	if got := e.registry["bad"]; got.Status != pipeline.StatusFailed || len(got.Failures) != 1 {
		t.Errorf("bad pipeline = %s %+v, expected Failed with a diagnostic", got.Status, got.Failures)
	} else if !strings.Contains(got.Failures[0].Reason, "evaluation panic") {
		t.Errorf("failure reason = %q", got.Failures[0].Reason)
	}
	if got := e.registry["good"]; got.Steps["alert"].Status != pipeline.StatusCompleted {
		t.Errorf("good pipeline step = %s, expected Completed", got.Steps["alert"].Status)
	}

	// Failed is terminal, so later events skip the broken pipeline
	e.onPrice(pipeline.PriceEvent{Asset: "X", Price: 160, Timestamp: testNow})
	if n := len(e.registry["bad"].Failures); n != 1 {
		t.Errorf("bad pipeline recorded %d failures, expected 1", n)
	}
}

func TestAddPipeline_RejectsTypedNilCondition(t *testing.T) {
	h := startEngine(t, store.NewMemoryStore(), nil)

	p := pipeline.New("p", "user-1", testNow)
	p.AddStep(pipeline.NewStep("alert", notify("x"), pipeline.NewCondition((*pipeline.PriceAbove)(nil))))
	if err := h.client.Add(h.ctx(), p.Start("alert")); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("Add() error = %v, expected ErrInvalidGraph", err)
	}
}

func TestList_FiltersByUser(t *testing.T) {
	h := startEngine(t, store.NewMemoryStore(), nil)
	for _, id := range []string{"b", "a", "c"} {
		p := alertPipeline(id, "X", 100)
		if id == "c" {
			p.UserID = "user-2"
		}
		h.add(p)
	}

	mine, err := h.client.List(h.ctx(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "a" || mine[1].ID != "b" {
		t.Errorf("List(user-1) = %v", ids(mine))
	}

	all, _ := h.client.List(h.ctx(), "")
	if len(all) != 3 {
		t.Errorf("List(\"\") returned %d pipelines, expected 3", len(all))
	}
}

func ids(ps []*pipeline.Pipeline) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// gatedStore blocks the first Put until gate is closed, signalling entered.
type gatedStore struct {
	*store.MemoryStore
	gate    chan struct{}
	entered chan struct{}
	once    atomic.Bool
}

func (s *gatedStore) Put(ctx context.Context, p *pipeline.Pipeline) error {
	if s.once.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.gate
	}
	return s.MemoryStore.Put(ctx, p)
}

func TestBackpressure(t *testing.T) {
	const capacity = 3
	s := &gatedStore{MemoryStore: store.NewMemoryStore(), gate: make(chan struct{}), entered: make(chan struct{})}
	h := startEngine(t, s, nil, WithMailboxCapacity(capacity))
	mailbox := h.engine.mailbox

	// the engine is stuck persisting the first admission
	first := make(chan error, 1)
	mailbox <- AddPipeline{Pipeline: alertPipeline("p-0", "X", 1), Reply: first}
	<-s.entered

	accepted := []chan error{first}
	rejected := 0
	for i := 1; i <= 10; i++ {
		ch := make(chan error, 1)
		select {
		case mailbox <- AddPipeline{Pipeline: alertPipeline(fmt.Sprintf("p-%d", i), "X", 1), Reply: ch}:
			accepted = append(accepted, ch)
		default:
			rejected++
		}
	}
	if len(accepted) != capacity+1 {
		t.Fatalf("accepted %d requests, expected %d", len(accepted), capacity+1)
	}

	// a client with a deadline fails fast instead of queueing
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.client.Add(ctx, alertPipeline("late", "X", 1)); !errors.Is(err, ErrTimeout) {
		t.Errorf("Add() on full mailbox error = %v, expected ErrTimeout", err)
	}

	close(s.gate)
	for i, ch := range accepted {
		select {
		case err := <-ch:
			if err != nil {
				t.Errorf("request %d error = %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("accepted request %d never got a reply", i)
		}
		if len(ch) != 0 {
			t.Errorf("request %d got more than one reply", i)
		}
	}
	if s.Len() != capacity+1 {
		t.Errorf("store holds %d pipelines, expected %d", s.Len(), capacity+1)
	}
	if rejected != 10-capacity {
		t.Errorf("rejected %d, expected %d", rejected, 10-capacity)
	}
}

func TestClient_TimeoutWaitingForReply(t *testing.T) {
	s := &gatedStore{MemoryStore: store.NewMemoryStore(), gate: make(chan struct{}), entered: make(chan struct{})}
	h := startEngine(t, s, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.client.Add(ctx, alertPipeline("p", "X", 1)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Add() error = %v, expected ErrTimeout", err)
	}

	// the request was accepted and is still processed
	close(s.gate)
	h.eventually("late admission", func() bool {
		_, err := h.client.Get(h.ctx(), "p")
		return err == nil
	})
}

func TestShutdown_AnswersQueuedRequests(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(), nil)
	replies := make([]chan error, 5)
	for i := range replies {
		replies[i] = make(chan error, 1)
		h.engine.mailbox <- AddPipeline{Pipeline: alertPipeline(fmt.Sprintf("p-%c", 'a'+i), "X", 1), Reply: replies[i]}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.engine.Run(ctx, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i, ch := range replies {
		select {
		case <-ch:
		default:
			t.Errorf("queued request %d got no reply", i)
		}
	}

	if _, err := h.engine.Client().Get(context.Background(), "p-a"); !errors.Is(err, ErrEngineStopped) {
		t.Errorf("Get() after stop error = %v, expected ErrEngineStopped", err)
	}
	if err := h.engine.Run(context.Background(), nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, expected ErrAlreadyRunning", err)
	}
}

func TestPersister_RetriesFailedWrites(t *testing.T) {
	s := &flakyStore{MemoryStore: store.NewMemoryStore()}
	h := startEngine(t, s, nil)
	h.add(alertPipeline("p", "X", 100))

	s.failures.Store(2)
	h.price("X", 150)
	h.eventually("write-behind retry", func() bool {
		got, _ := s.Get(context.Background(), "p")
		return got != nil && got.Steps["alert"].Conditions[0].Triggered
	})
}

// flakyStore fails the next n puts.
type flakyStore struct {
	*store.MemoryStore
	failures atomic.Int32
}

func (s *flakyStore) Put(ctx context.Context, p *pipeline.Pipeline) error {
	if s.failures.Add(-1) >= 0 {
		return errors.New("transient")
	}
	return s.MemoryStore.Put(ctx, p)
}
