package tracestore

import (
	"context"
	"testing"

	"github.com/uptree-dev/uptree/trace"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/trace.db")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(pass string, seq int64, kind trace.Kind) trace.Event {
	return trace.Event{
		Pass:      pass,
		Seq:       seq,
		Kind:      kind,
		Dependent: "leaf",
		Provider:  "root",
		Type:      "int",
		Depth:     1,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir + "/trace.db")
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s1.Close()

	s2, err := Open(dir + "/trace.db")
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	s2.Close()
}

func TestWriteEvent_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, inserted, err := s.WriteEvent(ctx, testEvent("pass-1", 1, trace.KindWalkStep))
	if err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive ID, got %d", id)
	}
	if !inserted {
		t.Error("expected inserted=true for new event")
	}
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ev := testEvent("pass-1", 1, trace.KindMatch)

	id1, inserted, err := s.WriteEvent(ctx, ev)
	if err != nil {
		t.Fatalf("first WriteEvent failed: %v", err)
	}
	if !inserted {
		t.Fatal("first write not inserted")
	}

	id2, inserted, err := s.WriteEvent(ctx, ev)
	if err != nil {
		t.Fatalf("second WriteEvent failed: %v", err)
	}
	if inserted {
		t.Error("duplicate write reported inserted=true")
	}
	if id1 != id2 {
		t.Errorf("duplicate write returned id %d, want existing id %d", id2, id1)
	}

	events, err := s.ReadPass(ctx, "pass-1")
	if err != nil {
		t.Fatalf("ReadPass failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("log has %d events after duplicate write, want 1", len(events))
	}
}

func TestReadPass_OrderAndRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Written out of order on purpose; reads order by seq.
	for _, seq := range []int64{3, 1, 2} {
		kind := trace.KindWalkStep
		if seq == 3 {
			kind = trace.KindComplete
		}
		if _, _, err := s.WriteEvent(ctx, testEvent("pass-1", seq, kind)); err != nil {
			t.Fatalf("WriteEvent(seq=%d) failed: %v", seq, err)
		}
	}
	// Another pass must not leak in.
	if _, _, err := s.WriteEvent(ctx, testEvent("pass-2", 1, trace.KindWalkStep)); err != nil {
		t.Fatalf("WriteEvent(pass-2) failed: %v", err)
	}

	events, err := s.ReadPass(ctx, "pass-1")
	if err != nil {
		t.Fatalf("ReadPass failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("ReadPass returned %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("event[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
	last := events[2]
	if last.Kind != trace.KindComplete || last.Dependent != "leaf" || last.Provider != "root" || last.Type != "int" || last.Depth != 1 {
		t.Errorf("round-tripped event = %+v", last)
	}
}

func TestReadPass_UnknownPassIsEmpty(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadPass(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadPass failed: %v", err)
	}
	if events == nil {
		t.Error("ReadPass returned nil, want empty slice")
	}
	if len(events) != 0 {
		t.Errorf("ReadPass returned %d events, want 0", len(events))
	}
}

func TestPasses(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, pass := range []string{"b-pass", "a-pass", "b-pass"} {
		ev := testEvent(pass, 1, trace.KindWalkStep)
		if _, _, err := s.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}

	passes, err := s.Passes(ctx)
	if err != nil {
		t.Fatalf("Passes failed: %v", err)
	}
	if len(passes) != 2 || passes[0] != "a-pass" || passes[1] != "b-pass" {
		t.Errorf("Passes = %v, want [a-pass b-pass]", passes)
	}
}

func TestEventID_Stable(t *testing.T) {
	ev := testEvent("pass-1", 1, trace.KindReady)

	id1, err := EventID(ev)
	if err != nil {
		t.Fatalf("EventID failed: %v", err)
	}
	id2, err := EventID(ev)
	if err != nil {
		t.Fatalf("EventID failed: %v", err)
	}
	if id1 != id2 {
		t.Error("EventID is not stable")
	}

	ev.Seq = 2
	id3, err := EventID(ev)
	if err != nil {
		t.Fatalf("EventID failed: %v", err)
	}
	if id3 == id1 {
		t.Error("distinct events share an ID")
	}
}

func TestRecorder_WritesThrough(t *testing.T) {
	s := createTestStore(t)

	var recErr error
	rec := NewRecorder(s, func(err error) { recErr = err })
	rec.Record(testEvent("pass-1", 1, trace.KindWalkStep))
	rec.Record(testEvent("pass-1", 2, trace.KindComplete))

	if recErr != nil {
		t.Fatalf("Record reported error: %v", recErr)
	}

	events, err := s.ReadPass(context.Background(), "pass-1")
	if err != nil {
		t.Fatalf("ReadPass failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("log has %d events, want 2", len(events))
	}
}
