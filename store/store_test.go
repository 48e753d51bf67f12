// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"testing"
)

type testState struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func TestSetStateMerge(t *testing.T) {
	s := MakeStore(testState{Text: "a", Count: 1})
	before := s.GetState()

	s.SetState(Partial{"text": "b"})

	after := s.GetState()
	if after.Text != "b" || after.Count != 1 {
		t.Fatalf("bad merge result: %+v", after)
	}
	if before.Text != "a" || before.Count != 1 {
		t.Fatalf("prior snapshot was mutated: %+v", before)
	}
}

func TestSetStateUnknownKey(t *testing.T) {
	s := MakeStore(testState{Text: "a"})
	s.SetState(Partial{"bogus": 42, "text": "b"})
	if got := s.GetState().Text; got != "b" {
		t.Fatalf("expected text %q, got %q", "b", got)
	}
}

func TestNotifyOrderAndCompleteness(t *testing.T) {
	s := MakeStore(testState{})
	var calls []int
	for i := 1; i <= 3; i++ {
		idx := i
		s.Subscribe(func(newState testState) {
			if newState.Text != "x" {
				t.Errorf("listener %d got wrong snapshot: %+v", idx, newState)
			}
			calls = append(calls, idx)
		})
	}

	s.SetState(Partial{"text": "x"})

	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	for i, call := range calls {
		if call != i+1 {
			t.Fatalf("bad notification order: %v", calls)
		}
	}
}

func TestUnchangedValueStillNotifies(t *testing.T) {
	s := MakeStore(testState{Text: "same"})
	numCalls := 0
	s.Subscribe(func(testState) {
		numCalls++
	})
	s.SetState(Partial{"text": "same"})
	s.SetState(Partial{"text": "same"})
	if numCalls != 2 {
		t.Fatalf("expected 2 notifications, got %d", numCalls)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := MakeStore(testState{})
	numCalls := 0
	unsubscribe := s.Subscribe(func(testState) {
		numCalls++
	})
	s.Subscribe(func(testState) {})

	s.SetState(Partial{"count": 1})
	unsubscribe()
	s.SetState(Partial{"count": 2})
	unsubscribe() // second call is a no-op
	s.SetState(Partial{"count": 3})

	if numCalls != 1 {
		t.Fatalf("expected 1 call, got %d", numCalls)
	}
	if s.NumListeners() != 1 {
		t.Fatalf("expected 1 remaining listener, got %d", s.NumListeners())
	}
}

func TestDuplicateListenerUnsubscribeRemovesOne(t *testing.T) {
	s := MakeStore(testState{})
	numCalls := 0
	fn := func(testState) {
		numCalls++
	}
	unsub1 := s.Subscribe(fn)
	s.Subscribe(fn)

	unsub1()
	s.SetState(Partial{"count": 1})
	if numCalls != 1 {
		t.Fatalf("expected 1 call after removing one of two registrations, got %d", numCalls)
	}
}

func TestListenerPanicIsolated(t *testing.T) {
	s := MakeStore(testState{})
	numCalls := 0
	s.Subscribe(func(testState) {
		panic("boom")
	})
	s.Subscribe(func(testState) {
		numCalls++
	})
	s.SetState(Partial{"count": 1})
	if numCalls != 1 {
		t.Fatalf("listener after panicking listener did not run")
	}
}

func TestUpdateDuringNotifyDeferred(t *testing.T) {
	s := MakeStore(testState{})
	var seen []int
	first := true
	s.Subscribe(func(newState testState) {
		seen = append(seen, newState.Count)
		if first {
			first = false
			s.SetState(Partial{"count": 99})
		}
	})

	s.SetState(Partial{"count": 1})

	if got := s.GetState().Count; got != 99 {
		t.Fatalf("deferred update not applied, count=%d", got)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 99 {
		t.Fatalf("bad notification sequence: %v", seen)
	}
}

func TestOverlappingNotifyKeepsGuard(t *testing.T) {
	s := MakeStore(testState{})
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	inFirst := false
	recursed := false
	s.Subscribe(func(newState testState) {
		switch newState.Count {
		case 1:
			inFirst = true
			close(entered)
			<-release
			// issued from inside this pass, must be deferred even
			// though another goroutine's pass ran in the meantime
			s.SetState(Partial{"count": 3})
			inFirst = false
		case 3:
			if inFirst {
				recursed = true
			}
		}
	})

	go func() {
		defer close(done)
		s.SetState(Partial{"count": 1})
	}()

	<-entered
	s.SetState(Partial{"count": 2})
	close(release)
	<-done

	if recursed {
		t.Fatalf("reentrant update ran synchronously inside its own pass")
	}
	if got := s.GetState().Count; got != 3 {
		t.Fatalf("deferred update not applied, count=%d", got)
	}
}

func TestSetFn(t *testing.T) {
	s := MakeStore(testState{Count: 10})
	s.SetFn(func(cur testState) testState {
		cur.Count++
		return cur
	})
	if got := s.GetState().Count; got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
}
