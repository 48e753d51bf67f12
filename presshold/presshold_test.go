// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package presshold

import (
	"testing"

	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/store"
)

// wires the component to a store the way the bootstrap glue does:
// actions merge into the store, store changes drive Update
func makeWired(t *testing.T) (*store.Store[State], *dom.Node, *dom.Node) {
	t.Helper()
	appStore := store.MakeStore(State{Text: ""})
	inst := New(appStore.GetState(), func(partial store.Partial) {
		appStore.SetState(partial)
	})
	appStore.Subscribe(inst.Update)

	root := inst.Element()
	trigger := root.FindRef("trigger")
	display := root.FindRef("display")
	if trigger == nil || display == nil {
		t.Fatalf("missing trigger or display ref")
	}
	return appStore, trigger, display
}

func press(t *testing.T, root *dom.Node, eventType string) {
	t.Helper()
	if !root.Dispatch(dom.Event{NodeId: root.Id, Type: eventType, Pointer: &dom.PointerData{Button: 0}}) {
		t.Fatalf("%s not handled", eventType)
	}
}

func TestPressRelease(t *testing.T) {
	appStore, trigger, display := makeWired(t)

	press(t, trigger, dom.EventPointerDown)
	if got := appStore.GetState().Text; got != PressedText {
		t.Fatalf("after press, state text = %q", got)
	}
	if got := display.PropStr("value"); got != PressedText {
		t.Fatalf("after press, display value = %q", got)
	}

	press(t, trigger, dom.EventPointerUp)
	if got := display.PropStr("value"); got != "" {
		t.Fatalf("after release, display value = %q", got)
	}
}

func TestPressCancel(t *testing.T) {
	appStore, trigger, display := makeWired(t)

	press(t, trigger, dom.EventPointerDown)
	press(t, trigger, dom.EventPointerLeave)

	if got := appStore.GetState().Text; got != "" {
		t.Fatalf("after cancel, state text = %q", got)
	}
	if got := display.PropStr("value"); got != "" {
		t.Fatalf("after cancel, display value = %q", got)
	}
}

func TestRepeatedPressHarmless(t *testing.T) {
	_, trigger, display := makeWired(t)

	press(t, trigger, dom.EventPointerDown)
	writesAfterFirst := display.PropWrites("value")
	press(t, trigger, dom.EventPointerDown)

	if got := display.PropStr("value"); got != PressedText {
		t.Fatalf("display value = %q", got)
	}
	// second identical dispatch notifies but patches nothing
	if display.PropWrites("value") != writesAfterFirst {
		t.Fatalf("repeated press rewrote display: %d -> %d writes", writesAfterFirst, display.PropWrites("value"))
	}
}

func TestMarkers(t *testing.T) {
	inst := New(State{}, func(store.Partial) {})
	root := inst.Element()
	if root.Attrs[dom.ComponentAttr] != ComponentName {
		t.Fatalf("root missing component marker")
	}
	trigger := root.FindRef("trigger")
	if trigger == nil || trigger.Attrs[dom.NameAttr] != "trigger" {
		t.Fatalf("trigger missing ref or name attribute")
	}
}

func TestInitialStateSeedsDisplay(t *testing.T) {
	inst := New(State{Text: "preset"}, func(store.Partial) {})
	display := inst.Element().FindRef("display")
	if got := display.PropStr("value"); got != "preset" {
		t.Fatalf("display seeded with %q", got)
	}
	// construction-time value counts as rendered: no write on same state
	inst.Update(State{Text: "preset"})
	if display.PropWrites("value") != 0 {
		t.Fatalf("update with initial state wrote display")
	}
}
