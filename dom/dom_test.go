// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"strings"
	"testing"
)

func TestMarkersAndFindRef(t *testing.T) {
	display := MakeNode("input").WithRef("display").WithName("display")
	root := MakeNode("div").WithComponent("my-widget").AddChild(display)

	if root.Attrs[ComponentAttr] != "my-widget" {
		t.Fatalf("missing component marker")
	}
	if found := root.FindRef("display"); found != display {
		t.Fatalf("FindRef returned wrong node")
	}
	if found := root.FindRef("nope"); found != nil {
		t.Fatalf("FindRef found nonexistent ref")
	}
	if display.Attrs[NameAttr] != "display" {
		t.Fatalf("missing submission-name attribute")
	}
}

func TestSetPropCountsWrites(t *testing.T) {
	node := MakeNode("input")
	if node.PropWrites("value") != 0 {
		t.Fatalf("fresh node has writes")
	}
	node.SetProp("value", "a")
	node.SetProp("value", "a")
	if node.PropWrites("value") != 2 {
		t.Fatalf("expected 2 writes, got %d", node.PropWrites("value"))
	}
	if node.PropStr("value") != "a" {
		t.Fatalf("bad prop value")
	}
}

func TestPatchSinkPropagates(t *testing.T) {
	child := MakeNode("input")
	root := MakeNode("div").AddChild(child)
	var patches []Patch
	root.SetPatchSink(func(p Patch) {
		patches = append(patches, p)
	})
	child.SetProp("value", "x")
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}
	if patches[0].NodeId != child.Id || patches[0].Prop != "value" || patches[0].Value != "x" {
		t.Fatalf("bad patch: %+v", patches[0])
	}
}

func TestDispatch(t *testing.T) {
	var gotEvent Event
	button := MakeNode("button")
	button.On(EventPointerDown, func(ev Event) {
		gotEvent = ev
	})
	root := MakeNode("div").AddChild(button)

	handled := root.Dispatch(Event{NodeId: button.Id, Type: EventPointerDown, TargetName: "trigger"})
	if !handled {
		t.Fatalf("event not handled")
	}
	if gotEvent.TargetName != "trigger" {
		t.Fatalf("handler got wrong event: %+v", gotEvent)
	}
	if root.Dispatch(Event{NodeId: button.Id, Type: EventClick}) {
		t.Fatalf("unregistered event type should not be handled")
	}
	if root.Dispatch(Event{NodeId: "missing", Type: EventPointerDown}) {
		t.Fatalf("missing node should not be handled")
	}
}

func TestDispatchHandlerPanicRecovered(t *testing.T) {
	button := MakeNode("button")
	button.On(EventClick, func(Event) {
		panic("handler boom")
	})
	// must not propagate
	if !button.Dispatch(Event{NodeId: button.Id, Type: EventClick}) {
		t.Fatalf("expected dispatch to report handled")
	}
}

func TestRenderHTML(t *testing.T) {
	display := MakeNode("input").WithRef("display").WithName("display").WithProp("value", "hi")
	button := MakeNode("button").WithProp("textContent", "Hold me")
	root := MakeNode("div").WithComponent("press-hold").AddChild(button).AddChild(display)

	out := root.RenderHTML()
	for _, want := range []string{
		`data-component="press-hold"`,
		`data-ref="display"`,
		`name="display"`,
		`value="hi"`,
		`>Hold me</button>`,
		`data-node="` + root.Id + `"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered html missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "</div>") {
		t.Fatalf("unclosed root element:\n%s", out)
	}
}
