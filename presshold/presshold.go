// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package presshold is the reference component: a press-and-hold
// button driving a read-only display field. Pressing the button shows
// a marker string in the display; releasing (or dragging the pointer
// off the button while pressed) clears it.
package presshold

import (
	"github.com/ripplekit/ripple/comp"
	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/store"
)

const ComponentName = "press-hold"
const PressedText = "Click!"

type State struct {
	Text string `json:"text"`
}

// New builds the component. initialState seeds the display value;
// every user-triggered change is dispatched through onAction as a
// partial-state object. Each press/release dispatch is an
// unconditional overwrite; repeated dispatches of the same value are
// harmless.
func New(initialState State, onAction func(store.Partial)) *comp.Instance[State] {
	display := dom.MakeNode("input").
		WithRef("display").
		WithName("display").
		WithAttr("type", "text").
		WithAttr("readonly", "readonly").
		WithProp("value", initialState.Text)

	trigger := dom.MakeNode("button").
		WithRef("trigger").
		WithName("trigger").
		WithProp("textContent", "Hold me")
	trigger.On(dom.EventPointerDown, func(dom.Event) {
		onAction(store.Partial{"text": PressedText})
	})
	trigger.On(dom.EventPointerUp, func(dom.Event) {
		onAction(store.Partial{"text": ""})
	})
	trigger.On(dom.EventPointerLeave, func(dom.Event) {
		onAction(store.Partial{"text": ""})
	})

	root := dom.MakeNode("div").
		WithComponent(ComponentName).
		AddChild(trigger).
		AddChild(display)

	return comp.MakeInstance(root,
		comp.BindProp(display, "value", func(s State) any {
			return s.Text
		}),
	)
}
