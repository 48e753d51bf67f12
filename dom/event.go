// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package dom

const EventPointerDown = "pointerdown"
const EventPointerUp = "pointerup"
const EventPointerLeave = "pointerleave"
const EventClick = "click"
const EventChange = "change"

type Event struct {
	NodeId      string       `json:"nodeid"`
	Type        string       `json:"type"`
	TargetValue string       `json:"targetvalue,omitempty"` // set for change events on inputs
	TargetName  string       `json:"targetname,omitempty"`  // target element's name attribute
	TargetId    string       `json:"targetid,omitempty"`
	Pointer     *PointerData `json:"pointer,omitempty"` // set for pointer/click events
}

type PointerData struct {
	Button  int `json:"button"`
	Buttons int `json:"buttons"`

	ClientX int `json:"clientx,omitempty"`
	ClientY int `json:"clienty,omitempty"`
	PageX   int `json:"pagex,omitempty"`
	PageY   int `json:"pagey,omitempty"`

	// modifiers
	Shift   bool `json:"shift,omitempty"`
	Control bool `json:"control,omitempty"`
	Alt     bool `json:"alt,omitempty"`
	Meta    bool `json:"meta,omitempty"`
}
