// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package dom implements the retained element tree that components
// render into. Node identity is stable for the life of a component:
// updates write individual properties, they never rebuild subtrees.
package dom

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ripplekit/ripple/util"
)

// structured marker attributes, the only sanctioned selectors
// (lookup by class name or HTML id carries no behavioral meaning)
const ComponentAttr = "data-component"
const RefAttr = "data-ref"
const NameAttr = "name"

// Patch records a single property write, suitable for shipping to a
// frontend shell.
type Patch struct {
	NodeId string `json:"nodeid"`
	Prop   string `json:"prop"`
	Value  any    `json:"value"`
}

type PatchSink func(Patch)

type Node struct {
	Id       string
	Tag      string
	Attrs    map[string]string
	Children []*Node

	props      map[string]any
	handlers   map[string]func(Event)
	propWrites map[string]int
	sink       PatchSink
}

func MakeNode(tag string) *Node {
	return &Node{
		Id:    uuid.New().String(),
		Tag:   tag,
		Attrs: make(map[string]string),
	}
}

// WithComponent marks this node as a component root (kebab-case name).
func (n *Node) WithComponent(name string) *Node {
	n.Attrs[ComponentAttr] = name
	return n
}

// WithRef marks this node as an internally-queryable descendant.
func (n *Node) WithRef(name string) *Node {
	n.Attrs[RefAttr] = name
	return n
}

// WithName sets the submission-name attribute (native form compat for
// input-capturing elements, distinct from the ref marker).
func (n *Node) WithName(name string) *Node {
	n.Attrs[NameAttr] = name
	return n
}

func (n *Node) WithAttr(key string, val string) *Node {
	n.Attrs[key] = val
	return n
}

func (n *Node) WithProp(prop string, val any) *Node {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[prop] = val
	return n
}

func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// On registers a handler for an event type (e.g. "pointerdown").
// Registering again for the same type replaces the handler.
func (n *Node) On(eventType string, handler func(Event)) *Node {
	if n.handlers == nil {
		n.handlers = make(map[string]func(Event))
	}
	n.handlers[eventType] = handler
	return n
}

// SetProp writes a property value unconditionally. Each write is
// counted (see PropWrites) and forwarded to the patch sink if one is
// attached. Callers that want selective updates compare first.
func (n *Node) SetProp(prop string, val any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[prop] = val
	if n.propWrites == nil {
		n.propWrites = make(map[string]int)
	}
	n.propWrites[prop]++
	if n.sink != nil {
		n.sink(Patch{NodeId: n.Id, Prop: prop, Value: val})
	}
}

func (n *Node) Prop(prop string) (any, bool) {
	val, ok := n.props[prop]
	return val, ok
}

func (n *Node) PropStr(prop string) string {
	val, ok := n.props[prop]
	if !ok {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return fmt.Sprint(val)
	}
	return str
}

// PropWrites returns the number of SetProp calls made against prop
// since the node was built.
func (n *Node) PropWrites(prop string) int {
	return n.propWrites[prop]
}

// SetPatchSink attaches sink to this node and every descendant.
func (n *Node) SetPatchSink(sink PatchSink) {
	n.Walk(func(node *Node) {
		node.sink = sink
	})
}

func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// FindRef returns the first descendant (or the node itself) whose ref
// marker matches name, or nil.
func (n *Node) FindRef(name string) *Node {
	var found *Node
	n.Walk(func(node *Node) {
		if found == nil && node.Attrs[RefAttr] == name {
			found = node
		}
	})
	return found
}

// FindId returns the node with the given node id in this subtree, or nil.
func (n *Node) FindId(id string) *Node {
	var found *Node
	n.Walk(func(node *Node) {
		if found == nil && node.Id == id {
			found = node
		}
	})
	return found
}

// Dispatch routes event to the handler registered on the target node.
// Returns false if the target or handler does not exist. A panicking
// handler is recovered and logged.
func (n *Node) Dispatch(event Event) bool {
	target := n
	if event.NodeId != "" && event.NodeId != n.Id {
		target = n.FindId(event.NodeId)
		if target == nil {
			return false
		}
	}
	handler := target.handlers[event.Type]
	if handler == nil {
		return false
	}
	callHandler(target, handler, event)
	return true
}

func callHandler(target *Node, handler func(Event), event Event) {
	defer func() {
		util.PanicHandler(fmt.Sprintf("event handler - tag: %s, type: %s", target.Tag, event.Type), recover())
	}()
	handler(event)
}
