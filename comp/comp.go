// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package comp defines the component contract: a component owns a dom
// subtree and exposes an Update function that patches only the
// properties whose backing state value changed. Components are
// decoupled from the store; user-triggered changes flow out through
// an action callback supplied at construction.
package comp

import (
	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/util"
)

// Binding is one row of a component's update table: a state field
// paired with the DOM write that renders it. The cached last-rendered
// value makes the "what changed" comparison explicit and testable.
type Binding[S any] struct {
	Name  string
	Field func(S) any
	Apply func(val any)

	last    any
	hasLast bool
}

// BindProp builds a binding that writes field's value to a node
// property. The node's current property value seeds the cache, so an
// Update carrying the initial state writes nothing.
func BindProp[S any](node *dom.Node, prop string, field func(S) any) *Binding[S] {
	b := &Binding[S]{
		Name:  prop,
		Field: field,
		Apply: func(val any) {
			node.SetProp(prop, val)
		},
	}
	if val, ok := node.Prop(prop); ok {
		b.last = val
		b.hasLast = true
	}
	return b
}

type Instance[S any] struct {
	root     *dom.Node
	bindings []*Binding[S]
}

func MakeInstance[S any](root *dom.Node, bindings ...*Binding[S]) *Instance[S] {
	return &Instance[S]{
		root:     root,
		bindings: bindings,
	}
}

// Element returns the root node; the caller owns attaching it to a
// parent and routing state changes into Update.
func (c *Instance[S]) Element() *dom.Node {
	return c.root
}

// Update patches the subtree against newState. Only bindings whose
// value changed since the last rendering are written; node identity
// and attached handlers are untouched. Safe to call repeatedly with
// the same state.
func (c *Instance[S]) Update(newState S) {
	for _, b := range c.bindings {
		val := b.Field(newState)
		if b.hasLast && util.JsonValEqual(b.last, val) {
			continue
		}
		b.last = val
		b.hasLast = true
		b.Apply(val)
	}
}
