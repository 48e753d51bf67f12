// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// cross-component broadcast system
package bus

import (
	"fmt"
	"sync"

	"github.com/ripplekit/ripple/util"
)

// this broker interface is mostly generic
// strong typing and event ids are defined by the components themselves

// Event ids are namespaced strings ("counter:changed"). Delivery is
// synchronous and best-effort: no queuing, no replay to late
// subscribers.
type Event struct {
	Event  string   `json:"event"`
	Scopes []string `json:"scopes,omitempty"`
	Sender string   `json:"sender,omitempty"`
	Data   any      `json:"data,omitempty"`
}

type SubscriptionRequest struct {
	Event     string   `json:"event"`
	Scopes    []string `json:"scopes,omitempty"`
	AllScopes bool     `json:"allscopes,omitempty"`
}

type Subscriber interface {
	SubscriberId() string
	Deliver(event Event)
}

type brokerSubscription struct {
	AllSubs   []string            // subscriber ids subscribed to all scopes
	ScopeSubs map[string][]string // subscriber ids subscribed to specific scopes
}

func (bs *brokerSubscription) isEmpty() bool {
	return len(bs.AllSubs) == 0 && len(bs.ScopeSubs) == 0
}

type Broker struct {
	Lock     *sync.Mutex
	SubsMap  map[string]Subscriber
	EventMap map[string]*brokerSubscription
}

func MakeBroker() *Broker {
	return &Broker{
		Lock:     &sync.Mutex{},
		SubsMap:  make(map[string]Subscriber),
		EventMap: make(map[string]*brokerSubscription),
	}
}

func (b *Broker) Subscribe(subscriber Subscriber, sub SubscriptionRequest) {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	subId := subscriber.SubscriberId()
	b.SubsMap[subId] = subscriber
	bs := b.EventMap[sub.Event]
	if bs == nil {
		bs = &brokerSubscription{
			AllSubs:   []string{},
			ScopeSubs: make(map[string][]string),
		}
		b.EventMap[sub.Event] = bs
	}
	if sub.AllScopes || len(sub.Scopes) == 0 {
		bs.AllSubs = util.AddElemToSliceUniq(bs.AllSubs, subId)
	}
	for _, scope := range sub.Scopes {
		bs.ScopeSubs[scope] = util.AddElemToSliceUniq(bs.ScopeSubs[scope], subId)
	}
}

func (b *Broker) Unsubscribe(subscriber Subscriber, sub SubscriptionRequest) {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	subId := subscriber.SubscriberId()
	bs := b.EventMap[sub.Event]
	if bs == nil {
		return
	}
	if sub.AllScopes || len(sub.Scopes) == 0 {
		bs.AllSubs = util.RemoveElemFromSlice(bs.AllSubs, subId)
	}
	for _, scope := range sub.Scopes {
		scopeSubs := util.RemoveElemFromSlice(bs.ScopeSubs[scope], subId)
		if len(scopeSubs) == 0 {
			delete(bs.ScopeSubs, scope)
		} else {
			bs.ScopeSubs[scope] = scopeSubs
		}
	}
	if bs.isEmpty() {
		delete(b.EventMap, sub.Event)
	}
}

func (b *Broker) UnsubscribeAll(subscriber Subscriber) {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	subId := subscriber.SubscriberId()
	delete(b.SubsMap, subId)
	for eventId, bs := range b.EventMap {
		bs.AllSubs = util.RemoveElemFromSlice(bs.AllSubs, subId)
		for scope, scopeSubs := range bs.ScopeSubs {
			scopeSubs = util.RemoveElemFromSlice(scopeSubs, subId)
			if len(scopeSubs) == 0 {
				delete(bs.ScopeSubs, scope)
			} else {
				bs.ScopeSubs[scope] = scopeSubs
			}
		}
		if bs.isEmpty() {
			delete(b.EventMap, eventId)
		}
	}
}

// Publish delivers event to every matching subscriber, synchronously,
// on the calling goroutine. A panicking subscriber is isolated.
func (b *Broker) Publish(event Event) {
	subIds := b.getMatchingSubIds(event)
	for _, subId := range subIds {
		b.Lock.Lock()
		subscriber := b.SubsMap[subId]
		b.Lock.Unlock()
		if subscriber != nil {
			deliverEvent(subscriber, event)
		}
	}
}

func deliverEvent(subscriber Subscriber, event Event) {
	defer func() {
		util.PanicHandler(fmt.Sprintf("bus deliver %q to %s", event.Event, subscriber.SubscriberId()), recover())
	}()
	subscriber.Deliver(event)
}

func (b *Broker) getMatchingSubIds(event Event) []string {
	b.Lock.Lock()
	defer b.Lock.Unlock()
	bs := b.EventMap[event.Event]
	if bs == nil {
		return nil
	}
	seen := make(map[string]bool)
	var rtn []string
	for _, subId := range bs.AllSubs {
		if !seen[subId] {
			seen[subId] = true
			rtn = append(rtn, subId)
		}
	}
	for _, scope := range event.Scopes {
		for _, subId := range bs.ScopeSubs[scope] {
			if !seen[subId] {
				seen[subId] = true
				rtn = append(rtn, subId)
			}
		}
	}
	return rtn
}
