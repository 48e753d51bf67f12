// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package store holds shared application state and mediates all
// reads, writes, and change notifications. State is a typed snapshot
// that is replaced, never mutated, on every update.
package store

import (
	"log"
	"sync"

	"github.com/outrigdev/goid"
	"github.com/ripplekit/ripple/util"
)

// Partial supplies a subset of state fields to shallow-merge into the
// current snapshot. Keys match the state struct's json tags; unknown
// keys are accepted and ignored.
type Partial = map[string]any

type Listener[S any] func(S)

type listenerEntry[S any] struct {
	fn      Listener[S]
	removed bool
}

type Store[S any] struct {
	lock        *sync.Mutex
	val         S
	listeners   []*listenerEntry[S]
	pending     []func(S) S
	notifyGoIds map[uint64]bool
}

func MakeStore[S any](initialVal S) *Store[S] {
	return &Store[S]{
		lock:        &sync.Mutex{},
		val:         initialVal,
		notifyGoIds: make(map[uint64]bool),
	}
}

// GetState returns the current snapshot. Callers must treat it as
// immutable; use SetState/SetFn to produce a new one.
func (s *Store[S]) GetState() S {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.val
}

// SetState shallow-merges partial onto a copy of the current snapshot,
// replaces the snapshot, and synchronously notifies every subscriber
// in subscription order with the new snapshot. Every call notifies;
// there is no batching and no dedup of unchanged values.
func (s *Store[S]) SetState(partial Partial) {
	s.update(func(cur S) S {
		next := cur
		if err := util.DoMapStructure(&next, partial); err != nil {
			log.Printf("store: failed to merge partial state: %v", err)
			return cur
		}
		return next
	})
}

// Set replaces the whole snapshot.
func (s *Store[S]) Set(newVal S) {
	s.update(func(S) S {
		return newVal
	})
}

// SetFn replaces the snapshot by applying fn to the current value.
func (s *Store[S]) SetFn(fn func(S) S) {
	s.update(fn)
}

// Subscribe appends listener to the subscriber list and returns an
// unsubscribe function. The first call removes the listener; further
// calls are no-ops.
func (s *Store[S]) Subscribe(listener Listener[S]) func() {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry := &listenerEntry[S]{fn: listener}
	s.listeners = append(s.listeners, entry)
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if entry.removed {
			return
		}
		entry.removed = true
		for idx, e := range s.listeners {
			if e == entry {
				s.listeners = append(s.listeners[:idx], s.listeners[idx+1:]...)
				break
			}
		}
	}
}

func (s *Store[S]) NumListeners() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.listeners)
}

// inNotify reports whether the calling goroutine is currently inside
// one of this store's notification passes. Passes on other goroutines
// do not affect the answer, so concurrent updates stay synchronous
// while reentrant ones get deferred.
func (s *Store[S]) inNotify() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.notifyGoIds[goid.Get()]
}

func (s *Store[S]) update(fn func(S) S) {
	if s.inNotify() {
		// an update issued from inside a subscriber callback is
		// deferred until the current notification pass completes
		log.Printf("store: update during notification, deferring")
		s.lock.Lock()
		s.pending = append(s.pending, fn)
		s.lock.Unlock()
		return
	}
	for fn != nil {
		s.lock.Lock()
		next := fn(s.val)
		s.val = next
		entries := make([]*listenerEntry[S], len(s.listeners))
		copy(entries, s.listeners)
		s.lock.Unlock()

		s.notify(next, entries)

		s.lock.Lock()
		if len(s.pending) > 0 {
			fn = s.pending[0]
			s.pending = s.pending[1:]
		} else {
			fn = nil
		}
		s.lock.Unlock()
	}
}

func (s *Store[S]) notify(newVal S, entries []*listenerEntry[S]) {
	gid := goid.Get()
	s.lock.Lock()
	s.notifyGoIds[gid] = true
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.notifyGoIds, gid)
		s.lock.Unlock()
	}()
	for _, entry := range entries {
		if entry.removed {
			continue
		}
		s.callListener(entry, newVal)
	}
}

// a panicking subscriber is isolated and logged; the remaining
// subscribers in the pass still run
func (s *Store[S]) callListener(entry *listenerEntry[S], newVal S) {
	defer func() {
		util.PanicHandler("store listener", recover())
	}()
	entry.fn(newVal)
}
