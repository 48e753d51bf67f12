// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package app wires a store, a set of mounted components, and an
// event broker into a served application. The App object is
// explicitly constructed and explicitly owned; there is no ambient
// singleton - the bootstrap routine passes it to whatever needs it.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"github.com/ripplekit/ripple/bus"
	"github.com/ripplekit/ripple/comp"
	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/store"
)

const RippleListenAddrEnvVar = "RIPPLE_LISTENADDR"
const DefaultListenAddr = "localhost:0"

// broker event ids published by the app itself; components with no
// direct reference to each other observe these (or publish their own)
const StateChangedEvent = "ripple:statechanged"
const MountedEvent = "ripple:mounted"
const UnmountedEvent = "ripple:unmounted"

type SSEvent struct {
	Event string
	Data  []byte
}

type AppOpts struct {
	Title string
}

type mountEntry struct {
	ContainerId string
	Root        *dom.Node
	Unsubscribe func()
}

type App[S any] struct {
	Lock            *sync.Mutex
	AppOpts         AppOpts
	Store           *store.Store[S]
	Broker          *bus.Broker
	CurrentClientId string
	IsDone          bool
	DoneReason      string
	DoneCh          chan struct{}
	SSEventCh       chan SSEvent
	UrlHandlerMux   *mux.Router

	mounts         []*mountEntry
	pendingPatches []dom.Patch
}

func MakeApp[S any](appStore *store.Store[S], appOpts AppOpts) *App[S] {
	a := &App[S]{
		Lock:          &sync.Mutex{},
		AppOpts:       appOpts,
		Store:         appStore,
		Broker:        bus.MakeBroker(),
		DoneCh:        make(chan struct{}),
		SSEventCh:     make(chan SSEvent, 100),
		UrlHandlerMux: mux.NewRouter(),
	}
	// every state change is rebroadcast on the bus for observers that
	// are not store subscribers themselves
	a.Store.Subscribe(func(newState S) {
		a.Broker.Publish(bus.Event{Event: StateChangedEvent, Sender: "store", Data: newState})
	})
	return a
}

// Mount attaches a component root under the named container token and
// registers the component's Update as a store subscriber. Property
// writes made by the component flow into the app's patch queue.
func (a *App[S]) Mount(containerId string, inst *comp.Instance[S]) {
	root := inst.Element()
	root.SetPatchSink(a.addPatch)
	unsubscribe := a.Store.Subscribe(inst.Update)

	a.Lock.Lock()
	a.mounts = append(a.mounts, &mountEntry{
		ContainerId: containerId,
		Root:        root,
		Unsubscribe: unsubscribe,
	})
	a.Lock.Unlock()

	a.Broker.Publish(bus.Event{Event: MountedEvent, Scopes: []string{containerId}, Sender: "app", Data: containerId})
}

// Unmount detaches the component mounted under containerId and
// removes its store subscription.
func (a *App[S]) Unmount(containerId string) {
	a.Lock.Lock()
	removed := false
	for idx, entry := range a.mounts {
		if entry.ContainerId == containerId {
			entry.Unsubscribe()
			a.mounts = append(a.mounts[:idx], a.mounts[idx+1:]...)
			removed = true
			break
		}
	}
	a.Lock.Unlock()
	if removed {
		a.Broker.Publish(bus.Event{Event: UnmountedEvent, Scopes: []string{containerId}, Sender: "app", Data: containerId})
	}
}

func (a *App[S]) addPatch(patch dom.Patch) {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	a.pendingPatches = append(a.pendingPatches, patch)
}

// DrainPatches returns the patches accumulated since the last drain.
func (a *App[S]) DrainPatches() []dom.Patch {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	patches := a.pendingPatches
	a.pendingPatches = nil
	return patches
}

// DispatchEvent routes a shell-originated event into the mounted
// trees. Returns true if some handler consumed it.
func (a *App[S]) DispatchEvent(event dom.Event) bool {
	a.Lock.Lock()
	mounts := make([]*mountEntry, len(a.mounts))
	copy(mounts, a.mounts)
	a.Lock.Unlock()
	for _, entry := range mounts {
		if entry.Root.Dispatch(event) {
			return true
		}
	}
	return false
}

// FindNode looks up a node by id across all mounts.
func (a *App[S]) FindNode(nodeId string) *dom.Node {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	for _, entry := range a.mounts {
		if node := entry.Root.FindId(nodeId); node != nil {
			return node
		}
	}
	return nil
}

// RenderMounts returns the rendered HTML of every mount keyed by
// container id.
func (a *App[S]) RenderMounts() map[string]string {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	result := make(map[string]string)
	for _, entry := range a.mounts {
		result[entry.ContainerId] = entry.Root.RenderHTML()
	}
	return result
}

func (a *App[S]) mountIds() []string {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	ids := make([]string, 0, len(a.mounts))
	for _, entry := range a.mounts {
		ids = append(ids, entry.ContainerId)
	}
	sort.Strings(ids)
	return ids
}

func (a *App[S]) GetIsDone() bool {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	return a.IsDone
}

func (a *App[S]) checkClientId(clientId string) error {
	if clientId == "" {
		return fmt.Errorf("client id cannot be empty")
	}
	a.Lock.Lock()
	defer a.Lock.Unlock()
	if a.CurrentClientId == "" || a.CurrentClientId == clientId {
		a.CurrentClientId = clientId
		return nil
	}
	return fmt.Errorf("client id mismatch: expected %s, got %s", a.CurrentClientId, clientId)
}

func (a *App[S]) clientTakeover(clientId string) {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	a.CurrentClientId = clientId
}

func (a *App[S]) doShutdown(reason string) {
	a.Lock.Lock()
	defer a.Lock.Unlock()
	if a.IsDone {
		return
	}
	a.DoneReason = reason
	a.IsDone = true
	close(a.DoneCh)
}

func (a *App[S]) RegisterUrlPathHandler(path string, handler http.Handler) {
	a.UrlHandlerMux.Handle(path, handler)
}

// sendPatches pushes a patch batch to the SSE stream, best-effort.
func (a *App[S]) sendPatches(patches []dom.Patch) {
	if len(patches) == 0 {
		return
	}
	data, err := marshalPatches(patches)
	if err != nil {
		log.Printf("failed to marshal patches: %v", err)
		return
	}
	select {
	case a.SSEventCh <- SSEvent{Event: "patch", Data: data}:
	default:
		log.Printf("SSEvent channel is full, dropping patch batch")
	}
}

func (a *App[S]) ListenAndServe(ctx context.Context) (string, error) {
	handlers := NewHTTPHandlers(a)
	smux := http.NewServeMux()
	handlers.RegisterHandlers(smux)

	listenAddr := os.Getenv(RippleListenAddrEnvVar)
	if listenAddr == "" {
		listenAddr = DefaultListenAddr
	}

	server := &http.Server{
		Addr:    listenAddr,
		Handler: smux,
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	log.Printf("ripple app server listening on %s", addr)

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Printf("context canceled, shutting down server...")
		if err := server.Shutdown(context.Background()); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	return addr, nil
}

func (a *App[S]) runMainE() error {
	_, err := a.ListenAndServe(context.Background())
	if err != nil {
		return err
	}
	<-a.DoneCh
	return nil
}

func (a *App[S]) RunMain() {
	err := a.runMainE()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
