// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/store"
	"github.com/ripplekit/ripple/util"
)

const SSEKeepAliveDuration = 5 * time.Second

type HTTPHandlers[S any] struct {
	App          *App[S]
	dispatchLock sync.Mutex
}

func NewHTTPHandlers[S any](app *App[S]) *HTTPHandlers[S] {
	return &HTTPHandlers[S]{
		App: app,
	}
}

func (h *HTTPHandlers[S]) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleShell)
	mux.HandleFunc("/api/event", h.handleEvent)
	mux.HandleFunc("/api/action", h.handleAction)
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/html", h.handleHTML)
	mux.HandleFunc("/api/updates", h.handleSSE)
	mux.HandleFunc("/ws", h.handleWs)
	mux.HandleFunc("/files/", h.handleFilesUrl)
}

func marshalPatches(patches []dom.Patch) ([]byte, error) {
	return json.Marshal(patches)
}

// dispatchAndFlush serializes event/action processing so patch
// batches stay coherent per trigger.
func (h *HTTPHandlers[S]) dispatchAndFlush(fn func()) []dom.Patch {
	h.dispatchLock.Lock()
	defer h.dispatchLock.Unlock()
	fn()
	patches := h.App.DrainPatches()
	h.App.sendPatches(patches)
	return patches
}

func (h *HTTPHandlers[S]) handleEvent(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleEvent", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	var event dom.Event
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse JSON: %v", err), http.StatusBadRequest)
		return
	}

	var handled bool
	patches := h.dispatchAndFlush(func() {
		handled = h.App.DispatchEvent(event)
	})
	if !handled {
		log.Printf("event %s for node %s had no handler", event.Type, event.NodeId)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(patches); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (h *HTTPHandlers[S]) handleAction(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleAction", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	var partial store.Partial
	if err := json.Unmarshal(body, &partial); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse JSON: %v", err), http.StatusBadRequest)
		return
	}

	patches := h.dispatchAndFlush(func() {
		h.App.Store.SetState(partial)
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(patches); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (h *HTTPHandlers[S]) handleState(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleState", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.App.Store.GetState()); err != nil {
		log.Printf("failed to encode state response: %v", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *HTTPHandlers[S]) handleHTML(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleHTML", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.App.RenderMounts()); err != nil {
		log.Printf("failed to encode html response: %v", err)
	}
}

func (h *HTTPHandlers[S]) handleShell(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleShell", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	title := h.App.AppOpts.Title
	if title == "" {
		title = "ripple app"
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title></head>\n<body>\n")
	mounts := h.App.RenderMounts()
	for _, containerId := range h.App.mountIds() {
		fmt.Fprintf(&sb, "<div id=%q>%s</div>\n", containerId, mounts[containerId])
	}
	sb.WriteString(shellScript)
	sb.WriteString("</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html")
	io.WriteString(w, sb.String())
}

func (h *HTTPHandlers[S]) handleFilesUrl(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleFilesUrl", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	r.URL.Path = strings.TrimPrefix(r.URL.Path, "/files")
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	h.App.UrlHandlerMux.ServeHTTP(w, r)
}

func (h *HTTPHandlers[S]) handleSSE(w http.ResponseWriter, r *http.Request) {
	defer func() {
		panicErr := util.PanicHandler("handleSSE", recover())
		if panicErr != nil {
			http.Error(w, fmt.Sprintf("internal server error: %v", panicErr), http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientId := r.URL.Query().Get("clientId")
	if r.URL.Query().Get("takeover") != "" && clientId != "" {
		h.App.clientTakeover(clientId)
	}
	if err := h.App.checkClientId(clientId); err != nil {
		http.Error(w, fmt.Sprintf("client id error: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	keepaliveTicker := time.NewTicker(SSEKeepAliveDuration)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.App.DoneCh:
			return
		case <-keepaliveTicker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case event := <-h.App.SSEventCh:
			if event.Event == "" {
				break
			}
			fmt.Fprintf(w, "event: %s\n", event.Event)
			if len(event.Data) > 0 {
				fmt.Fprintf(w, "data: %s\n", string(event.Data))
			}
			fmt.Fprintf(w, "\n")
			flusher.Flush()
		}
	}
}

// minimal browser glue: forwards pointer events on marked nodes to
// /api/event and applies patch batches from the SSE stream
const shellScript = `<script>
(function() {
  var clientId = Math.random().toString(36).slice(2);
  function send(ev, type) {
    var node = ev.target.closest("[data-node]");
    if (!node) return;
    fetch("/api/event", {method: "POST", body: JSON.stringify({
      nodeid: node.getAttribute("data-node"),
      type: type,
      targetvalue: node.value || "",
      targetname: node.getAttribute("name") || ""
    })});
  }
  ["pointerdown", "pointerup", "pointerleave", "click", "change"].forEach(function(type) {
    document.addEventListener(type, function(ev) { send(ev, type); }, true);
  });
  var es = new EventSource("/api/updates?clientId=" + clientId + "&takeover=1");
  es.addEventListener("patch", function(msg) {
    JSON.parse(msg.data).forEach(function(p) {
      var node = document.querySelector('[data-node="' + p.nodeid + '"]');
      if (!node) return;
      if (p.prop === "textContent") { node.textContent = p.value; } else { node[p.prop] = p.value; }
    });
  });
})();
</script>
`
