// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

// Package client is a small Go-side client for a running ripple app:
// it posts events and actions over HTTP and consumes the SSE update
// stream as typed patch batches.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/launchdarkly/eventsource"
	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/store"
)

type Client struct {
	BaseUrl    string
	ClientId   string
	HttpClient *http.Client

	// ForceTakeover claims the update stream even if another client
	// id currently owns it.
	ForceTakeover bool
}

func MakeClient(baseUrl string) *Client {
	return &Client{
		BaseUrl:    baseUrl,
		ClientId:   uuid.New().String(),
		HttpClient: http.DefaultClient,
	}
}

func (c *Client) postJSON(path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	resp, err := c.HttpClient.Post(c.BaseUrl+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// SendEvent posts a DOM event and returns the patches it produced.
func (c *Client) SendEvent(event dom.Event) ([]dom.Patch, error) {
	respBody, err := c.postJSON("/api/event", event)
	if err != nil {
		return nil, err
	}
	var patches []dom.Patch
	if err := json.Unmarshal(respBody, &patches); err != nil {
		return nil, fmt.Errorf("failed to parse patch response: %w", err)
	}
	return patches, nil
}

// SendAction posts a partial-state update and returns the patches it
// produced.
func (c *Client) SendAction(partial store.Partial) ([]dom.Patch, error) {
	respBody, err := c.postJSON("/api/action", partial)
	if err != nil {
		return nil, err
	}
	var patches []dom.Patch
	if err := json.Unmarshal(respBody, &patches); err != nil {
		return nil, fmt.Errorf("failed to parse patch response: %w", err)
	}
	return patches, nil
}

// GetState fetches the current snapshot into out.
func (c *Client) GetState(out any) error {
	resp, err := c.HttpClient.Get(c.BaseUrl + "/api/state")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("/api/state: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StreamUpdates connects to the SSE update stream and sends each
// patch batch on the returned channel until ctx is canceled or the
// stream closes. Keepalive comments are skipped.
func (c *Client) StreamUpdates(ctx context.Context) (<-chan []dom.Patch, error) {
	url := fmt.Sprintf("%s/api/updates?clientId=%s", c.BaseUrl, c.ClientId)
	if c.ForceTakeover {
		url += "&takeover=1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("/api/updates: status %d", resp.StatusCode)
	}

	patchCh := make(chan []dom.Patch, 8)
	go func() {
		defer resp.Body.Close()
		defer close(patchCh)
		decoder := eventsource.NewDecoder(resp.Body)
		for {
			event, err := decoder.Decode()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("update stream closed: %v", err)
				}
				return
			}
			if event.Event() != "patch" {
				continue
			}
			var patches []dom.Patch
			if err := json.Unmarshal([]byte(event.Data()), &patches); err != nil {
				log.Printf("failed to parse patch event: %v", err)
				continue
			}
			select {
			case patchCh <- patches:
			case <-ctx.Done():
				return
			}
		}
	}()
	return patchCh, nil
}
